package models

import "time"

// Post is a user-authored post. ImageID and ImageURL are either both set
// or both empty.
type Post struct {
	ID        string    `bson:"_id" json:"id"`
	Creator   string    `bson:"creator" json:"creator"`
	Caption   string    `bson:"caption" json:"caption"`
	ImageURL  string    `bson:"imageUrl" json:"image_url"`
	ImageID   string    `bson:"imageId" json:"image_id"`
	Location  *string   `bson:"location" json:"location"`
	Tags      []string  `bson:"tags" json:"tags"`
	Likes     []string  `bson:"likes" json:"likes"`
	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updated_at"`
}

// HasImage reports whether the post references an uploaded file.
func (p *Post) HasImage() bool {
	return p.ImageID != "" && p.ImageURL != ""
}

// Save is the join record between a user and a post they saved.
type Save struct {
	ID        string    `bson:"_id" json:"id"`
	User      string    `bson:"user" json:"user"`
	Post      string    `bson:"post" json:"post"`
	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updated_at"`
}

// Status is the result marker returned by delete operations.
type Status struct {
	Status string `json:"status"`
}

// StatusOK is returned when a delete completes.
var StatusOK = Status{Status: "ok"}

// SavedPost is a save record together with the post it points at.
type SavedPost struct {
	Save *Save `json:"save"`
	Post *Post `json:"post"`
}
