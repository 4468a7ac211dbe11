package models

import "time"

// File describes a blob held by the file store.
type File struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MimeType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Upload is a file attached to a mutation, as received from the client.
type Upload struct {
	Name        string
	ContentType string
	Content     []byte
}

// Gravity selects which part of the image survives a crop.
type Gravity string

const (
	GravityCenter Gravity = "center"
	GravityTop    Gravity = "top"
	GravityBottom Gravity = "bottom"
)

// PreviewOptions are the parameters of a derived preview.
type PreviewOptions struct {
	Width   int
	Height  int
	Gravity Gravity
	Quality int
}
