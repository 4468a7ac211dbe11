// Package seed creates demo users and posts. Everything goes through the
// service layer, so seeded data exercises the same file-then-document
// orchestration as API traffic. Intended for development only.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"strings"

	"snapgram/internal/models"
	"snapgram/internal/observability"
	"snapgram/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

// Options configuration for the seeder
type Options struct {
	NumUsers int
	NumPosts int
	// Seed makes runs reproducible. Zero picks a random seed.
	Seed int64
	// ImageSize is the side of the generated post images in pixels.
	ImageSize int
}

// Result summarizes a seeding run.
type Result struct {
	Users []*models.User
	Posts []*models.Post
	Saves int
}

// Seeder populates the application through its services.
type Seeder struct {
	users  *service.UserService
	posts  *service.PostService
	opts   Options
	faker  *gofakeit.Faker
	logger *slog.Logger
}

// NewSeeder creates a Seeder.
func NewSeeder(users *service.UserService, posts *service.PostService, opts Options) *Seeder {
	if opts.ImageSize <= 0 {
		opts.ImageSize = 64
	}
	return &Seeder{
		users:  users,
		posts:  posts,
		opts:   opts,
		faker:  gofakeit.New(opts.Seed),
		logger: observability.GlobalLogger.With("component", "seed"),
	}
}

type member struct {
	user   *models.User
	caller service.Caller
}

// Run creates opts.NumUsers users, then opts.NumPosts posts spread across
// them with random likes and saves.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	if s.opts.NumUsers <= 0 {
		return nil, fmt.Errorf("at least one user is required")
	}

	res := &Result{}
	members := make([]member, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		m, err := s.createMember(ctx, i)
		if err != nil {
			return res, fmt.Errorf("seed user %d: %w", i, err)
		}
		members = append(members, m)
		res.Users = append(res.Users, m.user)
	}
	s.logger.InfoContext(ctx, "seeded users", "count", len(members))

	for i := 0; i < s.opts.NumPosts; i++ {
		author := members[s.faker.Number(0, len(members)-1)]
		post, err := s.createPost(ctx, author.caller)
		if err != nil {
			return res, fmt.Errorf("seed post %d: %w", i, err)
		}

		if post, err = s.like(ctx, post, members); err != nil {
			return res, fmt.Errorf("seed likes for %s: %w", post.ID, err)
		}
		res.Posts = append(res.Posts, post)

		for _, m := range members {
			if m.user.ID == author.user.ID || s.faker.Number(1, 4) != 1 {
				continue
			}
			if _, err := s.posts.SavePost(ctx, m.caller, post.ID); err != nil {
				return res, fmt.Errorf("seed save for %s: %w", post.ID, err)
			}
			res.Saves++
		}
	}
	s.logger.InfoContext(ctx, "seeded posts", "count", len(res.Posts), "saves", res.Saves)
	return res, nil
}

func (s *Seeder) createMember(ctx context.Context, i int) (member, error) {
	first, last := s.faker.FirstName(), s.faker.LastName()
	username := strings.ToLower(fmt.Sprintf("%s%s%d", first, last, i))
	email := username + "@snapgram.dev"

	user, err := s.users.CreateUserAccount(ctx, service.SignUpInput{
		Name:     first + " " + last,
		Username: username,
		Email:    email,
		Password: DefaultPassword,
	})
	if err != nil {
		return member{}, err
	}
	session, err := s.users.SignIn(ctx, service.SignInInput{Email: email, Password: DefaultPassword})
	if err != nil {
		return member{}, err
	}
	caller, err := s.users.Authenticate(ctx, session.Token)
	if err != nil {
		return member{}, err
	}
	return member{user: user, caller: caller}, nil
}

func (s *Seeder) createPost(ctx context.Context, caller service.Caller) (*models.Post, error) {
	content, err := s.gradient()
	if err != nil {
		return nil, err
	}
	tags := make([]string, s.faker.Number(0, 3))
	for i := range tags {
		tags[i] = strings.ToLower(s.faker.Word())
	}

	return s.posts.CreatePost(ctx, caller, service.CreatePostInput{
		Caption:  s.faker.Sentence(s.faker.Number(3, 12)),
		Location: s.faker.City() + ", " + s.faker.Country(),
		Tags:     service.FormatTags(tags),
		File: &models.Upload{
			Name:        s.faker.Word() + ".png",
			ContentType: "image/png",
			Content:     content,
		},
	})
}

func (s *Seeder) like(ctx context.Context, post *models.Post, members []member) (*models.Post, error) {
	likes := []string{}
	for _, m := range members {
		if s.faker.Bool() {
			likes = append(likes, m.user.ID)
		}
	}
	if len(likes) == 0 {
		return post, nil
	}
	return s.posts.LikePost(ctx, post.ID, likes)
}

// gradient draws a two-colour diagonal gradient.
func (s *Seeder) gradient() ([]byte, error) {
	size := s.opts.ImageSize
	from := s.color()
	to := s.color()

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			t := float64(x+y) / float64(2*size)
			img.Set(x, y, color.RGBA{
				R: lerp(from.R, to.R, t),
				G: lerp(from.G, to.G, t),
				B: lerp(from.B, to.B, t),
				A: 255,
			})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Seeder) color() color.RGBA {
	return color.RGBA{
		R: uint8(s.faker.Number(0, 255)),
		G: uint8(s.faker.Number(0, 255)),
		B: uint8(s.faker.Number(0, 255)),
		A: 255,
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t)
}
