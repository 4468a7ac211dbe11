// Package testutil provides shared fixtures for package tests that need a
// fully wired in-memory runtime.
package testutil

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"snapgram/internal/bootstrap"
	"snapgram/internal/config"
	"snapgram/internal/models"

	"github.com/stretchr/testify/require"
)

// MemoryConfig returns a configuration backed entirely by memory stores,
// with Redis disabled.
func MemoryConfig() *config.Config {
	return &config.Config{
		Port:            "0",
		Env:             "test",
		JWTSecret:       "test-secret",
		SessionTTL:      time.Hour,
		DocumentBackend: config.DocumentBackendMemory,
		FileBackend:     config.FileBackendMemory,
		AvatarBaseURL:   "https://avatars.test/initials",
	}
}

// NewRuntime initializes a runtime for cfg and closes it when the test
// ends.
func NewRuntime(t *testing.T, cfg *config.Config) *bootstrap.Runtime {
	t.Helper()
	rt, err := bootstrap.InitRuntime(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close(context.Background()) })
	return rt
}

// PNG encodes a size x size image with a diagonal stripe.
func PNG(t *testing.T, size int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for x := 0; x < size; x++ {
		img.Set(x, x, color.RGBA{B: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// PNGUpload wraps PNG as an upload.
func PNGUpload(t *testing.T, size int) *models.Upload {
	t.Helper()
	return &models.Upload{Name: "photo.png", ContentType: "image/png", Content: PNG(t, size)}
}
