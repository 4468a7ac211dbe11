package filestore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"snapgram/internal/models"
)

// Memory keeps files in process memory. Preview URLs use the memory://
// scheme and are only meaningful to Resolve.
type Memory struct {
	mu    sync.RWMutex
	files map[string]memoryFile
}

type memoryFile struct {
	meta    models.File
	content []byte
}

// NewMemory creates an empty in-memory file store.
func NewMemory() *Memory {
	return &Memory{files: make(map[string]memoryFile)}
}

func (m *Memory) CreateFile(_ context.Context, fileID string, upload models.Upload) (*models.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[fileID]; ok {
		return nil, fmt.Errorf("file %s already exists", fileID)
	}
	meta := models.File{
		ID:        fileID,
		Name:      upload.Name,
		MimeType:  upload.ContentType,
		Size:      int64(len(upload.Content)),
		CreatedAt: time.Now().UTC(),
	}
	content := make([]byte, len(upload.Content))
	copy(content, upload.Content)
	m.files[fileID] = memoryFile{meta: meta, content: content}
	return &meta, nil
}

func (m *Memory) GetFilePreview(_ context.Context, fileID string, opts models.PreviewOptions) (string, error) {
	m.mu.RLock()
	_, ok := m.files[fileID]
	m.mu.RUnlock()
	if !ok {
		return "", ErrNotFound
	}
	return memoryPreviewURL(fileID, opts), nil
}

func (m *Memory) DeleteFile(_ context.Context, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[fileID]; !ok {
		return ErrNotFound
	}
	delete(m.files, fileID)
	return nil
}

// Exists reports whether fileID is stored.
func (m *Memory) Exists(fileID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[fileID]
	return ok
}

// Len returns the number of stored files.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

// Resolve returns the metadata of the file a preview URL points at, or
// ErrNotFound once the file has been deleted.
func (m *Memory) Resolve(previewURL string) (*models.File, error) {
	u, err := url.Parse(previewURL)
	if err != nil || u.Scheme != "memory" {
		return nil, fmt.Errorf("not a memory preview url: %q", previewURL)
	}
	fileID := strings.TrimSuffix(strings.TrimPrefix(u.Path, "/files/"), "/preview")
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[fileID]
	if !ok {
		return nil, ErrNotFound
	}
	meta := f.meta
	return &meta, nil
}

func memoryPreviewURL(fileID string, opts models.PreviewOptions) string {
	q := url.Values{}
	q.Set("width", strconv.Itoa(opts.Width))
	q.Set("height", strconv.Itoa(opts.Height))
	q.Set("gravity", string(opts.Gravity))
	q.Set("quality", strconv.Itoa(opts.Quality))
	return (&url.URL{Scheme: "memory", Path: "/files/" + fileID + "/preview", RawQuery: q.Encode()}).String()
}
