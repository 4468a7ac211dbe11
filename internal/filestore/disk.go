package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"snapgram/internal/models"
)

// Disk stores originals under dir and renders previews next to them on
// first request. Preview URLs point at the API's file preview route under
// baseURL.
type Disk struct {
	dir     string
	baseURL string
}

// NewDisk creates the directory layout under dir.
func NewDisk(dir, baseURL string) (*Disk, error) {
	for _, sub := range []string{"originals", "previews"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
	}
	return &Disk{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (d *Disk) CreateFile(ctx context.Context, fileID string, upload models.Upload) (*models.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := d.originalPath(fileID)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create file %s: %w", fileID, err)
	}
	if _, err := f.Write(upload.Content); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("write file %s: %w", fileID, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("close file %s: %w", fileID, err)
	}

	return &models.File{
		ID:        fileID,
		Name:      upload.Name,
		MimeType:  upload.ContentType,
		Size:      int64(len(upload.Content)),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// GetFilePreview renders the preview eagerly so that an undecodable file
// fails here rather than when the URL is first fetched.
func (d *Disk) GetFilePreview(ctx context.Context, fileID string, opts models.PreviewOptions) (string, error) {
	if _, err := d.OpenPreview(ctx, fileID, opts); err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("width", strconv.Itoa(opts.Width))
	q.Set("height", strconv.Itoa(opts.Height))
	q.Set("gravity", string(opts.Gravity))
	q.Set("quality", strconv.Itoa(opts.Quality))
	return fmt.Sprintf("%s/api/files/%s/preview?%s", d.baseURL, url.PathEscape(fileID), q.Encode()), nil
}

// OpenPreview returns the path of the rendered preview, rendering it if
// it does not exist yet.
func (d *Disk) OpenPreview(ctx context.Context, fileID string, opts models.PreviewOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	src, err := d.originalPath(fileID)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(d.dir, "previews", previewName(fileID, opts))
	if _, err := os.Stat(dst); err == nil {
		return dst, nil
	}

	content, err := os.ReadFile(src)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read file %s: %w", fileID, err)
	}

	rendered, err := renderPreview(content, opts)
	if err != nil {
		return "", fmt.Errorf("preview %s: %w", fileID, err)
	}
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, rendered, 0o644); err != nil {
		return "", fmt.Errorf("write preview %s: %w", fileID, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("store preview %s: %w", fileID, err)
	}
	return dst, nil
}

func (d *Disk) DeleteFile(ctx context.Context, fileID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := d.originalPath(fileID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete file %s: %w", fileID, err)
	}

	previews, _ := filepath.Glob(filepath.Join(d.dir, "previews", fileID+"_*"))
	for _, p := range previews {
		_ = os.Remove(p)
	}
	return nil
}

func (d *Disk) originalPath(fileID string) (string, error) {
	if fileID == "" || strings.ContainsAny(fileID, `/\`) || strings.Contains(fileID, "..") {
		return "", fmt.Errorf("invalid file id %q", fileID)
	}
	return filepath.Join(d.dir, "originals", fileID), nil
}

func previewName(fileID string, opts models.PreviewOptions) string {
	return fmt.Sprintf("%s_%dx%d_%s_q%d.webp", fileID, opts.Width, opts.Height, opts.Gravity, opts.Quality)
}
