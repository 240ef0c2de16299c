// Package storage keeps uploaded image attachments on the local disk and
// serves them under a public URL prefix.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrTooLarge is returned when an upload exceeds the size limit.
	ErrTooLarge = errors.New("file is too large")
	// ErrUnsupportedType is returned for uploads that are not images.
	ErrUnsupportedType = errors.New("file must be a JPEG, PNG, GIF or WebP image")
)

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Store saves and removes uploaded files.
type Store interface {
	Save(ctx context.Context, r io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

// Local stores files in a directory. Saved files are named with a random
// UUID and the extension of their detected content type.
type Local struct {
	dir     string
	baseURL string
	maxSize int64
}

// NewLocal creates the upload directory if needed.
func NewLocal(dir, baseURL string, maxSizeMB int) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %q: %w", dir, err)
	}
	if maxSizeMB <= 0 {
		maxSizeMB = 5
	}
	return &Local{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSize: int64(maxSizeMB) << 20,
	}, nil
}

// Dir returns the directory files are written to.
func (l *Local) Dir() string { return l.dir }

// BaseURL returns the public prefix of saved files.
func (l *Local) BaseURL() string { return l.baseURL }

// MaxSize returns the size limit in bytes.
func (l *Local) MaxSize() int64 { return l.maxSize }

// Save writes r to a new file and returns its public URL.
func (l *Local) Save(ctx context.Context, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := io.ReadAll(io.LimitReader(r, l.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > l.maxSize {
		return "", ErrTooLarge
	}

	ext, ok := imageExt[http.DetectContentType(data)]
	if !ok {
		return "", ErrUnsupportedType
	}

	name := uuid.NewString() + ext
	f, err := os.OpenFile(filepath.Join(l.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close upload: %w", err)
	}
	return l.baseURL + "/" + name, nil
}

// Delete removes a file previously returned by Save. URLs outside the
// store are ignored, as are files that no longer exist.
func (l *Local) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !strings.HasPrefix(url, l.baseURL+"/") {
		return nil
	}
	name := path.Base(url)
	if _, err := uuid.Parse(strings.TrimSuffix(name, path.Ext(name))); err != nil {
		return nil
	}
	if err := os.Remove(filepath.Join(l.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete upload: %w", err)
	}
	return nil
}
