// Package filestore stores product images on the local filesystem and serves
// them under a public base URL.
package filestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/combo-store/internal/domain/catalog"
)

var _ catalog.ImageStore = (*ImageStore)(nil)

// ImageStore writes uploads into dir. The public URL of a file is
// baseURL + "/" + name.
type ImageStore struct {
	dir     string
	baseURL string
	maxSize int64
}

// New creates dir if needed. maxSize bounds a single upload in bytes; zero
// means unbounded.
func New(dir, baseURL string, maxSize int64) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create image dir")
	}
	return &ImageStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/"), maxSize: maxSize}, nil
}

// Dir returns the directory images are written to.
func (s *ImageStore) Dir() string {
	return s.dir
}

// Upload writes r to name atomically and returns its public URL.
func (s *ImageStore) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", errors.Errorf("invalid image name %q", name)
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", errors.Wrap(err, "create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	n, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", errors.Wrap(err, "write image")
	}
	if s.maxSize > 0 && n > s.maxSize {
		return "", &TooLargeError{Limit: s.maxSize}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", errors.Wrap(err, "store image")
	}
	return s.baseURL + "/" + name, nil
}

// TooLargeError rejects an upload over the configured size.
type TooLargeError struct {
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("image exceeds %d bytes", e.Limit)
}
