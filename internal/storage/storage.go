// Package storage keeps complaint attachment bytes. Handles are slash
// separated relative keys chosen by the caller.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// ErrNotFound is returned when no blob exists under a handle.
var ErrNotFound = errors.New("blob not found")

// ErrInvalidHandle rejects handles that could escape the store root.
var ErrInvalidHandle = errors.New("invalid blob handle")

// BlobStore persists attachment content.
type BlobStore interface {
	Put(ctx context.Context, handle string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, handle string) (io.ReadCloser, error)
	Delete(ctx context.Context, handle string) error
}

// CleanHandle validates handle and returns its canonical form.
func CleanHandle(handle string) (string, error) {
	if handle == "" || strings.HasPrefix(handle, "/") || strings.Contains(handle, "\\") {
		return "", ErrInvalidHandle
	}
	cleaned := path.Clean(handle)
	if cleaned != handle || cleaned == "." || strings.HasPrefix(cleaned, "..") {
		return "", ErrInvalidHandle
	}
	return cleaned, nil
}
