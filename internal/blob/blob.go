// Package blob is the binary object store holding document PDFs.
package blob

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound marks a missing object.
var ErrNotFound = errors.New("object not found")

// Store is the object storage surface the service consumes.
type Store interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Put(ctx context.Context, path string, data []byte, contentType string) error
	Delete(ctx context.Context, path string) error
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}
