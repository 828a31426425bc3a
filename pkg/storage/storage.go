// Package storage provides attachment blob backends: local disk by default,
// S3 when a bucket is configured.
package storage

import (
	"context"
	"io"
	"time"
)

// BlobStore stores attachment blobs under stable object keys.
type BlobStore interface {
	// Put streams body to the key. On failure no partial object remains.
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	// Get opens the object for reading. Caller closes the body.
	Get(ctx context.Context, key string) (body io.ReadCloser, contentType string, err error)
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
	// SignedURL returns a pre-signed download URL when the backend supports
	// one; ok is false when the caller should stream the object itself.
	SignedURL(ctx context.Context, key string, expires time.Duration) (url string, ok bool, err error)
}
