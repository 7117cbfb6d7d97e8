package core

import (
	"context"
	"io"
)

// ObjectStorage is any service that can store and serve binary blobs
// (event attachments, exported reports).
type ObjectStorage interface {
	Upload(ctx context.Context, objectPath string, r io.Reader, size int64, contentType string) error
	// PresignedURL returns a time-limited download URL for the object.
	PresignedURL(ctx context.Context, objectPath string) (string, error)
	Exists(ctx context.Context, objectPath string) (bool, error)
}
