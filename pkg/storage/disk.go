// Package storage is the object-storage abstraction behind the "local" and
// "s3" image hosts.
//
// Two drivers are available:
//   - "local"  local filesystem, served by the HTTP kernel under /storage/
//   - "s3"     S3-compatible object storage (AWS S3, MinIO, R2, Spaces)
//
// Quick start:
//
//	disk, err := storage.Open(ctx, "s3", storage.Config{S3Bucket: "media"})
//	err = disk.Put(ctx, "courses/abc.png", r, "image/png")
//	url := disk.URL("courses/abc.png")
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotExist is returned by Get for missing objects.
var ErrNotExist = errors.New("storage: object does not exist")

// Disk is the driver interface. Paths are slash-separated and relative to
// the disk root.
type Disk interface {
	// Put writes r to path, creating parent directories as needed.
	Put(ctx context.Context, path string, r io.Reader, contentType string) error

	// Get returns the full content of the object at path.
	Get(ctx context.Context, path string) ([]byte, error)

	// Exists reports whether an object exists at path.
	Exists(ctx context.Context, path string) bool

	// Delete removes an object. Missing objects are not an error.
	Delete(ctx context.Context, path string) error

	// URL returns the public URL for path.
	URL(path string) string
}
