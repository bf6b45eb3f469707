// Package imagehost uploads course images to an external host and destroys
// them again by their external id.
//
// Three hosts are available:
//   - "local"       files on the local storage disk, served under /storage/
//   - "s3"          an S3-compatible bucket
//   - "cloudinary"  the Cloudinary upload API
package imagehost

import (
	"context"
	"io"
	"mime/multipart"
	"strings"
)

// Image is an uploaded image as the host reports it.
type Image struct {
	ExternalID string
	URL        string
}

// File is one image to upload. Open may be called from a worker goroutine.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// FromMultipart wraps an uploaded form file.
func FromMultipart(fh *multipart.FileHeader) File {
	return File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// Host is an image hosting backend.
type Host interface {
	// Name labels the host in logs and metrics.
	Name() string
	Upload(ctx context.Context, folder string, f File) (Image, error)
	// Destroy removes an image. Unknown ids are not an error.
	Destroy(ctx context.Context, externalID string) error
}

var allowed = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
}

// Allowed reports whether contentType is an accepted course image type
// (PNG, JPG, JPEG).
func Allowed(contentType string) bool {
	_, ok := allowed[normalize(contentType)]
	return ok
}

func extension(contentType string) string {
	return allowed[normalize(contentType)]
}

func normalize(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
