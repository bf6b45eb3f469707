package storage

import (
	"context"
	"fmt"
)

// Config carries the settings of every driver; Open reads only the fields of
// the driver it builds.
type Config struct {
	LocalRoot string
	LocalURL  string

	S3Bucket   string
	S3Region   string
	S3Key      string
	S3Secret   string
	S3Endpoint string
	S3URL      string
}

// Open builds the named driver ("local" or "s3").
func Open(ctx context.Context, driver string, cfg Config) (Disk, error) {
	switch driver {
	case "", "local":
		return NewLocal(cfg.LocalRoot, cfg.LocalURL)
	case "s3":
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", driver)
	}
}
