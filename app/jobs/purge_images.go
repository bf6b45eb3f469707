// Package jobs holds the background jobs run by the queue workers.
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/shashiranjanraj/coursemart/pkg/imagehost"
	"github.com/shashiranjanraj/coursemart/pkg/logger"
	"github.com/shashiranjanraj/coursemart/pkg/queue"
)

// PurgeImagesName is the registry name of PurgeImages.
const PurgeImagesName = "purge_images"

// PurgeImages destroys hosted images that could not be removed inline:
// the old images of an updated course and leftovers of a failed upload
// batch.
type PurgeImages struct {
	ExternalIDs []string `json:"externalIds"`

	host imagehost.Host
}

func (j *PurgeImages) JobName() string { return PurgeImagesName }

// Handle destroys every id. Ids that fail stay on the job so a retry only
// repeats those.
func (j *PurgeImages) Handle(ctx context.Context) error {
	if j.host == nil {
		return errors.New("jobs: purge_images: no image host")
	}

	var remaining []string
	var errs []error
	for _, id := range j.ExternalIDs {
		if err := j.host.Destroy(ctx, id); err != nil {
			remaining = append(remaining, id)
			errs = append(errs, fmt.Errorf("destroy %s: %w", id, err))
		}
	}
	purged := len(j.ExternalIDs) - len(remaining)
	j.ExternalIDs = remaining

	if len(errs) > 0 {
		return fmt.Errorf("jobs: purge_images: %w", errors.Join(errs...))
	}
	logger.WithCtx(ctx).Info("jobs: images purged", "count", purged, "host", j.host.Name())
	return nil
}

// Register binds the jobs of this package to q with their dependencies.
func Register(q *queue.Manager, host imagehost.Host) {
	q.Register(PurgeImagesName, func() queue.Job { return &PurgeImages{host: host} })
}
