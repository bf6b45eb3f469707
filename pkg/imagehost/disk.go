package imagehost

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/shashiranjanraj/coursemart/pkg/metrics"
	"github.com/shashiranjanraj/coursemart/pkg/storage"
)

// DiskHost stores images on a storage disk. External ids are the object
// paths, e.g. "courses/6f1c....png".
type DiskHost struct {
	name string
	disk storage.Disk
}

func NewDiskHost(name string, disk storage.Disk) *DiskHost {
	return &DiskHost{name: name, disk: disk}
}

func (h *DiskHost) Name() string { return h.name }

func (h *DiskHost) Upload(ctx context.Context, folder string, f File) (img Image, err error) {
	defer func() { metrics.ImageOps.WithLabelValues(h.name, "upload", metrics.Result(err)).Inc() }()

	rc, err := f.Open()
	if err != nil {
		return Image{}, fmt.Errorf("imagehost/%s: open %s: %w", h.name, f.Name, err)
	}
	defer rc.Close()

	id := path.Join(strings.Trim(folder, "/"), uuid.NewString()+extension(f.ContentType))
	if err := h.disk.Put(ctx, id, rc, normalize(f.ContentType)); err != nil {
		return Image{}, fmt.Errorf("imagehost/%s: upload %s: %w", h.name, f.Name, err)
	}
	return Image{ExternalID: id, URL: h.disk.URL(id)}, nil
}

func (h *DiskHost) Destroy(ctx context.Context, externalID string) (err error) {
	defer func() { metrics.ImageOps.WithLabelValues(h.name, "destroy", metrics.Result(err)).Inc() }()

	if err := h.disk.Delete(ctx, externalID); err != nil {
		return fmt.Errorf("imagehost/%s: destroy %s: %w", h.name, externalID, err)
	}
	return nil
}
