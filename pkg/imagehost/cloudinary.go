package imagehost

import (
	"context"
	"errors"
	"fmt"
	gohttp "net/http"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	httpc "github.com/shashiranjanraj/coursemart/pkg/http"
	"github.com/shashiranjanraj/coursemart/pkg/metrics"
)

// Cloudinary stores images with the Cloudinary upload API.
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	base   string
	client *gohttp.Client
}

// CloudinaryOption configures a Cloudinary host.
type CloudinaryOption func(*Cloudinary)

// WithAPIBase points the host at another API root (tests, proxies).
func WithAPIBase(base string) CloudinaryOption {
	return func(c *Cloudinary) { c.base = strings.TrimRight(base, "/") }
}

// WithHTTPClient sends requests through client instead of the shared one.
func WithHTTPClient(client *gohttp.Client) CloudinaryOption {
	return func(c *Cloudinary) { c.client = client }
}

func NewCloudinary(cloud, key, secret string, opts ...CloudinaryOption) (*Cloudinary, error) {
	if cloud == "" || key == "" || secret == "" {
		return nil, errors.New("imagehost/cloudinary: CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET are required")
	}
	cld, err := cloudinary.NewFromParams(cloud, key, secret)
	if err != nil {
		return nil, fmt.Errorf("imagehost/cloudinary: %w", err)
	}

	c := &Cloudinary{cld: cld}
	for _, opt := range opts {
		opt(c)
	}
	if c.base != "" {
		cld.Upload.Config.API.UploadPrefix = c.base
	}
	cld.Upload.Client = *httpc.Client("cloudinary", c.client)
	return c, nil
}

func (c *Cloudinary) Name() string { return "cloudinary" }

func (c *Cloudinary) Upload(ctx context.Context, folder string, f File) (img Image, err error) {
	defer func() { metrics.ImageOps.WithLabelValues("cloudinary", "upload", metrics.Result(err)).Inc() }()

	rc, err := f.Open()
	if err != nil {
		return Image{}, fmt.Errorf("imagehost/cloudinary: open %s: %w", f.Name, err)
	}
	defer rc.Close()

	res, err := c.cld.Upload.Upload(ctx, rc, uploader.UploadParams{
		Folder:       folder,
		ResourceType: "image",
	})
	if err != nil {
		return Image{}, fmt.Errorf("imagehost/cloudinary: upload %s: %w", f.Name, err)
	}
	if res.Error.Message != "" {
		return Image{}, fmt.Errorf("imagehost/cloudinary: upload %s: %s", f.Name, res.Error.Message)
	}

	link := res.SecureURL
	if link == "" {
		link = res.URL
	}
	if res.PublicID == "" || link == "" {
		return Image{}, fmt.Errorf("imagehost/cloudinary: upload %s: incomplete response", f.Name)
	}
	return Image{ExternalID: res.PublicID, URL: link}, nil
}

// Destroy removes the image. An image that is already gone counts as
// destroyed.
func (c *Cloudinary) Destroy(ctx context.Context, externalID string) (err error) {
	defer func() { metrics.ImageOps.WithLabelValues("cloudinary", "destroy", metrics.Result(err)).Inc() }()

	res, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     externalID,
		ResourceType: "image",
	})
	if err != nil {
		return fmt.Errorf("imagehost/cloudinary: destroy %s: %w", externalID, err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("imagehost/cloudinary: destroy %s: %s", externalID, res.Error.Message)
	}
	switch res.Result {
	case "ok", "not found":
		return nil
	default:
		return fmt.Errorf("imagehost/cloudinary: destroy %s: result %q", externalID, res.Result)
	}
}
