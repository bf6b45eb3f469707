package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shashiranjanraj/coursemart/app/jobs"
	"github.com/shashiranjanraj/coursemart/app/models"
	"github.com/shashiranjanraj/coursemart/app/repositories"
	"github.com/shashiranjanraj/coursemart/pkg/cache"
	"github.com/shashiranjanraj/coursemart/pkg/collection"
	"github.com/shashiranjanraj/coursemart/pkg/event"
	"github.com/shashiranjanraj/coursemart/pkg/imagehost"
	"github.com/shashiranjanraj/coursemart/pkg/logger"
	"github.com/shashiranjanraj/coursemart/pkg/metrics"
	"github.com/shashiranjanraj/coursemart/pkg/queue"
	"github.com/shashiranjanraj/coursemart/pkg/validate"
	"github.com/shashiranjanraj/coursemart/pkg/workerpool"
)

// Catalog events. The payload is a CourseEvent.
const (
	EventCourseCreated = "course.created"
	EventCourseUpdated = "course.updated"
	EventCourseDeleted = "course.deleted"
)

const (
	coursesCacheKey = "courses:all"
	// reinvalidateAfter is when an invalidation is repeated for loads that
	// raced it in other processes.
	reinvalidateAfter = 500 * time.Millisecond
	invalidFormat     = "Invalid file format. Only PNG, JPG, JPEG allowed"
)

// CourseEvent is fired after every catalog mutation.
type CourseEvent struct {
	CourseID  string
	CreatorID string
}

// CourseInput is the multipart form of POST /course/create.
type CourseInput struct {
	Title       string `form:"title"`
	Description string `form:"description"`
	Price       int64  `form:"price"`
}

// CourseUpdate is the multipart form of PUT /course/update/{courseId}. Nil
// or blank fields keep their stored value.
type CourseUpdate struct {
	Title       *string `form:"title"`
	Description *string `form:"description"`
	Price       *int64  `form:"price"`
}

// Dispatcher queues background jobs.
type Dispatcher interface {
	Dispatch(ctx context.Context, job queue.Job) error
}

// CatalogDeps are the collaborators of CatalogService. Pool, Cache, Events
// and Jobs are optional.
type CatalogDeps struct {
	Courses  repositories.CourseRepository
	Host     imagehost.Host
	Pool     *workerpool.Pool
	Cache    cache.Cache
	CacheTTL time.Duration
	Events   *event.Bus
	Jobs     Dispatcher
	// Folder is the image host folder for course images.
	Folder string
}

// CatalogService manages courses and their hosted images.
type CatalogService struct {
	courses  repositories.CourseRepository
	host     imagehost.Host
	pool     *workerpool.Pool
	cache    cache.Cache
	cacheTTL time.Duration
	events   *event.Bus
	jobs     Dispatcher
	folder   string
	// gen counts invalidations; a load that saw it move is not cached.
	gen atomic.Uint64
}

func NewCatalogService(d CatalogDeps) *CatalogService {
	s := &CatalogService{
		courses:  d.Courses,
		host:     d.Host,
		pool:     d.Pool,
		cache:    d.Cache,
		cacheTTL: d.CacheTTL,
		events:   d.Events,
		jobs:     d.Jobs,
		folder:   d.Folder,
	}
	if s.cache == nil {
		s.cache = cache.Nop{}
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = 5 * time.Minute
	}
	if s.events == nil {
		s.events = event.New()
	}
	if s.pool == nil {
		s.pool = workerpool.New(4)
	}
	if s.folder == "" {
		s.folder = "courses"
	}

	for _, name := range []string{EventCourseCreated, EventCourseUpdated, EventCourseDeleted} {
		s.events.Listen(name, s.invalidate)
	}
	return s
}

func courseCacheKey(id string) string { return "course:" + id }

func (s *CatalogService) invalidate(ctx context.Context, payload interface{}) {
	ev, ok := payload.(CourseEvent)
	if !ok {
		return
	}
	s.gen.Add(1)
	keys := []string{coursesCacheKey, courseCacheKey(ev.CourseID)}
	if err := s.cache.Del(ctx, keys...); err != nil {
		logger.WithCtx(ctx).Warn("catalog: cache invalidation failed", "course_id", ev.CourseID, "error", err)
	}
	// Another process may have loaded the old row before the write landed.
	detached := context.WithoutCancel(ctx)
	time.AfterFunc(reinvalidateAfter, func() { _ = s.cache.Del(detached, keys...) })
}

// changedSince reports whether any invalidation ran after the call.
func (s *CatalogService) changedSince() func() bool {
	start := s.gen.Load()
	return func() bool { return s.gen.Load() != start }
}

func (s *CatalogService) changed(ctx context.Context, name, op string, c CourseEvent) {
	metrics.CatalogChanges.WithLabelValues(op).Inc()
	s.events.Fire(ctx, name, c)
}

// ListCourses returns every course, newest first.
func (s *CatalogService) ListCourses(ctx context.Context) ([]models.Course, error) {
	courses, err := cache.RememberUnless(ctx, s.cache, coursesCacheKey, s.cacheTTL, s.changedSince(), func() ([]models.Course, error) {
		return s.courses.List(ctx)
	})
	if err != nil {
		return nil, Internal("Error in getting courses", err)
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return courses, nil
}

// GetCourse returns one course. Ids that cannot name a record are reported
// as not found.
func (s *CatalogService) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	if !validID(id) {
		return nil, NotFound("Course not found")
	}
	c, err := cache.RememberUnless(ctx, s.cache, courseCacheKey(id), s.cacheTTL, s.changedSince(), func() (*models.Course, error) {
		return s.courses.FindByID(ctx, id)
	})
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, NotFound("Course not found")
	}
	if err != nil {
		return nil, Internal("Error in getting course details", err)
	}
	return c, nil
}

// CreateCourse uploads the images and stores a course owned by adminID.
func (s *CatalogService) CreateCourse(ctx context.Context, adminID string, in CourseInput, files []imagehost.File) (*models.Course, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	fields := map[string]string{}
	if in.Title == "" {
		fields["title"] = "The title field is required."
	}
	if in.Description == "" {
		fields["description"] = "The description field is required."
	}
	switch {
	case in.Price == 0:
		fields["price"] = "The price field is required."
	case in.Price < 0:
		fields["price"] = "The price must be greater than 0."
	}
	if len(fields) > 0 {
		return nil, Validation("All fields are required", fields)
	}
	if len(files) == 0 {
		return nil, Validation("No file uploaded", map[string]string{"image": "At least one image is required."})
	}
	if err := checkFormats(files); err != nil {
		return nil, err
	}

	images, err := s.upload(ctx, files)
	if err != nil {
		return nil, err
	}

	c := &models.Course{
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Images:      images,
		CreatorID:   adminID,
	}
	if err := s.courses.Create(ctx, c); err != nil {
		s.purge(ctx, publicIDs(images))
		return nil, Internal("Error in course creating", err)
	}

	logger.WithCtx(ctx).Info("catalog: course created", "course_id", c.ID, "admin_id", adminID, "images", len(images))
	s.changed(ctx, EventCourseCreated, "created", CourseEvent{CourseID: c.ID, CreatorID: adminID})
	return c, nil
}

// UpdateCourse changes a course owned by adminID. New images replace the
// stored ones: they are uploaded and persisted before the old ones are
// purged, so a failure never leaves the course without images.
func (s *CatalogService) UpdateCourse(ctx context.Context, adminID, courseID string, in CourseUpdate, files []imagehost.File) (*models.Course, error) {
	if !validID(courseID) {
		return nil, Validation("Invalid courseId", map[string]string{"courseId": "The courseId field must be a valid id."})
	}
	if in.Price != nil && *in.Price < 0 {
		return nil, Validation("Validation failed", map[string]string{"price": "The price must be greater than 0."})
	}

	c, err := s.courses.FindOwned(ctx, courseID, adminID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, NotFound("can't update, created by other admin")
	}
	if err != nil {
		return nil, Internal("Error in course updating", err)
	}

	if len(files) > 0 {
		if err := checkFormats(files); err != nil {
			return nil, err
		}
	}

	if in.Title != nil && strings.TrimSpace(*in.Title) != "" {
		c.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil && strings.TrimSpace(*in.Description) != "" {
		c.Description = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil && *in.Price > 0 {
		c.Price = *in.Price
	}

	var old []string
	if len(files) > 0 {
		images, err := s.upload(ctx, files)
		if err != nil {
			return nil, err
		}
		old = c.PublicIDs()
		c.Images = images
	}

	if err := s.courses.UpdateOwned(ctx, c); err != nil {
		if len(files) > 0 {
			s.purge(ctx, c.PublicIDs())
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NotFound("can't update, created by other admin")
		}
		return nil, Internal("Error in course updating", err)
	}
	s.purge(ctx, old)

	logger.WithCtx(ctx).Info("catalog: course updated", "course_id", c.ID, "admin_id", adminID)
	s.changed(ctx, EventCourseUpdated, "updated", CourseEvent{CourseID: c.ID, CreatorID: adminID})
	return c, nil
}

// DeleteCourse removes a course owned by adminID. Its images, purchases and
// orders are kept.
func (s *CatalogService) DeleteCourse(ctx context.Context, adminID, courseID string) error {
	if !validID(courseID) {
		return Validation("Invalid courseId", map[string]string{"courseId": "The courseId field must be a valid id."})
	}

	err := s.courses.DeleteOwned(ctx, courseID, adminID)
	if errors.Is(err, repositories.ErrNotFound) {
		return NotFound("can't delete, created by other admin")
	}
	if err != nil {
		return Internal("Error in course deleting", err)
	}

	logger.WithCtx(ctx).Info("catalog: course deleted", "course_id", courseID, "admin_id", adminID)
	s.changed(ctx, EventCourseDeleted, "deleted", CourseEvent{CourseID: courseID, CreatorID: adminID})
	return nil
}

// upload sends files to the host concurrently. The result keeps the order of
// files. When any upload fails the successful ones are purged.
func (s *CatalogService) upload(ctx context.Context, files []imagehost.File) ([]models.Image, error) {
	uploaded := make([]imagehost.Image, len(files))
	err := s.pool.Batch(ctx, len(files), func(ctx context.Context, i int) error {
		img, err := s.host.Upload(ctx, s.folder, files[i])
		if err != nil {
			return err
		}
		uploaded[i] = img
		return nil
	})

	images := make([]models.Image, 0, len(files))
	for _, img := range uploaded {
		if img.ExternalID != "" {
			images = append(images, models.Image{PublicID: img.ExternalID, URL: img.URL})
		}
	}

	if err != nil {
		s.purge(ctx, publicIDs(images))
		return nil, Upload("Image upload failed", err)
	}
	return images, nil
}

// purge destroys ids inline and queues whatever could not be destroyed.
func (s *CatalogService) purge(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	// The request may already be cancelled; purging still has to happen.
	ctx = context.WithoutCancel(ctx)

	var failed []string
	for _, id := range ids {
		if err := s.host.Destroy(ctx, id); err != nil {
			logger.WithCtx(ctx).Warn("catalog: image destroy failed", "external_id", id, "error", err)
			failed = append(failed, id)
		}
	}
	if len(failed) == 0 {
		return
	}
	if s.jobs == nil {
		logger.WithCtx(ctx).Error("catalog: images left on host", "external_ids", failed)
		return
	}
	if err := s.jobs.Dispatch(ctx, &jobs.PurgeImages{ExternalIDs: failed}); err != nil {
		logger.WithCtx(ctx).Error("catalog: queue purge failed", "external_ids", failed, "error", err)
	}
}

func checkFormats(files []imagehost.File) error {
	rejected := collection.Contains(files, func(f imagehost.File) bool { return !imagehost.Allowed(f.ContentType) })
	if rejected {
		return Validation(invalidFormat, map[string]string{"image": invalidFormat})
	}
	return nil
}

func publicIDs(images []models.Image) []string {
	return models.Course{Images: images}.PublicIDs()
}

type idInput struct {
	ID string `json:"id" validate:"required,id"`
}

func validID(id string) bool {
	return !validate.HasErrors(validate.Struct(idInput{ID: id}))
}
