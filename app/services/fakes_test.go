package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/coursemart/app/models"
	"github.com/shashiranjanraj/coursemart/pkg/imagehost"
	"github.com/shashiranjanraj/coursemart/pkg/payment"
	"github.com/shashiranjanraj/coursemart/pkg/queue"
)

// fakeHost hands out ids derived from the file name.
type fakeHost struct {
	mu          sync.Mutex
	uploads     int
	failUpload  map[string]bool
	failDestroy map[string]bool
	live        map[string]bool
	destroyed   []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{failUpload: map[string]bool{}, failDestroy: map[string]bool{}, live: map[string]bool{}}
}

func (h *fakeHost) Name() string { return "fake" }

func (h *fakeHost) Upload(_ context.Context, folder string, f imagehost.File) (imagehost.Image, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failUpload[f.Name] {
		return imagehost.Image{}, errors.New("host unavailable")
	}
	h.uploads++
	id := folder + "/" + f.Name
	h.live[id] = true
	return imagehost.Image{ExternalID: id, URL: "https://img.test/" + id}, nil
}

func (h *fakeHost) Destroy(_ context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failDestroy[id] {
		return errors.New("host unavailable")
	}
	delete(h.live, id)
	h.destroyed = append(h.destroyed, id)
	return nil
}

func (h *fakeHost) liveCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.live)
}

func image(name, contentType string) imagehost.File {
	return imagehost.File{
		Name:        name,
		ContentType: contentType,
		Size:        4,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("data")), nil
		},
	}
}

func pngs(names ...string) []imagehost.File {
	files := make([]imagehost.File, len(names))
	for i, n := range names {
		files[i] = image(n, "image/png")
	}
	return files
}

type fakeDispatcher struct {
	mu   sync.Mutex
	jobs []queue.Job
}

func (d *fakeDispatcher) Dispatch(_ context.Context, job queue.Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, job)
	return nil
}

// fakeProcessor keeps intents in memory. Intents start unpaid; succeed
// marks one as paid.
type fakeProcessor struct {
	mu      sync.Mutex
	seq     int
	intents map[string]*payment.Intent
	err     error
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{intents: map[string]*payment.Intent{}}
}

func (p *fakeProcessor) CreateIntent(_ context.Context, in payment.IntentParams) (*payment.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.seq++
	id := fmt.Sprintf("pi_%d", p.seq)
	intent := &payment.Intent{
		ID:           id,
		ClientSecret: id + "_secret",
		Amount:       in.Amount,
		Currency:     in.Currency,
		Status:       "requires_payment_method",
		Metadata:     in.Metadata,
	}
	p.intents[id] = intent
	cp := *intent
	return &cp, nil
}

func (p *fakeProcessor) GetIntent(_ context.Context, id string) (*payment.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	intent, ok := p.intents[id]
	if !ok {
		return nil, &payment.Error{StatusCode: 404, Type: "invalid_request_error", Message: "No such payment_intent"}
	}
	cp := *intent
	return &cp, nil
}

func (p *fakeProcessor) succeed(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.intents[id].Status = payment.StatusSucceeded
}

func requireKind(t *testing.T, err error, kind Kind) *Error {
	t.Helper()
	require.Error(t, err)
	var se *Error
	require.True(t, errors.As(err, &se), "expected *services.Error, got %T: %v", err, err)
	require.Equal(t, kind, se.Kind, se.Error())
	return se
}

func imageIDs(c *models.Course) []string { return c.PublicIDs() }
