// Package queue runs background jobs with retries.
//
// Usage:
//
//	// Define a job
//	type PurgeImages struct {
//	    ExternalIDs []string
//	    host imagehost.Host
//	}
//	func (j *PurgeImages) Handle(ctx context.Context) error { ... }
//
//	// Boot
//	q := queue.New(queue.NewMemoryDriver(), queue.WithMaxRetry(3))
//	q.Register("purge_images", func() queue.Job { return &PurgeImages{host: host} })
//	q.Start(ctx, 2)
//
//	// Dispatch
//	q.Dispatch(ctx, &PurgeImages{ExternalIDs: ids})
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/coursemart/pkg/logger"
	"github.com/shashiranjanraj/coursemart/pkg/metrics"
)

// Job is the interface every queued job must satisfy.
type Job interface {
	// Handle executes the job. Return a non-nil error to signal failure.
	Handle(ctx context.Context) error
}

// Named lets a job choose its registry name. Jobs without it are keyed by
// their Go type name.
type Named interface {
	JobName() string
}

// FailedJob holds information about a job that exhausted its retries.
type FailedJob struct {
	Type     string
	Job      Job
	Err      error
	FailedAt time.Time
	Attempts int
}

// Driver is the queue storage backend.
type Driver interface {
	Push(ctx context.Context, payload []byte) error
	// Pop blocks until a payload is available or ctx is done. A nil payload
	// with a nil error means "nothing yet, poll again".
	Pop(ctx context.Context) ([]byte, error)
}

// DelayedDriver is implemented by drivers that can schedule natively.
type DelayedDriver interface {
	PushDelayed(ctx context.Context, payload []byte, delay time.Duration) error
}

// ErrUnknownJob is returned by Process for unregistered job types.
var ErrUnknownJob = errors.New("queue: unregistered job type")

// ─── Manager ──────────────────────────────────────────────────────────────────

// Manager is the queue hub: registry, dispatcher and workers.
type Manager struct {
	mu       sync.RWMutex
	driver   Driver
	registry map[string]func() Job
	failed   []FailedJob
	maxRetry int
	backoff  time.Duration
	db       *gorm.DB
	wg       sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxRetry sets how many attempts a failing job gets.
func WithMaxRetry(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxRetry = n
		}
	}
}

// WithBackoff sets the linear backoff unit: attempt n waits n*d.
func WithBackoff(d time.Duration) Option {
	return func(m *Manager) { m.backoff = d }
}

// WithFailedStore persists exhausted jobs to the failed_jobs table.
func WithFailedStore(db *gorm.DB) Option {
	return func(m *Manager) { m.db = db }
}

func New(driver Driver, opts ...Option) *Manager {
	if driver == nil {
		driver = NewMemoryDriver()
	}
	m := &Manager{
		driver:   driver,
		registry: map[string]func() Job{},
		maxRetry: 3,
		backoff:  time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register makes a job type available for deserialization by name.
// Call this once at boot for every job type.
func (m *Manager) Register(name string, factory func() Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry[name] = factory
}

// ─── Dispatch ─────────────────────────────────────────────────────────────────

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NameOf returns the registry name used for job.
func NameOf(job Job) string {
	if n, ok := job.(Named); ok {
		return n.JobName()
	}
	return fmt.Sprintf("%T", job)
}

func encode(job Job) ([]byte, error) {
	typeName := NameOf(job)

	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("queue: marshal job %s: %w", typeName, err)
	}

	env, err := json.Marshal(envelope{Type: typeName, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("queue: marshal envelope: %w", err)
	}
	return env, nil
}

// Dispatch pushes job onto the queue immediately.
func (m *Manager) Dispatch(ctx context.Context, job Job) error {
	env, err := encode(job)
	if err != nil {
		return err
	}
	return m.driver.Push(ctx, env)
}

// DispatchAfter pushes job after delay. Drivers without native scheduling
// get a timer goroutine, so the job is lost if the process exits first.
func (m *Manager) DispatchAfter(ctx context.Context, job Job, delay time.Duration) error {
	env, err := encode(job)
	if err != nil {
		return err
	}
	if d, ok := m.driver.(DelayedDriver); ok {
		return d.PushDelayed(ctx, env, delay)
	}

	time.AfterFunc(delay, func() {
		if err := m.driver.Push(context.Background(), env); err != nil {
			logger.Error("queue: delayed dispatch failed", "type", NameOf(job), "error", err)
		}
	})
	return nil
}

// ─── Worker ───────────────────────────────────────────────────────────────────

// Start launches n workers that process jobs until ctx is cancelled.
func (m *Manager) Start(ctx context.Context, n int) {
	if n <= 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.work(ctx)
		}()
	}
	logger.Info("queue: workers started", "count", n)
}

// Wait blocks until every worker started by Start has returned.
func (m *Manager) Wait() { m.wg.Wait() }

func (m *Manager) work(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		raw, err := m.driver.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("queue: pop failed", "error", err)
			sleep(ctx, 500*time.Millisecond)
			continue
		}
		if raw == nil {
			continue
		}

		if err := m.Process(ctx, raw); err != nil {
			logger.Error("queue: process", "error", err)
		}
	}
}

// Process decodes one envelope and runs the job with retries. Job failures
// are recorded, not returned; only decoding problems produce an error.
func (m *Manager) Process(ctx context.Context, raw []byte) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("queue: bad envelope: %w", err)
	}

	m.mu.RLock()
	factory, ok := m.registry[env.Type]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, env.Type)
	}

	job := factory()
	if err := json.Unmarshal(env.Payload, job); err != nil {
		return fmt.Errorf("queue: unmarshal %s payload: %w", env.Type, err)
	}

	m.runWithRetry(ctx, job, env.Type)
	return nil
}

func (m *Manager) runWithRetry(ctx context.Context, job Job, typeName string) {
	start := time.Now()
	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= m.maxRetry; attempt++ {
		attempts = attempt
		if lastErr = job.Handle(ctx); lastErr == nil {
			logger.Info("queue: job processed", "type", typeName, "attempt", attempt)
			metrics.RecordQueueJob(typeName, "ok", start)
			return
		}
		logger.Warn("queue: job failed", "type", typeName, "attempt", attempt, "error", lastErr)
		if attempt < m.maxRetry && !sleep(ctx, time.Duration(attempt)*m.backoff) {
			break
		}
	}

	m.persistFailed(ctx, job, typeName, lastErr, attempts)
	metrics.RecordQueueJob(typeName, "failed", start)
	logger.Error("queue: job exhausted retries", "type", typeName, "attempts", attempts, "error", lastErr)
}

// sleep waits d or until ctx is done; it reports whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// FailedJobs returns a snapshot of jobs that exhausted their retries.
func (m *Manager) FailedJobs() []FailedJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]FailedJob, len(m.failed))
	copy(out, m.failed)
	return out
}
