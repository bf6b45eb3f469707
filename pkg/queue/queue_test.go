package queue_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shashiranjanraj/coursemart/pkg/queue"
)

// ─── Job types ────────────────────────────────────────────────────────────────

type echoJob struct {
	Val    string
	called *atomic.Int32
}

func (j *echoJob) JobName() string { return "echo" }

func (j *echoJob) Handle(context.Context) error {
	j.called.Add(1)
	return nil
}

type failJob struct {
	attempts *atomic.Int32
}

func (j *failJob) JobName() string { return "fail" }

func (j *failJob) Handle(context.Context) error {
	j.attempts.Add(1)
	return errors.New("always fails")
}

func newManager(opts ...queue.Option) (*queue.Manager, *atomic.Int32, *atomic.Int32) {
	echoed, failed := &atomic.Int32{}, &atomic.Int32{}
	m := queue.New(queue.NewMemoryDriver(), append([]queue.Option{queue.WithBackoff(0)}, opts...)...)
	m.Register("echo", func() queue.Job { return &echoJob{called: echoed} })
	m.Register("fail", func() queue.Job { return &failJob{attempts: failed} })
	return m, echoed, failed
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// ─── Tests ────────────────────────────────────────────────────────────────────

func TestDispatchAndProcess(t *testing.T) {
	m, echoed, _ := newManager()
	ctx, cancel := context.WithCancel(context.Background())
	defer func() { cancel(); m.Wait() }()
	m.Start(ctx, 2)

	if err := m.Dispatch(ctx, &echoJob{Val: "hello"}); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	waitFor(t, func() bool { return echoed.Load() == 1 })
}

func TestFailedJobRetry(t *testing.T) {
	m, _, attempts := newManager(queue.WithMaxRetry(3))
	ctx, cancel := context.WithCancel(context.Background())
	defer func() { cancel(); m.Wait() }()
	m.Start(ctx, 1)

	if err := m.Dispatch(ctx, &failJob{}); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	waitFor(t, func() bool { return len(m.FailedJobs()) == 1 })
	if got := attempts.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
	if f := m.FailedJobs()[0]; f.Type != "fail" || f.Attempts != 3 {
		t.Errorf("unexpected failed job record: %+v", f)
	}
}

func TestProcessUnknownType(t *testing.T) {
	m := queue.New(nil)
	err := m.Process(context.Background(), []byte(`{"type":"nope","payload":{}}`))
	if !errors.Is(err, queue.ErrUnknownJob) {
		t.Errorf("expected ErrUnknownJob, got %v", err)
	}
}

func TestDispatchAfter(t *testing.T) {
	m, echoed, _ := newManager()
	ctx, cancel := context.WithCancel(context.Background())
	defer func() { cancel(); m.Wait() }()
	m.Start(ctx, 1)

	if err := m.DispatchAfter(ctx, &echoJob{}, 20*time.Millisecond); err != nil {
		t.Fatalf("DispatchAfter: %v", err)
	}
	waitFor(t, func() bool { return echoed.Load() == 1 })
}

func TestDispatchConcurrent(t *testing.T) {
	m, echoed, _ := newManager()
	ctx, cancel := context.WithCancel(context.Background())
	defer func() { cancel(); m.Wait() }()
	m.Start(ctx, 4)

	var wg sync.WaitGroup
	wg.Add(20)
	for i := 0; i < 20; i++ {
		go func() {
			defer wg.Done()
			_ = m.Dispatch(ctx, &echoJob{Val: "c"})
		}()
	}
	wg.Wait()
	waitFor(t, func() bool { return echoed.Load() == 20 })
}

func TestMemoryDriverFull(t *testing.T) {
	d := queue.NewMemoryDriver()
	for i := 0; i < 1000; i++ {
		if err := d.Push(context.Background(), []byte("x")); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if err := d.Push(context.Background(), []byte("x")); !errors.Is(err, queue.ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
}
