package workerpool_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shashiranjanraj/coursemart/pkg/workerpool"
)

func TestPool_SubmitAndExecute(t *testing.T) {
	pool := workerpool.New(4)
	defer pool.Shutdown()

	const n = 100
	var count atomic.Int64

	var wg sync.WaitGroup
	wg.Add(n)

	for i := 0; i < n; i++ {
		err := pool.SubmitWait(context.Background(), func() {
			defer wg.Done()
			count.Add(1)
		})
		if err != nil {
			t.Fatalf("SubmitWait returned unexpected error: %v", err)
		}
	}

	wg.Wait()

	if got := count.Load(); got != n {
		t.Errorf("expected %d tasks to run, got %d", n, got)
	}
}

func TestPool_ErrPoolFull(t *testing.T) {
	pool := workerpool.New(1)
	defer pool.Shutdown()

	blocker := make(chan struct{})
	submitted := make(chan struct{})

	_ = pool.SubmitWait(context.Background(), func() {
		close(submitted)
		<-blocker
	})
	<-submitted

	// Queue buffer is 2x the worker count.
	_ = pool.Submit(func() {})
	_ = pool.Submit(func() {})

	err := pool.Submit(func() {})
	if !errors.Is(err, workerpool.ErrPoolFull) {
		t.Errorf("expected ErrPoolFull, got %v", err)
	}

	close(blocker)
}

func TestPool_ErrPoolClosed(t *testing.T) {
	pool := workerpool.New(2)
	pool.Shutdown()

	if err := pool.Submit(func() {}); !errors.Is(err, workerpool.ErrPoolClosed) {
		t.Errorf("expected ErrPoolClosed after Shutdown, got %v", err)
	}
	if err := pool.SubmitWait(context.Background(), func() {}); !errors.Is(err, workerpool.ErrPoolClosed) {
		t.Errorf("expected ErrPoolClosed from SubmitWait, got %v", err)
	}
}

func TestPool_PanicRecovery(t *testing.T) {
	pool := workerpool.New(2)
	defer pool.Shutdown()

	var wg sync.WaitGroup
	wg.Add(1)

	_ = pool.SubmitWait(context.Background(), func() {
		defer wg.Done()
		panic("intentional panic")
	})

	wg.Wait()

	normal := make(chan struct{})
	_ = pool.SubmitWait(context.Background(), func() { close(normal) })

	select {
	case <-normal:
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not recover from panic")
	}
}

func TestPool_BatchKeepsIndexOrder(t *testing.T) {
	pool := workerpool.New(3)
	defer pool.Shutdown()

	out := make([]int, 10)
	err := pool.Batch(context.Background(), len(out), func(_ context.Context, i int) error {
		time.Sleep(time.Duration(10-i) * time.Millisecond)
		out[i] = i * i
		return nil
	})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	for i, v := range out {
		if v != i*i {
			t.Errorf("out[%d] = %d, want %d", i, v, i*i)
		}
	}
}

func TestPool_BatchJoinsErrors(t *testing.T) {
	pool := workerpool.New(2)
	defer pool.Shutdown()

	boom := errors.New("boom")
	var ran atomic.Int32
	err := pool.Batch(context.Background(), 4, func(_ context.Context, i int) error {
		ran.Add(1)
		if i == 2 {
			return boom
		}
		if i == 3 {
			panic("bad upload")
		}
		return nil
	})

	if !errors.Is(err, boom) {
		t.Errorf("expected joined error to contain boom, got %v", err)
	}
	if ran.Load() != 4 {
		t.Errorf("expected every task to run, ran %d", ran.Load())
	}
}

func TestPool_Shutdown_NoGoroutineLeak(t *testing.T) {
	pool := workerpool.New(10)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		_ = pool.SubmitWait(context.Background(), func() {
			defer wg.Done()
			time.Sleep(time.Millisecond)
		})
	}

	wg.Wait()
	pool.Shutdown()
}
