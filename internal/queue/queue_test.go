package queue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-while/newsidx/internal/models"
)

func TestEnqueueBlocksWhenFull(t *testing.T) {
	q := New(1)
	if err := q.Enqueue(context.Background(), NewListGroups("s")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx, NewListGroups("s"))
	if err != models.ErrCancelled {
		t.Fatalf("expected ErrCancelled on a full queue, got %v", err)
	}
}

func TestRunDrainsAndStopsOnCancel(t *testing.T) {
	q := New(4)
	var processed int32
	ctx, cancel := context.WithCancel(context.Background())

	for i := 0; i < 3; i++ {
		_ = q.Enqueue(ctx, NewFetchRange("s", "g", 1, 100))
	}

	done := make(chan struct{})
	go func() {
		Run(ctx, 2, q, func(ctx context.Context, task Task) error {
			atomic.AddInt32(&processed, 1)
			return nil
		})
		close(done)
	}()

	deadline := time.After(time.Second)
	for atomic.LoadInt32(&processed) < 3 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for tasks to process")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestRunDropsPermanentFailureWithoutRetry(t *testing.T) {
	q := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	_ = q.Enqueue(ctx, NewFetchRange("s", "g", 1, 1))

	var calls int32
	done := make(chan struct{})
	go func() {
		Run(ctx, 1, q, func(ctx context.Context, task Task) error {
			atomic.AddInt32(&calls, 1)
			return models.NewDateParseError("bad")
		})
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected exactly one call for a permanent failure, got %d", calls)
	}
}

func TestRunRetriesTransientFailureUntilSuccess(t *testing.T) {
	origDelay := retryBaseDelay
	retryBaseDelay = time.Millisecond
	defer func() { retryBaseDelay = origDelay }()

	q := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	_ = q.Enqueue(ctx, NewFetchRange("s", "g", 1, 1))

	var calls int32
	done := make(chan struct{})
	go func() {
		Run(ctx, 1, q, func(ctx context.Context, task Task) error {
			n := atomic.AddInt32(&calls, 1)
			if n < 2 {
				return models.NewConnError(context.DeadlineExceeded)
			}
			return nil
		})
		close(done)
	}()

	deadline := time.After(time.Second)
	for atomic.LoadInt32(&calls) < 2 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for a retry")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	<-done
}
