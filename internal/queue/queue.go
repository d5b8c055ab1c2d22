package queue

import (
	"context"
	"log"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/go-while/newsidx/internal/models"
)

// retryBaseDelay and maxRetries implement spec.md §4.3's "re-enqueue the
// task up to 3 times with exponential back-off starting at 1.5s, jittered
// +-50%", grounded on the teacher's sqlite_retry.go jitter style
// (rand.Int63n over half the delay). retryBaseDelay is a var so tests can
// shrink it.
var retryBaseDelay = 1500 * time.Millisecond

const maxRetries = 3

// Handler executes one Task. A Handler returning a transient
// *models.IndexerError (see IndexerError.Transient) causes the task to be
// retried; any other error or a permanent IndexerError drops the task after
// logging.
type Handler func(ctx context.Context, task Task) error

// Queue is the bounded FIFO described in spec.md §4.3: Enqueue blocks when
// full (back-pressure), and a fixed number of workers drain it until ctx is
// cancelled.
type Queue struct {
	ch chan Task
}

// New builds a queue with the given channel capacity.
func New(depth int) *Queue {
	if depth <= 0 {
		depth = 1
	}
	return &Queue{ch: make(chan Task, depth)}
}

// Enqueue blocks until there is room in the queue or ctx is done.
func (q *Queue) Enqueue(ctx context.Context, t Task) error {
	select {
	case q.ch <- t:
		return nil
	case <-ctx.Done():
		return models.ErrCancelled
	}
}

// Run starts workerCount goroutines under an errgroup.Group, each pulling
// tasks from the queue and executing them with handle until ctx is
// cancelled; tasks still waiting in the queue at that point are not run.
// Run blocks until every worker returns; the indexer runs it under its
// shutdown context, and Shutdown(deadline) waits at most deadline for it.
func Run(ctx context.Context, workerCount int, q *Queue, handle Handler) error {
	if workerCount <= 0 {
		workerCount = 5
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workerCount; i++ {
		g.Go(func() error {
			worker(ctx, q, handle)
			return nil
		})
	}
	return g.Wait()
}

func worker(ctx context.Context, q *Queue, handle Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-q.ch:
			if !ok {
				return
			}
			runWithRetry(ctx, handle, t, 0)
		}
	}
}

// runWithRetry executes t, retrying transient failures in place up to
// maxRetries times with jittered exponential back-off (the worker holds the
// task rather than cycling it back through the channel, so the attempt
// count survives each retry). Permanent failures are logged and dropped.
func runWithRetry(ctx context.Context, handle Handler, t Task, attempt int) {
	for {
		err := handle(ctx, t)
		if err == nil {
			return
		}

		ierr, ok := err.(*models.IndexerError)
		if !ok || !ierr.Transient() || attempt >= maxRetries {
			log.Printf("[queue] dropping task %s kind=%d group=%s range=[%d,%d]: %v",
				t.ID, t.Kind, t.Group, t.Lo, t.Hi, err)
			return
		}

		delay := retryBaseDelay * time.Duration(1<<uint(attempt))
		jitter := time.Duration(float64(delay) * (rand.Float64() - 0.5))
		wait := delay + jitter
		log.Printf("[queue] retrying task %s (attempt %d/%d) in %s: %v", t.ID, attempt+1, maxRetries, wait, err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		attempt++
	}
}
