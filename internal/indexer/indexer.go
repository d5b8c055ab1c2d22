// Package indexer composes the Connection Pool, Range Planner, Task Queue,
// Store, and Matcher Registry into the control surface an outer shell
// drives (spec.md §4.6).
package indexer

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/go-while/newsidx/internal/config"
	"github.com/go-while/newsidx/internal/matcher"
	"github.com/go-while/newsidx/internal/models"
	"github.com/go-while/newsidx/internal/nntp"
	"github.com/go-while/newsidx/internal/planner"
	"github.com/go-while/newsidx/internal/queue"
	"github.com/go-while/newsidx/internal/store"
)

// Indexer is the facade: the only type an outer shell (cmd/newsidx-fetcher
// or a future HTTP surface, explicitly out of scope here per spec.md §1)
// needs to hold.
type Indexer struct {
	cfg      config.MainConfig
	store    *store.Store
	registry *matcher.Watched
	pools    map[string]*nntp.Pool
	queue    *queue.Queue

	shutdownOnce sync.Once
	cancel       context.CancelFunc
	ctx          context.Context
	workers      *errgroup.Group
}

// New builds an Indexer from cfg, opening the store at dbPath and, if
// cfg.RegexpFile is set, loading the matcher registry (with hot-reload,
// spec.md §4.4 "(new)").
func New(cfg config.MainConfig, dbPath string) (*Indexer, error) {
	cfg.Normalize()

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var reg *matcher.Watched
	if cfg.RegexpFile != "" {
		reg, err = matcher.LoadFile(cfg.RegexpFile, true)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("load matcher registry: %w", err)
		}
	}

	pools := make(map[string]*nntp.Pool, len(cfg.Servers))
	for _, srv := range cfg.Servers {
		pools[srv.Name] = nntp.NewPool(srv, cfg.CommandTimeout)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ix := &Indexer{
		cfg:      cfg,
		store:    st,
		registry: reg,
		pools:    pools,
		queue:    queue.New(cfg.QueueDepth),
		ctx:      ctx,
		cancel:   cancel,
	}

	g, gctx := errgroup.WithContext(ctx)
	ix.workers = g
	ix.ctx = gctx
	g.Go(func() error {
		return queue.Run(gctx, cfg.WorkerCount, ix.queue, ix.handle)
	})

	for _, name := range cfg.Groups {
		if err := st.UpsertGroup(ctx, name); err != nil {
			st.Close()
			cancel()
			return nil, fmt.Errorf("seed watched group %q: %w", name, err)
		}
		if _, err := st.SetWatch(ctx, name, true); err != nil {
			st.Close()
			cancel()
			return nil, fmt.Errorf("watch group %q: %w", name, err)
		}
	}

	return ix, nil
}

// RefreshGroups enqueues a ListGroups task for every configured server
// (spec.md §4.6).
func (ix *Indexer) RefreshGroups() error {
	for _, srv := range ix.cfg.Servers {
		if err := ix.queue.Enqueue(ix.ctx, queue.NewListGroups(srv.Name)); err != nil {
			return err
		}
	}
	return nil
}

// RefreshWatched enqueues FetchRange tasks for every watched group. count,
// if non-zero, is used as the backfill depth for groups not yet indexed;
// groups already indexed always plan incrementally regardless of count.
func (ix *Indexer) RefreshWatched(count int64) error {
	groups, err := ix.store.Watched(ix.ctx)
	if err != nil {
		return err
	}
	for _, g := range groups {
		if err := ix.planAndEnqueue(g.Name, count); err != nil {
			log.Printf("[indexer] planning %s failed: %v", g.Name, err)
		}
	}
	return nil
}

// TopUp plans and enqueues a fetch for a single group, regardless of its
// watch flag (spec.md §4.6). count is used as the backfill depth only when
// nothing is indexed for the group yet; a group that already has indexed
// articles is planned incrementally from its highest indexed number.
func (ix *Indexer) TopUp(group string, count int64) error {
	return ix.planAndEnqueue(group, count)
}

// planAndEnqueue asks every configured server for group's current range,
// runs the Range Planner against what is already indexed, and enqueues the
// resulting chunks.
func (ix *Indexer) planAndEnqueue(group string, backfill int64) error {
	for _, srv := range ix.cfg.Servers {
		pool := ix.pools[srv.Name]
		sess, err := pool.Acquire(ix.ctx)
		if err != nil {
			return err
		}
		if err := pool.Wait(ix.ctx, sess); err != nil {
			pool.Release(sess)
			return err
		}
		info, err := sess.Group(group)
		pool.Release(sess)
		if err != nil {
			ierr, ok := err.(*models.IndexerError)
			if ok && ierr.Kind == models.KindProtocol && ierr.Code == 411 {
				continue
			}
			return err
		}

		lastIndexed, err := ix.store.MaxIndexed(ix.ctx, group)
		if err != nil {
			return err
		}
		covered, err := ix.store.Covered(ix.ctx, group, info.First, info.Last)
		if err != nil {
			return err
		}
		coveredIntervals := toIntervals(covered)

		span := int64(srv.XOverSpan)
		chunks := planner.Plan(planner.Input{
			First:        info.First,
			Last:         info.Last,
			LastIndexed:  lastIndexed,
			Covered:      coveredIntervals,
			NewlyWatched: lastIndexed == 0,
			Span:         span,
			Backfill:     backfill,
		})
		for _, c := range chunks {
			if err := ix.queue.Enqueue(ix.ctx, queue.NewFetchRange(srv.Name, group, c.Lo, c.Hi)); err != nil {
				return err
			}
		}
	}
	return nil
}

// toIntervals collapses a sorted list of individually-stored article
// numbers into the Interval slice planner.Plan expects.
func toIntervals(nums []int64) []planner.Interval {
	if len(nums) == 0 {
		return nil
	}
	var out []planner.Interval
	start, prev := nums[0], nums[0]
	for _, n := range nums[1:] {
		if n == prev+1 {
			prev = n
			continue
		}
		out = append(out, planner.Interval{Lo: start, Hi: prev})
		start, prev = n, n
	}
	out = append(out, planner.Interval{Lo: start, Hi: prev})
	return out
}

// Watch marks group as watched, creating it first if unknown.
func (ix *Indexer) Watch(group string) error {
	if err := ix.store.UpsertGroup(ix.ctx, group); err != nil {
		return err
	}
	_, err := ix.store.SetWatch(ix.ctx, group, true)
	return err
}

// Unwatch clears group's watch flag.
func (ix *Indexer) Unwatch(group string) error {
	_, err := ix.store.SetWatch(ix.ctx, group, false)
	return err
}

// Shutdown stops accepting new tasks, waits up to deadline for in-flight
// tasks to drain, then quits every pooled session and closes the store
// (spec.md §4.6/§5).
func (ix *Indexer) Shutdown(deadline time.Duration) error {
	var err error
	ix.shutdownOnce.Do(func() {
		ix.cancel()

		done := make(chan struct{})
		go func() {
			ix.workers.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(deadline):
			log.Printf("[indexer] shutdown deadline of %s exceeded, closing sessions anyway", deadline)
		}

		for _, p := range ix.pools {
			p.Close()
		}
		if ix.registry != nil {
			ix.registry.Close()
		}
		err = ix.store.Close()
	})
	return err
}
