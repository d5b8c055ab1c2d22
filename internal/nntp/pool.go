package nntp

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/go-while/newsidx/internal/config"
	"github.com/go-while/newsidx/internal/models"
)

// Pool hands out at most Connections concurrent sessions for one server
// (spec.md §4.1). Capacity is a context-cancellable weighted semaphore
// rather than the teacher's buffered channel, so Acquire honors the
// indexer's shutdown context instead of a fixed 30s timeout
// (nntp-backend-pool.go's Pool.Get); command pacing against the server is a
// token-bucket limiter, replacing nothing in the teacher (the teacher has
// no pacing) and grounded on the rest of the pack's use of
// golang.org/x/time/rate for outbound request shaping.
type Pool struct {
	server         config.Server
	commandTimeout time.Duration
	sem            *semaphore.Weighted
	limiter        *rate.Limiter

	mu    sync.Mutex
	idle  []*Session
	total int
}

// NewPool builds a pool for one server, with capacity server.Connections
// (minimum 1), if server.RatePerSec > 0 a command pacing limiter, and
// commandTimeout bounding every GROUP/XOVER/LIST round trip a Session dialed
// by this pool issues (spec.md §5); zero falls back to
// config.DefaultCommandTimeout.
func NewPool(server config.Server, commandTimeout time.Duration) *Pool {
	cap := server.Connections
	if cap <= 0 {
		cap = 1
	}
	p := &Pool{server: server, commandTimeout: commandTimeout, sem: semaphore.NewWeighted(int64(cap))}
	if server.RatePerSec > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(server.RatePerSec), 1)
	}
	return p
}

// Acquire blocks until a session is available, returning one that is
// connected, authenticated, and group-unselected. It returns
// models.ErrCancelled if ctx is done before capacity frees up.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, ctxErrToCancelled(err)
	}

	p.mu.Lock()
	if n := len(p.idle); n > 0 {
		s := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return s, nil
	}
	p.mu.Unlock()

	s, err := dial(p.server, p.commandTimeout)
	if err != nil {
		p.sem.Release(1)
		return nil, err
	}
	p.mu.Lock()
	p.total++
	p.mu.Unlock()
	return s, nil
}

// Release returns a session to the pool, or discards it (per the poisoning
// rule in spec.md §4.1) if it is marked poisoned or is neither Ready nor
// GroupSelected.
func (p *Pool) Release(s *Session) {
	defer p.sem.Release(1)
	if s == nil {
		return
	}
	if s.Poisoned() || (s.state != StateReady && s.state != StateGroupSelected) {
		s.Quit()
		p.mu.Lock()
		p.total--
		p.mu.Unlock()
		return
	}
	s.state = StateReady
	s.group = ""
	p.mu.Lock()
	p.idle = append(p.idle, s)
	p.mu.Unlock()
}

// Wait applies the pool's rate limiter, if configured, before a command is
// issued against s. Callers invoke this immediately before Group/XOver/List.
func (p *Pool) Wait(ctx context.Context, s *Session) error {
	_ = s
	if p.limiter == nil {
		return nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return ctxErrToCancelled(err)
	}
	return nil
}

// Close quits every idle session. Sessions checked out at the time are not
// quit: a later Release of a healthy session puts it back on the idle list.
func (p *Pool) Close() {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()
	for _, s := range idle {
		s.Quit()
	}
}

func ctxErrToCancelled(err error) error {
	if err == context.Canceled || err == context.DeadlineExceeded {
		return models.ErrCancelled
	}
	return err
}
