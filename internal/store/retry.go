package store

import (
	"database/sql"
	"math/rand"
	"strings"
	"time"

	"github.com/go-while/newsidx/internal/models"
)

// RetryPolicy classifies and retries SQLITE_BUSY-class errors, grounded on
// the teacher's sqlite_retry.go (isRetryableError plus a jittered
// exponential back-off), trimmed to 3 retries (4 attempts in all) before
// the write surfaces as StoreBusy (spec.md §4.5), instead of the
// teacher's 1000-attempt budget meant for a high-traffic peering server.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy is what Store.Open installs.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 4, BaseDelay: 10 * time.Millisecond, MaxDelay: 100 * time.Millisecond}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "database is locked") ||
		strings.Contains(s, "database table is locked") ||
		strings.Contains(s, "busy")
}

// exec runs fn, retrying while isRetryable(err), for at most MaxAttempts
// calls of fn (one attempt plus MaxAttempts-1 retries). Exhausting the
// budget wraps the last error as models.NewStoreBusy.
func (p RetryPolicy) exec(fn func() error) error {
	var err error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		err = fn()
		if !isRetryable(err) {
			return err
		}
		if attempt == p.MaxAttempts-1 {
			break
		}
		delay := p.BaseDelay * time.Duration(1<<uint(attempt))
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
		jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
		time.Sleep(delay + jitter)
	}
	return models.NewStoreBusy(err)
}

// rowScan runs a *sql.Row-producing query with the same retry policy as
// exec, used by read paths that can still race a concurrent writer
// transaction.
func (p RetryPolicy) rowScan(query func() *sql.Row, dest ...interface{}) error {
	var err error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		err = query().Scan(dest...)
		if !isRetryable(err) {
			return err
		}
		if attempt == p.MaxAttempts-1 {
			break
		}
		delay := p.BaseDelay * time.Duration(1<<uint(attempt))
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
		jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
		time.Sleep(delay + jitter)
	}
	return models.NewStoreBusy(err)
}
