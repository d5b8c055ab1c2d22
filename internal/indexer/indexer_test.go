package indexer

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/go-while/newsidx/internal/config"
	"github.com/go-while/newsidx/internal/planner"
)

func TestToIntervalsCoalescesConsecutiveNumbers(t *testing.T) {
	got := toIntervals([]int64{1, 2, 3, 10, 11, 20})
	want := []planner.Interval{{Lo: 1, Hi: 3}, {Lo: 10, Hi: 11}, {Lo: 20, Hi: 20}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestToIntervalsEmpty(t *testing.T) {
	if got := toIntervals(nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func newTestIndexer(t *testing.T) *Indexer {
	t.Helper()
	cfg := config.MainConfig{
		Servers: []config.Server{{Name: "s1", Host: "localhost", Port: 119, Connections: 1, XOverSpan: 100}},
		Groups:  []string{"alt.test"},
	}
	ix, err := New(cfg, filepath.Join(t.TempDir(), "idx-test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { ix.Shutdown(time.Second) })
	return ix
}

func TestNewSeedsConfiguredGroupsAsWatched(t *testing.T) {
	ix := newTestIndexer(t)
	watched, err := ix.store.Watched(ix.ctx)
	if err != nil {
		t.Fatalf("Watched: %v", err)
	}
	if len(watched) != 1 || watched[0].Name != "alt.test" {
		t.Fatalf("expected alt.test seeded as watched, got %v", watched)
	}
}

func TestWatchUnwatch(t *testing.T) {
	ix := newTestIndexer(t)

	if err := ix.Watch("alt.other"); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	watched, err := ix.store.Watched(ix.ctx)
	if err != nil || len(watched) != 2 {
		t.Fatalf("expected 2 watched groups, got %v err=%v", watched, err)
	}

	if err := ix.Unwatch("alt.test"); err != nil {
		t.Fatalf("Unwatch: %v", err)
	}
	watched, err = ix.store.Watched(ix.ctx)
	if err != nil || len(watched) != 1 || watched[0].Name != "alt.other" {
		t.Fatalf("expected only alt.other watched, got %v err=%v", watched, err)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	ix := newTestIndexer(t)
	if err := ix.Shutdown(time.Second); err != nil {
		t.Fatalf("first Shutdown: %v", err)
	}
	if err := ix.Shutdown(time.Second); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}
