package planner

import (
	"reflect"
	"testing"
)

func TestPlanNoGapWhenFullyIndexed(t *testing.T) {
	got := Plan(Input{First: 1, Last: 100, LastIndexed: 100, Span: 100})
	if got != nil {
		t.Fatalf("expected no chunks, got %v", got)
	}
}

func TestPlanLastBelowLowEmitsNothing(t *testing.T) {
	got := Plan(Input{First: 50, Last: 10, LastIndexed: 0, Span: 100})
	if got != nil {
		t.Fatalf("expected no chunks, got %v", got)
	}
}

func TestPlanSplitsOnSpan(t *testing.T) {
	got := Plan(Input{First: 1, Last: 250, LastIndexed: 0, Span: 100})
	want := []Chunk{{Lo: 1, Hi: 100}, {Lo: 101, Hi: 200}, {Lo: 201, Hi: 250}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPlanSkipsCoveredInterior(t *testing.T) {
	got := Plan(Input{
		First:       1,
		Last:        20,
		LastIndexed: 0,
		Covered:     []Interval{{Lo: 5, Hi: 10}},
		Span:        100,
	})
	want := []Chunk{{Lo: 1, Hi: 4}, {Lo: 11, Hi: 20}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPlanNewlyWatchedAppliesBackfill(t *testing.T) {
	got := Plan(Input{
		First:        1,
		Last:         5000,
		NewlyWatched: true,
		Backfill:     1000,
		Span:         1000,
	})
	want := []Chunk{{Lo: 4001, Hi: 5000}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPlanBackfillClampedToFirst(t *testing.T) {
	got := Plan(Input{
		First:        1,
		Last:         500,
		NewlyWatched: true,
		Backfill:     1000,
		Span:         1000,
	})
	want := []Chunk{{Lo: 1, Hi: 500}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPlanLastIndexedAdvancesLowerBound(t *testing.T) {
	got := Plan(Input{First: 1, Last: 300, LastIndexed: 199, Span: 100})
	want := []Chunk{{Lo: 200, Hi: 299}, {Lo: 300, Hi: 300}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPlanIdempotentOnRerun(t *testing.T) {
	in := Input{First: 1, Last: 250, Covered: []Interval{{Lo: 1, Hi: 250}}, Span: 100}
	if got := Plan(in); got != nil {
		t.Fatalf("second planning pass should see nothing missing, got %v", got)
	}
}

func TestMergeIntervalsCoalescesAdjacent(t *testing.T) {
	got := mergeIntervals([]Interval{{Lo: 1, Hi: 5}, {Lo: 6, Hi: 10}, {Lo: 20, Hi: 25}})
	want := []Interval{{Lo: 1, Hi: 10}, {Lo: 20, Hi: 25}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
