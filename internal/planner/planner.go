// Package planner computes the missing article-number chunks a worker must
// fetch for a (server, group) pair, given what the server currently reports
// and what is already in the index. It is a pure function over an
// interval-set abstraction and has no dependency on the store or the
// network, so it is unit-testable on its own (spec.md §4.2).
package planner

import "sort"

// Interval is an inclusive, closed range [Lo, Hi]. Hi >= Lo always holds for
// a well-formed Interval; callers constructing one from a single covered
// number use Lo == Hi.
type Interval struct {
	Lo, Hi int64
}

// Chunk is a fetch unit emitted by Plan: width Hi-Lo+1 is bounded by span.
type Chunk struct {
	Lo, Hi int64
}

// Input bundles everything Plan needs to decide what is missing.
type Input struct {
	First, Last  int64       // server-reported inclusive range
	LastIndexed  int64       // max article_number already stored for this group, 0 if none
	Covered      []Interval  // indexed numbers within [First,Last], already merged or not
	NewlyWatched bool        // true only for a group's first sweep
	Span         int64       // XOVER chunk width, default 100
	Backfill     int64       // max articles to fetch on first sweep, default 1000
}

// Plan computes the ordered sequence of chunks covering exactly the missing
// numbers in in.First..in.Last, each no wider than in.Span.
func Plan(in Input) []Chunk {
	span := in.Span
	if span <= 0 {
		span = 100
	}

	lo := in.First
	if in.LastIndexed+1 > lo {
		lo = in.LastIndexed + 1
	}
	if in.NewlyWatched {
		backfill := in.Backfill
		if backfill <= 0 {
			backfill = 1000
		}
		candidate := in.Last - backfill + 1
		if candidate < in.First {
			candidate = in.First
		}
		lo = candidate
	}

	if in.Last < lo {
		return nil
	}

	missing := subtract(Interval{Lo: lo, Hi: in.Last}, mergeIntervals(in.Covered))

	var chunks []Chunk
	for _, m := range missing {
		for start := m.Lo; start <= m.Hi; start += span {
			end := start + span - 1
			if end > m.Hi {
				end = m.Hi
			}
			chunks = append(chunks, Chunk{Lo: start, Hi: end})
		}
	}
	return chunks
}

// mergeIntervals sorts and coalesces overlapping or adjacent intervals into
// a minimal maximal-interval representation.
func mergeIntervals(in []Interval) []Interval {
	if len(in) == 0 {
		return nil
	}
	sorted := make([]Interval, len(in))
	copy(sorted, in)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Lo < sorted[j].Lo })

	merged := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if iv.Lo <= last.Hi+1 {
			if iv.Hi > last.Hi {
				last.Hi = iv.Hi
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// subtract removes every interval in covered from whole, returning the
// minimal set of maximal intervals that remain.
func subtract(whole Interval, covered []Interval) []Interval {
	var remaining []Interval
	cursor := whole.Lo
	for _, c := range covered {
		if c.Hi < cursor || c.Lo > whole.Hi {
			continue
		}
		if c.Lo > cursor {
			remaining = append(remaining, Interval{Lo: cursor, Hi: c.Lo - 1})
		}
		if c.Hi+1 > cursor {
			cursor = c.Hi + 1
		}
	}
	if cursor <= whole.Hi {
		remaining = append(remaining, Interval{Lo: cursor, Hi: whole.Hi})
	}
	return remaining
}
