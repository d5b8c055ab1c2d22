package matcher

import (
	"strings"
	"testing"
)

func TestLoadSkipsBlankAndComments(t *testing.T) {
	src := "\n# a comment\n*\t{release} {parts_b} {yenc}\n"
	reg, err := Load(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reg.matchers) != 1 {
		t.Fatalf("expected 1 matcher, got %d", len(reg.matchers))
	}
	if reg.matchers[0].description != "3" {
		t.Fatalf("expected description to be the 1-based line number, got %q", reg.matchers[0].description)
	}
}

func TestMatchCapturesPartsAndFileTotal(t *testing.T) {
	reg, err := Load(strings.NewReader(`*` + "\t" + `{release} {files_b} {parts_p} {yenc}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seg, ok := reg.Match("alt.binaries.test", "My.Release.Name [01/10] (1/3) yEnc")
	if !ok {
		t.Fatalf("expected a match")
	}
	if seg.ReleaseName != "My.Release.Name" {
		t.Fatalf("got release_name %q", seg.ReleaseName)
	}
	if seg.FileNumber != 1 || seg.FileTotal != 10 || seg.PartNumber != 1 || seg.PartTotal != 3 {
		t.Fatalf("got %+v", seg)
	}
}

func TestMatchReleaseNameDefaultsToFileName(t *testing.T) {
	reg, err := Load(strings.NewReader(`*` + "\t" + `{file_name}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seg, ok := reg.Match("alt.binaries.test", `movie.mkv`)
	if !ok {
		t.Fatalf("expected a match")
	}
	if seg.ReleaseName != seg.FileName || seg.FileName != "movie.mkv" {
		t.Fatalf("got %+v", seg)
	}
}

func TestMatchGroupGlobRestriction(t *testing.T) {
	reg, err := Load(strings.NewReader(`alt.binaries.*` + "\t" + `{file_name}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := reg.Match("alt.sources.test", "anything"); ok {
		t.Fatalf("expected no match outside the group glob")
	}
	if _, ok := reg.Match("alt.binaries.test", "anything"); !ok {
		t.Fatalf("expected a match inside the group glob")
	}
}

func TestMatchFirstWins(t *testing.T) {
	src := "*\t{file_name}.specific\n*\t{file_name}\n"
	reg, err := Load(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seg, ok := reg.Match("g", "a.specific")
	if !ok {
		t.Fatalf("expected a match")
	}
	if seg.FileName != "a" {
		t.Fatalf("expected the first (more specific) matcher to win, got %+v", seg)
	}
}

func TestNoMatcherMatches(t *testing.T) {
	reg, err := Load(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := reg.Match("g", "anything"); ok {
		t.Fatalf("expected no match on an empty registry")
	}
}

func TestMatchersRoundTripToOriginalLines(t *testing.T) {
	lines := []string{
		"alt.binaries.*\t{release} {files_b} {yenc}",
		"*\t{file_name}",
	}
	reg, err := Load(strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	matchers := reg.Matchers()
	if len(matchers) != len(lines) {
		t.Fatalf("expected %d matchers, got %d", len(lines), len(matchers))
	}
	for i, m := range matchers {
		if m.Template() != lines[i] {
			t.Fatalf("matcher %d: got template %q, want %q", i, m.Template(), lines[i])
		}
	}
}
