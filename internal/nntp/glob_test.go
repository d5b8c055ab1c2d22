package nntp

import "testing"

func TestMatchGroupGlobExactName(t *testing.T) {
	if !MatchGroupGlob("alt.binaries.test", "alt.binaries.test") {
		t.Fatal("expected exact match")
	}
}

func TestMatchGroupGlobStar(t *testing.T) {
	if !MatchGroupGlob("alt.binaries.test", "alt.binaries.*") {
		t.Fatal("expected star match")
	}
	if MatchGroupGlob("alt.sources.test", "alt.binaries.*") {
		t.Fatal("unexpected match")
	}
}

func TestMatchGroupGlobQuestionMark(t *testing.T) {
	if !MatchGroupGlob("alt.bin.a", "alt.bin.?") {
		t.Fatal("expected single-char wildcard match")
	}
	if MatchGroupGlob("alt.bin.ab", "alt.bin.?") {
		t.Fatal("unexpected match for longer suffix")
	}
}

func TestMatchGroupGlobLeadingStar(t *testing.T) {
	if !MatchGroupGlob("alt.binaries.test", "*.test") {
		t.Fatal("expected leading star match")
	}
}
