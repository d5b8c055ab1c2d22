package decode

import "testing"

func TestFieldASCIIPassthrough(t *testing.T) {
	got, err := Field("My.Release.Name [01/10] yEnc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "My.Release.Name [01/10] yEnc" {
		t.Fatalf("got %q", got)
	}
}

func TestFieldEmpty(t *testing.T) {
	got, err := Field("")
	if err != nil || got != "" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestDateRFC1123Z(t *testing.T) {
	tm, err := Date("Mon, 02 Jan 2006 15:04:05 +0000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tm.Year() != 2006 {
		t.Fatalf("got %v", tm)
	}
}

func TestDateUnparseableRejected(t *testing.T) {
	if _, err := Date("not a date"); err == nil {
		t.Fatalf("expected DateParseError")
	}
}

func TestDateEmptyRejected(t *testing.T) {
	if _, err := Date(""); err == nil {
		t.Fatalf("expected DateParseError")
	}
}

func TestDateTrailingZoneComment(t *testing.T) {
	tm, err := Date("Mon, 02 Jan 2006 15:04:05 +0000 (UTC)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tm.Year() != 2006 {
		t.Fatalf("got %v", tm)
	}
}
