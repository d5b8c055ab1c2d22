package nntp

import "testing"

func TestParseOverviewLineWellFormed(t *testing.T) {
	line := "123\tMy Release [01/10] yEnc\tposter@example.com\tMon, 02 Jan 2006 15:04:05 +0000\t<abc@example.com>\t\t45678\t900"
	h, ok := parseOverviewLine(line)
	if !ok {
		t.Fatal("expected a parsed header")
	}
	if h.Number != 123 || h.MessageID != "<abc@example.com>" || h.Size != 45678 || h.Lines != 900 {
		t.Fatalf("got %+v", h)
	}
}

func TestParseOverviewLineTooFewFields(t *testing.T) {
	if _, ok := parseOverviewLine("123\tonly\tthree"); ok {
		t.Fatal("expected malformed line to be rejected")
	}
}

func TestParseOverviewLineBadNumber(t *testing.T) {
	line := "notanumber\ts\tp\td\t<id>\tr\t1\t1"
	if _, ok := parseOverviewLine(line); ok {
		t.Fatal("expected malformed article number to be rejected")
	}
}
