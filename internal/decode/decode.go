// Package decode implements the single fallback-chain primitive used to
// turn wire bytes from an NNTP header field into a Go string, and the
// RFC 2822 date parser used for the "posted" timestamp. Per spec.md §9 it
// is exposed as one decode entry point and used only for subject and
// poster.
package decode

import (
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/go-while/newsidx/internal/models"
)

// Field decodes raw header bytes (given as a Go string, since textproto
// already split on CRLF for us) through the fallback chain described in
// spec.md §7/§9: ASCII (if already valid UTF-8/ASCII, used verbatim) ->
// Latin-1 -> CP037 -> ASCII-with-replace. Returns the decoded string and,
// if every charset attempt failed and the lossy ASCII-replace had to be
// used, a non-nil *models.IndexerError of kind DecodeError (the caller
// still ingests the article with the lossy value).
func Field(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	if utf8.ValidString(raw) {
		return raw, nil
	}

	if s, err := decodeWith(charmap.ISO8859_1, raw); err == nil && utf8.ValidString(s) {
		return s, nil
	}
	if s, err := decodeWith(charmap.CodePage037, raw); err == nil && utf8.ValidString(s) {
		return s, nil
	}

	lossy := strings.ToValidUTF8(raw, "?")
	return lossy, models.NewDecodeError("header", errNotDecodable)
}

var errNotDecodable = &decodeErr{"no charset in the fallback chain produced valid UTF-8"}

type decodeErr struct{ msg string }

func (e *decodeErr) Error() string { return e.msg }

func decodeWith(cm *charmap.Charmap, raw string) (string, error) {
	out, _, err := transform.String(cm.NewDecoder(), raw)
	if err != nil {
		return "", err
	}
	return out, nil
}

// nntpDateLayouts are the RFC 2822 / RFC 5322 date layouts NNTP servers
// actually emit, broadly compatible with time.RFC1123Z but tolerant of the
// missing-leading-zero day and the occasional bare two-digit year.
var nntpDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"Mon, _2 Jan 2006 15:04:05 -0700",
	"Mon, _2 Jan 2006 15:04:05 MST",
	"_2 Jan 2006 15:04:05 -0700",
	"_2 Jan 2006 15:04:05 MST",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02T15:04:05Z07:00",
}

// Date parses an RFC 2822 "Date:" header value to UTC. Per spec.md I4, a
// date that cannot be parsed by any recognized layout is an error (the
// article must be rejected, not given a zero-value timestamp).
func Date(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, models.NewDateParseError(raw)
	}
	// Strip a trailing parenthesized zone comment, e.g. "... +0000 (UTC)".
	if i := strings.LastIndexByte(raw, '('); i > 0 && strings.HasSuffix(raw, ")") {
		raw = strings.TrimSpace(raw[:i])
	}
	for _, layout := range nntpDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, models.NewDateParseError(raw)
}
