package models

import "fmt"

// ErrorKind classifies an error for the worker loop's retry/drop decision
// (spec.md §7).
type ErrorKind int

const (
	// KindUnknown covers errors that didn't come through NewError.
	KindUnknown ErrorKind = iota
	KindConn
	KindAuth
	KindProtocol
	KindDecode
	KindDateParse
	KindStoreBusy
	KindCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case KindConn:
		return "ConnError"
	case KindAuth:
		return "AuthError"
	case KindProtocol:
		return "ProtocolError"
	case KindDecode:
		return "DecodeError"
	case KindDateParse:
		return "DateParseError"
	case KindStoreBusy:
		return "StoreBusy"
	case KindCancelled:
		return "Cancelled"
	default:
		return "UnknownError"
	}
}

// IndexerError is a classified error carrying the wrapped cause and, for
// ProtocolError, the NNTP response code.
type IndexerError struct {
	Kind ErrorKind
	Code int // NNTP response code, only meaningful for KindProtocol
	Err  error
}

func (e *IndexerError) Error() string {
	if e.Kind == KindProtocol {
		return fmt.Sprintf("%s (%d): %v", e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *IndexerError) Unwrap() error { return e.Err }

// Transient reports whether the error kind warrants a task retry rather
// than dropping the unit of work it applies to (spec.md §4.3: "transient
// failures (ConnError, 5xx, socket timeout)"; 4xx protocol errors such as
// 411 "no such group" are permanent and handled by the specific task logic
// instead of the generic retry path).
func (e *IndexerError) Transient() bool {
	switch e.Kind {
	case KindConn, KindStoreBusy:
		return true
	case KindProtocol:
		return e.Code >= 500 && e.Code < 600
	default:
		return false
	}
}

func newErr(kind ErrorKind, err error) *IndexerError {
	return &IndexerError{Kind: kind, Err: err}
}

// NewConnError wraps a transport/handshake failure.
func NewConnError(err error) *IndexerError { return newErr(KindConn, err) }

// NewAuthError wraps a permanent authentication failure.
func NewAuthError(err error) *IndexerError { return newErr(KindAuth, err) }

// NewProtocolError wraps an unexpected NNTP response together with its code.
// Retry classification is done by Transient: 5xx codes are transient, all
// other codes (4xx included) are permanent.
func NewProtocolError(code int, text string) *IndexerError {
	return &IndexerError{Kind: KindProtocol, Code: code, Err: fmt.Errorf("%s", text)}
}

// NewDecodeError wraps a field that could not be decoded in any of the
// fallback charsets (the article is still ingested, lossily).
func NewDecodeError(field string, err error) *IndexerError {
	return newErr(KindDecode, fmt.Errorf("field %q: %w", field, err))
}

// NewDateParseError wraps an unparseable posted-date (the article is
// dropped, not the range).
func NewDateParseError(raw string) *IndexerError {
	return newErr(KindDateParse, fmt.Errorf("unparseable date %q", raw))
}

// NewStoreBusy wraps a write that exhausted its retry budget.
func NewStoreBusy(err error) *IndexerError { return newErr(KindStoreBusy, err) }

// ErrCancelled is returned by any operation observing the shutdown signal.
var ErrCancelled = &IndexerError{Kind: KindCancelled, Err: fmt.Errorf("shutdown requested")}
