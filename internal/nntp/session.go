// Package nntp implements the client half of RFC 3977 the indexer needs:
// greeting, MODE READER, AUTHINFO, GROUP, XOVER and LIST, plus the
// connection pool that hands out sessions bounded per server (spec.md
// §4.1). Grounded on the teacher's internal/nntp client: state handling
// adapted from nntp-client.go's BackendConn.Connect/authenticate, command
// framing and line parsing adapted from nntp-client-commands.go's
// SelectGroup/XOver/ListGroups.
package nntp

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/go-while/newsidx/internal/config"
	"github.com/go-while/newsidx/internal/models"
)

// State is a session's position in the protocol state machine described in
// spec.md §4.1: Dialing -> Greeted -> (ModeReader) -> (Authed) -> Ready ->
// GroupSelected <-> Ready -> Quitted.
type State int

const (
	StateDialing State = iota
	StateGreeted
	StateModeReader
	StateAuthed
	StateReady
	StateGroupSelected
	StateQuitted
)

const (
	codeWelcomeMin  = 200
	codeWelcomeMax  = 201
	codePostingOK   = 200
	codeNoPosting   = 201
	codeModeReaderOK = 200
	codeAuthMoreInfo = 381
	codeAuthSuccess  = 281
	codeAuthRequired = 480
	codeGroupOK      = 211
	codeNoSuchGroup  = 411
	codeXOverOK      = 224
	codeListOK       = 215
)

// Session is one authenticated, possibly group-selected NNTP connection.
// It is not safe for concurrent use; the Pool hands out exclusive use.
type Session struct {
	server         config.Server
	conn           net.Conn
	text           *textproto.Conn
	state          State
	group          string
	poisoned       bool
	commandTimeout time.Duration
}

// dial opens a TCP (optionally TLS) connection, reads the greeting, and
// brings the session up through ModeReader/Authed to Ready. commandTimeout
// bounds every subsequent command/response round trip (spec.md §5); zero
// falls back to config.DefaultCommandTimeout.
func dial(server config.Server, commandTimeout time.Duration) (*Session, error) {
	addr := net.JoinHostPort(server.Host, strconv.Itoa(server.Port))
	dialer := &net.Dialer{Timeout: config.DefaultConnectTimeout}

	var conn net.Conn
	var err error
	if server.SSL {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{
			ServerName: server.Host,
			MinVersion: tls.VersionTLS12,
		})
	} else {
		conn, err = dialer.Dial("tcp", addr)
	}
	if err != nil {
		return nil, models.NewConnError(fmt.Errorf("dial %s: %w", addr, err))
	}
	if commandTimeout <= 0 {
		commandTimeout = config.DefaultCommandTimeout
	}

	s := &Session{server: server, conn: conn, text: textproto.NewConn(conn), state: StateDialing, commandTimeout: commandTimeout}

	s.conn.SetDeadline(time.Now().Add(s.commandTimeout))
	code, msg, err := s.text.ReadCodeLine(codeWelcomeMin)
	s.conn.SetDeadline(time.Time{})
	if err != nil {
		s.close()
		return nil, models.NewConnError(fmt.Errorf("read greeting: %w", err))
	}
	if code < codeWelcomeMin || code > codeWelcomeMax {
		s.close()
		return nil, models.NewProtocolError(code, msg)
	}
	s.state = StateGreeted

	if err := s.modeReaderThenAuth(); err != nil {
		s.close()
		return nil, err
	}
	s.state = StateReady
	return s, nil
}

// modeReaderThenAuth implements "reader-mode is attempted once after
// greeting; if the server returns 480, authentication is performed first,
// then mode-reader is retried" (spec.md §4.1).
func (s *Session) modeReaderThenAuth() error {
	code, _, err := s.command("MODE READER")
	if err != nil {
		return models.NewConnError(err)
	}
	if code == codeAuthRequired {
		if err := s.authenticate(); err != nil {
			return err
		}
		code, msg, err := s.command("MODE READER")
		if err != nil {
			return models.NewConnError(err)
		}
		if code != codeModeReaderOK && code != codePostingOK && code != codeNoPosting {
			return models.NewProtocolError(code, msg)
		}
		s.state = StateModeReader
		return nil
	}
	s.state = StateModeReader
	if s.server.Username != "" && s.state != StateAuthed {
		return s.authenticate()
	}
	return nil
}

// authenticate consults configured credentials first, falling back to
// .netrc-style lookup only when none are configured (spec.md §4.1).
func (s *Session) authenticate() error {
	user, pass := s.server.Username, s.server.Password
	if user == "" {
		user, pass = lookupNetrc(s.server.Host)
	}
	if user == "" {
		return nil
	}

	code, msg, err := s.command("AUTHINFO USER %s", user)
	if err != nil {
		return models.NewConnError(err)
	}
	if code != codeAuthMoreInfo {
		return models.NewAuthError(fmt.Errorf("AUTHINFO USER: %d %s", code, msg))
	}

	code, msg, err = s.command("AUTHINFO PASS %s", pass)
	if err != nil {
		return models.NewConnError(err)
	}
	if code != codeAuthSuccess {
		return models.NewAuthError(fmt.Errorf("AUTHINFO PASS: %d %s", code, msg))
	}
	s.state = StateAuthed
	return nil
}

// command sends a single-line command and reads back its status line,
// without consuming a multi-line body. The whole round trip is bounded by
// s.commandTimeout (spec.md §5 "per command ... 30s default, configurable");
// a deadline that fires poisons the session, same as any other socket
// error, since a timed-out textproto.Conn can be left mid-response.
func (s *Session) command(format string, args ...interface{}) (int, string, error) {
	s.conn.SetDeadline(time.Now().Add(s.commandTimeout))
	defer s.conn.SetDeadline(time.Time{})

	id, err := s.text.Cmd(format, args...)
	if err != nil {
		s.poisoned = true
		return 0, "", err
	}
	s.text.StartResponse(id)
	defer s.text.EndResponse(id)
	code, msg, err := s.text.ReadCodeLine(0)
	if err != nil {
		s.poisoned = true
	}
	return code, msg, err
}

// GroupInfo is the result of selecting a newsgroup.
type GroupInfo struct {
	Name  string
	Count int64
	First int64
	Last  int64
}

// Group selects a newsgroup (RFC 3977 GROUP), caching its name in the
// session state. A 411 (no such group) is returned as a *models.IndexerError
// of kind ProtocolError so callers can distinguish "drop this group" from a
// connection failure.
func (s *Session) Group(name string) (GroupInfo, error) {
	code, msg, err := s.command("GROUP %s", name)
	if err != nil {
		s.poisoned = true
		return GroupInfo{}, models.NewConnError(err)
	}
	if code != codeGroupOK {
		if code >= 500 {
			s.poisoned = true
		}
		return GroupInfo{}, models.NewProtocolError(code, msg)
	}

	parts := strings.Fields(msg)
	if len(parts) < 3 {
		s.poisoned = true
		return GroupInfo{}, models.NewProtocolError(code, "malformed GROUP response: "+msg)
	}
	count, _ := strconv.ParseInt(parts[0], 10, 64)
	first, _ := strconv.ParseInt(parts[1], 10, 64)
	last, _ := strconv.ParseInt(parts[2], 10, 64)

	s.group = name
	s.state = StateGroupSelected
	return GroupInfo{Name: name, Count: count, First: first, Last: last}, nil
}

// XOver reads the whole response and returns the 8-field overview tuples
// for [lo,hi] in the currently
// selected group (RFC 3977 XOVER, as extended by most servers to accept a
// range). The caller must have called Group first.
func (s *Session) XOver(lo, hi int64) ([]models.RawHeader, error) {
	if s.state != StateGroupSelected {
		return nil, models.NewProtocolError(0, "XOVER without a selected group")
	}
	code, msg, err := s.command("XOVER %d-%d", lo, hi)
	if err != nil {
		s.poisoned = true
		return nil, models.NewConnError(err)
	}
	if code != codeXOverOK {
		if code < 400 || code >= 500 {
			s.poisoned = true
		}
		return nil, models.NewProtocolError(code, msg)
	}

	lines, err := s.readDotTerminated()
	if err != nil {
		s.poisoned = true
		return nil, models.NewConnError(err)
	}

	headers := make([]models.RawHeader, 0, len(lines))
	for _, line := range lines {
		h, ok := parseOverviewLine(line)
		if !ok {
			continue
		}
		headers = append(headers, h)
	}
	return headers, nil
}

// GroupListing is one row of a LIST response.
type GroupListing struct {
	Name  string
	First int64
	Last  int64
}

// List enumerates every group the server carries (RFC 3977 LIST).
func (s *Session) List() ([]GroupListing, error) {
	code, msg, err := s.command("LIST")
	if err != nil {
		s.poisoned = true
		return nil, models.NewConnError(err)
	}
	if code != codeListOK {
		s.poisoned = true
		return nil, models.NewProtocolError(code, msg)
	}

	lines, err := s.readDotTerminated()
	if err != nil {
		s.poisoned = true
		return nil, models.NewConnError(err)
	}

	listings := make([]GroupListing, 0, len(lines))
	for _, line := range lines {
		parts := strings.Fields(line)
		if len(parts) < 3 {
			continue
		}
		last, err1 := strconv.ParseInt(parts[1], 10, 64)
		first, err2 := strconv.ParseInt(parts[2], 10, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		listings = append(listings, GroupListing{Name: parts[0], First: first, Last: last})
	}
	return listings, nil
}

// readDotTerminated reads lines up to a bare "." terminator, undoing
// dot-stuffing on the way. Each line is subject to the same per-command
// deadline as the initiating command, reset on every line so a large but
// steadily-flowing XOVER/LIST body isn't cut short, while a stalled one
// still poisons the session within s.commandTimeout (spec.md §5).
func (s *Session) readDotTerminated() ([]string, error) {
	defer s.conn.SetDeadline(time.Time{})
	var lines []string
	for {
		s.conn.SetDeadline(time.Now().Add(s.commandTimeout))
		line, err := s.text.ReadLine()
		if err != nil {
			return nil, err
		}
		if line == "." {
			break
		}
		if strings.HasPrefix(line, "..") {
			line = line[1:]
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// parseOverviewLine parses one XOVER line:
// number<TAB>subject<TAB>from<TAB>date<TAB>message-id<TAB>references<TAB>bytes<TAB>lines
func parseOverviewLine(line string) (models.RawHeader, bool) {
	parts := strings.Split(line, "\t")
	if len(parts) < 7 {
		return models.RawHeader{}, false
	}
	num, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return models.RawHeader{}, false
	}
	size, _ := strconv.ParseInt(parts[6], 10, 64)
	var lineCount int64
	if len(parts) > 7 {
		lineCount, _ = strconv.ParseInt(parts[7], 10, 64)
	}
	return models.RawHeader{
		Number:     num,
		Subject:    parts[1],
		Poster:     parts[2],
		Date:       parts[3],
		MessageID:  strings.TrimSpace(parts[4]),
		References: parts[5],
		Size:       size,
		Lines:      lineCount,
	}, true
}

// Poisoned reports whether a socket error, 5xx, or timeout has been
// observed on this session; the pool discards poisoned sessions rather than
// returning them (spec.md §4.1).
func (s *Session) Poisoned() bool { return s.poisoned }

func (s *Session) close() {
	if s.text != nil {
		s.text.Close()
	}
	s.state = StateQuitted
}

// Quit sends QUIT and closes the underlying socket.
func (s *Session) Quit() {
	if s.state != StateQuitted {
		_, _, _ = s.command("QUIT")
	}
	s.close()
}
