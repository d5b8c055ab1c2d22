// Package matcher implements the ordered regex matcher registry that turns
// an article's subject into a release/file/part Segment (spec.md §4.4).
// Grounded on the teacher's group-glob matching in
// internal/nntp.MatchGroupGlob (nntp-peering-pattern.go's wildcard
// matcher), reused here rather than reimplemented.
package matcher

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-while/newsidx/internal/models"
	"github.com/go-while/newsidx/internal/nntp"
)

// macros is the fixed template-interpolation table from spec.md §4.4. Order
// does not matter for expansion since every macro name is distinct and
// textual substring replacement is applied once per macro.
var macros = map[string]string{
	"release":         `(?P<release_name>.+?)`,
	"comment":         `(?P<comment>.+?)`,
	"seperator":       `(?:-|\|)`,
	"parts_p":         `\((?P<part_number>\d+)(?:/| of )(?P<part_total>\d+)\)`,
	"parts_b":         `\[(?P<part_number>\d+)(?:/| of )(?P<part_total>\d+)\]`,
	"files_b":         `\[(?P<file_number>\d+)(?:/| ?of ?)(?P<file_total>\d+)\]`,
	"file_name_parts": `(?P<file_name>.+\.part(?P<file_number>\d+)\.rar)`,
	"file_name":       `(?P<file_name>[^"]+)`,
	"yenc":            `yEnc`,
}

// macroPattern finds a bare macro token in a template line, e.g. "{release}".
var macroPattern = regexp.MustCompile(`\{(\w+)\}`)

// Matcher is one compiled (regex, group-glob, description) entry. template
// is the trimmed source line it was compiled from, retained so the registry
// can be round-tripped (spec.md §8: enumerate Matchers, expand each
// Template(), and recover the original line).
type Matcher struct {
	re          *regexp.Regexp
	groupGlob   string
	description string
	template    string
}

// Template returns the source line m was compiled from: "<group-glob>\t
// <pattern>", or just "<pattern>" if the line carried no group-glob.
func (m *Matcher) Template() string { return m.template }

// GroupGlob returns the group-glob restriction m was compiled with ("*" if
// the template applied to every group).
func (m *Matcher) GroupGlob() string { return m.groupGlob }

// Registry is an ordered, immutable list of Matchers. The zero value is an
// empty registry that matches nothing.
type Registry struct {
	matchers []*Matcher
}

// Matchers returns the registry's Matchers in registration order, for
// callers that want to enumerate or round-trip a loaded template file.
func (reg *Registry) Matchers() []*Matcher {
	if reg == nil {
		return nil
	}
	return reg.matchers
}

// expand substitutes every {macro} token in line with its regex expansion.
func expand(line string) string {
	return macroPattern.ReplaceAllStringFunc(line, func(tok string) string {
		name := tok[1 : len(tok)-1]
		if r, ok := macros[name]; ok {
			return r
		}
		return tok
	})
}

// compileLine compiles one non-comment template line into a Matcher. The
// template is "<group-glob>\t<pattern>"; a pattern with no tab applies to
// all groups.
func compileLine(lineNo int, line string) (*Matcher, error) {
	glob := "*"
	pattern := line
	if i := strings.IndexByte(line, '\t'); i >= 0 {
		glob = strings.TrimSpace(line[:i])
		pattern = strings.TrimSpace(line[i+1:])
	}
	expanded := expand(pattern)
	anchored := "(?i)^" + expanded + "$"
	re, err := regexp.Compile(anchored)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", lineNo, err)
	}
	return &Matcher{re: re, groupGlob: glob, description: strconv.Itoa(lineNo), template: line}, nil
}

// Load parses a matcher template from r: blank lines and #-comments are
// skipped; every other line is a template, numbered by its 1-based position
// in the file (spec.md §4.4).
func Load(r io.Reader) (*Registry, error) {
	scanner := bufio.NewScanner(r)
	var matchers []*Matcher
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m, err := compileLine(lineNo, line)
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return &Registry{matchers: matchers}, nil
}

// Match runs the registry against subject, restricted to matchers whose
// group-glob matches group. The first matcher that fully matches wins
// (spec.md §4.4 "first regex that fully matches the subject"). ok is false
// if no matcher applied.
func (reg *Registry) Match(group, subject string) (models.Segment, bool) {
	if reg == nil {
		return models.Segment{}, false
	}
	for _, m := range reg.matchers {
		if m.groupGlob != "*" && !nntp.MatchGroupGlob(group, m.groupGlob) {
			continue
		}
		names := m.re.SubexpNames()
		groups := m.re.FindStringSubmatch(subject)
		if groups == nil {
			continue
		}
		return segmentFrom(names, groups), true
	}
	return models.Segment{}, false
}

func segmentFrom(names []string, groups []string) models.Segment {
	captured := make(map[string]string, len(names))
	for i, name := range names {
		if name == "" || groups[i] == "" {
			continue
		}
		captured[name] = groups[i]
	}

	seg := models.Segment{
		ReleaseName: captured["release_name"],
		FileName:    captured["file_name"],
		FileTotal:   atoiOrZero(captured["file_total"]),
		FileNumber:  atoiOrZero(captured["file_number"]),
		PartTotal:   atoiOrZero(captured["part_total"]),
		PartNumber:  atoiOrZero(captured["part_number"]),
	}
	if seg.ReleaseName == "" {
		seg.ReleaseName = seg.FileName
	}
	return seg
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
