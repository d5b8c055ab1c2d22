// Package models defines the core entities shared across newsidx.
package models

import "time"

// Group is a watched or merely-known newsgroup. Watch is mutated only by an
// explicit Watch/Unwatch call (spec.md §3); Missing is set when a server
// reports 411 for a group this indexer expected to carry, and is a separate,
// server-observed fact rather than a user decision.
type Group struct {
	Name    string `db:"name"`
	Watch   bool   `db:"watch"`
	Missing bool   `db:"missing"`
}

// Article is a single observed posting, keyed by its globally unique
// message-id. Attributes are immutable once first set (I3 in spec.md §3).
type Article struct {
	MessageID string    `db:"message_id"`
	Subject   string    `db:"subject"`
	Poster    string    `db:"poster"`
	Posted    time.Time `db:"posted"`
	Size      int64     `db:"size"`
}

// GroupIndex binds an Article to its position inside a group.
type GroupIndex struct {
	GroupName    string `db:"group_name"`
	ArticleNum   int64  `db:"article_number"`
	MessageID    string `db:"message_id"`
}

// Segment is the release/file/part coordinate extracted from an article's
// subject by the matcher registry. 0 in FileTotal/FileNumber/PartTotal/
// PartNumber means "unknown".
type Segment struct {
	MessageID   string `db:"message_id"`
	ReleaseName string `db:"release_name"`
	FileName    string `db:"file_name"`
	FileTotal   int    `db:"file_total"`
	FileNumber  int    `db:"file_number"`
	PartTotal   int    `db:"part_total"`
	PartNumber  int    `db:"part_number"`
}

// RawHeader is the 8-field XOVER tuple as returned by the wire protocol,
// before decoding/normalization.
type RawHeader struct {
	Number     int64
	Subject    string
	Poster     string
	Date       string
	MessageID  string
	References string
	Size       int64
	Lines      int64
}

// GroupSummary is a read-side group projection, not a persisted entity.
// Store.ListGroups returns Group rows, not this type.
type GroupSummary struct {
	Name        string
	Watch       bool
	MaxIndexed  int64
	ArticleCount int64
}

// ArticleSummary is a read-side article projection. Store.ListArticles
// returns Article rows, not this type.
type ArticleSummary struct {
	MessageID string
	Subject   string
	Poster    string
	Posted    time.Time
	Size      int64
}
