// Package store implements the durable index described in spec.md §3/§4.5:
// four tables (groups, articles, group_index, segments), idempotent
// upserts, and a single writer-serialized connection. Grounded on the
// teacher's progress.go (schema bootstrap, ON CONFLICT upsert idiom) and
// sqlite_retry.go (SQLITE_BUSY retry policy), backed by
// github.com/mattn/go-sqlite3 as the teacher is.
package store

const schema = `
CREATE TABLE IF NOT EXISTS groups (
	name    TEXT PRIMARY KEY,
	watch   INTEGER NOT NULL DEFAULT 0,
	missing INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS articles (
	message_id TEXT PRIMARY KEY,
	subject    TEXT NOT NULL,
	poster     TEXT NOT NULL,
	posted     DATETIME NOT NULL,
	size       INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS group_index (
	group_name     TEXT NOT NULL,
	article_number INTEGER NOT NULL,
	message_id     TEXT NOT NULL,
	PRIMARY KEY (group_name, article_number)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_group_index_msgid
ON group_index(group_name, message_id);

CREATE INDEX IF NOT EXISTS idx_group_index_group
ON group_index(group_name);

CREATE TABLE IF NOT EXISTS segments (
	message_id   TEXT PRIMARY KEY,
	release_name TEXT NOT NULL DEFAULT '',
	file_name    TEXT NOT NULL DEFAULT '',
	file_total   INTEGER NOT NULL DEFAULT 0,
	file_number  INTEGER NOT NULL DEFAULT 0,
	part_total   INTEGER NOT NULL DEFAULT 0,
	part_number  INTEGER NOT NULL DEFAULT 0
);
`

// pragmas mirror the teacher's applySQLitePragmas: a single busy_timeout so
// SQLITE_BUSY surfaces to our own RetryPolicy rather than sqlite3's
// internal lock-wait, and WAL mode so readers never block the writer.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=0",
	"PRAGMA foreign_keys=ON",
}
