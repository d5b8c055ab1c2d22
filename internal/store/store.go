package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/go-while/newsidx/internal/models"
)

// Store is the durable index. Writes are serialized through writeMu (the
// "single writer-serialized *sql.DB" of spec.md §4.5); reads use the same
// *sql.DB without the lock, relying on WAL mode for reader/writer
// isolation.
type Store struct {
	db      *sql.DB
	retry   RetryPolicy
	writeMu sync.Mutex
}

// Open creates (if needed) and migrates the database at path, applying the
// teacher's pragma bootstrap sequence (db_init.go's applySQLitePragmas)
// before running the idempotent schema.
func Open(path string) (*Store, error) {
	// _txlock=immediate makes every db.BeginTx issue a BEGIN IMMEDIATE,
	// taking the write lock up front instead of on first write, so
	// SQLITE_BUSY surfaces at transaction start where RetryPolicy can
	// catch it rather than mid-batch.
	db, err := sql.Open("sqlite3", path+"?_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, retry: DefaultRetryPolicy}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

// withWriteTx runs fn inside a BEGIN IMMEDIATE transaction held under
// writeMu, so exactly one write batch is in flight at a time (spec.md
// §4.5 "single transaction per batch"). The whole attempt, including
// BEGIN/COMMIT, is retried by RetryPolicy if SQLITE_BUSY surfaces.
func (s *Store) withWriteTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.retry.exec(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

// UpsertGroup inserts name with watch=false if it does not already exist;
// an existing row's watch flag is never overwritten (spec.md §4.5).
func (s *Store) UpsertGroup(ctx context.Context, name string) error {
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		return upsertGroup(ctx, tx, name)
	})
}

// UpsertGroups upserts every name in one transaction, implementing spec.md
// §4.5's "ListGroups response: one transaction" instead of one transaction
// per group name.
func (s *Store) UpsertGroups(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		for _, name := range names {
			if err := upsertGroup(ctx, tx, name); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertGroup(ctx context.Context, tx *sql.Tx, name string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO groups (name, watch) VALUES (?, 0)
		ON CONFLICT(name) DO NOTHING
	`, name)
	return err
}

// SetWatch sets name's watch flag, returning whether the row existed. This
// is the only path that changes Watch (spec.md §3 "mutated only by explicit
// watch/unwatch").
func (s *Store) SetWatch(ctx context.Context, name string, watch bool) (bool, error) {
	var existed bool
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE groups SET watch = ? WHERE name = ?`, watch, name)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		existed = n > 0
		return nil
	})
	return existed, err
}

// SetMissing records whether a server has reported 411 for name, without
// touching Watch. RefreshWatched skips missing groups rather than retrying
// them every cycle; a group stops being missing the moment any server
// accepts GROUP for it again (runFetchRange clears it on success).
func (s *Store) SetMissing(ctx context.Context, name string, missing bool) error {
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE groups SET missing = ? WHERE name = ?`, missing, name)
		return err
	})
}

// UpsertArticle inserts an article keyed by MessageID; an existing row is
// kept as-is (spec.md I3: attributes are immutable once set).
func (s *Store) UpsertArticle(ctx context.Context, a models.Article) error {
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		return upsertArticle(ctx, tx, a)
	})
}

func upsertArticle(ctx context.Context, tx *sql.Tx, a models.Article) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO articles (message_id, subject, poster, posted, size)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO NOTHING
	`, a.MessageID, a.Subject, a.Poster, a.Posted.UTC(), a.Size)
	return err
}

// UpsertGroupIndex binds messageID to (group, number); if the pair is
// re-offered with a different message_id the new one wins, matching
// servers that repost article numbers after retention expiry (spec.md
// §4.5).
func (s *Store) UpsertGroupIndex(ctx context.Context, group string, number int64, messageID string) error {
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		return upsertGroupIndex(ctx, tx, group, number, messageID)
	})
}

func upsertGroupIndex(ctx context.Context, tx *sql.Tx, group string, number int64, messageID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO group_index (group_name, article_number, message_id)
		VALUES (?, ?, ?)
		ON CONFLICT(group_name, article_number) DO UPDATE SET
			message_id = excluded.message_id
	`, group, number, messageID)
	return err
}

// UpsertSegment inserts a Segment keyed by MessageID; an existing row is
// kept (spec.md §3: "written at most once per article").
func (s *Store) UpsertSegment(ctx context.Context, seg models.Segment) error {
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		return upsertSegment(ctx, tx, seg)
	})
}

func upsertSegment(ctx context.Context, tx *sql.Tx, seg models.Segment) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO segments (message_id, release_name, file_name, file_total, file_number, part_total, part_number)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO NOTHING
	`, seg.MessageID, seg.ReleaseName, seg.FileName, seg.FileTotal, seg.FileNumber, seg.PartTotal, seg.PartNumber)
	return err
}

// IngestItem is one decoded XOVER header ready to persist: the article, its
// position in the group, and the Segment the matcher registry produced, if
// any.
type IngestItem struct {
	Article models.Article
	Group   string
	Number  int64
	Segment *models.Segment
}

// IngestRange persists every item in one transaction, implementing spec.md
// §4.5's "one XOVER range: one transaction" instead of three transactions
// per header (article, group_index, segment). A failure partway through
// rolls back the whole range rather than leaving partial rows.
func (s *Store) IngestRange(ctx context.Context, items []IngestItem) error {
	if len(items) == 0 {
		return nil
	}
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		for _, it := range items {
			if err := upsertArticle(ctx, tx, it.Article); err != nil {
				return err
			}
			if err := upsertGroupIndex(ctx, tx, it.Group, it.Number, it.Article.MessageID); err != nil {
				return err
			}
			if it.Segment != nil {
				if err := upsertSegment(ctx, tx, *it.Segment); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// MaxIndexed returns the highest article_number stored for group, or 0 if
// none.
func (s *Store) MaxIndexed(ctx context.Context, group string) (int64, error) {
	var max sql.NullInt64
	err := s.retry.rowScan(func() *sql.Row {
		return s.db.QueryRowContext(ctx, `
			SELECT MAX(article_number) FROM group_index WHERE group_name = ?
		`, group)
	}, &max)
	if err != nil {
		return 0, err
	}
	return max.Int64, nil
}

// Watched returns every watched group that is not currently missing; a
// group a server has 411'd stays in the groups table (and keeps its watch
// flag) but is excluded here so RefreshWatched doesn't replan it every
// cycle.
func (s *Store) Watched(ctx context.Context) ([]models.Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, watch, missing FROM groups WHERE watch = 1 AND missing = 0 ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGroups(rows)
}

// ListGroups lists groups whose name contains nameLike (empty = no
// filter), paginated by limit/offset.
func (s *Store) ListGroups(ctx context.Context, nameLike string, limit, offset int) ([]models.Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, watch, missing FROM groups
		WHERE ? = '' OR name LIKE '%' || ? || '%'
		ORDER BY name LIMIT ? OFFSET ?
	`, nameLike, nameLike, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGroups(rows)
}

func scanGroups(rows *sql.Rows) ([]models.Group, error) {
	var out []models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.Name, &g.Watch, &g.Missing); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ListArticles lists articles whose subject contains subjectLike (empty =
// no filter), paginated by limit/offset.
func (s *Store) ListArticles(ctx context.Context, subjectLike string, limit, offset int) ([]models.Article, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT message_id, subject, poster, posted, size FROM articles
		WHERE ? = '' OR subject LIKE '%' || ? || '%'
		ORDER BY posted DESC LIMIT ? OFFSET ?
	`, subjectLike, subjectLike, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Article
	for rows.Next() {
		var a models.Article
		var posted time.Time
		if err := rows.Scan(&a.MessageID, &a.Subject, &a.Poster, &posted, &a.Size); err != nil {
			return nil, err
		}
		a.Posted = posted
		out = append(out, a)
	}
	return out, rows.Err()
}

// UnmatchedArticles returns every article with no Segment row, used to
// re-run the Matcher Registry offline after a template update (spec.md
// §4.5).
func (s *Store) UnmatchedArticles(ctx context.Context) ([]models.Article, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.message_id, a.subject, a.poster, a.posted, a.size
		FROM articles a
		LEFT JOIN segments s ON s.message_id = a.message_id
		WHERE s.message_id IS NULL
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Article
	for rows.Next() {
		var a models.Article
		var posted time.Time
		if err := rows.Scan(&a.MessageID, &a.Subject, &a.Poster, &posted, &a.Size); err != nil {
			return nil, err
		}
		a.Posted = posted
		out = append(out, a)
	}
	return out, rows.Err()
}

// Covered returns the indexed article numbers for group within [lo,hi], in
// ascending order; the indexer collapses them into the Range Planner's
// Input.Covered intervals.
func (s *Store) Covered(ctx context.Context, group string, lo, hi int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT article_number FROM group_index
		WHERE group_name = ? AND article_number BETWEEN ? AND ?
		ORDER BY article_number
	`, group, lo, hi)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nums []int64
	for rows.Next() {
		var n int64
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		nums = append(nums, n)
	}
	return nums, rows.Err()
}
