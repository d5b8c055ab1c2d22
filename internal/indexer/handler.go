package indexer

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-while/newsidx/internal/decode"
	"github.com/go-while/newsidx/internal/models"
	"github.com/go-while/newsidx/internal/queue"
	"github.com/go-while/newsidx/internal/store"
)

// handle executes one Task, implementing spec.md §4.3's FetchRange and
// ListGroups steps.
func (ix *Indexer) handle(ctx context.Context, t queue.Task) error {
	switch t.Kind {
	case queue.KindListGroups:
		return ix.runListGroups(ctx, t.Server)
	case queue.KindFetchRange:
		return ix.runFetchRange(ctx, t.Server, t.Group, t.Lo, t.Hi)
	default:
		return fmt.Errorf("unknown task kind %d", t.Kind)
	}
}

// runListGroups acquires a session, runs LIST, and upserts every name with
// watch=false if absent in a single transaction (spec.md §4.5 "ListGroups
// response: one transaction"); existing watch flags are preserved by
// Store.UpsertGroups.
func (ix *Indexer) runListGroups(ctx context.Context, server string) error {
	pool, ok := ix.pools[server]
	if !ok {
		return fmt.Errorf("unknown server %q", server)
	}
	sess, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer pool.Release(sess)

	if err := pool.Wait(ctx, sess); err != nil {
		return err
	}
	listings, err := sess.List()
	if err != nil {
		return err
	}

	names := make([]string, len(listings))
	for i, l := range listings {
		names[i] = l.Name
	}
	return ix.store.UpsertGroups(ctx, names)
}

// runFetchRange implements spec.md §4.3's FetchRange execution: select the
// group, XOVER the range, decode every header, and persist the whole range
// as one transaction (spec.md §4.5 "one XOVER range: one transaction").
func (ix *Indexer) runFetchRange(ctx context.Context, server, group string, lo, hi int64) error {
	pool, ok := ix.pools[server]
	if !ok {
		return fmt.Errorf("unknown server %q", server)
	}
	sess, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer pool.Release(sess)

	if err := pool.Wait(ctx, sess); err != nil {
		return err
	}
	if _, err := sess.Group(group); err != nil {
		if ierr, ok := err.(*models.IndexerError); ok && ierr.Kind == models.KindProtocol && ierr.Code == 411 {
			return ix.store.SetMissing(ctx, group, true)
		}
		return err
	}
	// A server that now accepts GROUP for a previously-411'd group is no
	// longer missing it; this is a no-op write when the flag was already
	// clear.
	if err := ix.store.SetMissing(ctx, group, false); err != nil {
		return err
	}

	if err := pool.Wait(ctx, sess); err != nil {
		return err
	}
	headers, err := sess.XOver(lo, hi)
	if err != nil {
		return err
	}

	items := make([]store.IngestItem, 0, len(headers))
	for _, h := range headers {
		if it, ok := ix.decodeItem(group, h); ok {
			items = append(items, it)
		}
	}
	return ix.store.IngestRange(ctx, items)
}

// decodeItem decodes and normalizes one raw header into a store.IngestItem,
// per spec.md §4.3 step 4. A permanent failure (unparseable date, empty
// message-id) drops the article from the batch, not the whole range,
// matching spec.md §7's retry classification.
func (ix *Indexer) decodeItem(group string, h models.RawHeader) (store.IngestItem, bool) {
	// decode.Field still returns its best-effort (lossy) value alongside a
	// DecodeError; the article is ingested regardless (spec.md §7).
	subject, _ := decode.Field(h.Subject)
	poster, _ := decode.Field(h.Poster)
	messageID := trimMessageID(h.MessageID)
	if messageID == "" {
		return store.IngestItem{}, false
	}

	posted, err := decode.Date(h.Date)
	if err != nil {
		return store.IngestItem{}, false // I4: unparseable date rejects the row
	}

	item := store.IngestItem{
		Article: models.Article{
			MessageID: messageID,
			Subject:   subject,
			Poster:    poster,
			Posted:    posted,
			Size:      h.Size,
		},
		Group:  group,
		Number: h.Number,
	}
	if ix.registry != nil {
		if seg, ok := ix.registry.Registry().Match(group, subject); ok {
			seg.MessageID = messageID
			item.Segment = &seg
		}
	}
	return item, true
}

func trimMessageID(raw string) string {
	return strings.TrimSpace(raw)
}
