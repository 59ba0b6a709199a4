package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/colosseo/arenabook/internal/domain"
)

// Archiver uploads a resolved pool's full record to object storage. Each
// archive is a single JSONL object: one pool line, then one line per bet,
// then one line per event, in sequence order.
//
// Deletion of archived records from the primary store is intentionally NOT
// performed here. That is a separate, explicit step to be executed after the
// archive has been verified.
type Archiver struct {
	writer domain.BlobWriter
	pools  domain.PoolStore
	bets   domain.BetStore
	events domain.EventStore
}

// NewArchiver creates an Archiver over the given stores and blob writer.
func NewArchiver(writer domain.BlobWriter, pools domain.PoolStore, bets domain.BetStore, events domain.EventStore) *Archiver {
	return &Archiver{
		writer: writer,
		pools:  pools,
		bets:   bets,
		events: events,
	}
}

// archiveLine wraps each record with its kind so a reader can demultiplex the
// JSONL stream without guessing at field shapes.
type archiveLine struct {
	Kind   string `json:"kind"`
	Record any    `json:"record"`
}

// ArchivePool bundles a pool with its bets and events and uploads the result
// to pools/YYYY-MM-DD/{poolID}.jsonl.
func (a *Archiver) ArchivePool(ctx context.Context, poolID string) error {
	pool, err := a.pools.Get(ctx, poolID)
	if err != nil {
		return fmt.Errorf("s3blob: archive pool %s: %w", poolID, err)
	}

	bets, err := a.bets.ListByPool(ctx, poolID)
	if err != nil {
		return fmt.Errorf("s3blob: archive pool %s bets: %w", poolID, err)
	}

	events, err := a.events.ListByPool(ctx, poolID)
	if err != nil {
		return fmt.Errorf("s3blob: archive pool %s events: %w", poolID, err)
	}

	lines := make([]archiveLine, 0, 1+len(bets)+len(events))
	lines = append(lines, archiveLine{Kind: "pool", Record: pool})
	for _, b := range bets {
		lines = append(lines, archiveLine{Kind: "bet", Record: b})
	}
	for _, e := range events {
		lines = append(lines, archiveLine{Kind: "event", Record: e})
	}

	buf, err := marshalJSONL(lines)
	if err != nil {
		return fmt.Errorf("s3blob: archive pool %s marshal: %w", poolID, err)
	}

	path := archivePath(pool, poolID)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return fmt.Errorf("s3blob: archive pool %s upload: %w", poolID, err)
	}
	return nil
}

// archivePath builds the S3 key for a pool archive, partitioned by the day
// the pool was opened.
//
//	pools/2026-09-01/7f8c....jsonl
func archivePath(pool domain.Pool, poolID string) string {
	day := pool.OpenedAt
	if day.IsZero() {
		day = time.Now().UTC()
	}
	return fmt.Sprintf("pools/%s/%s.jsonl", day.Format("2006-01-02"), poolID)
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
