package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colosseo/arenabook/internal/domain"
	"github.com/colosseo/arenabook/internal/store/memory"
)

// captureWriter records the last uploaded object in memory.
type captureWriter struct {
	path        string
	contentType string
	body        []byte
}

func (w *captureWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.path = path
	w.contentType = contentType
	w.body = body
	return nil
}

func TestArchivePoolBundlesRecords(t *testing.T) {
	ctx := context.Background()
	pools := memory.NewPoolStore()
	bets := memory.NewBetStore()
	events := memory.NewEventStore()

	opened := time.Date(2026, 9, 1, 14, 30, 0, 0, time.UTC)
	require.NoError(t, pools.Create(ctx, domain.Pool{
		ID:       "pool-1",
		MatchID:  "match-1",
		Status:   domain.PoolStatusResolved,
		OpenedAt: opened,
	}))
	require.NoError(t, bets.Create(ctx, domain.Bet{ID: "b1", PoolID: "pool-1", PlacedAt: opened}))
	require.NoError(t, bets.Create(ctx, domain.Bet{ID: "b2", PoolID: "pool-1", PlacedAt: opened.Add(time.Second)}))
	_, err := events.Append(ctx, domain.Event{Type: domain.EventPoolClosed, PoolID: "pool-1"})
	require.NoError(t, err)

	w := &captureWriter{}
	arch := NewArchiver(w, pools, bets, events)
	require.NoError(t, arch.ArchivePool(ctx, "pool-1"))

	// Partitioned by the pool's opening day.
	assert.Equal(t, "pools/2026-09-01/pool-1.jsonl", w.path)
	assert.Equal(t, "application/x-ndjson", w.contentType)

	// One line per record: pool, both bets, the event.
	var kinds []string
	sc := bufio.NewScanner(bytes.NewReader(w.body))
	for sc.Scan() {
		var line struct {
			Kind string `json:"kind"`
		}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
		kinds = append(kinds, line.Kind)
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, []string{"pool", "bet", "bet", "event"}, kinds)
}

func TestArchivePoolUnknownPool(t *testing.T) {
	arch := NewArchiver(&captureWriter{}, memory.NewPoolStore(), memory.NewBetStore(), memory.NewEventStore())
	err := arch.ArchivePool(context.Background(), "absent")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestArchivePathFallsBackToToday(t *testing.T) {
	// A pool missing its open timestamp still lands in a dated partition.
	path := archivePath(domain.Pool{ID: "p"}, "p")
	assert.Contains(t, path, time.Now().UTC().Format("2006-01-02"))
}
