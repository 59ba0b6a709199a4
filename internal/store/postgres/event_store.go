package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/colosseo/arenabook/internal/domain"
)

// EventStore implements domain.EventStore using PostgreSQL. The bigserial
// primary key provides the monotonically increasing sequence.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates an EventStore backed by the given connection pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Append inserts one event and returns its assigned sequence number.
func (s *EventStore) Append(ctx context.Context, e domain.Event) (int64, error) {
	detail, err := json.Marshal(e.Detail)
	if err != nil {
		return 0, fmt.Errorf("postgres: marshal event detail: %w", err)
	}

	var seq int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO events (type, pool_id, detail, created_at)
		 VALUES ($1, $2, $3, $4) RETURNING seq`,
		string(e.Type), e.PoolID, detail, e.CreatedAt,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("postgres: append event %s: %w", e.Type, err)
	}
	return seq, nil
}

// ListByPool returns a pool's events in sequence order, which is enough to
// replay its settlement decision for audit.
func (s *EventStore) ListByPool(ctx context.Context, poolID string) ([]domain.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT seq, type, pool_id, detail, created_at
		 FROM events WHERE pool_id = $1 ORDER BY seq`, poolID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events for pool %s: %w", poolID, err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// ListSince returns up to limit events with seq strictly greater than seq.
func (s *EventStore) ListSince(ctx context.Context, seq int64, limit int) ([]domain.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT seq, type, pool_id, detail, created_at
		 FROM events WHERE seq > $1 ORDER BY seq LIMIT $2`, seq, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events since %d: %w", seq, err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func collectEvents(rows pgx.Rows) ([]domain.Event, error) {
	var out []domain.Event
	for rows.Next() {
		var (
			e      domain.Event
			typ    string
			detail []byte
		)
		if err := rows.Scan(&e.Seq, &typ, &e.PoolID, &detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		e.Type = domain.EventType(typ)
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &e.Detail); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal event detail: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
