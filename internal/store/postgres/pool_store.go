package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/colosseo/arenabook/internal/domain"
)

// PoolStore implements domain.PoolStore using PostgreSQL.
type PoolStore struct {
	pool *pgxpool.Pool
}

// NewPoolStore creates a PoolStore backed by the given connection pool.
func NewPoolStore(pool *pgxpool.Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

const poolCols = `id, match_id, arena_id, bet_type, fighter_a, fighter_b,
	stake_a, stake_b, house_liquidity, status, participants, viral_score,
	winning_side, void_reason, opened_at, closed_at, resolved_at`

// Create inserts a new pool.
func (s *PoolStore) Create(ctx context.Context, p domain.Pool) error {
	const query = `
		INSERT INTO pools (
			id, match_id, arena_id, bet_type, fighter_a, fighter_b,
			stake_a, stake_b, house_liquidity, status, participants,
			viral_score, winning_side, void_reason, opened_at, closed_at, resolved_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := s.pool.Exec(ctx, query,
		p.ID, p.MatchID, p.ArenaID, string(p.BetType), p.FighterA, p.FighterB,
		p.StakeA, p.StakeB, p.HouseLiquidity, string(p.Status), p.Participants,
		p.ViralScore, sideToStr(p.WinningSide), p.VoidReason,
		p.OpenedAt, p.ClosedAt, p.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create pool %s: %w", p.ID, err)
	}
	return nil
}

// Get fetches one pool by id.
func (s *PoolStore) Get(ctx context.Context, id string) (domain.Pool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+poolCols+` FROM pools WHERE id = $1`, id)
	p, err := scanPool(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Pool{}, domain.ErrNotFound
		}
		return domain.Pool{}, fmt.Errorf("postgres: get pool %s: %w", id, err)
	}
	return p, nil
}

// Update rewrites the mutable pool columns.
func (s *PoolStore) Update(ctx context.Context, p domain.Pool) error {
	const query = `
		UPDATE pools SET
			stake_a = $2, stake_b = $3, house_liquidity = $4, status = $5,
			participants = $6, viral_score = $7, winning_side = $8,
			void_reason = $9, closed_at = $10, resolved_at = $11
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		p.ID, p.StakeA, p.StakeB, p.HouseLiquidity, string(p.Status),
		p.Participants, p.ViralScore, sideToStr(p.WinningSide),
		p.VoidReason, p.ClosedAt, p.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update pool %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByStatus returns every pool in the given status, oldest first.
func (s *PoolStore) ListByStatus(ctx context.Context, status domain.PoolStatus) ([]domain.Pool, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+poolCols+` FROM pools WHERE status = $1 ORDER BY opened_at`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list pools by status %s: %w", status, err)
	}
	defer rows.Close()
	return collectPools(rows)
}

// ListRecent returns the most recently opened pools.
func (s *PoolStore) ListRecent(ctx context.Context, limit int) ([]domain.Pool, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+poolCols+` FROM pools ORDER BY opened_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent pools: %w", err)
	}
	defer rows.Close()
	return collectPools(rows)
}

func collectPools(rows pgx.Rows) ([]domain.Pool, error) {
	var out []domain.Pool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan pool: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPool(scanner interface{ Scan(dest ...any) error }) (domain.Pool, error) {
	var (
		p       domain.Pool
		betType string
		status  string
		winning *string
	)
	err := scanner.Scan(
		&p.ID, &p.MatchID, &p.ArenaID, &betType, &p.FighterA, &p.FighterB,
		&p.StakeA, &p.StakeB, &p.HouseLiquidity, &status, &p.Participants,
		&p.ViralScore, &winning, &p.VoidReason,
		&p.OpenedAt, &p.ClosedAt, &p.ResolvedAt,
	)
	if err != nil {
		return domain.Pool{}, err
	}
	p.BetType = domain.BetType(betType)
	p.Status = domain.PoolStatus(status)
	if winning != nil {
		side := domain.PoolSide(*winning)
		p.WinningSide = &side
	}
	return p, nil
}

func sideToStr(s *domain.PoolSide) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}
