package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/colosseo/arenabook/internal/domain"
)

// BetStore implements domain.BetStore using PostgreSQL.
type BetStore struct {
	pool *pgxpool.Pool
}

// NewBetStore creates a BetStore backed by the given connection pool.
func NewBetStore(pool *pgxpool.Pool) *BetStore {
	return &BetStore{pool: pool}
}

const betCols = `id, account_id, pool_id, side, amount, odds, potential,
	status, payout, placed_at, settled_at`

// Create inserts a new bet. Frozen odds are stored as NUMERIC(10,2) so
// they round-trip exactly.
func (s *BetStore) Create(ctx context.Context, b domain.Bet) error {
	const query = `
		INSERT INTO bets (
			id, account_id, pool_id, side, amount, odds, potential,
			status, payout, placed_at, settled_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.pool.Exec(ctx, query,
		b.ID, b.AccountID, b.PoolID, string(b.Side), b.Amount,
		b.Odds.String(), b.Potential, string(b.Status), b.Payout,
		b.PlacedAt, b.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create bet %s: %w", b.ID, err)
	}
	return nil
}

// Get fetches one bet by id.
func (s *BetStore) Get(ctx context.Context, id string) (domain.Bet, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+betCols+` FROM bets WHERE id = $1`, id)
	b, err := scanBet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Bet{}, domain.ErrNotFound
		}
		return domain.Bet{}, fmt.Errorf("postgres: get bet %s: %w", id, err)
	}
	return b, nil
}

// ListByPool returns every bet on a pool in acceptance order.
func (s *BetStore) ListByPool(ctx context.Context, poolID string) ([]domain.Bet, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+betCols+` FROM bets WHERE pool_id = $1 ORDER BY placed_at, id`, poolID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bets for pool %s: %w", poolID, err)
	}
	defer rows.Close()
	return collectBets(rows)
}

// ListByAccount pages through an account's bets, newest first.
func (s *BetStore) ListByAccount(ctx context.Context, accountID string, opts domain.ListOpts) ([]domain.Bet, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+betCols+` FROM bets WHERE account_id = $1
		 ORDER BY placed_at DESC LIMIT $2 OFFSET $3`,
		accountID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bets for account %s: %w", accountID, err)
	}
	defer rows.Close()
	return collectBets(rows)
}

// Settle records a bet's final status and payout.
func (s *BetStore) Settle(ctx context.Context, id string, status domain.BetStatus, payout int64, settledAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE bets SET status = $2, payout = $3, settled_at = $4 WHERE id = $1`,
		id, string(status), payout, settledAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: settle bet %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func collectBets(rows pgx.Rows) ([]domain.Bet, error) {
	var out []domain.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan bet: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBet(scanner interface{ Scan(dest ...any) error }) (domain.Bet, error) {
	var (
		b       domain.Bet
		side    string
		status  string
		oddsStr string
	)
	err := scanner.Scan(
		&b.ID, &b.AccountID, &b.PoolID, &side, &b.Amount, &oddsStr,
		&b.Potential, &status, &b.Payout, &b.PlacedAt, &b.SettledAt,
	)
	if err != nil {
		return domain.Bet{}, err
	}

	odds, err := decimal.NewFromString(oddsStr)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("parse odds %q: %w", oddsStr, err)
	}
	b.Side = domain.PoolSide(side)
	b.Status = domain.BetStatus(status)
	b.Odds = odds
	return b, nil
}
