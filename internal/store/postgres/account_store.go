package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/colosseo/arenabook/internal/domain"
)

// AccountStore implements domain.AccountStore using PostgreSQL.
type AccountStore struct {
	pool *pgxpool.Pool
}

// NewAccountStore creates an AccountStore backed by the given pool.
func NewAccountStore(pool *pgxpool.Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

const accountCols = `id, balance, lifetime_earned, lifetime_spent,
	granted, bonus_earned, influence, bet_count, created_at, updated_at`

// Create inserts a new account.
func (s *AccountStore) Create(ctx context.Context, a domain.Account) error {
	const query = `
		INSERT INTO accounts (
			id, balance, lifetime_earned, lifetime_spent,
			granted, bonus_earned, influence, bet_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.pool.Exec(ctx, query,
		a.ID, a.Balance, a.LifetimeEarned, a.LifetimeSpent,
		a.Granted, a.BonusEarned, a.Influence, a.BetCount, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create account %s: %w", a.ID, err)
	}
	return nil
}

// Get fetches one account by id.
func (s *AccountStore) Get(ctx context.Context, id string) (domain.Account, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+accountCols+` FROM accounts WHERE id = $1`, id)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, domain.ErrNotFound
		}
		return domain.Account{}, fmt.Errorf("postgres: get account %s: %w", id, err)
	}
	return a, nil
}

// Update rewrites the full account row.
func (s *AccountStore) Update(ctx context.Context, a domain.Account) error {
	const query = `
		UPDATE accounts SET
			balance = $2, lifetime_earned = $3, lifetime_spent = $4,
			granted = $5, bonus_earned = $6, influence = $7, bet_count = $8,
			updated_at = $9
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		a.ID, a.Balance, a.LifetimeEarned, a.LifetimeSpent,
		a.Granted, a.BonusEarned, a.Influence, a.BetCount, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update account %s: %w", a.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List pages through all accounts ordered by creation time.
func (s *AccountStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Account, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+accountCols+` FROM accounts ORDER BY created_at, id LIMIT $1 OFFSET $2`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list accounts: %w", err)
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Count returns the number of accounts.
func (s *AccountStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count accounts: %w", err)
	}
	return n, nil
}

func scanAccount(scanner interface{ Scan(dest ...any) error }) (domain.Account, error) {
	var a domain.Account
	err := scanner.Scan(
		&a.ID, &a.Balance, &a.LifetimeEarned, &a.LifetimeSpent,
		&a.Granted, &a.BonusEarned, &a.Influence, &a.BetCount,
		&a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}
