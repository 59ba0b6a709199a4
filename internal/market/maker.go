package market

import (
	"context"
	"log/slog"
	"time"

	"github.com/colosseo/arenabook/internal/domain"
)

// RunMakerLoop periodically tops up thin active pools so odds stay well
// defined when stakes are sparse. Top-ups come from the house account and
// stop at the configured house floor; a drained house simply skips passes
// until settlements replenish it.
func (m *Manager) RunMakerLoop(ctx context.Context) error {
	interval := m.cfg.MakerInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.logger.Info("market maker loop starting", slog.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("market maker loop stopped")
			return ctx.Err()
		case <-ticker.C:
			m.makerPass(ctx)
		}
	}
}

// makerPass injects one bounded top-up into every active pool below the
// liquidity floor.
func (m *Manager) makerPass(ctx context.Context) {
	if m.ledger.Halted() {
		return
	}

	pools, err := m.pools.ListByStatus(ctx, domain.PoolStatusActive)
	if err != nil {
		m.logger.Error("maker pass list pools failed", slog.String("error", err.Error()))
		return
	}

	for _, pool := range pools {
		if pool.TotalStaked() >= m.cfg.LiquidityFloor {
			continue
		}

		injected, err := m.BoostLiquidity(ctx, pool.ID, m.cfg.TopUpAmount)
		if err != nil {
			m.logger.Error("maker top-up failed",
				slog.String("pool", pool.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if injected > 0 {
			m.logger.Debug("maker top-up",
				slog.String("pool", pool.ID),
				slog.Int64("amount", injected),
			)
		}
	}
}
