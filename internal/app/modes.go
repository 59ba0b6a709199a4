package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/colosseo/arenabook/internal/arena"
	"github.com/colosseo/arenabook/internal/betting"
	"github.com/colosseo/arenabook/internal/domain"
	"github.com/colosseo/arenabook/internal/ledger"
	"github.com/colosseo/arenabook/internal/market"
	"github.com/colosseo/arenabook/internal/scheduler"
	"github.com/colosseo/arenabook/internal/sentiment"
	"github.com/colosseo/arenabook/internal/server"
	"github.com/colosseo/arenabook/internal/server/handler"
	"github.com/colosseo/arenabook/internal/server/ws"
	"github.com/colosseo/arenabook/internal/settlement"
	"github.com/colosseo/arenabook/internal/viral"
)

// schedulerLockTTL guards the match scheduler singleton across processes.
// The lock auto-extends while held, so a short TTL is enough.
const schedulerLockTTL = 30 * time.Second

// engine bundles the wagering services built on top of the wired stores.
type engine struct {
	ledger    *ledger.Ledger
	sentiment *sentiment.Tracker
	market    *market.Manager
	viral     *viral.Detector // nil when disabled
	betting   *betting.Service
	settle    *settlement.Engine
	scheduler *scheduler.Scheduler
}

// buildEngine constructs the full service graph from configuration. The
// ledger is bootstrapped (house and escrow accounts funded) before anything
// that moves tokens is built on top of it.
func (a *App) buildEngine(ctx context.Context, deps *Dependencies) (*engine, error) {
	cfg := a.cfg

	led := ledger.New(deps.Accounts, ledger.Config{
		InitialGrant:      domain.Tokens(cfg.Ledger.InitialGrantTokens),
		HouseFloat:        domain.Tokens(cfg.Ledger.HouseFloatTokens),
		MaxAccountBalance: domain.Tokens(cfg.Ledger.MaxAccountBalanceTokens),
	}, a.logger)
	if err := led.Bootstrap(ctx); err != nil {
		return nil, fmt.Errorf("app: bootstrap ledger: %w", err)
	}

	sent := sentiment.New(sentiment.Config{
		WindowSize:     cfg.Sentiment.WindowSize,
		IntensityScale: cfg.Sentiment.IntensityScale,
	}, a.logger)

	seeds := make(map[domain.BetType]int64, len(cfg.Market.SeedLiquidityTokens))
	for bt, tokens := range cfg.Market.SeedLiquidityTokens {
		seeds[domain.BetType(bt)] = domain.Tokens(tokens)
	}
	mkt := market.NewManager(deps.Pools, deps.Events, deps.Bus, deps.PoolCache, led, sent, market.Config{
		Pricing: market.PricingConfig{
			HouseEdge:       decimal.NewFromFloat(cfg.Market.HouseEdge),
			SentimentWeight: decimal.NewFromFloat(cfg.Market.SentimentWeight),
			MinOdds:         decimal.NewFromFloat(cfg.Market.MinOdds),
		},
		SeedLiquidity:  seeds,
		DefaultSeed:    domain.Tokens(cfg.Market.DefaultSeedTokens),
		LiquidityFloor: domain.Tokens(cfg.Market.LiquidityFloorTokens),
		TopUpAmount:    domain.Tokens(cfg.Market.TopUpTokens),
		HouseFloor:     domain.Tokens(cfg.Market.HouseFloorTokens),
		MakerInterval:  cfg.Market.MakerInterval.Duration,
	}, a.logger)

	var vd *viral.Detector
	if cfg.Viral.Enabled {
		vd = viral.New(viral.Config{
			Threshold:      cfg.Viral.Threshold,
			Bonus:          domain.Tokens(cfg.Viral.BonusTokens),
			LiquidityBoost: domain.Tokens(cfg.Viral.LiquidityBoostTokens),
			LargeBet:       domain.Tokens(cfg.Viral.LargeBetTokens),
			ExtremeOdds:    decimal.NewFromFloat(cfg.Viral.ExtremeOdds),
			MinInfluence:   cfg.Viral.MinInfluence,
		}, led, mkt, deps.Events, deps.Bus, deps.Notifier, a.logger)
	}

	bet := betting.NewService(led, mkt, sent, vd, deps.Bets, deps.Events, deps.Bus, betting.Config{
		MinBet: domain.Tokens(cfg.Betting.MinBetTokens),
		MaxBet: domain.Tokens(cfg.Betting.MaxBetTokens),
	}, a.logger)

	settle := settlement.NewEngine(led, mkt, deps.Bets, deps.Events, deps.Bus, deps.Notifier, a.logger)

	roster, err := arena.NewRoster(cfg.Arena.ID, cfg.Arena.Fighters)
	if err != nil {
		return nil, fmt.Errorf("app: build roster: %w", err)
	}
	sim := arena.NewSimRunner(cfg.Arena.SimRoundDelay.Duration)
	if cfg.Arena.SimMaxRounds > 0 {
		sim.MaxRounds = cfg.Arena.SimMaxRounds
	}
	if cfg.Arena.SimDrawChance > 0 {
		sim.DrawChance = cfg.Arena.SimDrawChance
	}

	var archiver scheduler.Archiver
	if deps.Archiver != nil {
		archiver = deps.Archiver
	}
	sched := scheduler.New(mkt, settle, sim, roster, archiver, deps.Events, deps.Bus, scheduler.Config{
		Intermission: cfg.Scheduler.Intermission.Duration,
		Betting:      cfg.Scheduler.Betting.Duration,
		Resolution:   cfg.Scheduler.Resolution.Duration,
		FightTimeout: cfg.Scheduler.FightTimeout.Duration,
		ArenaID:      cfg.Arena.ID,
		BetType:      domain.BetType(cfg.Scheduler.BetType),
	}, a.logger)

	return &engine{
		ledger:    led,
		sentiment: sent,
		market:    mkt,
		viral:     vd,
		betting:   bet,
		settle:    settle,
		scheduler: sched,
	}, nil
}

// ServeMode runs the full engine against Postgres and Redis: the match
// scheduler (guarded by a distributed lock), the liquidity maker loop, the
// WebSocket hub, and the HTTP API.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	unlock, err := deps.Locks.Acquire(ctx, "scheduler:"+a.cfg.Arena.ID, schedulerLockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return fmt.Errorf("app: another scheduler instance is running for arena %s: %w", a.cfg.Arena.ID, err)
		}
		return fmt.Errorf("app: acquire scheduler lock: %w", err)
	}
	defer unlock()

	eng, err := a.buildEngine(ctx, deps)
	if err != nil {
		return err
	}

	return a.runEngine(ctx, deps, eng)
}

// StandaloneMode runs the same engine entirely in process: memory stores, an
// in-process signal bus, and no external services. Useful for demos and
// local development.
func (a *App) StandaloneMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting standalone mode")

	eng, err := a.buildEngine(ctx, deps)
	if err != nil {
		return err
	}

	return a.runEngine(ctx, deps, eng)
}

// runEngine starts the long-running goroutines shared by serve and standalone
// modes and blocks until the context is cancelled or one of them fails.
func (a *App) runEngine(ctx context.Context, deps *Dependencies, eng *engine) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return eng.scheduler.Run(ctx)
	})
	g.Go(func() error {
		return eng.market.RunMakerLoop(ctx)
	})

	if a.cfg.Server.Enabled {
		hub := ws.NewHub(deps.Bus, a.logger, ws.Config{
			Mode:      a.cfg.Mode,
			ArenaID:   a.cfg.Arena.ID,
			StartedAt: time.Now(),
		})
		g.Go(func() error {
			return hub.Run(ctx)
		})

		handlers := server.Handlers{
			Health:   handler.NewHealthHandler(eng.ledger, a.logger),
			Pools:    handler.NewPoolHandler(eng.market, deps.Pools, deps.Bets, a.logger),
			Bets:     handler.NewBetHandler(eng.betting, a.logger),
			Accounts: handler.NewAccountHandler(eng.ledger, a.logger),
			Phase:    handler.NewPhaseHandler(eng.scheduler, a.logger),
			Events:   handler.NewEventHandler(deps.Events, a.logger),
			Admin:    handler.NewAdminHandler(eng.settle, eng.ledger, a.logger),
		}
		srv := server.NewServer(server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
			RateLimit:   a.cfg.Server.RateLimit,
			RateWindow:  a.cfg.Server.RateWindow.Duration,
		}, handlers, hub, deps.Limiter, a.logger)

		g.Go(func() error {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("app: http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ReconcileMode performs a one-shot conservation check against the ledger and
// exits. It takes the reconcile lock so a concurrent run, or a settlement in
// flight on another instance, does not produce a false positive.
func (a *App) ReconcileMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting reconcile mode")

	unlock, err := deps.Locks.Acquire(ctx, "reconcile", 5*time.Minute)
	if err != nil {
		return fmt.Errorf("app: acquire reconcile lock: %w", err)
	}
	defer unlock()

	led := ledger.New(deps.Accounts, ledger.Config{
		InitialGrant:      domain.Tokens(a.cfg.Ledger.InitialGrantTokens),
		HouseFloat:        domain.Tokens(a.cfg.Ledger.HouseFloatTokens),
		MaxAccountBalance: domain.Tokens(a.cfg.Ledger.MaxAccountBalanceTokens),
	}, a.logger)

	rec, err := led.Reconcile(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrLedgerInvariant) {
			a.logger.ErrorContext(ctx, "reconciliation failed",
				slog.Int64("total_balances", rec.TotalBalances),
				slog.Int64("total_granted", rec.TotalGranted),
				slog.Int64("total_bonuses", rec.TotalBonuses),
				slog.Int64("delta", rec.Delta),
				slog.Int64("accounts", rec.Accounts),
			)
		}
		return fmt.Errorf("app: reconcile: %w", err)
	}

	a.logger.InfoContext(ctx, "reconciliation passed",
		slog.Int64("total_balances", rec.TotalBalances),
		slog.Int64("accounts", rec.Accounts),
	)
	return nil
}
