// Package config defines the top-level configuration for the arena wagering
// engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by ARENABOOK_* environment
// variables. Token amounts are whole tokens; the wiring layer converts them
// to minor units.
type Config struct {
	Ledger    LedgerConfig    `toml:"ledger"`
	Market    MarketConfig    `toml:"market"`
	Betting   BettingConfig   `toml:"betting"`
	Viral     ViralConfig     `toml:"viral"`
	Sentiment SentimentConfig `toml:"sentiment"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Arena     ArenaConfig     `toml:"arena"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// LedgerConfig holds token issuance and safety bounds.
type LedgerConfig struct {
	// InitialGrantTokens is minted into every new account.
	InitialGrantTokens int64 `toml:"initial_grant_tokens"`
	// HouseFloatTokens is minted into the house account at bootstrap.
	HouseFloatTokens int64 `toml:"house_float_tokens"`
	// MaxAccountBalanceTokens halts the engine when any credit would push an
	// account past it. Zero disables the cap.
	MaxAccountBalanceTokens int64 `toml:"max_account_balance_tokens"`
}

// MarketConfig holds pricing and liquidity parameters.
type MarketConfig struct {
	HouseEdge       float64 `toml:"house_edge"`
	SentimentWeight float64 `toml:"sentiment_weight"`
	MinOdds         float64 `toml:"min_odds"`

	// SeedLiquidityTokens maps bet type to the house liquidity seeded into
	// new pools of that type. DefaultSeedTokens covers unlisted types.
	SeedLiquidityTokens map[string]int64 `toml:"seed_liquidity_tokens"`
	DefaultSeedTokens   int64            `toml:"default_seed_tokens"`

	// LiquidityFloorTokens is the level below which the maker loop tops a
	// pool up by TopUpTokens, as long as the house holds at least
	// HouseFloorTokens.
	LiquidityFloorTokens int64    `toml:"liquidity_floor_tokens"`
	TopUpTokens          int64    `toml:"top_up_tokens"`
	HouseFloorTokens     int64    `toml:"house_floor_tokens"`
	MakerInterval        duration `toml:"maker_interval"`
}

// BettingConfig holds wager bounds.
type BettingConfig struct {
	MinBetTokens int64 `toml:"min_bet_tokens"`
	MaxBetTokens int64 `toml:"max_bet_tokens"`
}

// ViralConfig holds viral-bet detection parameters.
type ViralConfig struct {
	Enabled              bool    `toml:"enabled"`
	Threshold            float64 `toml:"threshold"`
	BonusTokens          int64   `toml:"bonus_tokens"`
	LiquidityBoostTokens int64   `toml:"liquidity_boost_tokens"`
	LargeBetTokens       int64   `toml:"large_bet_tokens"`
	ExtremeOdds          float64 `toml:"extreme_odds"`
	MinInfluence         float64 `toml:"min_influence"`
}

// SentimentConfig holds crowd sentiment tracking parameters.
type SentimentConfig struct {
	WindowSize     int     `toml:"window_size"`
	IntensityScale float64 `toml:"intensity_scale"`
}

// SchedulerConfig holds the four-phase cycle timings.
type SchedulerConfig struct {
	Intermission duration `toml:"intermission"`
	Betting      duration `toml:"betting"`
	Resolution   duration `toml:"resolution"`
	FightTimeout duration `toml:"fight_timeout"`
	BetType      string   `toml:"bet_type"`
}

// ArenaConfig holds the arena identity and the simulated fight parameters
// used in standalone mode.
type ArenaConfig struct {
	ID       string   `toml:"id"`
	Fighters []string `toml:"fighters"`

	SimRoundDelay duration `toml:"sim_round_delay"`
	SimMaxRounds  int      `toml:"sim_max_rounds"`
	SimDrawChance float64  `toml:"sim_draw_chance"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for pool archives.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Ledger: LedgerConfig{
			InitialGrantTokens:      100,
			HouseFloatTokens:        100_000,
			MaxAccountBalanceTokens: 10_000_000,
		},
		Market: MarketConfig{
			HouseEdge:       0.05,
			SentimentWeight: 0.1,
			MinOdds:         1.01,
			SeedLiquidityTokens: map[string]int64{
				"head_to_head":     500,
				"first_blood":      200,
				"flawless_victory": 200,
			},
			DefaultSeedTokens:    200,
			LiquidityFloorTokens: 100,
			TopUpTokens:          200,
			HouseFloorTokens:     5_000,
			MakerInterval:        duration{15 * time.Second},
		},
		Betting: BettingConfig{
			MinBetTokens: 1,
			MaxBetTokens: 10_000,
		},
		Viral: ViralConfig{
			Enabled:              true,
			Threshold:            5.0,
			BonusTokens:          50,
			LiquidityBoostTokens: 200,
			LargeBetTokens:       500,
			ExtremeOdds:          5.0,
			MinInfluence:         0.8,
		},
		Sentiment: SentimentConfig{
			WindowSize:     50,
			IntensityScale: 5.0,
		},
		Scheduler: SchedulerConfig{
			Intermission: duration{15 * time.Second},
			Betting:      duration{60 * time.Second},
			Resolution:   duration{10 * time.Second},
			FightTimeout: duration{2 * time.Minute},
			BetType:      "head_to_head",
		},
		Arena: ArenaConfig{
			ID: "colosseum-1",
			Fighters: []string{
				"Atticus", "Brutus", "Cassia", "Drusus",
				"Elena", "Felix", "Gaia", "Hadrian",
			},
			SimRoundDelay: duration{3 * time.Second},
			SimMaxRounds:  10,
			SimDrawChance: 0.05,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "arenabook",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "arenabook-archives",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   20,
			RateWindow:  duration{time.Second},
		},
		Notify: NotifyConfig{
			Events: []string{"ledger-invariant", "viral-event"},
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve":      true,
	"standalone": true,
	"reconcile":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validBetTypes enumerates the bet types the scheduler may open pools for.
var validBetTypes = map[string]bool{
	"head_to_head":     true,
	"first_blood":      true,
	"flawless_victory": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, standalone, reconcile)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Ledger
	if c.Ledger.InitialGrantTokens <= 0 {
		errs = append(errs, "ledger: initial_grant_tokens must be > 0")
	}
	if c.Ledger.HouseFloatTokens <= 0 {
		errs = append(errs, "ledger: house_float_tokens must be > 0")
	}
	if c.Ledger.MaxAccountBalanceTokens < 0 {
		errs = append(errs, "ledger: max_account_balance_tokens must be >= 0")
	}

	// Market
	if c.Market.HouseEdge < 0 || c.Market.HouseEdge >= 1 {
		errs = append(errs, fmt.Sprintf("market: house_edge must be in [0, 1), got %v", c.Market.HouseEdge))
	}
	if c.Market.SentimentWeight < 0 || c.Market.SentimentWeight > 1 {
		errs = append(errs, fmt.Sprintf("market: sentiment_weight must be in [0, 1], got %v", c.Market.SentimentWeight))
	}
	if c.Market.MinOdds < 1.0 {
		errs = append(errs, fmt.Sprintf("market: min_odds must be >= 1.0, got %v", c.Market.MinOdds))
	}
	if c.Market.DefaultSeedTokens < 0 {
		errs = append(errs, "market: default_seed_tokens must be >= 0")
	}
	for bt := range c.Market.SeedLiquidityTokens {
		if !validBetTypes[bt] {
			errs = append(errs, fmt.Sprintf("market: unknown bet type %q in seed_liquidity_tokens", bt))
		}
	}
	if c.Market.MakerInterval.Duration <= 0 {
		errs = append(errs, "market: maker_interval must be positive")
	}

	// Betting
	if c.Betting.MinBetTokens <= 0 {
		errs = append(errs, "betting: min_bet_tokens must be > 0")
	}
	if c.Betting.MaxBetTokens < c.Betting.MinBetTokens {
		errs = append(errs, "betting: max_bet_tokens must be >= min_bet_tokens")
	}

	// Viral
	if c.Viral.Enabled {
		if c.Viral.Threshold <= 0 {
			errs = append(errs, "viral: threshold must be > 0 when enabled")
		}
		if c.Viral.BonusTokens < 0 || c.Viral.LiquidityBoostTokens < 0 {
			errs = append(errs, "viral: bonus_tokens and liquidity_boost_tokens must be >= 0")
		}
		if c.Viral.MinInfluence < 0 || c.Viral.MinInfluence > 1 {
			errs = append(errs, "viral: min_influence must be in [0, 1]")
		}
	}

	// Sentiment
	if c.Sentiment.WindowSize < 1 {
		errs = append(errs, "sentiment: window_size must be >= 1")
	}
	if c.Sentiment.IntensityScale <= 0 {
		errs = append(errs, "sentiment: intensity_scale must be > 0")
	}

	// Scheduler
	if c.Scheduler.Betting.Duration <= 0 {
		errs = append(errs, "scheduler: betting duration must be positive")
	}
	if c.Scheduler.FightTimeout.Duration <= 0 {
		errs = append(errs, "scheduler: fight_timeout must be positive")
	}
	if !validBetTypes[c.Scheduler.BetType] {
		errs = append(errs, fmt.Sprintf("scheduler: unknown bet_type %q", c.Scheduler.BetType))
	}

	// Arena
	if c.Arena.ID == "" {
		errs = append(errs, "arena: id must not be empty")
	}
	if len(c.Arena.Fighters) < 2 {
		errs = append(errs, "arena: at least two fighters are required")
	}
	if c.Arena.SimDrawChance < 0 || c.Arena.SimDrawChance > 1 {
		errs = append(errs, "arena: sim_draw_chance must be in [0, 1]")
	}

	mode := strings.ToLower(c.Mode)
	needsInfra := mode == "serve" || mode == "reconcile"

	// Postgres, only required outside standalone mode.
	if needsInfra {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}

		// Redis
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			errs = append(errs, "server: rate_window must be positive when rate_limit is set")
		}
	}

	// Telegram credentials must come together.
	tt := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tt != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
