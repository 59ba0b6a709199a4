package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARENABOOK_* environment variable overrides, and
// returns the final Config. A missing file is not an error; defaults plus
// environment overrides apply, which is how standalone mode usually runs.
// The returned Config has NOT been validated; the caller should invoke
// Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ARENABOOK_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Ledger ──
	setInt64(&cfg.Ledger.InitialGrantTokens, "ARENABOOK_LEDGER_INITIAL_GRANT_TOKENS")
	setInt64(&cfg.Ledger.HouseFloatTokens, "ARENABOOK_LEDGER_HOUSE_FLOAT_TOKENS")
	setInt64(&cfg.Ledger.MaxAccountBalanceTokens, "ARENABOOK_LEDGER_MAX_ACCOUNT_BALANCE_TOKENS")

	// ── Market ──
	setFloat64(&cfg.Market.HouseEdge, "ARENABOOK_MARKET_HOUSE_EDGE")
	setFloat64(&cfg.Market.SentimentWeight, "ARENABOOK_MARKET_SENTIMENT_WEIGHT")
	setFloat64(&cfg.Market.MinOdds, "ARENABOOK_MARKET_MIN_ODDS")
	setInt64(&cfg.Market.DefaultSeedTokens, "ARENABOOK_MARKET_DEFAULT_SEED_TOKENS")
	setInt64(&cfg.Market.LiquidityFloorTokens, "ARENABOOK_MARKET_LIQUIDITY_FLOOR_TOKENS")
	setInt64(&cfg.Market.TopUpTokens, "ARENABOOK_MARKET_TOP_UP_TOKENS")
	setInt64(&cfg.Market.HouseFloorTokens, "ARENABOOK_MARKET_HOUSE_FLOOR_TOKENS")
	setDuration(&cfg.Market.MakerInterval, "ARENABOOK_MARKET_MAKER_INTERVAL")

	// ── Betting ──
	setInt64(&cfg.Betting.MinBetTokens, "ARENABOOK_BETTING_MIN_BET_TOKENS")
	setInt64(&cfg.Betting.MaxBetTokens, "ARENABOOK_BETTING_MAX_BET_TOKENS")

	// ── Viral ──
	setBool(&cfg.Viral.Enabled, "ARENABOOK_VIRAL_ENABLED")
	setFloat64(&cfg.Viral.Threshold, "ARENABOOK_VIRAL_THRESHOLD")
	setInt64(&cfg.Viral.BonusTokens, "ARENABOOK_VIRAL_BONUS_TOKENS")
	setInt64(&cfg.Viral.LiquidityBoostTokens, "ARENABOOK_VIRAL_LIQUIDITY_BOOST_TOKENS")
	setInt64(&cfg.Viral.LargeBetTokens, "ARENABOOK_VIRAL_LARGE_BET_TOKENS")
	setFloat64(&cfg.Viral.ExtremeOdds, "ARENABOOK_VIRAL_EXTREME_ODDS")
	setFloat64(&cfg.Viral.MinInfluence, "ARENABOOK_VIRAL_MIN_INFLUENCE")

	// ── Sentiment ──
	setInt(&cfg.Sentiment.WindowSize, "ARENABOOK_SENTIMENT_WINDOW_SIZE")
	setFloat64(&cfg.Sentiment.IntensityScale, "ARENABOOK_SENTIMENT_INTENSITY_SCALE")

	// ── Scheduler ──
	setDuration(&cfg.Scheduler.Intermission, "ARENABOOK_SCHEDULER_INTERMISSION")
	setDuration(&cfg.Scheduler.Betting, "ARENABOOK_SCHEDULER_BETTING")
	setDuration(&cfg.Scheduler.Resolution, "ARENABOOK_SCHEDULER_RESOLUTION")
	setDuration(&cfg.Scheduler.FightTimeout, "ARENABOOK_SCHEDULER_FIGHT_TIMEOUT")
	setStr(&cfg.Scheduler.BetType, "ARENABOOK_SCHEDULER_BET_TYPE")

	// ── Arena ──
	setStr(&cfg.Arena.ID, "ARENABOOK_ARENA_ID")
	setStringSlice(&cfg.Arena.Fighters, "ARENABOOK_ARENA_FIGHTERS")
	setDuration(&cfg.Arena.SimRoundDelay, "ARENABOOK_ARENA_SIM_ROUND_DELAY")
	setInt(&cfg.Arena.SimMaxRounds, "ARENABOOK_ARENA_SIM_MAX_ROUNDS")
	setFloat64(&cfg.Arena.SimDrawChance, "ARENABOOK_ARENA_SIM_DRAW_CHANCE")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "ARENABOOK_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ARENABOOK_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ARENABOOK_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ARENABOOK_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ARENABOOK_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ARENABOOK_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ARENABOOK_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ARENABOOK_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ARENABOOK_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ARENABOOK_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ARENABOOK_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARENABOOK_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARENABOOK_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ARENABOOK_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ARENABOOK_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ARENABOOK_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "ARENABOOK_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "ARENABOOK_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ARENABOOK_S3_REGION")
	setStr(&cfg.S3.Bucket, "ARENABOOK_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ARENABOOK_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ARENABOOK_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ARENABOOK_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ARENABOOK_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ARENABOOK_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ARENABOOK_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ARENABOOK_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ARENABOOK_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "ARENABOOK_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "ARENABOOK_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ARENABOOK_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ARENABOOK_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ARENABOOK_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ARENABOOK_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "ARENABOOK_MODE")
	setStr(&cfg.LogLevel, "ARENABOOK_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
