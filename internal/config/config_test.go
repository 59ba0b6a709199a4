package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestDefaultsStandaloneSkipsInfra(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "standalone"
	cfg.Postgres = PostgresConfig{}
	cfg.Redis = RedisConfig{}
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown mode", func(c *Config) { c.Mode = "cluster" }, "unknown mode"},
		{"unknown log level", func(c *Config) { c.LogLevel = "trace" }, "unknown log_level"},
		{"zero grant", func(c *Config) { c.Ledger.InitialGrantTokens = 0 }, "initial_grant_tokens"},
		{"edge too high", func(c *Config) { c.Market.HouseEdge = 1 }, "house_edge"},
		{"odds below even", func(c *Config) { c.Market.MinOdds = 0.9 }, "min_odds"},
		{"bad seed bet type", func(c *Config) {
			c.Market.SeedLiquidityTokens = map[string]int64{"coin_flip": 10}
		}, "unknown bet type"},
		{"inverted bet bounds", func(c *Config) {
			c.Betting.MinBetTokens = 100
			c.Betting.MaxBetTokens = 10
		}, "max_bet_tokens"},
		{"viral threshold", func(c *Config) { c.Viral.Threshold = 0 }, "threshold"},
		{"bad scheduler bet type", func(c *Config) { c.Scheduler.BetType = "last_laugh" }, "bet_type"},
		{"one fighter", func(c *Config) { c.Arena.Fighters = []string{"alone"} }, "two fighters"},
		{"missing redis", func(c *Config) { c.Redis.Addr = "" }, "redis"},
		{"half telegram", func(c *Config) { c.Notify.TelegramToken = "tok" }, "telegram"},
		{"s3 without bucket", func(c *Config) {
			c.S3.Enabled = true
			c.S3.Bucket = ""
		}, "bucket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestViralChecksSkippedWhenDisabled(t *testing.T) {
	cfg := Defaults()
	cfg.Viral.Enabled = false
	cfg.Viral.Threshold = 0
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "standalone"
log_level = "debug"

[ledger]
initial_grant_tokens = 250

[market]
maker_interval = "30s"

[market.seed_liquidity_tokens]
head_to_head = 1000

[scheduler]
betting = "45s"
bet_type = "first_blood"

[arena]
id = "ludus-magnus"
fighters = ["Priscus", "Verus"]
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "standalone", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.EqualValues(t, 250, cfg.Ledger.InitialGrantTokens)
	assert.Equal(t, 30*time.Second, cfg.Market.MakerInterval.Duration)
	assert.EqualValues(t, 1000, cfg.Market.SeedLiquidityTokens["head_to_head"])
	assert.Equal(t, 45*time.Second, cfg.Scheduler.Betting.Duration)
	assert.Equal(t, "first_blood", cfg.Scheduler.BetType)
	assert.Equal(t, "ludus-magnus", cfg.Arena.ID)
	assert.Equal(t, []string{"Priscus", "Verus"}, cfg.Arena.Fighters)

	// Untouched sections keep their defaults.
	assert.EqualValues(t, 100_000, cfg.Ledger.HouseFloatTokens)
	assert.Equal(t, 8000, cfg.Server.Port)

	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Mode, cfg.Mode)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ARENABOOK_MODE", "standalone")
	t.Setenv("ARENABOOK_LEDGER_INITIAL_GRANT_TOKENS", "500")
	t.Setenv("ARENABOOK_SCHEDULER_BETTING", "90s")
	t.Setenv("ARENABOOK_ARENA_FIGHTERS", "Priscus,Verus,Tetraites")
	t.Setenv("ARENABOOK_VIRAL_ENABLED", "false")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, "standalone", cfg.Mode)
	assert.EqualValues(t, 500, cfg.Ledger.InitialGrantTokens)
	assert.Equal(t, 90*time.Second, cfg.Scheduler.Betting.Duration)
	assert.Equal(t, []string{"Priscus", "Verus", "Tetraites"}, cfg.Arena.Fighters)
	assert.False(t, cfg.Viral.Enabled)
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "hunter2"
	cfg.Redis.Password = "hunter2"
	cfg.Server.APIKey = "sk-operator"
	cfg.Notify.TelegramToken = "123:abc"
	cfg.Notify.TelegramChatID = "42"
	cfg.S3.AccessKey = "AKIA"
	cfg.S3.SecretKey = "shhh"

	red := RedactedConfig(&cfg)
	assert.NotEqual(t, "hunter2", red.Postgres.Password)
	assert.NotEqual(t, "hunter2", red.Redis.Password)
	assert.NotEqual(t, "sk-operator", red.Server.APIKey)
	assert.NotEqual(t, "123:abc", red.Notify.TelegramToken)
	assert.NotEqual(t, "shhh", red.S3.SecretKey)

	// The original is untouched.
	assert.Equal(t, "hunter2", cfg.Postgres.Password)
}
