// Package config defines the top-level configuration for the esports trading
// engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ESPORTSBOT_* environment variables.
type Config struct {
	Trading  TradingConfig  `toml:"trading"`
	Model    ModelConfig    `toml:"model"`
	Market   MarketConfig   `toml:"market"`
	Registry RegistryConfig `toml:"registry"`
	Feed     FeedConfig     `toml:"feed"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// TradingConfig holds sizing and risk parameters. Every threshold the engine
// uses lives here; nothing is hardcoded in the pipeline.
type TradingConfig struct {
	Bankroll        float64  `toml:"bankroll"`
	KellyFraction   float64  `toml:"kelly_fraction"`
	MinEdge         float64  `toml:"min_edge"`
	MinConfidence   float64  `toml:"min_confidence"`
	MaxStakePct     float64  `toml:"max_stake_pct"`
	MinStake        float64  `toml:"min_stake"`
	MaxStake        float64  `toml:"max_stake"`
	PerMatchCapPct  float64  `toml:"per_match_cap_pct"`
	AggregateCapPct float64  `toml:"aggregate_cap_pct"`
	Cooldown        duration `toml:"cooldown"`
	MaxDailyLoss    float64  `toml:"max_daily_loss"`
}

// ModelConfig holds probability model parameters, derived from historical
// match analysis. Scales are the differential that maps to roughly a 75%
// win probability.
type ModelConfig struct {
	Epsilon           float64 `toml:"epsilon"`
	LoLGoldScale      float64 `toml:"lol_gold_scale"`
	DotaNetWorthScale float64 `toml:"dota_networth_scale"`
	KillImpact        float64 `toml:"kill_impact"`
	TowerImpact       float64 `toml:"tower_impact"`
	DragonImpact      float64 `toml:"dragon_impact"`
	DragonSoulImpact  float64 `toml:"dragon_soul_impact"`
	ElderImpact       float64 `toml:"elder_impact"`
	BaronBuffImpact   float64 `toml:"baron_buff_impact"`
	BaronImpact       float64 `toml:"baron_impact"`
	RoshanImpact      float64 `toml:"roshan_impact"`
	AegisImpact       float64 `toml:"aegis_impact"`
}

// MarketConfig holds market snapshot handling parameters.
type MarketConfig struct {
	StalenessBound duration `toml:"staleness_bound"`
	// LiquidityRef is the depth at which market confidence is fully trusted.
	LiquidityRef float64 `toml:"liquidity_ref"`
}

// RegistryConfig holds model registry lifecycle parameters.
type RegistryConfig struct {
	InactivityTimeout duration `toml:"inactivity_timeout"`
	SweepInterval     duration `toml:"sweep_interval"`
	RetireGrace       duration `toml:"retire_grace"`
}

// FeedConfig holds event and quote feed parameters.
type FeedConfig struct {
	GameEventChannel  string `toml:"game_event_channel"`
	MarketWSURL       string `toml:"market_ws_url"`
	DecisionStream    string `toml:"decision_stream"`
	SettlementChannel string `toml:"settlement_channel"`
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

// S3Config holds S3-compatible object storage parameters for archival.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP status API parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "30s", "5m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "30s" or "5m".
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
// Model impact values come from historical pro-match analysis.
func Defaults() Config {
	return Config{
		Trading: TradingConfig{
			Bankroll:        1000.0,
			KellyFraction:   0.25,
			MinEdge:         0.015,
			MinConfidence:   0.40,
			MaxStakePct:     0.05,
			MinStake:        5.0,
			MaxStake:        500.0,
			PerMatchCapPct:  0.05,
			AggregateCapPct: 0.50,
			Cooldown:        duration{30 * time.Second},
			MaxDailyLoss:    100.0,
		},
		Model: ModelConfig{
			Epsilon:           0.02,
			LoLGoldScale:      8000.0,
			DotaNetWorthScale: 12000.0,
			KillImpact:        0.004,
			TowerImpact:       0.015,
			DragonImpact:      0.015,
			DragonSoulImpact:  0.10,
			ElderImpact:       0.15,
			BaronBuffImpact:   0.06,
			BaronImpact:       0.02,
			RoshanImpact:      0.03,
			AegisImpact:       0.04,
		},
		Market: MarketConfig{
			StalenessBound: duration{30 * time.Second},
			LiquidityRef:   500.0,
		},
		Registry: RegistryConfig{
			InactivityTimeout: duration{10 * time.Minute},
			SweepInterval:     duration{time.Minute},
			RetireGrace:       duration{2 * time.Minute},
		},
		Feed: FeedConfig{
			GameEventChannel:  "game_events",
			MarketWSURL:       "",
			DecisionStream:    "decisions",
			SettlementChannel: "settlements",
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "esportsbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "esportsbot-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Notify: NotifyConfig{
			Events: []string{"trade_approved", "trade_rejected", "warning", "match_retired"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"trade":   true,
	"monitor": true,
	"server":  true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, monitor, server, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Trading
	if c.Trading.Bankroll <= 0 {
		errs = append(errs, "trading: bankroll must be > 0")
	}
	if c.Trading.KellyFraction <= 0 || c.Trading.KellyFraction > 1 {
		errs = append(errs, fmt.Sprintf("trading: kelly_fraction must be in (0, 1], got %g", c.Trading.KellyFraction))
	}
	if c.Trading.MinEdge < 0 {
		errs = append(errs, "trading: min_edge must be >= 0")
	}
	if c.Trading.MinConfidence < 0 || c.Trading.MinConfidence > 1 {
		errs = append(errs, "trading: min_confidence must be in [0, 1]")
	}
	if c.Trading.MaxStakePct <= 0 || c.Trading.MaxStakePct > 1 {
		errs = append(errs, "trading: max_stake_pct must be in (0, 1]")
	}
	if c.Trading.PerMatchCapPct <= 0 || c.Trading.PerMatchCapPct > 1 {
		errs = append(errs, "trading: per_match_cap_pct must be in (0, 1]")
	}
	if c.Trading.AggregateCapPct <= 0 || c.Trading.AggregateCapPct > 1 {
		errs = append(errs, "trading: aggregate_cap_pct must be in (0, 1]")
	}
	if c.Trading.PerMatchCapPct > c.Trading.AggregateCapPct {
		errs = append(errs, "trading: per_match_cap_pct must not exceed aggregate_cap_pct")
	}
	if c.Trading.MinStake < 0 {
		errs = append(errs, "trading: min_stake must be >= 0")
	}
	if c.Trading.MaxStake > 0 && c.Trading.MaxStake < c.Trading.MinStake {
		errs = append(errs, "trading: max_stake must be >= min_stake")
	}
	if c.Trading.Cooldown.Duration < 0 {
		errs = append(errs, "trading: cooldown must be >= 0")
	}

	// Model
	if c.Model.Epsilon <= 0 || c.Model.Epsilon >= 0.5 {
		errs = append(errs, fmt.Sprintf("model: epsilon must be in (0, 0.5), got %g", c.Model.Epsilon))
	}
	if c.Model.LoLGoldScale <= 0 {
		errs = append(errs, "model: lol_gold_scale must be > 0")
	}
	if c.Model.DotaNetWorthScale <= 0 {
		errs = append(errs, "model: dota_networth_scale must be > 0")
	}

	// Market
	if c.Market.StalenessBound.Duration <= 0 {
		errs = append(errs, "market: staleness_bound must be > 0")
	}
	if c.Market.LiquidityRef <= 0 {
		errs = append(errs, "market: liquidity_ref must be > 0")
	}

	// Registry
	if c.Registry.InactivityTimeout.Duration <= 0 {
		errs = append(errs, "registry: inactivity_timeout must be > 0")
	}
	if c.Registry.SweepInterval.Duration <= 0 {
		errs = append(errs, "registry: sweep_interval must be > 0")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Postgres
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

	// S3
	if c.S3.Endpoint == "" {
		errs = append(errs, "s3: endpoint must not be empty")
	}
	if c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
