package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads configuration from the TOML file at path, applies ESPORTSBOT_*
// environment variable overrides, and validates the result. A missing file is
// not an error; defaults plus environment overrides are used instead.
func Load(path string) (Config, error) {
	// Best effort; absence of a .env file is fine.
	_ = godotenv.Load()

	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return Config{}, fmt.Errorf("decode config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides config fields from ESPORTSBOT_* environment variables.
// Only variables that are set and parseable take effect.
func applyEnv(cfg *Config) {
	setStr("ESPORTSBOT_MODE", &cfg.Mode)
	setStr("ESPORTSBOT_LOG_LEVEL", &cfg.LogLevel)

	setFloat64("ESPORTSBOT_TRADING_BANKROLL", &cfg.Trading.Bankroll)
	setFloat64("ESPORTSBOT_TRADING_KELLY_FRACTION", &cfg.Trading.KellyFraction)
	setFloat64("ESPORTSBOT_TRADING_MIN_EDGE", &cfg.Trading.MinEdge)
	setFloat64("ESPORTSBOT_TRADING_MIN_CONFIDENCE", &cfg.Trading.MinConfidence)
	setFloat64("ESPORTSBOT_TRADING_MAX_STAKE_PCT", &cfg.Trading.MaxStakePct)
	setFloat64("ESPORTSBOT_TRADING_MIN_STAKE", &cfg.Trading.MinStake)
	setFloat64("ESPORTSBOT_TRADING_MAX_STAKE", &cfg.Trading.MaxStake)
	setFloat64("ESPORTSBOT_TRADING_PER_MATCH_CAP_PCT", &cfg.Trading.PerMatchCapPct)
	setFloat64("ESPORTSBOT_TRADING_AGGREGATE_CAP_PCT", &cfg.Trading.AggregateCapPct)
	setFloat64("ESPORTSBOT_TRADING_MAX_DAILY_LOSS", &cfg.Trading.MaxDailyLoss)
	setDuration("ESPORTSBOT_TRADING_COOLDOWN", &cfg.Trading.Cooldown)

	setFloat64("ESPORTSBOT_MODEL_EPSILON", &cfg.Model.Epsilon)
	setFloat64("ESPORTSBOT_MODEL_LOL_GOLD_SCALE", &cfg.Model.LoLGoldScale)
	setFloat64("ESPORTSBOT_MODEL_DOTA_NETWORTH_SCALE", &cfg.Model.DotaNetWorthScale)

	setDuration("ESPORTSBOT_MARKET_STALENESS_BOUND", &cfg.Market.StalenessBound)
	setFloat64("ESPORTSBOT_MARKET_LIQUIDITY_REF", &cfg.Market.LiquidityRef)

	setDuration("ESPORTSBOT_REGISTRY_INACTIVITY_TIMEOUT", &cfg.Registry.InactivityTimeout)
	setDuration("ESPORTSBOT_REGISTRY_SWEEP_INTERVAL", &cfg.Registry.SweepInterval)

	setStr("ESPORTSBOT_FEED_GAME_EVENT_CHANNEL", &cfg.Feed.GameEventChannel)
	setStr("ESPORTSBOT_FEED_MARKET_WS_URL", &cfg.Feed.MarketWSURL)
	setStr("ESPORTSBOT_FEED_DECISION_STREAM", &cfg.Feed.DecisionStream)
	setStr("ESPORTSBOT_FEED_SETTLEMENT_CHANNEL", &cfg.Feed.SettlementChannel)

	setStr("ESPORTSBOT_REDIS_ADDR", &cfg.Redis.Addr)
	setStr("ESPORTSBOT_REDIS_PASSWORD", &cfg.Redis.Password)
	setInt("ESPORTSBOT_REDIS_DB", &cfg.Redis.DB)
	setInt("ESPORTSBOT_REDIS_POOL_SIZE", &cfg.Redis.PoolSize)
	setBool("ESPORTSBOT_REDIS_TLS_ENABLED", &cfg.Redis.TLSEnabled)

	setStr("ESPORTSBOT_POSTGRES_DSN", &cfg.Postgres.DSN)
	setStr("ESPORTSBOT_POSTGRES_HOST", &cfg.Postgres.Host)
	setInt("ESPORTSBOT_POSTGRES_PORT", &cfg.Postgres.Port)
	setStr("ESPORTSBOT_POSTGRES_DATABASE", &cfg.Postgres.Database)
	setStr("ESPORTSBOT_POSTGRES_USER", &cfg.Postgres.User)
	setStr("ESPORTSBOT_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	setStr("ESPORTSBOT_POSTGRES_SSL_MODE", &cfg.Postgres.SSLMode)
	setBool("ESPORTSBOT_POSTGRES_RUN_MIGRATIONS", &cfg.Postgres.RunMigrations)

	setStr("ESPORTSBOT_S3_ENDPOINT", &cfg.S3.Endpoint)
	setStr("ESPORTSBOT_S3_REGION", &cfg.S3.Region)
	setStr("ESPORTSBOT_S3_BUCKET", &cfg.S3.Bucket)
	setStr("ESPORTSBOT_S3_ACCESS_KEY", &cfg.S3.AccessKey)
	setStr("ESPORTSBOT_S3_SECRET_KEY", &cfg.S3.SecretKey)
	setBool("ESPORTSBOT_S3_USE_SSL", &cfg.S3.UseSSL)

	setBool("ESPORTSBOT_SERVER_ENABLED", &cfg.Server.Enabled)
	setInt("ESPORTSBOT_SERVER_PORT", &cfg.Server.Port)
	setStringSlice("ESPORTSBOT_SERVER_CORS_ORIGINS", &cfg.Server.CORSOrigins)

	setStr("ESPORTSBOT_NOTIFY_TELEGRAM_TOKEN", &cfg.Notify.TelegramToken)
	setStr("ESPORTSBOT_NOTIFY_TELEGRAM_CHAT_ID", &cfg.Notify.TelegramChatID)
	setStr("ESPORTSBOT_NOTIFY_DISCORD_WEBHOOK_URL", &cfg.Notify.DiscordWebhookURL)
	setStringSlice("ESPORTSBOT_NOTIFY_EVENTS", &cfg.Notify.Events)
}

func setStr(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(key string, dst *float64) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(key string, dst *duration) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(key string, dst *[]string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			*dst = out
		}
	}
}
