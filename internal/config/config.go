package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config is the process configuration read from the environment.
type Config struct {
	Port     string
	LogLevel logrus.Level

	PostgresUser     string
	PostgresPassword string
	PGHost           string
	PGPort           string
	PGDatabase       string

	RedisAddr string
	RedisDB   int
	QueueName string

	TokenTTL       time.Duration
	PrivateKeyPath string
	PublicKeyPath  string

	MatchmakingTick    time.Duration
	CleanupInterval    time.Duration
	StalemateGoldFloor int

	MessagesDir string

	WSActionRate  float64
	WSActionBurst int

	SandboxBulkToken string

	HistorianBatchSize int
	HistorianFlush     time.Duration
}

// Load reads the environment. Unset or unparsable numbers fall back to defaults. Malformed
// durations and log levels are errors.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               "8080",
		LogLevel:           logrus.DebugLevel,
		PGPort:             "5432",
		QueueName:          "ageofchess_actions",
		TokenTTL:           7 * 24 * time.Hour,
		MatchmakingTick:    5 * time.Second,
		CleanupInterval:    30 * time.Minute,
		StalemateGoldFloor: 15,
		WSActionRate:       20,
		WSActionBurst:      40,
		HistorianBatchSize: 20,
		HistorianFlush:     500 * time.Millisecond,
	}

	if v := env("PORT"); v != "" {
		cfg.Port = v
	}
	if v := env("LOG_LEVEL"); v != "" {
		lvl, err := logrus.ParseLevel(v)
		if err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = lvl
	}

	cfg.PostgresUser = env("POSTGRES_USER")
	cfg.PostgresPassword = env("POSTGRES_PASSWORD")
	cfg.PGHost = env("PG_HOST")
	if v := env("PG_PORT"); v != "" {
		cfg.PGPort = v
	}
	cfg.PGDatabase = env("PG_DATABASE")

	cfg.RedisAddr = env("REDIS_ADDR")
	if v := env("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.RedisDB = n
		}
	}
	if v := env("HISTORIAN_QUEUE_NAME"); v != "" {
		cfg.QueueName = v
	}

	var err error
	if cfg.TokenTTL, err = duration("TOKEN_EXPIRE_TIME", cfg.TokenTTL); err != nil {
		return nil, err
	}
	cfg.PrivateKeyPath = env("JWT_PRIVATE_KEY_PATH")
	cfg.PublicKeyPath = env("JWT_PUBLIC_KEY_PATH")
	if (cfg.PrivateKeyPath == "") != (cfg.PublicKeyPath == "") {
		return nil, fmt.Errorf("JWT_PRIVATE_KEY_PATH and JWT_PUBLIC_KEY_PATH must be set together")
	}

	if cfg.MatchmakingTick, err = duration("MATCHMAKING_TICK", cfg.MatchmakingTick); err != nil {
		return nil, err
	}
	if cfg.CleanupInterval, err = duration("CLEANUP_INTERVAL", cfg.CleanupInterval); err != nil {
		return nil, err
	}
	if v := env("STALEMATE_GOLD_FLOOR"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.StalemateGoldFloor = n
		}
	}

	cfg.MessagesDir = env("MESSAGES_DIR")

	if v := env("WS_ACTION_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.WSActionRate = f
		}
	}
	if v := env("WS_ACTION_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WSActionBurst = n
		}
	}

	cfg.SandboxBulkToken = env("SANDBOX_BULK_TOKEN")

	if v := env("HISTORIAN_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistorianBatchSize = n
		}
	}
	if cfg.HistorianFlush, err = duration("HISTORIAN_FLUSH", cfg.HistorianFlush); err != nil {
		return nil, err
	}

	return cfg, nil
}

// UsePostgres reports whether a database host is configured.
func (c *Config) UsePostgres() bool { return c.PGHost != "" }

// UseRedis reports whether a redis address is configured.
func (c *Config) UseRedis() bool { return c.RedisAddr != "" }

// PostgresURL is the pgx connection string.
func (c *Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		c.PostgresUser, c.PostgresPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

// Addr is the listen address.
func (c *Config) Addr() string { return ":" + c.Port }

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// duration accepts Go duration strings ("90s", "1h") or a bare number of seconds.
func duration(key string, def time.Duration) (time.Duration, error) {
	v := env(key)
	if v == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
