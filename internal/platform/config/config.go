package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
	"gopkg.in/yaml.v3"

	platformstrings "attendance/pkg/platform/strings"
)

// Config is read from the environment after an optional .env file. Durations
// use Go syntax (300ms, 30s).
type Config struct {
	Endpoint      string `env:"ATTENDANCE_ENDPOINT"`
	RPCSigningKey string `env:"RPC_SIGNING_KEY"`
	RPCIssuer     string `env:"RPC_ISSUER" default:"attendance-client"`

	APITimeout        time.Duration `env:"API_TIMEOUT" default:"30s"`
	RetryCount        int           `env:"RETRY_COUNT" default:"3"`
	RetryInitialDelay time.Duration `env:"RETRY_INITIAL_DELAY" default:"1s"`
	RetryJitterMax    time.Duration `env:"RETRY_JITTER_MAX" default:"1s"`

	CooldownDefault time.Duration `env:"COOLDOWN_DEFAULT" default:"5s"`
	CooldownFile    string        `env:"COOLDOWN_FILE"`

	DeviceIDKey              string        `env:"DEVICE_ID_KEY" default:"OS_DEVICE_ID"`
	AppVersion               string        `env:"APP_VERSION" default:"dev"`
	ConsistencyCheckInterval time.Duration `env:"CONSISTENCY_CHECK_INTERVAL" default:"30s"`
	IPLookupURL              string        `env:"IP_LOOKUP_URL" default:"https://api.ipify.org?format=json"`

	SampleCount    int           `env:"SAMPLE_COUNT" default:"5"`
	SampleInterval time.Duration `env:"SAMPLE_INTERVAL" default:"300ms"`
	SampleTimeout  time.Duration `env:"SAMPLE_TIMEOUT" default:"10s"`

	DatabaseDriver string `env:"DATABASE_DRIVER" default:"sqlite3"`
	DatabaseURL    string `env:"DATABASE_URL" default:"file:attendance.db?_busy_timeout=5000"`
	RedisURL       string `env:"REDIS_URL"`
	KafkaBrokers   string `env:"KAFKA_BROKERS"`
	KafkaTopic     string `env:"KAFKA_TOPIC" default:"attendance.audit"`

	ListenAddr string `env:"LISTEN_ADDR" default:"127.0.0.1:8080"`
	LogLevel   string `env:"LOG_LEVEL" default:"info"`
	LogFormat  string `env:"LOG_FORMAT" default:"text"`

	// Cooldowns overrides the per-trigger table, keyed by trigger name.
	Cooldowns map[string]time.Duration
}

// Brokers splits KAFKA_BROKERS on commas.
func (c *Config) Brokers() []string {
	return platformstrings.SplitList(c.KafkaBrokers, ",")
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if cfg.CooldownFile != "" {
		if err := cfg.loadCooldowns(cfg.CooldownFile); err != nil {
			return nil, err
		}
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type cooldownFile struct {
	Default  time.Duration            `yaml:"default"`
	Triggers map[string]time.Duration `yaml:"triggers"`
}

func (c *Config) loadCooldowns(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read cooldown file: %w", err)
	}
	var f cooldownFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse cooldown file: %w", err)
	}
	if f.Default > 0 {
		c.CooldownDefault = f.Default
	}
	c.Cooldowns = f.Triggers
	return nil
}

// validate rejects values that would break the retry or sampling math. A
// missing endpoint is not an error here; calls fail with a
// configuration-missing classification instead.
func validate(cfg *Config) error {
	switch {
	case cfg.RetryCount < 0:
		return fmt.Errorf("RETRY_COUNT must not be negative")
	case cfg.SampleCount < 1 || cfg.SampleCount > 10:
		return fmt.Errorf("SAMPLE_COUNT must be between 1 and 10")
	case cfg.APITimeout <= 0:
		return fmt.Errorf("API_TIMEOUT must be positive")
	}
	for trigger, d := range cfg.Cooldowns {
		if d < 0 {
			return fmt.Errorf("cooldown for %s must not be negative", trigger)
		}
	}
	switch cfg.DatabaseDriver {
	case "sqlite3", "postgres", "pgx":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be one of sqlite3, postgres, pgx")
	}
	return nil
}
