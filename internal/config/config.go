// Package config loads the mission-control-web configuration from MC_*
// environment variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/luyandamncube/openclaw-mission-control/pkg/logging"
)

// Prefix of every environment variable.
const Prefix = "MC"

type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	APIBaseURL string        `envconfig:"API_BASE_URL" default:"http://localhost:8000"`
	APIToken   string        `envconfig:"API_TOKEN"`
	UserAgent  string        `envconfig:"USER_AGENT" default:"mission-control-web/1.0"`
	APITimeout time.Duration `envconfig:"API_TIMEOUT" default:"30s"`
	MaxRetries int           `envconfig:"MAX_RETRIES" default:"2"`

	// RedisAddr enables the shared Redis cache when set.
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"5m"`

	PageSize int `envconfig:"PAGE_SIZE" default:"50"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// Load reads files (".env" when none given) into the environment without
// overriding variables already set, then processes MC_* variables.
// Missing files are ignored.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", file, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values envconfig cannot.
func (c Config) Validate() error {
	var errs []error
	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		errs = append(errs, fmt.Errorf("%s_API_BASE_URL must be http(s), got %q", Prefix, c.APIBaseURL))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("%s_MAX_RETRIES must be >= 0", Prefix))
	}
	if c.PageSize <= 0 || c.PageSize > 200 {
		errs = append(errs, fmt.Errorf("%s_PAGE_SIZE must be in 1..200, got %d", Prefix, c.PageSize))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("%s_LOG_LEVEL: %w", Prefix, err))
	}
	return errors.Join(errs...)
}

// Logging returns the logger configuration. Validate guarantees the level.
func (c Config) Logging() logging.Config {
	level, _ := logging.ParseLevel(c.LogLevel)
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Pretty = c.LogPretty
	return cfg
}
