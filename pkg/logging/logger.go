// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Component names used in the "component" field.
const (
	ComponentClient     = "mc-client"
	ComponentCache      = "list-cache"
	ComponentMutation   = "mutation"
	ComponentSort       = "sortstate"
	ComponentHistory    = "history"
	ComponentRateLimit  = "ratelimit"
	ComponentPagination = "pagination"
	ComponentWeb        = "web"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel validates a level name from configuration.
func ParseLevel(value string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return "", fmt.Errorf("unknown log level %q", value)
	}
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// RequestLogger returns HTTP middleware that attaches logger to each request
// context, tags it with a request id and logs one access line per request.
// Handlers retrieve the logger with hlog.FromRequest.
func RequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	access := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		event := hlog.FromRequest(r).Info()
		if status >= http.StatusInternalServerError {
			event = hlog.FromRequest(r).Error()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request handled")
	})

	return func(next http.Handler) http.Handler {
		h := access(next)
		h = hlog.RequestIDHandler("request_id", "X-Request-Id")(h)
		return hlog.NewHandler(logger)(h)
	}
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, key, TTL)
//   - Optimistic writes and skipped updates
//   - Sort state derivation
//
// Info: Normal operation events
//   - Settled mutations
//   - Access log lines
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Rollbacks after failed mutations
//   - Failed invalidations
//   - Rate limit throttling, retries
//
// Error: Error conditions requiring attention
//   - Failed requests (after retries)
//   - Mutations aborted before send
//   - Configuration errors
//
// Context Fields:
//   - component: emitting package (see Component constants)
//   - key: list cache key
//   - target: identity of the mutated item
//   - endpoint: API path with ids templated
//   - error_class: client, server, rate_limit, network
//   - request_id: per request id set by RequestLogger
