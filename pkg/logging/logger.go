// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
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

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// JSON switches from the human-readable console writer to raw JSON lines.
	JSON bool

	// Output is the writer to output logs to (default: os.Stderr).
	// Stdout is reserved for command output.
	Output io.Writer
}

// DefaultConfig returns the configuration used by the CLI when no
// verbosity flags are given: quiet console output on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  LevelWarn,
		JSON:   false,
		Output: os.Stderr,
	}
}

// LevelForVerbosity maps the repeated -v flag to a log level.
func LevelForVerbosity(verbose int) LogLevel {
	switch {
	case verbose >= 2:
		return LevelDebug
	case verbose == 1:
		return LevelInfo
	default:
		return LevelWarn
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var output io.Writer = out
	if !cfg.JSON {
		output = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
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
		return zerolog.WarnLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: request flow and internal state
//   - Page windows issued (endpoint, skip, limit)
//   - Token cache hits, credential store loads/saves
//   - Response cache hit/miss
//
// Info: one line per logical operation
//   - Fetch complete (endpoint, records, pages, duration)
//   - Token exchanged (expires_at)
//
// Warn: degraded but continuing
//   - Keyring unavailable, falling back to file store
//   - Corrupt credential record ignored
//   - Metrics file could not be written
//
// Error: the operation is about to fail
//   - Token exchange rejected
//   - Page or entity request failed
//
// Context Fields:
//   - component: pagination, auth, client, credential, cache
//   - endpoint: API path
//   - status_code: HTTP status code
//   - duration: request or fetch duration
//   - error_class: client, server, network, auth
