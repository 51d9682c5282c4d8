package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string // trace, debug, info, warn, error
	Format     string // json, console
	TimeFormat string
	Output     string // stdout, stderr or a file path
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		Format:     "json",
		TimeFormat: time.RFC3339,
		Output:     "stdout",
	}
}

// Setup initializes the global logger
func Setup(cfg LogConfig) error {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer
	switch cfg.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		output = file
	}

	if strings.ToLower(cfg.Format) == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: cfg.TimeFormat}
	}

	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}

	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	return nil
}

// WithComponent returns a logger tagged with a component field
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

// FromContext returns the request-scoped logger, falling back to the global one
func FromContext(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		return &log.Logger
	}
	return l
}

// WithRequestID attaches a logger carrying request_id to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	l := log.Logger.With().Str("request_id", requestID).Logger()
	return l.WithContext(ctx)
}
