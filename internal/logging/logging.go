// Package logging configures the process-wide zerolog logger that the ops
// package uses for structured diagnostic output.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance; Init replaces it.
var Logger zerolog.Logger

// Level is a logging verbosity level, named rather than using zerolog's
// numeric levels directly so config files read naturally.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logger construction options.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init builds the global Logger from cfg.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}
	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
		return
	}
	Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        output,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
}

// WithComponent returns a child logger tagged with a component field, e.g.
// "repository", "ops", "dedupe".
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithEntryKey returns a child logger tagged with the citation key an
// operation concerns.
func WithEntryKey(key string) zerolog.Logger {
	return Logger.With().Str("entry_key", key).Logger()
}

func init() {
	// A usable default so packages that log before anyone calls Init still
	// produce readable output instead of a silent discard.
	Init(Config{Level: InfoLevel})
}
