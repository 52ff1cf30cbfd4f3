// Package logging owns log handler construction and the log-related CLI
// flags. Everything logs through github.com/ethereum/go-ethereum/log.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/term"
)

const (
	FormatText   = "text"
	FormatLogfmt = "logfmt"
	FormatJSON   = "json"
)

// Config holds the logging settings read from the CLI.
type Config struct {
	Level  string
	Format string
	Color  bool
}

// DefaultConfig colors output only when stdout is a terminal.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: FormatText,
		Color:  term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// LevelFromString parses a level name into a slog level, accepting the
// geth level names (trace through crit).
func LevelFromString(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "info":
		return log.LevelInfo, nil
	case "warn":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	case "crit":
		return log.LevelCrit, nil
	default:
		return log.LevelInfo, fmt.Errorf("unknown log level: %q", s)
	}
}

// NewLogger builds a logger writing to wr per the config.
func NewLogger(wr io.Writer, cfg Config) (log.Logger, error) {
	level, err := LevelFromString(cfg.Level)
	if err != nil {
		return nil, err
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatText, "":
		handler = log.NewTerminalHandlerWithLevel(wr, level, cfg.Color)
	case FormatLogfmt:
		handler = log.LogfmtHandlerWithLevel(wr, level)
	case FormatJSON:
		handler = log.JSONHandlerWithLevel(wr, level)
	default:
		return nil, fmt.Errorf("unknown log format: %q", cfg.Format)
	}
	return log.NewLogger(handler), nil
}
