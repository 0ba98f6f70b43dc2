// Package logging holds the process-wide slog logger. Components derive
// their loggers through With so every record carries its origin.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

const (
	envLevel  = "TAUFLOW_LOG_LEVEL"
	envJSON   = "TAUFLOW_LOG_JSON"
	envSource = "TAUFLOW_LOG_SOURCE"
)

type Options struct {
	Level  string // debug|info|warn|error, optionally with an offset ("debug-4")
	JSON   bool
	Source bool      // annotate records with file:line
	Output io.Writer // defaults to stderr
}

var (
	level   slog.LevelVar
	current atomic.Pointer[slog.Logger]
)

func init() {
	current.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level})))
}

// Configure replaces the handler. An unknown level keeps info and is
// reported through the new logger.
func Configure(opts Options) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	lvl, err := ParseLevel(opts.Level)
	level.Set(lvl)

	ho := &slog.HandlerOptions{Level: &level, AddSource: opts.Source}
	var h slog.Handler = slog.NewTextHandler(out, ho)
	if opts.JSON {
		h = slog.NewJSONHandler(out, ho)
	}
	current.Store(slog.New(h))
	if err != nil {
		L().Warn("logging: falling back to info", "err", err)
	}
}

// SetLevel changes the threshold of the installed handler in place.
func SetLevel(l slog.Level) { level.Set(l) }

// ParseLevel accepts slog level names in any case; empty means info.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	s = strings.TrimSpace(s)
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, err
	}
	return l, nil
}

func L() *slog.Logger { return current.Load() }

// With returns the current logger annotated with a component name.
func With(component string) *slog.Logger {
	return L().With("component", component)
}

// ForRun is With(component) tagged with a decoration run id.
func ForRun(component, runID string) *slog.Logger {
	return With(component).With("run", runID)
}

// InitFromEnv configures logging from TAUFLOW_LOG_LEVEL, TAUFLOW_LOG_JSON
// and TAUFLOW_LOG_SOURCE.
func InitFromEnv() {
	Configure(Options{
		Level:  os.Getenv(envLevel),
		JSON:   envBool(envJSON),
		Source: envBool(envSource),
	})
}

func envBool(key string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && b
}
