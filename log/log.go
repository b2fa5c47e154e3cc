// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package log provides the process-wide structured logger.
// It is a thin layer over log/slog with a root logger that packages derive
// contextual loggers from via WithContext.
package log

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Logger is the logging interface carried around by components.
type Logger interface {
	With(ctx ...any) Logger

	Trace(msg string, ctx ...any)
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)

	// Write logs a message at the given level.
	Write(level slog.Level, msg string, attrs ...any)
}

type logger struct {
	inner *slog.Logger
}

// NewLogger returns a Logger backed by the given slog.Handler.
func NewLogger(h slog.Handler) Logger {
	return &logger{slog.New(h)}
}

func (l *logger) With(ctx ...any) Logger {
	return &logger{l.inner.With(ctx...)}
}

func (l *logger) Trace(msg string, ctx ...any) { l.Write(LevelTrace, msg, ctx...) }
func (l *logger) Debug(msg string, ctx ...any) { l.Write(LevelDebug, msg, ctx...) }
func (l *logger) Info(msg string, ctx ...any)  { l.Write(LevelInfo, msg, ctx...) }
func (l *logger) Warn(msg string, ctx ...any)  { l.Write(LevelWarn, msg, ctx...) }
func (l *logger) Error(msg string, ctx ...any) { l.Write(LevelError, msg, ctx...) }

func (l *logger) Write(level slog.Level, msg string, attrs ...any) {
	if !l.inner.Enabled(context.Background(), level) {
		return
	}
	l.inner.Log(context.Background(), level, msg, attrs...)
}

var root atomic.Pointer[logger]

func init() {
	root.Store(&logger{slog.New(DiscardHandler())})
}

// SetDefault sets the default global logger.
func SetDefault(l Logger) {
	root.Store(l.(*logger))
}

// Root returns the root logger.
func Root() Logger {
	return root.Load()
}

// WithContext returns the root logger extended with the given context pairs.
// Packages typically declare:
//
//	var logger = log.WithContext("pkg", "ledger")
func WithContext(ctx ...any) Logger {
	return &ctxLogger{ctx: ctx}
}

// ctxLogger defers root resolution to call time, so package-level loggers
// observe handlers installed after package init.
type ctxLogger struct {
	ctx []any
}

func (c *ctxLogger) resolve() Logger { return Root().With(c.ctx...) }

func (c *ctxLogger) With(ctx ...any) Logger {
	return &ctxLogger{ctx: append(append([]any{}, c.ctx...), ctx...)}
}

func (c *ctxLogger) Trace(msg string, ctx ...any) { c.resolve().Trace(msg, ctx...) }
func (c *ctxLogger) Debug(msg string, ctx ...any) { c.resolve().Debug(msg, ctx...) }
func (c *ctxLogger) Info(msg string, ctx ...any)  { c.resolve().Info(msg, ctx...) }
func (c *ctxLogger) Warn(msg string, ctx ...any)  { c.resolve().Warn(msg, ctx...) }
func (c *ctxLogger) Error(msg string, ctx ...any) { c.resolve().Error(msg, ctx...) }

func (c *ctxLogger) Write(level slog.Level, msg string, attrs ...any) {
	c.resolve().Write(level, msg, attrs...)
}

// Setup installs a terminal or JSON handler on the root logger. The returned
// level var adjusts verbosity at runtime.
func Setup(level slog.Level, jsonFormat bool, useColor bool) *slog.LevelVar {
	lvl := new(slog.LevelVar)
	lvl.Set(level)
	var h slog.Handler
	if jsonFormat {
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	} else {
		h = NewTerminalHandlerWithLevel(os.Stderr, lvl, useColor)
	}
	SetDefault(NewLogger(h))
	return lvl
}

// LevelString renders the level the way the terminal handler does.
func LevelString(level slog.Level) string {
	switch level {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return level.String()
	}
}
