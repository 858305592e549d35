// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package log is the logging front of the engine. It forwards to the slog
// based go-ethereum logger and adds sampling helpers and a rotating file sink.
package log

import (
	"io"
	"os"
	"reflect"
	"sync/atomic"

	gethlog "github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-isatty"
	"golang.org/x/exp/slog"
)

// Logger writes key/value pairs to a Handler.
type Logger = gethlog.Logger

const (
	LevelTrace = gethlog.LevelTrace
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	LevelCrit  = gethlog.LevelCrit
)

// New returns a new logger with the given context.
func New(ctx ...interface{}) Logger { return gethlog.New(ctx...) }

// rootLogger wraps the root so that loggers of any concrete type can share
// one atomic.Value.
type rootLogger struct{ Logger }

var root atomic.Value

func init() {
	root.Store(rootLogger{gethlog.Root()})
}

// Root returns the root logger.
func Root() Logger { return root.Load().(rootLogger).Logger }

// SetDefault sets the default global logger. Loggers built by this package
// also become the go-ethereum root, so library code logs to the same sink.
func SetDefault(l Logger) {
	root.Store(rootLogger{l})
	if reflect.TypeOf(l) == reflect.TypeOf(gethlog.Root()) {
		gethlog.SetDefault(l)
	}
}

// NewLogger returns a logger with the specified handler set.
func NewLogger(h slog.Handler) Logger { return gethlog.NewLogger(h) }

func Trace(msg string, ctx ...interface{}) { Root().Write(LevelTrace, msg, ctx...) }
func Debug(msg string, ctx ...interface{}) { Root().Write(LevelDebug, msg, ctx...) }
func Info(msg string, ctx ...interface{})  { Root().Write(LevelInfo, msg, ctx...) }
func Warn(msg string, ctx ...interface{})  { Root().Write(LevelWarn, msg, ctx...) }
func Error(msg string, ctx ...interface{}) { Root().Write(LevelError, msg, ctx...) }

// Crit logs a message at the critical level and terminates the process.
func Crit(msg string, ctx ...interface{}) {
	Root().Write(LevelCrit, msg, ctx...)
	os.Exit(1)
}

// Config selects where and how verbosely the root logger writes.
type Config struct {
	Verbosity   int    // legacy verbosity, 0=crit .. 5=trace
	JSON        bool   // emit JSON records instead of terminal output
	File        string // optional log file, rotated by RotateHours
	RotateHours uint
	BufferSize  int64 // queued records for the file sink
}

// Setup installs the root logger described by cfg. The returned function
// flushes and closes the file sink, if any.
func Setup(cfg Config) (func(), error) {
	var (
		out     io.Writer = os.Stderr
		color             = isatty.IsTerminal(os.Stderr.Fd())
		closeFn           = func() {}
	)
	if cfg.File != "" {
		size := cfg.BufferSize
		if size <= 0 {
			size = 4096
		}
		w := NewAsyncFileWriter(cfg.File, size, cfg.RotateHours)
		if err := w.Start(); err != nil {
			return nil, err
		}
		out, color, closeFn = w, false, w.Stop
	}
	level := FromLegacyLevel(cfg.Verbosity)

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	} else {
		handler = gethlog.NewTerminalHandlerWithLevel(out, level, color)
	}
	SetDefault(NewLogger(handler))
	return closeFn, nil
}

// FromLegacyLevel converts a 0 (crit) to 5 (trace) verbosity into a slog level.
func FromLegacyLevel(lvl int) slog.Level {
	switch {
	case lvl <= 0:
		return LevelCrit
	case lvl == 1:
		return LevelError
	case lvl == 2:
		return LevelWarn
	case lvl == 3:
		return LevelInfo
	case lvl == 4:
		return LevelDebug
	default:
		return LevelTrace
	}
}
