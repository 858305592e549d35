package log

import (
	"sync/atomic"

	"golang.org/x/exp/slog"
)

// LoggerFilter decides whether a record is emitted.
type LoggerFilter interface {
	check() bool
}

// EveryN lets one of every N records through. A nil or zero EveryN passes
// everything.
type EveryN struct {
	N       uint32
	counter atomic.Uint32
}

func (e *EveryN) check() bool {
	if e == nil || e.N == 0 {
		return true
	}
	return e.counter.Add(1)%e.N == 0
}

var _ LoggerFilter = &EveryN{}

type ifCondition bool

func (c ifCondition) check() bool { return bool(c) }

func writeBy(filter LoggerFilter, level slog.Level, msg string, ctx ...interface{}) {
	if filter == nil || filter.check() {
		Root().Write(level, msg, ctx...)
	}
}

func TraceBy(filter LoggerFilter, msg string, ctx ...interface{}) {
	writeBy(filter, LevelTrace, msg, ctx...)
}

func DebugBy(filter LoggerFilter, msg string, ctx ...interface{}) {
	writeBy(filter, LevelDebug, msg, ctx...)
}

func InfoBy(filter LoggerFilter, msg string, ctx ...interface{}) {
	writeBy(filter, LevelInfo, msg, ctx...)
}

func WarnBy(filter LoggerFilter, msg string, ctx ...interface{}) {
	writeBy(filter, LevelWarn, msg, ctx...)
}

func TraceIf(condition bool, msg string, ctx ...interface{}) {
	writeBy(ifCondition(condition), LevelTrace, msg, ctx...)
}

func DebugIf(condition bool, msg string, ctx ...interface{}) {
	writeBy(ifCondition(condition), LevelDebug, msg, ctx...)
}

func WarnIf(condition bool, msg string, ctx ...interface{}) {
	writeBy(ifCondition(condition), LevelWarn, msg, ctx...)
}
