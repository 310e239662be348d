package chans

import (
	"sync/atomic"

	"github.com/pianoyeg94/go-chans/log"
)

// Trace output is off unless a logger is installed; the operation hot
// paths pay one atomic load for the check.
var (
	debugEnabled atomic.Bool
	debugLogger  atomic.Value // debugSink
)

type debugSink struct {
	l log.Logger
}

// SetDebugLogger routes the channel runtime's trace points (construction,
// parks, close drains, select parks) to l at trace level. A nil l turns
// tracing off.
func SetDebugLogger(l log.Logger) {
	if l == nil {
		debugEnabled.Store(false)
		return
	}
	debugLogger.Store(debugSink{l: l})
	debugEnabled.Store(true)
}

func debugf(format string, args ...any) {
	if !debugEnabled.Load() {
		return
	}
	if sink, ok := debugLogger.Load().(debugSink); ok {
		sink.l.Trace(format, args...)
	}
}
