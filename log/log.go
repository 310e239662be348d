// Package log is a small leveled logging facade. The channel runtime's
// trace hooks write through it; the default implementation is backed by
// logrus.
package log

import "io"

// A Level bounds how verbose a Logger is. Levels grow toward Trace; a
// logger at InfoLevel drops Debug and Trace lines.
type Level uint32

const (
	PanicLevel Level = iota
	FatalLevel
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
	TraceLevel
)

func (l Level) String() string {
	switch l {
	case PanicLevel:
		return "panic"
	case FatalLevel:
		return "fatal"
	case ErrorLevel:
		return "error"
	case WarnLevel:
		return "warn"
	case InfoLevel:
		return "info"
	case DebugLevel:
		return "debug"
	case TraceLevel:
		return "trace"
	}
	return "unknown"
}

// A Logger emits leveled printf-style lines. Implementations must be safe
// for concurrent use.
type Logger interface {
	Trace(format string, v ...interface{})

	Debug(format string, v ...interface{})

	Info(format string, v ...interface{})

	Warn(format string, v ...interface{})

	Error(format string, v ...interface{})

	Fatal(format string, v ...interface{})

	Panic(format string, v ...interface{})

	SetLevel(level Level)

	GetLevel() Level

	SetOutput(out io.Writer)
}
