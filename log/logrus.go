package log

import (
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// New returns a Logger writing through logrus at the given level. Every
// line carries position and func fields naming the call site.
func New(level Level) Logger {
	l := &logger{l: logrus.New()}
	l.SetLevel(level)
	return l
}

var (
	defaultLogger     Logger
	defaultLoggerInit sync.Once
)

// Default returns the process-wide logger, constructed at InfoLevel on
// first use.
func Default() Logger {
	defaultLoggerInit.Do(func() {
		defaultLogger = New(InfoLevel)
	})
	return defaultLogger
}

type logger struct {
	l *logrus.Logger
}

// decorate attaches the caller's position so lines point at the operation
// that emitted them rather than at this package. skip counts frames the
// same way runtime.Caller does.
func (lg *logger) decorate(skip int) *logrus.Entry {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return logrus.NewEntry(lg.l)
	}
	short := file
	if i := strings.LastIndexByte(file, '/'); i >= 0 {
		short = file[i+1:]
	}
	fields := logrus.Fields{"position": fmt.Sprintf("%s:%d", short, line)}
	if fn := runtime.FuncForPC(pc); fn != nil {
		name := fn.Name()
		if i := strings.LastIndexByte(name, '/'); i >= 0 {
			name = name[i+1:]
		}
		fields["func"] = name
	}
	return lg.l.WithFields(fields)
}

func (lg *logger) Trace(format string, v ...interface{}) {
	lg.decorate(2).Tracef(format, v...)
}

func (lg *logger) Debug(format string, v ...interface{}) {
	lg.decorate(2).Debugf(format, v...)
}

func (lg *logger) Info(format string, v ...interface{}) {
	lg.decorate(2).Infof(format, v...)
}

func (lg *logger) Warn(format string, v ...interface{}) {
	lg.decorate(2).Warnf(format, v...)
}

func (lg *logger) Error(format string, v ...interface{}) {
	lg.decorate(2).Errorf(format, v...)
}

func (lg *logger) Fatal(format string, v ...interface{}) {
	lg.decorate(2).Fatalf(format, v...)
}

func (lg *logger) Panic(format string, v ...interface{}) {
	lg.decorate(2).Panicf(format, v...)
}

func (lg *logger) SetLevel(level Level) {
	lg.l.SetLevel(logrusLevel(level))
}

func (lg *logger) GetLevel() Level {
	return Level(lg.l.GetLevel())
}

func (lg *logger) SetOutput(out io.Writer) {
	lg.l.SetOutput(out)
}

// logrus levels share our numbering; the conversion just guards against
// out-of-range values.
func logrusLevel(level Level) logrus.Level {
	if level > TraceLevel {
		return logrus.TraceLevel
	}
	return logrus.Level(level)
}
