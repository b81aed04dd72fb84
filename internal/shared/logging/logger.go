package logging

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"
)

// Logger defines a minimal, printf-style logging contract.
//
// Components depend on this interface and receive a logger by injection;
// a nil logger degrades to no-op via OrNop.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards all output.
func Nop() Logger {
	return nopLogger{}
}

// IsNil reports whether logger is nil or wraps a nil pointer receiver.
func IsNil(logger Logger) bool {
	if logger == nil {
		return true
	}
	val := reflect.ValueOf(logger)
	switch val.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func:
		return val.IsNil()
	default:
		return false
	}
}

// OrNop returns logger when non-nil, otherwise a no-op logger.
func OrNop(logger Logger) Logger {
	if IsNil(logger) {
		return Nop()
	}
	return logger
}

type componentLogger struct {
	component string
	out       io.Writer
	debug     bool
	mu        *sync.Mutex
}

var writerMu sync.Mutex

// NewComponentLogger returns the default application logger scoped to a
// component. Debug output is enabled with COURIER_DEBUG=1.
func NewComponentLogger(component string) Logger {
	return &componentLogger{
		component: component,
		out:       os.Stderr,
		debug:     os.Getenv("COURIER_DEBUG") == "1",
		mu:        &writerMu,
	}
}

// NewWriterLogger returns a component logger writing to w; used by tests
// and by the CLI when log output is redirected.
func NewWriterLogger(component string, w io.Writer) Logger {
	return &componentLogger{component: component, out: w, debug: true, mu: &writerMu}
}

func (l *componentLogger) log(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ts := time.Now().Format("2006-01-02T15:04:05.000")
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.out, "%s %-5s [%s] %s\n", ts, level, l.component, strings.TrimRight(msg, "\n"))
}

func (l *componentLogger) Debug(format string, args ...any) {
	if !l.debug {
		return
	}
	l.log("DEBUG", format, args...)
}

func (l *componentLogger) Info(format string, args ...any)  { l.log("INFO", format, args...) }
func (l *componentLogger) Warn(format string, args ...any)  { l.log("WARN", format, args...) }
func (l *componentLogger) Error(format string, args ...any) { l.log("ERROR", format, args...) }

type multiLogger struct {
	loggers []Logger
}

// Multi returns a logger fan-out that calls every non-nil logger in order.
func Multi(loggers ...Logger) Logger {
	flattened := make([]Logger, 0, len(loggers))
	for _, logger := range loggers {
		if IsNil(logger) {
			continue
		}
		if ml, ok := logger.(*multiLogger); ok {
			flattened = append(flattened, ml.loggers...)
			continue
		}
		flattened = append(flattened, logger)
	}
	if len(flattened) == 0 {
		return Nop()
	}
	if len(flattened) == 1 {
		return flattened[0]
	}
	return &multiLogger{loggers: flattened}
}

func (l *multiLogger) Debug(format string, args ...any) {
	for _, logger := range l.loggers {
		logger.Debug(format, args...)
	}
}

func (l *multiLogger) Info(format string, args ...any) {
	for _, logger := range l.loggers {
		logger.Info(format, args...)
	}
}

func (l *multiLogger) Warn(format string, args ...any) {
	for _, logger := range l.loggers {
		logger.Warn(format, args...)
	}
}

func (l *multiLogger) Error(format string, args ...any) {
	for _, logger := range l.loggers {
		logger.Error(format, args...)
	}
}
