package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Format selects how log records are rendered.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

var (
	mu     sync.RWMutex
	out    io.Writer = os.Stderr
	format           = FormatConsole
	base             = build(out, format)
)

func build(w io.Writer, f Format) zerolog.Logger {
	if f == FormatJSON {
		return zerolog.New(w).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
}

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// SetLogLevel sets the global level. Unknown names fall back to INFO.
func SetLogLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "INFO":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "WARN", "WARNING":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "ERROR":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "FATAL":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		Warnf("unknown log level '%s', continuing with INFO", level)
	}
}

// SetFormat switches between human readable console output and JSON lines.
func SetFormat(f string) {
	mu.Lock()
	defer mu.Unlock()
	if strings.EqualFold(f, string(FormatJSON)) {
		format = FormatJSON
	} else {
		format = FormatConsole
	}
	base = build(out, format)
}

// SetOutput redirects all log output to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	base = build(out, format)
}

// Debugf writes a DEBUG record.
func Debugf(format string, v ...interface{}) {
	l := current()
	l.Debug().Msgf(format, v...)
}

// Infof writes an INFO record.
func Infof(format string, v ...interface{}) {
	l := current()
	l.Info().Msgf(format, v...)
}

// Warnf writes a WARN record.
func Warnf(format string, v ...interface{}) {
	l := current()
	l.Warn().Msgf(format, v...)
}

// Errorf writes an ERROR record.
func Errorf(format string, v ...interface{}) {
	l := current()
	l.Error().Msgf(format, v...)
}

// Fatalf writes a FATAL record and exits the process.
func Fatalf(format string, v ...interface{}) {
	l := current()
	l.Fatal().Msgf(format, v...)
}

// Logger is a component scoped logger carrying a fixed set of fields.
type Logger struct {
	fields map[string]string
}

// With returns a Logger that tags every record with key=value.
func With(key, value string) *Logger {
	return &Logger{fields: map[string]string{key: value}}
}

// With returns a copy of l extended with key=value.
func (l *Logger) With(key, value string) *Logger {
	fields := make(map[string]string, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	fields[key] = value
	return &Logger{fields: fields}
}

func (l *Logger) event(level zerolog.Level) *zerolog.Event {
	zl := current()
	e := zl.WithLevel(level)
	if e == nil {
		return nil
	}
	for k, v := range l.fields {
		e = e.Str(k, v)
	}
	return e
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	if e := l.event(zerolog.DebugLevel); e != nil {
		e.Msgf(format, v...)
	}
}

func (l *Logger) Infof(format string, v ...interface{}) {
	if e := l.event(zerolog.InfoLevel); e != nil {
		e.Msgf(format, v...)
	}
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	if e := l.event(zerolog.WarnLevel); e != nil {
		e.Msgf(format, v...)
	}
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	if e := l.event(zerolog.ErrorLevel); e != nil {
		e.Msgf(format, v...)
	}
}
