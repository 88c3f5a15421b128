// Package observability provides structured logging for the pipeline.
package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps zerolog with pipeline specific functionality.
type Logger struct {
	zl      zerolog.Logger
	closers []io.Closer
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level       string
	Format      string // text or json, applies to the log file
	File        string // rotating log file; empty disables the file sink
	MaxSizeMB   int
	MaxBackups  int
	Console     bool
	Output      io.Writer // console writer override, defaults to stderr
	ServiceName string
}

// NewLogger creates a new Logger with the given configuration.
func NewLogger(cfg LogConfig) *Logger {
	// Enable stack traces in errors
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	var (
		writers []io.Writer
		closers []io.Closer
	)

	if cfg.Console {
		out := cfg.Output
		if out == nil {
			out = os.Stderr
		}
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		})
	}

	if cfg.File != "" {
		file := newRotatingFile(cfg)
		closers = append(closers, file)
		writers = append(writers, fileWriter(file, cfg.Format))
	}

	var output io.Writer
	switch len(writers) {
	case 0:
		output = io.Discard
	case 1:
		output = writers[0]
	default:
		output = zerolog.MultiLevelWriter(writers...)
	}

	zl := zerolog.New(output).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
	if cfg.ServiceName != "" {
		zl = zl.With().Str("service", cfg.ServiceName).Logger()
	}

	return &Logger{zl: zl, closers: closers}
}

// NewWriterLogger creates a logger that writes a single format to w. Tests use
// it to capture log lines.
func NewWriterLogger(w io.Writer, format, level string) *Logger {
	zl := zerolog.New(fileWriter(w, format)).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
	return &Logger{zl: zl}
}

// NopLogger returns a logger that discards everything.
func NopLogger() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func newRotatingFile(cfg LogConfig) *lumberjack.Logger {
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 5
	}
	backups := cfg.MaxBackups
	if backups <= 0 {
		backups = 5
	}
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    maxSize,
		MaxBackups: backups,
	}
}

// fileWriter renders records for a non-terminal sink. The text format keeps the
// message verbatim on the line so log scrapers can pattern-match it.
func fileWriter(w io.Writer, format string) io.Writer {
	if format == "json" {
		return w
	}
	return zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: time.RFC3339,
	}
}

// Close flushes and closes the file sink.
func (l *Logger) Close() error {
	var firstErr error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// With returns a new logger with additional context fields.
func (l *Logger) With() *LoggerContext {
	return &LoggerContext{ctx: l.zl.With(), closers: l.closers}
}

// Debug logs a debug message.
func (l *Logger) Debug() *LogEvent {
	return &LogEvent{evt: l.zl.Debug()}
}

// Info logs an info message.
func (l *Logger) Info() *LogEvent {
	return &LogEvent{evt: l.zl.Info()}
}

// Warn logs a warning message.
func (l *Logger) Warn() *LogEvent {
	return &LogEvent{evt: l.zl.Warn()}
}

// Error logs an error message.
func (l *Logger) Error() *LogEvent {
	return &LogEvent{evt: l.zl.Error()}
}

// WithOperation returns a logger with operation context.
func (l *Logger) WithOperation(op string) *Logger {
	return &Logger{zl: l.zl.With().Str("operation", op).Logger(), closers: l.closers}
}

// WithDocument returns a logger scoped to a single document.
func (l *Logger) WithDocument(name string) *Logger {
	return &Logger{zl: l.zl.With().Str("document", name).Logger(), closers: l.closers}
}

// LoggerContext builds a new logger with context.
type LoggerContext struct {
	ctx     zerolog.Context
	closers []io.Closer
}

// Str adds a string field.
func (c *LoggerContext) Str(key, val string) *LoggerContext {
	c.ctx = c.ctx.Str(key, val)
	return c
}

// Int adds an int field.
func (c *LoggerContext) Int(key string, val int) *LoggerContext {
	c.ctx = c.ctx.Int(key, val)
	return c
}

// Logger returns the configured logger.
func (c *LoggerContext) Logger() *Logger {
	return &Logger{zl: c.ctx.Logger(), closers: c.closers}
}

// LogEvent represents a log event being built.
type LogEvent struct {
	evt *zerolog.Event
}

// Str adds a string field.
func (e *LogEvent) Str(key, val string) *LogEvent {
	e.evt = e.evt.Str(key, val)
	return e
}

// Int adds an int field.
func (e *LogEvent) Int(key string, val int) *LogEvent {
	e.evt = e.evt.Int(key, val)
	return e
}

// Int64 adds an int64 field.
func (e *LogEvent) Int64(key string, val int64) *LogEvent {
	e.evt = e.evt.Int64(key, val)
	return e
}

// Float64 adds a float64 field.
func (e *LogEvent) Float64(key string, val float64) *LogEvent {
	e.evt = e.evt.Float64(key, val)
	return e
}

// Strs adds a string slice field.
func (e *LogEvent) Strs(key string, val []string) *LogEvent {
	e.evt = e.evt.Strs(key, val)
	return e
}

// Dur adds a duration field.
func (e *LogEvent) Dur(key string, val time.Duration) *LogEvent {
	e.evt = e.evt.Dur(key, val)
	return e
}

// Err adds an error field.
func (e *LogEvent) Err(err error) *LogEvent {
	e.evt = e.evt.Err(err)
	return e
}

// Msg sends the log event with a message.
func (e *LogEvent) Msg(msg string) {
	e.evt.Msg(msg)
}

// Msgf sends the log event with a formatted message.
func (e *LogEvent) Msgf(format string, args ...interface{}) {
	e.evt.Msgf(format, args...)
}

// parseLevel converts a string level to zerolog.Level.
func parseLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
