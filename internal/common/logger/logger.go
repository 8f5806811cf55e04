package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// Logger defines the minimal logging interface used across the application.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger
	Named(name string) Logger
}

// Options controls where and how log lines are written.
type Options struct {
	Name   string
	Level  string
	Format string // "console" or "json"
	File   string // empty disables the log file
	Stdout bool
	Output io.Writer // stdout target; nil means os.Stdout
}

// Instance is a built logger together with its adjustable level and open log file.
type Instance struct {
	Logger *zap.Logger
	Level  zap.AtomicLevel
	file   *os.File
}

func parseLevel(levelStr string) zapcore.Level {
	switch levelStr {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}

// Build creates a logger that tees every entry to the log file and stdout.
// Console lines look like "<timestamp> - <name> - <LEVEL> - <message>".
func Build(opts Options) (*Instance, error) {
	if opts.Name == "" {
		opts.Name = "app"
	}
	level := zap.NewAtomicLevelAt(parseLevel(opts.Level))
	encoder := newEncoder(opts.Format)

	var cores []zapcore.Core
	inst := &Instance{Level: level}

	if opts.File != "" {
		if dir := filepath.Dir(opts.File); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", opts.File, err)
		}
		inst.file = f
		cores = append(cores, zapcore.NewCore(encoder.Clone(), zapcore.AddSync(f), level))
	}
	if opts.Stdout {
		var out zapcore.WriteSyncer = os.Stdout
		if opts.Output != nil {
			out = zapcore.AddSync(opts.Output)
		}
		cores = append(cores, zapcore.NewCore(encoder.Clone(), zapcore.Lock(out), level))
	}

	inst.Logger = zap.New(zapcore.NewTee(cores...)).Named(opts.Name)
	return inst, nil
}

// SetDebug lowers the level of every core to debug.
func (i *Instance) SetDebug() {
	i.Level.SetLevel(zapcore.DebugLevel)
}

// Close flushes buffered entries and closes the log file.
func (i *Instance) Close() error {
	_ = i.Logger.Sync()
	if i.file != nil {
		return i.file.Close()
	}
	return nil
}

func newEncoder(format string) zapcore.Encoder {
	if format == "json" {
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}
	cfg := zapcore.EncoderConfig{
		TimeKey:          "time",
		NameKey:          "logger",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05,000"),
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " - ",
	}
	return textEncoder{zapcore.NewConsoleEncoder(cfg)}
}

// textEncoder moves the level after the logger name, which zap's console
// encoder cannot do on its own.
type textEncoder struct {
	zapcore.Encoder
}

func (e textEncoder) Clone() zapcore.Encoder {
	return textEncoder{e.Encoder.Clone()}
}

func (e textEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	ent.LoggerName = ent.LoggerName + " - " + ent.Level.CapitalString()
	return e.Encoder.EncodeEntry(ent, fields)
}

// zapWrapper adapts zap.Logger to the Logger interface.
type zapWrapper struct {
	l *zap.Logger
}

func (z *zapWrapper) Debug(msg string, fields map[string]interface{}) {
	z.l.Debug(msg, mapToZapFields(fields)...)
}

func (z *zapWrapper) Info(msg string, fields map[string]interface{}) {
	z.l.Info(msg, mapToZapFields(fields)...)
}

func (z *zapWrapper) Warn(msg string, fields map[string]interface{}) {
	z.l.Warn(msg, mapToZapFields(fields)...)
}

func (z *zapWrapper) Error(msg string, fields map[string]interface{}) {
	z.l.Error(msg, mapToZapFields(fields)...)
}

func (z *zapWrapper) WithFields(fields map[string]interface{}) Logger {
	return &zapWrapper{
		l: z.l.With(mapToZapFields(fields)...),
	}
}

func (z *zapWrapper) WithError(err error) Logger {
	return &zapWrapper{
		l: z.l.With(zap.Error(err)),
	}
}

func (z *zapWrapper) Named(name string) Logger {
	return &zapWrapper{
		l: z.l.Named(name),
	}
}

func mapToZapFields(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}

// NewZapAdapter wraps an existing *zap.Logger to implement the Logger interface
func NewZapAdapter(l *zap.Logger) Logger {
	return &zapWrapper{l: l}
}

// NewTestLogger creates a Logger suitable for testing that outputs to testing.T
func NewTestLogger(t testing.TB) Logger {
	return &zapWrapper{l: zaptest.NewLogger(t)}
}

// NewNoOpLogger creates a Logger that doesn't output anything (useful for tests)
func NewNoOpLogger() Logger {
	return &zapWrapper{l: zap.NewNop()}
}

// NewObservedLogger records every entry at debug and above so tests can assert on them.
func NewObservedLogger() (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &zapWrapper{l: zap.New(core)}, logs
}
