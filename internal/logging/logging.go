// Package logging - Structured logging for the pricing engine
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process-wide logger. Components take a Named child of it.
var Logger *zap.Logger

// Config contains logging configuration
type Config struct {
	// Level is the minimum log level; unknown levels mean info
	Level string `json:"level" yaml:"level"`

	// Format is json or console
	Format string `json:"format" yaml:"format"`

	// Output is stdout, stderr or a file path
	Output string `json:"output" yaml:"output"`

	// Development adds stack traces to errors
	Development bool `json:"development" yaml:"development"`
}

// DefaultConfig logs info and above to stderr in console format
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "console",
		Output: "stderr",
	}
}

// New builds a logger from cfg without touching the global one
func New(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	sink, err := openSink(cfg.Output)
	if err != nil {
		return nil, err
	}

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return zap.New(zapcore.NewCore(newEncoder(cfg.Format), sink, level), opts...), nil
}

func newEncoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "json" {
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

func openSink(output string) (zapcore.WriteSyncer, error) {
	switch output {
	case "", "stderr":
		return zapcore.Lock(os.Stderr), nil
	case "stdout":
		return zapcore.Lock(os.Stdout), nil
	}
	f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return zapcore.AddSync(f), nil
}

// Initialize replaces the global logger with one built from cfg
func Initialize(cfg Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	SetLogger(l)
	return nil
}

// SetLogger replaces the global logger, e.g. with an observer in tests. nil means no-op.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	Logger = l
}

// Reset restores the default logger
func Reset() {
	_ = Initialize(DefaultConfig())
}

// Sync flushes buffered entries
func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// Named returns a child logger for a component
func Named(component string) *zap.Logger {
	return Logger.Named(component)
}

// Info logs on the global logger
func Info(msg string, fields ...zap.Field) {
	Logger.Info(msg, fields...)
}

// Field keys shared by every component, so log queries can join on them.

func ServiceKey(key string) zap.Field { return zap.String("service_key", key) }

func Label(label string) zap.Field { return zap.String("label", label) }

func QuoteID(id string) zap.Field { return zap.String("quote_id", id) }

func Source(src string) zap.Field { return zap.String("source", src) }

func TableHash(hex string) zap.Field { return zap.String("table_hash", hex) }

func init() {
	Reset()
}
