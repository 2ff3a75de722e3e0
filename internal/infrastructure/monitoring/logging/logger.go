// Package logging is the structured logging seam for the scoring engine.
// Components depend on the Logger interface and receive an instance through
// their constructors; go.uber.org/zap stays an implementation detail of this
// package so tests can swap in a nop or recording logger.
package logging

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fields
// ─────────────────────────────────────────────────────────────────────────────

// Field is one typed key-value pair on a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// String constructs a string-valued field.
func String(key, val string) Field { return Field{Key: key, Value: val} }

// Int constructs an int-valued field.
func Int(key string, val int) Field { return Field{Key: key, Value: val} }

// Int64 constructs an int64-valued field.
func Int64(key string, val int64) Field { return Field{Key: key, Value: val} }

// Float64 constructs a float64-valued field.
func Float64(key string, val float64) Field { return Field{Key: key, Value: val} }

// Bool constructs a bool-valued field.
func Bool(key string, val bool) Field { return Field{Key: key, Value: val} }

// Duration constructs a time.Duration-valued field.
func Duration(key string, val time.Duration) Field { return Field{Key: key, Value: val} }

// Err records an error under the canonical "error" key; a nil error renders
// as "<nil>".
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: "<nil>"}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Any carries an arbitrary value.  Prefer the typed constructors; this one
// reaches zap.Any and its reflection path.
func Any(key string, val interface{}) Field { return Field{Key: key, Value: val} }

// zfield maps one Field to its zap counterpart without reflection for the
// types the engine actually logs.
func (f Field) zfield() zap.Field {
	switch v := f.Value.(type) {
	case string:
		return zap.String(f.Key, v)
	case int:
		return zap.Int(f.Key, v)
	case int64:
		return zap.Int64(f.Key, v)
	case float64:
		return zap.Float64(f.Key, v)
	case bool:
		return zap.Bool(f.Key, v)
	case time.Duration:
		return zap.Duration(f.Key, v)
	case error:
		return zap.NamedError(f.Key, v)
	default:
		return zap.Any(f.Key, v)
	}
}

func zfields(fields []Field) []zap.Field {
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		out[i] = f.zfield()
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Logger contract
// ─────────────────────────────────────────────────────────────────────────────

// Logger is what every component logs through.  With derives a child carrying
// extra fields; Named derives a child with a dotted sub-name.  Fatal exits
// the process and is reserved for startup wiring.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	With(fields ...Field) Logger
	Named(name string) Logger
}

// LogConfig holds the construction parameters for NewLogger.  Zero values
// get production defaults: info level, JSON encoding, stdout/stderr.
type LogConfig struct {
	// Level is the minimum severity emitted: debug, info, warn or error
	// (case-insensitive).  Unrecognised values fall back to info.
	Level string `yaml:"level" json:"level"`

	// Format is "json" for aggregation pipelines or "console" for humans.
	Format string `yaml:"format" json:"format"`

	// OutputPaths and ErrorOutputPaths follow zap's sink syntax; "stdout"
	// and "stderr" are special, anything else is opened as a file.
	OutputPaths      []string `yaml:"output_paths" json:"output_paths"`
	ErrorOutputPaths []string `yaml:"error_output_paths" json:"error_output_paths"`
}

// ─────────────────────────────────────────────────────────────────────────────
// zap-backed implementation
// ─────────────────────────────────────────────────────────────────────────────

type zlog struct {
	z *zap.Logger
}

func (l *zlog) Debug(msg string, fields ...Field) { l.z.Debug(msg, zfields(fields)...) }
func (l *zlog) Info(msg string, fields ...Field)  { l.z.Info(msg, zfields(fields)...) }
func (l *zlog) Warn(msg string, fields ...Field)  { l.z.Warn(msg, zfields(fields)...) }
func (l *zlog) Error(msg string, fields ...Field) { l.z.Error(msg, zfields(fields)...) }
func (l *zlog) Fatal(msg string, fields ...Field) { l.z.Fatal(msg, zfields(fields)...) }

func (l *zlog) With(fields ...Field) Logger {
	return &zlog{z: l.z.With(zfields(fields)...)}
}

func (l *zlog) Named(name string) Logger {
	return &zlog{z: l.z.Named(name)}
}

func levelFor(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewLogger builds a zap-backed Logger from cfg.  The only error path is an
// output path zap cannot open.
func NewLogger(cfg LogConfig) (Logger, error) {
	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}
	errOutputs := cfg.ErrorOutputPaths
	if len(errOutputs) == 0 {
		errOutputs = []string{"stderr"}
	}

	console := cfg.Format == "console"
	encCfg := zap.NewProductionEncoderConfig()
	encoding := "json"
	if console {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encoding = "console"
	}
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	z, err := zap.Config{
		Level:            zap.NewAtomicLevelAt(levelFor(cfg.Level)),
		Development:      console,
		Encoding:         encoding,
		EncoderConfig:    encCfg,
		OutputPaths:      outputs,
		ErrorOutputPaths: errOutputs,
	}.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("logging: failed to build zap logger: %w", err)
	}
	return &zlog{z: z}, nil
}

// NewLoggerFromCore wraps an existing zapcore.Core, used by tests that assert
// on observed entries.
func NewLoggerFromCore(core zapcore.Core) Logger {
	return &zlog{z: zap.New(core, zap.AddCallerSkip(1))}
}

// ─────────────────────────────────────────────────────────────────────────────
// Nop logger and process default
// ─────────────────────────────────────────────────────────────────────────────

type nopLogger struct{}

func (nopLogger) Debug(_ string, _ ...Field) {}
func (nopLogger) Info(_ string, _ ...Field)  {}
func (nopLogger) Warn(_ string, _ ...Field)  {}
func (nopLogger) Error(_ string, _ ...Field) {}
func (nopLogger) Fatal(_ string, _ ...Field) {}
func (n nopLogger) With(_ ...Field) Logger   { return n }
func (n nopLogger) Named(_ string) Logger    { return n }

// NewNopLogger returns a Logger that drops everything.  For tests.
func NewNopLogger() Logger { return nopLogger{} }

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger = nopLogger{}
)

// SetDefault installs the process-wide fallback Logger.  Call once during
// startup, before goroutines that read Default.
func SetDefault(l Logger) {
	if l == nil {
		return
	}
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// Default returns the process-wide fallback Logger.  Constructor injection is
// preferred; this exists for code with no injection point.
func Default() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

//Personal.AI order the ending
