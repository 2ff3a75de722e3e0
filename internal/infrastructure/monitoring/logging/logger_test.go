package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// newRecordingLogger builds a Logger writing JSON entries into a buffer so
// tests can assert on the rendered output.
func newRecordingLogger(t *testing.T) (Logger, *zaptest.Buffer) {
	t.Helper()
	buf := &zaptest.Buffer{}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), buf, zapcore.DebugLevel)
	return NewLoggerFromCore(core), buf
}

func TestNewLogger_JSONFormat(t *testing.T) {
	cfg := LogConfig{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{"stdout"},
	}
	l, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewLogger_ConsoleFormat(t *testing.T) {
	cfg := LogConfig{
		Level:       "debug",
		Format:      "console",
		OutputPaths: []string{"stdout"},
	}
	l, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewLogger_DefaultsApplied(t *testing.T) {
	l, err := NewLogger(LogConfig{})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewNopLogger_NotNil(t *testing.T) {
	l := NewNopLogger()
	assert.NotNil(t, l)
}

func TestNopLogger_AllMethodsNoOp(t *testing.T) {
	l := NewNopLogger()
	// Should not panic
	l.Debug("msg")
	l.Info("msg")
	l.Warn("msg")
	l.Error("msg")
}

func TestNopLogger_With_ReturnsSelf(t *testing.T) {
	l := NewNopLogger()
	l2 := l.With(String("k", "v"))
	assert.Equal(t, l, l2)
}

func TestNopLogger_Named_ReturnsSelf(t *testing.T) {
	l := NewNopLogger()
	l2 := l.Named("sub")
	assert.Equal(t, l, l2)
}

func TestLogger_Debug_WritesLog(t *testing.T) {
	l, buf := newRecordingLogger(t)
	l.Debug("debug msg")
	assert.Contains(t, buf.String(), "debug msg")
	assert.Contains(t, buf.String(), "\"level\":\"debug\"")
}

func TestLogger_Info_WritesLog(t *testing.T) {
	l, buf := newRecordingLogger(t)
	l.Info("info msg")
	assert.Contains(t, buf.String(), "info msg")
	assert.Contains(t, buf.String(), "\"level\":\"info\"")
}

func TestLogger_Warn_WritesLog(t *testing.T) {
	l, buf := newRecordingLogger(t)
	l.Warn("warn msg")
	assert.Contains(t, buf.String(), "warn msg")
	assert.Contains(t, buf.String(), "\"level\":\"warn\"")
}

func TestLogger_Error_WritesLog(t *testing.T) {
	l, buf := newRecordingLogger(t)
	l.Error("error msg")
	assert.Contains(t, buf.String(), "error msg")
	assert.Contains(t, buf.String(), "\"level\":\"error\"")
}

func TestLogger_With_AddsFields(t *testing.T) {
	l, buf := newRecordingLogger(t)
	l.With(String("foo", "bar")).Info("msg")
	assert.Contains(t, buf.String(), "\"foo\":\"bar\"")
}

func TestLogger_Named_AppendsName(t *testing.T) {
	l, buf := newRecordingLogger(t)
	l.Named("scoring").Info("msg")
	assert.Contains(t, buf.String(), "scoring")
}

func TestLogger_TypedFields(t *testing.T) {
	l, buf := newRecordingLogger(t)
	l.Info("typed",
		Int("count", 3),
		Int64("big", 42),
		Float64("score", 0.75),
		Bool("ok", true),
		Duration("took", 5*time.Millisecond),
	)
	out := buf.String()
	assert.Contains(t, out, "\"count\":3")
	assert.Contains(t, out, "\"big\":42")
	assert.Contains(t, out, "\"score\":0.75")
	assert.Contains(t, out, "\"ok\":true")
	assert.Contains(t, out, "took")
}

func TestErr_NilError(t *testing.T) {
	f := Err(nil)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "<nil>", f.Value)
}

func TestErr_NonNilError(t *testing.T) {
	l, buf := newRecordingLogger(t)
	l.Error("failed", Err(errors.New("boom")))
	assert.Contains(t, buf.String(), "boom")
}

func TestSetDefault_UpdatesDefault(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	l := NewNopLogger()
	SetDefault(l)
	assert.Equal(t, l, Default())
}

func TestSetDefault_IgnoresNil(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	SetDefault(nil)
	assert.NotNil(t, Default())
}

func TestLevelFor_Values(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, levelFor("debug"))
	assert.Equal(t, zapcore.WarnLevel, levelFor("WARN"))
	assert.Equal(t, zapcore.ErrorLevel, levelFor("error"))
	assert.Equal(t, zapcore.InfoLevel, levelFor("unknown"))
	assert.Equal(t, zapcore.InfoLevel, levelFor(""))
}

//Personal.AI order the ending
