package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, cfg Config) (*Logger, func() map[string]any) {
	t.Helper()
	buf := &bytes.Buffer{}
	cfg.Output = buf
	if cfg.Format == "" {
		cfg.Format = "json"
	}
	return New(&cfg), func() map[string]any {
		t.Helper()
		if buf.Len() == 0 {
			return nil
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		buf.Reset()
		return entry
	}
}

func TestNew_Defaults(t *testing.T) {
	assert.NotNil(t, New(nil))

	l, last := capture(t, Config{})
	l.Info("schema loaded")
	entry := last()
	require.NotNil(t, entry)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "schema loaded", entry["message"])
	assert.NotEmpty(t, entry["time"])
}

func TestLevels(t *testing.T) {
	tests := []struct {
		level string
		log   func(*Logger)
		want  bool
	}{
		{"debug", func(l *Logger) { l.DebugWith("cache miss", nil) }, true},
		{"info", func(l *Logger) { l.DebugWith("cache miss", nil) }, false},
		{"warn", func(l *Logger) { l.Info("connected") }, false},
		{"warn", func(l *Logger) { l.Warn("slow catalog query") }, true},
		{"error", func(l *Logger) { l.WarnWith("cache write failed", errors.New("x"), nil) }, false},
		{"error", func(l *Logger) { l.Errorf("load config: %v", "missing") }, true},
		{"bogus", func(l *Logger) { l.Info("falls back to info") }, true},
		{"disabled", func(l *Logger) { l.Error("dropped") }, false},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l, last := capture(t, Config{Level: tt.level})
			tt.log(l)
			assert.Equal(t, tt.want, last() != nil)
		})
	}
}

func TestFields(t *testing.T) {
	l, last := capture(t, Config{Level: "debug"})

	l.With().Str("dsn", "postgres://localhost/app").Int("tables", 12).Logger().Info("schema loaded")
	entry := last()
	assert.Equal(t, "postgres://localhost/app", entry["dsn"])
	assert.Equal(t, float64(12), entry["tables"])

	l.ErrorWith("metadata cache write failed", errors.New("cache backend unreachable"), map[string]any{"table": "users"})
	entry = last()
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "cache backend unreachable", entry["error"])
	assert.Equal(t, "users", entry["table"])

	l.Component("meta").InfoWith("connected", map[string]any{"driver": "sqlite"})
	entry = last()
	assert.Equal(t, "meta", entry["component"])
	assert.Equal(t, "sqlite", entry["driver"])
}

func TestTimeFormat(t *testing.T) {
	l, last := capture(t, Config{TimeFormat: "unix"})
	l.Info("tick")
	_, isNumber := last()["time"].(float64)
	assert.True(t, isNumber)

	l, last = capture(t, Config{TimeFormat: "rfc3339"})
	l.Info("tick")
	_, isString := last()["time"].(string)
	assert.True(t, isString)
}

func TestConsoleFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	New(&Config{Format: "console", Output: buf}).Info("human readable")
	assert.Contains(t, buf.String(), "human readable")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestContext(t *testing.T) {
	l, last := capture(t, Config{})
	FromContext(l.WithContext(context.Background())).Info("from context")
	assert.Equal(t, "from context", last()["message"])

	assert.Same(t, Global(), FromContext(context.Background()))
}

func TestGlobal(t *testing.T) {
	prev := Global()
	t.Cleanup(func() { SetGlobal(prev) })

	l := Nop()
	SetGlobal(l)
	assert.Same(t, l, Global())
	assert.NotPanics(t, func() { l.WarnWith("ignored", errors.New("x"), nil) })
}

func BenchmarkWarnWith(b *testing.B) {
	l := New(&Config{Output: io.Discard})
	err := errors.New("cache backend unreachable")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.Component("meta").WarnWith("metadata cache write failed", err, map[string]any{"table": "users"})
	}
}
