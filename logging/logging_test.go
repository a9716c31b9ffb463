package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{" warn ", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
	assert.True(t, ValidLevel("Warning"))
	assert.False(t, ValidLevel("trace"))
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "realtyx.log")
	l, err := New(Config{Level: "warn", Format: "json", File: path})
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("dataset loaded", zap.Int("rejected", 3))
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"rejected":3`)
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestNew_Discard(t *testing.T) {
	l, err := New(Config{Discard: true, File: "/nonexistent/dir/x.log"})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.ErrorLevel))
}

func TestDefault(t *testing.T) {
	prev := L()
	defer SetDefault(prev)

	l := zap.NewExample()
	SetDefault(l)
	assert.Same(t, l, L())
	SetDefault(nil)
	assert.Same(t, l, L())
}
