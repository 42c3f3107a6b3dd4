// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/fda-label-loader/pkg/types"
)

func TestFileName(t *testing.T) {
	start := time.Date(2026, 10, 15, 9, 30, 5, 0, time.UTC)
	assert.Equal(t, "fda_load_20261015_093005.log", FileName(start))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew_WritesTimestampedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	start := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	var console bytes.Buffer

	l, err := New(types.LogConfig{Dir: dir, Level: "info"}, start, &console)
	require.NoError(t, err)

	l.Info("Total records", zap.Int("total", 250))
	l.Debug("not written at info level")
	l.Error("API call failed after 3 attempts")
	require.NoError(t, l.Close())

	assert.Equal(t, filepath.Join(dir, "fda_load_20261015_120000.log"), l.Path)
	data, err := os.ReadFile(l.Path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "Total records", first["msg"])
	assert.Equal(t, float64(250), first["total"])

	// Only warn and above reach the console.
	assert.NotContains(t, console.String(), "Total records")
	assert.Contains(t, console.String(), "API call failed")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(types.LogConfig{Dir: t.TempDir(), Level: "verbose"}, time.Now(), nil)
	assert.Error(t, err)
}
