package zerolog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncano/syncano.go/pkg/logger"
)

var _ logger.Logger = (*LogData)(nil)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	l, err := New().FromBuffer(&buf).Level(zerolog.InfoLevel).Make()
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("rest call", "method", "project.get", "status", 200)
	l.Error("failed to decode frame", "error", "unexpected EOF")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "info", first["level"])
	assert.Equal(t, "rest call", first["message"])
	assert.Equal(t, "project.get", first["method"])
	assert.EqualValues(t, 200, first["status"])
	assert.Contains(t, first, "time")

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "error", second["level"])
	assert.Equal(t, "unexpected EOF", second["error"])
}

func TestFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "syncano.log")
	l, err := New().FromPath(path).Level(zerolog.WarnLevel).Make()
	require.NoError(t, err)

	l.Warn("sync connection lost")
	l.Info("ignored")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sync connection lost")
	assert.NotContains(t, string(data), "ignored")
}
