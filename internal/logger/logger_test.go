package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handsomefox/movie-ranking/internal/env"
)

func TestNewWithWriter_ProductionIsJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, env.Production, slog.LevelInfo)

	log.Info("movie added", slog.String("title", "Heat"), Error(errors.New("boom")))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "movie added", line["msg"])
	assert.Equal(t, "Heat", line["title"])
	assert.Equal(t, "boom", line["err"])
	assert.Contains(t, line, "source")
}

func TestNewWithWriter_LocalIsText(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, env.Local, slog.LevelWarn)

	log.Info("hidden")
	log.Warn("shown", Error(nil))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "err=nil")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
