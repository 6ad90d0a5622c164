package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handsomefox/movie-ranking/internal/config"
	"github.com/handsomefox/movie-ranking/internal/env"
)

// ENV set only in .env is loaded after package init, so env.Current starts
// out as local and must be corrected before anything reads it.
func TestConfigureProcess_FollowsDotenv(t *testing.T) {
	prevEnv, prevLog := env.Current, slog.Default()
	t.Cleanup(func() {
		env.Current = prevEnv
		slog.SetDefault(prevLog)
	})
	env.Current = env.Local

	t.Setenv("ENV", "")
	t.Setenv("SESSION_SECRET", "")
	dotenv := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("ENV=production\nSESSION_SECRET=from-dotenv\n"), 0o600))
	require.NoError(t, godotenv.Overload(dotenv))

	v := config.NewViper()
	configureProcess(v)
	cfg, err := config.Load(v, false)
	require.NoError(t, err)

	assert.Equal(t, env.Production, cfg.Env)
	assert.Equal(t, cfg.Env, env.Current)
	assert.True(t, slog.Default().Enabled(t.Context(), slog.LevelInfo))
}

func TestConfigureProcess_DefaultsToLocal(t *testing.T) {
	prevEnv, prevLog := env.Current, slog.Default()
	t.Cleanup(func() {
		env.Current = prevEnv
		slog.SetDefault(prevLog)
	})
	env.Current = env.Production
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "warn")

	configureProcess(config.NewViper())

	assert.Equal(t, env.Local, env.Current)
	assert.False(t, slog.Default().Enabled(t.Context(), slog.LevelInfo))
}
