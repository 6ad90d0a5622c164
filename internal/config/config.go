// Package config resolves runtime settings from flags, the environment and
// an optional .env file.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/handsomefox/movie-ranking/internal/env"
	"github.com/handsomefox/movie-ranking/internal/tmdb"
)

// Keys double as lower-cased environment variable names.
const (
	KeyPort              = "port"
	KeyDBPath            = "db_path"
	KeyTMDBSearchURL     = "tmdb_search_url"
	KeyTMDBDetailsURL    = "tmdb_details_url"
	KeyTMDBImageURL      = "tmdb_image_url"
	KeyTMDBAuthorization = "tmdb_authorization"
	KeyTMDBAPIKey        = "tmdb_api_key"
	KeyTMDBTimeout       = "tmdb_timeout"
	KeySearchCacheTTL    = "search_cache_ttl"
	KeySessionSecret     = "session_secret"
	KeyCORSOrigins       = "cors_origins"
	KeyLogLevel          = "log_level"
	KeyEnv               = "env"
)

type Config struct {
	Env               env.Environment
	Port              string
	DBPath            string
	TMDBSearchURL     string
	TMDBDetailsURL    string
	TMDBImageURL      string
	TMDBAuthorization string
	TMDBAPIKey        string
	TMDBTimeout       time.Duration
	SearchCacheTTL    time.Duration
	SessionSecret     string
	CORSOrigins       []string
	LogLevel          string
}

// NewViper returns a viper instance with defaults set and environment
// lookup enabled.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyPort, "8080")
	v.SetDefault(KeyDBPath, "data/movies.db")
	v.SetDefault(KeyTMDBSearchURL, tmdb.DefaultSearchURL)
	v.SetDefault(KeyTMDBDetailsURL, tmdb.DefaultDetailsURL)
	v.SetDefault(KeyTMDBImageURL, tmdb.DefaultImageBase)
	v.SetDefault(KeyTMDBTimeout, 10*time.Second)
	v.SetDefault(KeySearchCacheTTL, time.Minute)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyEnv, string(env.Local))
	v.AutomaticEnv()
	return v
}

// Load reads a Config out of v. requireTMDB is false for commands that
// never talk to the catalog.
func Load(v *viper.Viper, requireTMDB bool) (*Config, error) {
	cfg := &Config{
		Env:               env.Parse(v.GetString(KeyEnv)),
		Port:              strings.TrimSpace(v.GetString(KeyPort)),
		DBPath:            strings.TrimSpace(v.GetString(KeyDBPath)),
		TMDBSearchURL:     v.GetString(KeyTMDBSearchURL),
		TMDBDetailsURL:    v.GetString(KeyTMDBDetailsURL),
		TMDBImageURL:      v.GetString(KeyTMDBImageURL),
		TMDBAuthorization: strings.TrimSpace(v.GetString(KeyTMDBAuthorization)),
		TMDBAPIKey:        strings.TrimSpace(v.GetString(KeyTMDBAPIKey)),
		TMDBTimeout:       v.GetDuration(KeyTMDBTimeout),
		SearchCacheTTL:    v.GetDuration(KeySearchCacheTTL),
		SessionSecret:     v.GetString(KeySessionSecret),
		CORSOrigins:       splitList(v.GetString(KeyCORSOrigins)),
		LogLevel:          v.GetString(KeyLogLevel),
	}

	if cfg.DBPath == "" {
		return nil, errors.New("DB_PATH is required")
	}
	if cfg.Port == "" {
		return nil, errors.New("PORT is required")
	}
	if requireTMDB && cfg.TMDBAuthorization == "" && cfg.TMDBAPIKey == "" {
		return nil, errors.New("TMDB_AUTHORIZATION or TMDB_API_KEY is required")
	}
	if cfg.TMDBTimeout <= 0 {
		return nil, fmt.Errorf("TMDB_TIMEOUT must be positive, got %s", cfg.TMDBTimeout)
	}
	if cfg.SearchCacheTTL < 0 {
		return nil, fmt.Errorf("SEARCH_CACHE_TTL must not be negative, got %s", cfg.SearchCacheTTL)
	}

	if cfg.SessionSecret == "" {
		if cfg.Env == env.Production {
			return nil, errors.New("SESSION_SECRET is required in production")
		}
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.SessionSecret = secret
	}
	return cfg, nil
}

// TMDB returns the catalog client settings.
func (c *Config) TMDB() tmdb.Config {
	return tmdb.Config{
		SearchURL:      c.TMDBSearchURL,
		DetailsURL:     c.TMDBDetailsURL,
		ImageBase:      c.TMDBImageURL,
		Authorization:  c.TMDBAuthorization,
		APIKey:         c.TMDBAPIKey,
		Timeout:        c.TMDBTimeout,
		SearchCacheTTL: c.SearchCacheTTL,
	}
}

func (c *Config) Addr() string { return ":" + c.Port }

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
