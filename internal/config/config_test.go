package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load(zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "5175", cfg.Port)
	assert.Equal(t, "table", cfg.RatingFormula)
	assert.Equal(t, "rating", cfg.RankScheme)
	assert.Equal(t, "memory", cfg.StorageType)
	assert.Equal(t, "memory", cfg.SessionStore)
	assert.Equal(t, 14*24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, "wordle_token", cfg.CookieName)
	assert.True(t, cfg.StrictWords)
	assert.False(t, cfg.Production())
	assert.Empty(t, cfg.ClientOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9000")
	t.Setenv("RATING_FORMULA", "Logistic")
	t.Setenv("RANK_SCHEME", "score")
	t.Setenv("CLIENT_ORIGIN", "http://a.test, http://b.test")
	t.Setenv("JWT_EXPIRES_DAYS", "2")
	t.Setenv("WORDS_STRICT", "false")
	t.Setenv("STORAGE_TYPE", "sqlite")

	cfg, err := Load(zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "logistic", cfg.RatingFormula)
	assert.Equal(t, "score", cfg.RankScheme)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.ClientOrigins)
	assert.Equal(t, 48*time.Hour, cfg.JWTExpiry)
	assert.False(t, cfg.StrictWords)
	assert.Equal(t, "sqlite", cfg.StorageType)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad formula", map[string]string{"RATING_FORMULA": "glicko"}, "RATING_FORMULA"},
		{"bad scheme", map[string]string{"RANK_SCHEME": "elo"}, "RANK_SCHEME"},
		{"bad storage", map[string]string{"STORAGE_TYPE": "mongo"}, "STORAGE_TYPE"},
		{"postgres without url", map[string]string{"STORAGE_TYPE": "postgres"}, "DATABASE_URL"},
		{"bad sessions", map[string]string{"SESSION_STORE": "disk"}, "SESSION_STORE"},
		{"bad exporter", map[string]string{"METRICS_EXPORTER": "otlp"}, "METRICS_EXPORTER"},
		{"default secret in production", map[string]string{"NODE_ENV": "production"}, "JWT_SECRET"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load(zerolog.Nop())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
