// Package config loads server settings from the environment (and a
// .env file in development).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/robalobadob/rankedle/internal/rank"
	"github.com/robalobadob/rankedle/internal/rating"
)

const DefaultJWTSecret = "dev_secret_change_me"

type Config struct {
	Port     string
	LogLevel string
	Env      string

	ClientOrigins []string
	JWTSecret     string
	JWTExpiry     time.Duration
	CookieName    string
	AnonCookie    string

	DailySalt   string
	AnswersFile string
	AllowedFile string
	StrictWords bool

	RatingFormula string
	RankScheme    string

	StorageType  string // memory | sqlite | postgres
	DBPath       string
	DatabaseURL  string
	SessionStore string // memory | redis
	RedisURL     string
	NATSURL      string

	MetricsExporter string // none | console
	MetricsInterval time.Duration
}

// Production reports whether cookies must be Secure and secrets non-default.
func (c *Config) Production() bool { return c.Env == "production" }

// Load reads .env (if present) and the environment, then validates.
func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info().
		Str("port", cfg.Port).
		Str("env", cfg.Env).
		Str("storage", cfg.StorageType).
		Str("sessions", cfg.SessionStore).
		Str("rating_formula", cfg.RatingFormula).
		Str("rank_scheme", cfg.RankScheme).
		Bool("strict_words", cfg.StrictWords).
		Bool("nats", cfg.NATSURL != "").
		Str("metrics", cfg.MetricsExporter).
		Msg("configuration loaded")
	return cfg, nil
}

// FromEnv reads every setting without validating.
func FromEnv() *Config {
	return &Config{
		Port:     getEnv("PORT", "5175"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Env:      getEnv("NODE_ENV", "development"),

		ClientOrigins: splitList(getEnv("CLIENT_ORIGIN", "")),
		JWTSecret:     getEnv("JWT_SECRET", DefaultJWTSecret),
		JWTExpiry:     time.Duration(getEnvInt("JWT_EXPIRES_DAYS", 14)) * 24 * time.Hour,
		CookieName:    getEnv("COOKIE_NAME", "wordle_token"),
		AnonCookie:    getEnv("ANON_COOKIE_NAME", "wordle_anon"),

		DailySalt:   getEnv("DAILY_SALT", "local_dev_salt"),
		AnswersFile: getEnv("WORDS_ANSWERS_FILE", ""),
		AllowedFile: getEnv("WORDS_ALLOWED_FILE", ""),
		StrictWords: getEnvBool("WORDS_STRICT", true),

		RatingFormula: strings.ToLower(getEnv("RATING_FORMULA", "table")),
		RankScheme:    strings.ToLower(getEnv("RANK_SCHEME", "rating")),

		StorageType:  strings.ToLower(getEnv("STORAGE_TYPE", "memory")),
		DBPath:       getEnv("DB_PATH", "./data/rankedle.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		SessionStore: strings.ToLower(getEnv("SESSION_STORE", "memory")),
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379"),
		NATSURL:      getEnv("NATS_URL", ""),

		MetricsExporter: strings.ToLower(getEnv("METRICS_EXPORTER", "none")),
		MetricsInterval: time.Duration(getEnvInt("METRICS_INTERVAL_SECONDS", 60)) * time.Second,
	}
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if _, err := rating.FormulaByName(c.RatingFormula); err != nil {
		return fmt.Errorf("RATING_FORMULA: %w", err)
	}
	if _, err := rank.SchemeByName(c.RankScheme); err != nil {
		return fmt.Errorf("RANK_SCHEME: %w", err)
	}
	switch c.StorageType {
	case "memory", "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_TYPE=postgres")
		}
	default:
		return fmt.Errorf("STORAGE_TYPE: unknown backend %q", c.StorageType)
	}
	switch c.SessionStore {
	case "memory", "redis":
	default:
		return fmt.Errorf("SESSION_STORE: unknown backend %q", c.SessionStore)
	}
	switch c.MetricsExporter {
	case "none", "console":
	default:
		return fmt.Errorf("METRICS_EXPORTER: unknown exporter %q", c.MetricsExporter)
	}
	if c.JWTExpiry <= 0 {
		return fmt.Errorf("JWT_EXPIRES_DAYS must be positive")
	}
	if c.Production() && c.JWTSecret == DefaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
