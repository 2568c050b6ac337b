// Package config loads application configuration from environment variables.
// All variables use the LEARN_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Cache          CacheConfig
	AI             AIConfig
	Game           GameConfig
	Log            LogConfig
	CurriculumPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int
	Host         string
	SecureCookie bool
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL keeps
// player state in memory.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis settings for the media cache. An empty URL
// disables caching.
type CacheConfig struct {
	URL      string
	MediaTTL time.Duration
}

// AIConfig holds the generative content provider settings.
type AIConfig struct {
	Google         GoogleConfig
	RequestTimeout time.Duration
}

// GoogleConfig holds Google Gemini provider settings.
type GoogleConfig struct {
	APIKey            string
	BaseURL           string
	QuestionModel     string
	IllustrationModel string
	SpeechModel       string
}

// GameConfig holds gameplay toggles.
type GameConfig struct {
	SpeechEnabled  bool
	SessionIdleTTL time.Duration
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with LEARN_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         envInt("LEARN_SERVER_PORT", 8080),
			Host:         envStr("LEARN_SERVER_HOST", "0.0.0.0"),
			SecureCookie: envBool("LEARN_SERVER_SECURE_COOKIE", false),
		},
		Database: DatabaseConfig{
			URL:      envStr("LEARN_DATABASE_URL", ""),
			MaxConns: envInt("LEARN_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("LEARN_DATABASE_MIN_CONNS", 1),
		},
		Cache: CacheConfig{
			URL:      envStr("LEARN_CACHE_URL", ""),
			MediaTTL: envDuration("LEARN_CACHE_MEDIA_TTL", 24*time.Hour),
		},
		AI: AIConfig{
			Google: GoogleConfig{
				APIKey:            envStr("LEARN_AI_GOOGLE_API_KEY", ""),
				BaseURL:           envStr("LEARN_AI_GOOGLE_BASE_URL", ""),
				QuestionModel:     envStr("LEARN_AI_GOOGLE_QUESTION_MODEL", "gemini-2.5-flash"),
				IllustrationModel: envStr("LEARN_AI_GOOGLE_ILLUSTRATION_MODEL", "gemini-2.5-flash-image"),
				SpeechModel:       envStr("LEARN_AI_GOOGLE_SPEECH_MODEL", "gemini-2.5-flash-preview-tts"),
			},
			RequestTimeout: envDuration("LEARN_AI_REQUEST_TIMEOUT", 45*time.Second),
		},
		Game: GameConfig{
			SpeechEnabled:  envBool("LEARN_GAME_SPEECH_ENABLED", true),
			SessionIdleTTL: envDuration("LEARN_GAME_SESSION_IDLE_TTL", 30*time.Minute),
		},
		Log: LogConfig{
			Level:  envStr("LEARN_LOG_LEVEL", "info"),
			Format: envStr("LEARN_LOG_FORMAT", "json"),
		},
		CurriculumPath: envStr("LEARN_CURRICULUM_PATH", ""),
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.AI.Google.APIKey == "" {
		return fmt.Errorf("LEARN_AI_GOOGLE_API_KEY is required")
	}
	if c.AI.RequestTimeout <= 0 {
		return fmt.Errorf("LEARN_AI_REQUEST_TIMEOUT must be positive, got %s", c.AI.RequestTimeout)
	}
	if c.Game.SessionIdleTTL < 0 {
		return fmt.Errorf("LEARN_GAME_SESSION_IDLE_TTL must not be negative, got %s", c.Game.SessionIdleTTL)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("LEARN_SERVER_PORT must be a valid port, got %d", c.Server.Port)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LEARN_LOG_LEVEL must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("LEARN_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	return nil
}

// HasDatabase returns true if player state should be persisted.
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// HasCache returns true if generated media should be cached.
func (c *Config) HasCache() bool {
	return c.Cache.URL != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
