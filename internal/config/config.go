package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config holds all runtime configuration of the service.
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	ElevenLabs ElevenLabsConfig
	Identity   IdentityConfig
	Artifact   ArtifactConfig
}

type AppConfig struct {
	Env            string
	LogLevel       string
	Port           int
	PublicBaseURL  string
	RequestTimeout time.Duration
}

type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	SSLMode       string
	MigrationPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RateLimitConfig selects and tunes the per-subject request quota.
// Backend is "postgres" (transactional, default) or "redis".
type RateLimitConfig struct {
	Backend string
	Window  time.Duration
	Max     int
}

type ElevenLabsConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	Stability       float64
	SimilarityBoost float64
}

// IdentityConfig points at the token-verification service.
type IdentityConfig struct {
	APIURL string
}

// ArtifactConfig configures blob persistence and signed retrieval URLs.
type ArtifactConfig struct {
	Root          string
	SigningSecret string
	URLTTL        time.Duration
}

// Load reads configuration from environment variables and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// App
	cfg.App.Env = getEnvDefault("APP_ENV", "development")
	cfg.App.LogLevel = getEnvDefault("LOG_LEVEL", "info")
	cfg.App.Port = getEnvIntDefault("APP_PORT", 8080)
	cfg.App.PublicBaseURL = getEnvDefault("PUBLIC_BASE_URL", fmt.Sprintf("http://localhost:%d", cfg.App.Port))
	cfg.App.RequestTimeout = getEnvDurationDefault("REQUEST_TIMEOUT", 300*time.Second)

	// Database
	cfg.Database.Host = getEnvDefault("DB_HOST", "localhost")
	cfg.Database.Port = getEnvIntDefault("DB_PORT", 5432)
	cfg.Database.User = os.Getenv("DB_USER")
	cfg.Database.Password = os.Getenv("DB_PASSWORD")
	cfg.Database.Name = os.Getenv("DB_NAME")
	cfg.Database.SSLMode = getEnvDefault("DB_SSL_MODE", "disable")
	cfg.Database.MigrationPath = getEnvDefault("MIGRATION_PATH", "scripts/migrations")

	// Redis (only used when RATE_LIMIT_BACKEND=redis)
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	cfg.Redis.DB = getEnvIntDefault("REDIS_DB", 0)

	// Rate limit
	cfg.RateLimit.Backend = getEnvDefault("RATE_LIMIT_BACKEND", "postgres")
	cfg.RateLimit.Window = getEnvDurationDefault("RATE_LIMIT_WINDOW", time.Minute)
	cfg.RateLimit.Max = getEnvIntDefault("RATE_LIMIT_MAX", 10)

	// ElevenLabs. The key is deliberately not required here: its absence is
	// reported per request as "server not configured" rather than at boot.
	cfg.ElevenLabs.APIKey = os.Getenv("ELEVENLABS_KEY")
	cfg.ElevenLabs.BaseURL = getEnvDefault("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io")
	cfg.ElevenLabs.Model = getEnvDefault("ELEVENLABS_MODEL", "eleven_multilingual_v2")
	cfg.ElevenLabs.Stability = getEnvFloatDefault("ELEVENLABS_STABILITY", 0.4)
	cfg.ElevenLabs.SimilarityBoost = getEnvFloatDefault("ELEVENLABS_SIMILARITY_BOOST", 0.75)

	// Identity service
	cfg.Identity.APIURL = getEnvDefault("IDENTITY_API_URL", "http://identity:8081")

	// Artifacts
	cfg.Artifact.Root = getEnvDefault("ARTIFACT_ROOT", "data/artifacts")
	cfg.Artifact.SigningSecret = os.Getenv("URL_SIGNING_SECRET")
	cfg.Artifact.URLTTL = getEnvDurationDefault("SIGNED_URL_TTL", 30*24*time.Hour)

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func getEnvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvFloatDefault(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// validateConfig checks that required settings are present.
func validateConfig(config *Config) error {
	if config.Database.User == "" {
		return fmt.Errorf("DB_USER is not set")
	}
	if config.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is not set")
	}
	if config.Database.Name == "" {
		return fmt.Errorf("DB_NAME is not set")
	}
	if config.Artifact.SigningSecret == "" {
		return fmt.Errorf("URL_SIGNING_SECRET is not set")
	}
	if config.RateLimit.Backend != "postgres" && config.RateLimit.Backend != "redis" {
		return fmt.Errorf("RATE_LIMIT_BACKEND must be postgres or redis")
	}
	if config.RateLimit.Max <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX must be positive")
	}
	return nil
}

// GetDSN returns the database connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// IsDevelopment reports whether the app runs in development mode.
func (c *AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction reports whether the app runs in production mode.
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// GetLogLevel returns the configured level in zap form.
func (c *AppConfig) GetLogLevel() zap.AtomicLevel {
	switch c.LogLevel {
	case "debug":
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
}
