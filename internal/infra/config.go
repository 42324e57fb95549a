package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultLightXBaseURL     = "https://api.lightxeditor.com/external/api"
	DefaultMaxUploadBytes    = 5 * 1024 * 1024
	DefaultMaxDownloadBytes  = 64 * 1024 * 1024
	DefaultPollMaxAttempts   = 5
	DefaultPollIntervalSecs  = 3
	DefaultRequestTimeoutSec = 60
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	LightXAPIKey     string
	LightXBaseURL    string
	MaxUploadBytes   int64
	MaxDownloadBytes int64
	PollMaxAttempts  int
	PollInterval     time.Duration
	RequestTimeout   time.Duration
	DatabaseURL      string
	DatabaseMaxConns int
	StoragePath      string
	BatchConcurrency int
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	CORSOrigins      []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
// Optional dotenv files are read first; variables already present in the environment win.
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		file = strings.TrimSpace(file)
		if file == "" {
			continue
		}
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load env file %s: %w", file, err)
		}
	}

	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		LightXAPIKey:     strings.TrimSpace(os.Getenv("LIGHTX_API_KEY")),
		LightXBaseURL:    strings.TrimRight(getEnv("LIGHTX_BASE_URL", DefaultLightXBaseURL), "/"),
		MaxUploadBytes:   getEnvInt64("LIGHTX_MAX_UPLOAD_BYTES", DefaultMaxUploadBytes),
		MaxDownloadBytes: getEnvInt64("LIGHTX_MAX_DOWNLOAD_BYTES", DefaultMaxDownloadBytes),
		PollMaxAttempts:  getEnvInt("LIGHTX_POLL_MAX_ATTEMPTS", DefaultPollMaxAttempts),
		PollInterval:     time.Second * time.Duration(getEnvInt("LIGHTX_POLL_INTERVAL_SECONDS", DefaultPollIntervalSecs)),
		RequestTimeout:   time.Second * time.Duration(getEnvInt("LIGHTX_REQUEST_TIMEOUT_SECONDS", DefaultRequestTimeoutSec)),
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DatabaseMaxConns: getEnvInt("DATABASE_MAX_CONNS", 10),
		StoragePath:      getEnv("STORAGE_PATH", "./storage"),
		BatchConcurrency: getEnvInt("BATCH_CONCURRENCY", 4),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSOrigins:      getEnvList("CORS_ALLOWED_ORIGINS"),
	}

	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("LIGHTX_MAX_UPLOAD_BYTES must be positive")
	}
	if cfg.MaxDownloadBytes <= 0 {
		return nil, fmt.Errorf("LIGHTX_MAX_DOWNLOAD_BYTES must be positive")
	}
	if cfg.PollMaxAttempts <= 0 {
		return nil, fmt.Errorf("LIGHTX_POLL_MAX_ATTEMPTS must be positive")
	}
	if cfg.PollInterval < 0 {
		return nil, fmt.Errorf("LIGHTX_POLL_INTERVAL_SECONDS must not be negative")
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 1
	}

	return cfg, nil
}

// RequireAPIKey reports a configuration error when no LightX credential is set.
func (c *Config) RequireAPIKey() error {
	if c == nil || c.LightXAPIKey == "" {
		return fmt.Errorf("LIGHTX_API_KEY is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
