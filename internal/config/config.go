package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cstats-bot/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	ArenaBaseURL string
	GateBaseURL  string

	StoreDriver   string
	DataDir       string
	DBPath        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	HTTPPort        string
	TelegramToken   string
	TelegramWorkers int
	CommandPrefix   string

	LLMURL         string
	LLMAPIKey      string
	LLMModel       string
	LLMPersonaFile string

	Timezone      string
	LogLevel      string
	RetryAttempts int
	RetryDelay    time.Duration
	APITimeout    time.Duration
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	dataDir := getEnv("DATA_DIR", "data")

	cfg := &Config{
		ArenaBaseURL:    strings.TrimRight(getEnv("ARENA_BASE_URL", constants.DefaultArenaBaseURL), "/"),
		GateBaseURL:     strings.TrimRight(getEnv("GATE_BASE_URL", constants.DefaultGateBaseURL), "/"),
		StoreDriver:     strings.ToLower(getEnv("STORE_DRIVER", "json")),
		DataDir:         dataDir,
		DBPath:          getEnv("DB_PATH", filepath.Join(dataDir, "cstats.db")),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisPrefix:     getEnv("REDIS_PREFIX", "cstats"),
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		TelegramToken:   getEnv("TELEGRAM_BOT_TOKEN", ""),
		CommandPrefix:   getEnv("COMMAND_PREFIX", "/"),
		LLMURL:          getEnv("LLM_URL", ""),
		LLMAPIKey:       getEnv("LLM_API_KEY", ""),
		LLMModel:        getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMPersonaFile:  getEnv("LLM_PERSONA_FILE", ""),
		Timezone:        getEnv("TIMEZONE", "Asia/Shanghai"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		RetryAttempts:   constants.RetryAttempts,
		RetryDelay:      constants.RetryDelay,
		APITimeout:      constants.ExternalAPITimeout,
		TelegramWorkers: constants.TelegramWorkers,
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.TelegramWorkers, err = getEnvInt("TELEGRAM_WORKERS", constants.TelegramWorkers); err != nil {
		return nil, err
	}
	if cfg.RetryAttempts, err = getEnvInt("RETRY_ATTEMPTS", constants.RetryAttempts); err != nil {
		return nil, err
	}
	if cfg.RetryDelay, err = getEnvDuration("RETRY_DELAY", constants.RetryDelay); err != nil {
		return nil, err
	}
	if cfg.APITimeout, err = getEnvDuration("API_TIMEOUT", constants.ExternalAPITimeout); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger.Info().
		Str("arena_base_url", cfg.ArenaBaseURL).
		Str("gate_base_url", cfg.GateBaseURL).
		Str("store_driver", cfg.StoreDriver).
		Str("http_port", cfg.HTTPPort).
		Bool("telegram", cfg.TelegramToken != "").
		Bool("llm", cfg.LLMURL != "").
		Str("log_level", cfg.LogLevel).
		Int("retry_attempts", cfg.RetryAttempts).
		Dur("retry_delay", cfg.RetryDelay).
		Dur("api_timeout", cfg.APITimeout).
		Msg("configuration loaded")

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case "json", "sqlite", "redis":
	default:
		return fmt.Errorf("STORE_DRIVER must be one of json, sqlite, redis: got %q", c.StoreDriver)
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("RETRY_ATTEMPTS must be at least 1")
	}
	if c.TelegramWorkers < 1 {
		return fmt.Errorf("TELEGRAM_WORKERS must be at least 1")
	}
	return nil
}

// Location falls back to the host zone when the configured one is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

var Module = fx.Provide(Load)
