package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"guandan-scorekeeper/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

type Config struct {
	StoreBackend string
	DBPath       string
	DataFile     string
	ServerPort   string
	LogLevel     string
	Retention    time.Duration
	// DebugErrors adds statement shape, cause and stack to error responses.
	DebugErrors bool
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendSQLite)),
		DBPath:       getEnv("DB_PATH", "data/games.db"),
		DataFile:     getEnv("DATA_FILE", "data/data.json"),
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Retention:    constants.RetentionWindow,
	}

	if cfg.StoreBackend != BackendSQLite && cfg.StoreBackend != BackendJSON {
		return nil, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendSQLite, BackendJSON, cfg.StoreBackend)
	}

	if raw := os.Getenv("RETENTION_DAYS"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days <= 0 {
			return nil, fmt.Errorf("RETENTION_DAYS must be a positive integer, got %q", raw)
		}
		cfg.Retention = time.Duration(days) * 24 * time.Hour
	}

	if raw := os.Getenv("DEBUG_ERRORS"); raw != "" {
		debug, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("DEBUG_ERRORS must be a boolean, got %q", raw)
		}
		cfg.DebugErrors = debug
	}

	logger.Info().
		Str("store_backend", cfg.StoreBackend).
		Str("db_path", cfg.DBPath).
		Str("data_file", cfg.DataFile).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Dur("retention", cfg.Retention).
		Bool("debug_errors", cfg.DebugErrors).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
