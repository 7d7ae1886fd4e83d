package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/jmettler27/Pop-sub001/pkg/store"
	"github.com/joho/godotenv"
)

// Backends de almacenamiento soportados
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config configuración del servidor
type Config struct {
	HTTPAddr      string
	StoreBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DatabaseURL   string
	TxnMaxRetries int
	PublicURL     string
	SeedFile      string // partida JSON que se precarga al arrancar
	LogLevel      slog.Level
}

// Load lee un .env opcional y después las variables de entorno.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv()
}

// FromEnv construye la configuración solo con variables de entorno.
func FromEnv() (*Config, error) {
	cfg := &Config{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", BackendRedis)),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		PublicURL:     strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:8080"), "/"),
		SeedFile:      getEnv("SEED_FILE", ""),
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.TxnMaxRetries, err = getEnvInt("TXN_MAX_RETRIES", store.DefaultMaxRetries); err != nil {
		return nil, err
	}
	if cfg.TxnMaxRetries < 1 {
		return nil, fmt.Errorf("TXN_MAX_RETRIES must be at least 1, got %d", cfg.TxnMaxRetries)
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	switch cfg.StoreBackend {
	case BackendRedis, BackendMemory:
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres backend")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}
