// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/ericfisherdev/passworder/internal/domain/crypto"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	DBPath     string
	LogLevel   slog.Level
	KDFWorkers int
	Crypto     crypto.Config
}

// Load reads configuration from environment variables and returns a validated Config.
// Optional variables with defaults: PASSWORDER_LISTEN_ADDR (127.0.0.1:8000),
// PASSWORDER_DB_PATH (passworder.db), PASSWORDER_LOG_LEVEL (info),
// PASSWORDER_KDF_WORKERS (number of CPUs), PASSWORDER_KDF_SALT_SIZE (16),
// PASSWORDER_KDF_ITERATIONS (100000), PASSWORDER_ENCRYPTION_ALGORITHM (AESGCM).
func Load() (*Config, error) {
	listenAddr := "127.0.0.1:8000"
	if v, ok := os.LookupEnv("PASSWORDER_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "passworder.db"
	if v, ok := os.LookupEnv("PASSWORDER_DB_PATH"); ok && v != "" {
		dbPath = v
	}

	logLevel := slog.LevelInfo
	if v, ok := os.LookupEnv("PASSWORDER_LOG_LEVEL"); ok {
		if err := logLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("PASSWORDER_LOG_LEVEL has invalid level %q: %w", v, err)
		}
	}

	workers, err := intEnv("PASSWORDER_KDF_WORKERS", runtime.NumCPU())
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		return nil, fmt.Errorf("PASSWORDER_KDF_WORKERS must be at least 1, got %d", workers)
	}

	cryptoCfg := crypto.DefaultConfig()
	if cryptoCfg.SaltSize, err = intEnv("PASSWORDER_KDF_SALT_SIZE", cryptoCfg.SaltSize); err != nil {
		return nil, err
	}
	if cryptoCfg.Iterations, err = intEnv("PASSWORDER_KDF_ITERATIONS", cryptoCfg.Iterations); err != nil {
		return nil, err
	}
	if v, ok := os.LookupEnv("PASSWORDER_ENCRYPTION_ALGORITHM"); ok {
		cryptoCfg.Algorithm = strings.TrimSpace(v)
	}
	if err := cryptoCfg.Validate(); err != nil {
		return nil, fmt.Errorf("PASSWORDER_KDF_* / PASSWORDER_ENCRYPTION_ALGORITHM: %w", err)
	}

	return &Config{
		ListenAddr: listenAddr,
		DBPath:     dbPath,
		LogLevel:   logLevel,
		KDFWorkers: workers,
		Crypto:     cryptoCfg,
	}, nil
}

func intEnv(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s has invalid integer %q: %w", key, v, err)
	}
	return n, nil
}
