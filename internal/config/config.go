package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config carries everything the server reads from the environment.
type Config struct {
	AppPort     string
	DatabaseURL string // empty → in-memory store
	JWTSecret   string
	// RelayPrivateKey is the workspace relay key (base64, 32 bytes) used to
	// open pending addresses during the reveal handshake. Optional: without
	// it approvals still work, reveals are skipped explicitly.
	RelayPrivateKey string
	LogLevel        string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// Missing .env is fine in production; env vars win either way.
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:         os.Getenv("APP_PORT"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		RelayPrivateKey: os.Getenv("RELAY_PRIVATE_KEY"),
		LogLevel:        os.Getenv("LOG_LEVEL"),
	}
	if cfg.AppPort == "" {
		cfg.AppPort = "8080"
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}
