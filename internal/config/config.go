package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort    int
	DatabasePath  string
	JWTSecret     string
	TokenLifetime time.Duration
	BcryptCost    int
	Environment   string
	FrontendURL   string
}

// Load loads configuration from the environment (with an optional .env file)
// or sets defaults. The JWT signing secret has no default: the process must
// not start without one.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, err
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, errors.New("JWT_SECRET must be set")
	}

	lifetime, err := time.ParseDuration(getEnv("JWT_EXPIRES_IN", "24h"))
	if err != nil {
		return nil, err
	}

	cost, err := strconv.Atoi(getEnv("BCRYPT_COST", "12"))
	if err != nil {
		return nil, err
	}

	return &Config{
		ServerPort:    port,
		DatabasePath:  getEnv("DATABASE_PATH", "./axio.db"),
		JWTSecret:     secret,
		TokenLifetime: lifetime,
		BcryptCost:    cost,
		Environment:   getEnv("APP_ENV", "development"),
		FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:3001"),
	}, nil
}

// IsDevelopment reports whether the process runs in a development environment.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
