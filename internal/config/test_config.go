package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadTestConfig loads the configuration from the .env file or environment variables for integration tests
// If TEST_DB_* variables are not set, returns a Config with empty database values
// which allows tests to use fallback DSN values (see TestDSN)
func LoadTestConfig() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist - it's optional)
	_ = godotenv.Load("../../.env")
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.JWT.Secret = stringFromEnv("TEST_JWT_SECRET", "test-secret-key-for-integration-tests")

	dbHost := os.Getenv("TEST_DB_HOST")
	if dbHost == "" {
		return cfg, nil
	}
	cfg.Database.Host = dbHost

	dbPort, err := strconv.Atoi(stringFromEnv("TEST_DB_PORT", "3306"))
	if err != nil {
		return nil, fmt.Errorf("invalid TEST_DB_PORT: %w", err)
	}
	cfg.Database.Port = dbPort

	cfg.Database.User = os.Getenv("TEST_DB_USER")
	cfg.Database.Password = os.Getenv("TEST_DB_PASSWORD")
	cfg.Database.DBName = os.Getenv("TEST_DB_NAME")
	if cfg.Database.User == "" || cfg.Database.DBName == "" {
		return &Config{JWT: cfg.JWT}, nil
	}

	return cfg, nil
}

// TestDSN returns the DSN for integration tests or an empty string when the test database is not configured
func (c *Config) TestDSN() string {
	if c.Database.Host == "" {
		return ""
	}
	return c.DSN()
}
