// Package config provides configuration for the application
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Mail delivery modes
const (
	MailDeliverySMTP  = "smtp"
	MailDeliveryQueue = "queue"
)

// Product store backends
const (
	ProductStoreMySQL = "mysql"
	ProductStoreMongo = "mongo"
)

// Config holds all configuration for the application
type Config struct {
	Database     DatabaseConfig
	Mongo        MongoConfig
	Redis        RedisConfig
	Server       ServerConfig
	Logging      LoggingConfig
	CORS         CORSConfig
	JWT          JWTConfig
	SMTP         SMTPConfig
	BcryptCost   int
	FrontendURL  string
	BackendURL   string
	MailDelivery string
	ProductStore string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// MongoConfig holds MongoDB settings used when products live in Mongo
type MongoConfig struct {
	URI      string
	Database string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port int
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// JWTConfig holds JWT token configuration
type JWTConfig struct {
	Secret                  string
	AccessTokenExpiry       time.Duration
	VerificationTokenExpiry time.Duration
	ResetTokenExpiry        time.Duration
}

// SMTPConfig holds SMTP server configuration
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	godotenv.Load()

	cfg := &Config{}

	// Database configuration
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		return nil, fmt.Errorf("DB_HOST is required")
	}
	cfg.Database.Host = dbHost

	dbPort, err := intFromEnv("DB_PORT", "3306")
	if err != nil {
		return nil, err
	}
	cfg.Database.Port = dbPort

	dbUser := os.Getenv("DB_USER")
	if dbUser == "" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	cfg.Database.User = dbUser

	cfg.Database.Password = os.Getenv("DB_PASSWORD")

	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		return nil, fmt.Errorf("DB_NAME is required")
	}
	cfg.Database.DBName = dbName

	// Server configuration
	serverPort, err := intFromEnv("SERVER_PORT", "8080")
	if err != nil {
		return nil, err
	}
	cfg.Server.Port = serverPort

	cfg.Logging.Level = stringFromEnv("LOG_LEVEL", "info")

	cfg.CORS.AllowedOrigins = parseOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"))

	// JWT configuration
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	cfg.JWT.Secret = jwtSecret

	if cfg.JWT.AccessTokenExpiry, err = durationFromEnv("JWT_ACCESS_TOKEN_EXPIRY", "24h"); err != nil {
		return nil, err
	}
	if cfg.JWT.VerificationTokenExpiry, err = durationFromEnv("JWT_VERIFICATION_TOKEN_EXPIRY", "24h"); err != nil {
		return nil, err
	}
	if cfg.JWT.ResetTokenExpiry, err = durationFromEnv("JWT_RESET_TOKEN_EXPIRY", "24h"); err != nil {
		return nil, err
	}

	if cfg.BcryptCost, err = intFromEnv("BCRYPT_COST", "12"); err != nil {
		return nil, err
	}

	cfg.FrontendURL = strings.TrimRight(stringFromEnv("FRONTEND_URL", "http://localhost:5173"), "/")
	cfg.BackendURL = strings.TrimRight(stringFromEnv("BACKEND_URL", fmt.Sprintf("http://localhost:%d", cfg.Server.Port)), "/")

	// SMTP configuration
	cfg.SMTP.Host = stringFromEnv("SMTP_HOST", "localhost")
	if cfg.SMTP.Port, err = intFromEnv("SMTP_PORT", "587"); err != nil {
		return nil, err
	}
	cfg.SMTP.Username = os.Getenv("SMTP_USERNAME") // optional
	cfg.SMTP.Password = os.Getenv("SMTP_PASSWORD") // optional
	cfg.SMTP.From = stringFromEnv("SMTP_FROM", cfg.SMTP.Username)
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = "noreply@marketplace.local"
	}

	cfg.MailDelivery = stringFromEnv("MAIL_DELIVERY", MailDeliverySMTP)
	if cfg.MailDelivery != MailDeliverySMTP && cfg.MailDelivery != MailDeliveryQueue {
		return nil, fmt.Errorf("invalid MAIL_DELIVERY: %q", cfg.MailDelivery)
	}

	// Redis configuration (used by the mail queue)
	cfg.Redis.Host = stringFromEnv("REDIS_HOST", "localhost")
	if cfg.Redis.Port, err = intFromEnv("REDIS_PORT", "6379"); err != nil {
		return nil, err
	}
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD") // optional
	if cfg.Redis.DB, err = intFromEnv("REDIS_DB", "0"); err != nil {
		return nil, err
	}

	cfg.ProductStore = stringFromEnv("PRODUCT_STORE", ProductStoreMySQL)
	switch cfg.ProductStore {
	case ProductStoreMySQL:
	case ProductStoreMongo:
		cfg.Mongo.URI = os.Getenv("MONGO_URI")
		if cfg.Mongo.URI == "" {
			return nil, fmt.Errorf("MONGO_URI is required when PRODUCT_STORE=mongo")
		}
		cfg.Mongo.Database = stringFromEnv("MONGO_DB", "marketplace")
	default:
		return nil, fmt.Errorf("invalid PRODUCT_STORE: %q", cfg.ProductStore)
	}

	return cfg, nil
}

// DSN returns the database connection string.
// clientFoundRows makes UPDATE report matched rather than changed rows.
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&clientFoundRows=true",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
	)
}

// RedisAddr returns the Redis address in host:port form
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func stringFromEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func intFromEnv(key, fallback string) (int, error) {
	value, err := strconv.Atoi(stringFromEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func durationFromEnv(key, fallback string) (time.Duration, error) {
	value, err := time.ParseDuration(stringFromEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

// parseOrigins splits a comma-separated origin list, defaulting to all origins
func parseOrigins(raw string) []string {
	origins := make([]string, 0)
	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
