package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from .env and the environment
type Config struct {
	Env         string
	Port        string
	DatabaseURL string
	AutoMigrate bool

	JWTSecret   string
	TokenExpiry time.Duration

	LogLevel  string
	LogFormat string

	CORSAllowedOrigins []string
}

// Load reads the optional .env file and then the process environment.
// JWT_SECRET and a database location are required.
func Load() (*Config, error) {
	// A missing .env is fine, system environment variables are used instead.
	_ = godotenv.Load()

	cfg := &Config{
		Env:                getEnvWithDefault("ENV", "development"),
		Port:               getEnvWithDefault("PORT", "8080"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		LogLevel:           getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat:          getEnvWithDefault("LOG_FORMAT", "json"),
		CORSAllowedOrigins: splitList(getEnvWithDefault("CORS_ALLOWED_ORIGINS", "*")),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is missing")
	}

	minutes, err := strconv.Atoi(getEnvWithDefault("ACCESS_TOKEN_EXPIRE_MINUTES", "10080"))
	if err != nil || minutes <= 0 {
		return nil, fmt.Errorf("invalid ACCESS_TOKEN_EXPIRE_MINUTES %q", os.Getenv("ACCESS_TOKEN_EXPIRE_MINUTES"))
	}
	cfg.TokenExpiry = time.Duration(minutes) * time.Minute

	cfg.AutoMigrate, err = strconv.ParseBool(getEnvWithDefault("DB_AUTOMIGRATE", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_AUTOMIGRATE: %w", err)
	}

	cfg.DatabaseURL, err = databaseURL()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsProduction reports whether ENV is set to production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadDatabaseURL resolves only the database location. It is used by tools
// that do not serve requests and therefore need no JWT secret.
func LoadDatabaseURL() (string, error) {
	_ = godotenv.Load()
	return databaseURL()
}

// databaseURL prefers DATABASE_URL and falls back to the discrete DB_* variables.
func databaseURL() (string, error) {
	if u := os.Getenv("DATABASE_URL"); u != "" {
		return u, nil
	}

	host := os.Getenv("DB_HOST")
	user := os.Getenv("DB_USER")
	pass := os.Getenv("DB_PASS")
	name := os.Getenv("DB_NAME")
	port := os.Getenv("DB_PORT")

	if host == "" || user == "" || pass == "" || name == "" || port == "" {
		return "", errors.New("database env missing: set DATABASE_URL or DB_HOST, DB_USER, DB_PASS, DB_NAME, DB_PORT")
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     host + ":" + port,
		Path:     "/" + name,
		RawQuery: "sslmode=disable",
	}
	return u.String(), nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
