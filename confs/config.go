package confs

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultPort       = "8080"
	defaultSessionTTL = 24 * time.Hour
)

// Config holds every setting the server reads from the environment.
type Config struct {
	Port string

	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	SessionSecret       []byte
	SessionSecretRandom bool
	SessionTTL          time.Duration
	SessionCookieSecure bool

	BcryptCost int

	LogLevel  string
	LogFormat string
	GinMode   string

	AllowedOrigins []string
}

// LoadConfig loads environment variables from a .env file if present
// and builds a Config from them.
func LoadConfig() (*Config, error) {
	// Load .env if it exists; ignore error if file not found
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Warn("could not load .env", "err", err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config using getenv for lookups.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Port:        valueOr(getenv("PORT"), defaultPort),
		DatabaseURL: getenv("DB_URL"),
		DBHost:      getenv("DB_HOST"),
		DBPort:      getenv("DB_PORT"),
		DBUser:      getenv("DB_USER"),
		DBPassword:  getenv("DB_PASSWORD"),
		DBName:      getenv("DB_NAME"),
		SessionTTL:  defaultSessionTTL,
		BcryptCost:  bcrypt.DefaultCost,
		LogLevel:    valueOr(getenv("LOG_LEVEL"), "info"),
		LogFormat:   valueOr(getenv("LOG_FORMAT"), "text"),
		GinMode:     getenv("GIN_MODE"),
	}

	if secret := getenv("SESSION_SECRET"); secret != "" {
		cfg.SessionSecret = []byte(secret)
	} else {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		cfg.SessionSecret = []byte(hex.EncodeToString(b))
		cfg.SessionSecretRandom = true
	}

	if v := getenv("SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			return nil, fmt.Errorf("invalid SESSION_TTL %q", v)
		}
		cfg.SessionTTL = ttl
	}

	if v := getenv("SESSION_COOKIE_SECURE"); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_COOKIE_SECURE %q", v)
		}
		cfg.SessionCookieSecure = secure
	}

	if v := getenv("BCRYPT_COST"); v != "" {
		cost, err := strconv.Atoi(v)
		if err != nil || cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			return nil, fmt.Errorf("invalid BCRYPT_COST %q", v)
		}
		cfg.BcryptCost = cost
	}

	for _, origin := range strings.Split(getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	return cfg, nil
}

// DSN returns the Postgres connection string. DB_URL wins over the
// individual DB_* parameters.
func (c *Config) DSN() (string, error) {
	if c.DatabaseURL != "" {
		dsn := c.DatabaseURL
		if !strings.Contains(dsn, "sslmode=") {
			if strings.Contains(dsn, "?") {
				dsn += "&sslmode=require"
			} else {
				dsn += "?sslmode=require"
			}
		}
		return dsn, nil
	}

	if c.DBHost == "" || c.DBPort == "" || c.DBUser == "" || c.DBPassword == "" || c.DBName == "" {
		return "", fmt.Errorf("missing required database configuration: DB_URL or (DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME)")
	}

	sslMode := "require"
	if c.DBHost == "localhost" || c.DBHost == "127.0.0.1" {
		sslMode = "disable"
	}

	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, sslMode), nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
