package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultSessionSecret = "defaultsecret"

type Config struct {
	APIPort  string
	AppEnv   string
	LogLevel string

	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBSslMode      string
	DBConnStr      string
	DBMaxOpenConns int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionSecret     []byte
	SessionMaxAge     time.Duration
	SessionCookieName string

	CacheTTL time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	LoginRatePerMinute int
	LoginRateBurst     int

	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// IsProduction reports whether cookies must be marked Secure.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:  getEnv("API_PORT", "8080"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "user"),
		DBPassword:     getEnv("DB_PASSWORD", "password"),
		DBName:         getEnv("DB_NAME", "codebattle"),
		DBSslMode:      getEnv("DB_SSLMODE", "disable"),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		SessionSecret:     []byte(getEnv("SESSION_SECRET", defaultSessionSecret)),
		SessionMaxAge:     time.Duration(getEnvAsInt("SESSION_MAX_AGE_HOURS", 24*7)) * time.Hour,
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "session"),

		CacheTTL: time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 30)) * time.Second,

		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "codebattle-events"),

		LoginRatePerMinute: getEnvAsInt("LOGIN_RATE_PER_MINUTE", 10),
		LoginRateBurst:     getEnvAsInt("LOGIN_RATE_BURST", 5),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),
	}

	if url := getEnv("DATABASE_URL", ""); url != "" {
		cfg.DBConnStr = url
	} else {
		cfg.DBConnStr = "host=" + cfg.DBHost +
			" port=" + cfg.DBPort +
			" user=" + cfg.DBUser +
			" password=" + cfg.DBPassword +
			" dbname=" + cfg.DBName +
			" sslmode=" + cfg.DBSslMode
	}

	if cfg.IsProduction() && string(cfg.SessionSecret) == defaultSessionSecret {
		return nil, errors.New("SESSION_SECRET must be set in production")
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
