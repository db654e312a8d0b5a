package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	StoreBackend      string
	DBHost            string
	DBPort            int
	DBName            string
	DBUser            string
	DBPass            string
	DBConnectAttempts int

	RedisAddr string
	ReportTTL time.Duration

	SweepInterval     time.Duration
	SweepWorkers      int
	FetchTimeout      time.Duration
	FetchHostInterval time.Duration

	CORSAllowOrigins []string

	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:              getenv("PORT", "8080"),
		StoreBackend:      strings.ToLower(getenv("STORE_BACKEND", "postgres")),
		DBHost:            getenv("DB_HOST", "localhost"),
		DBPort:            parseIntEnv("DB_PORT", 5432),
		DBName:            getenv("DB_NAME", "news_db"),
		DBUser:            getenv("DB_USER", "news_user"),
		DBPass:            getenv("DB_PASS", "changeme"),
		DBConnectAttempts: parseIntEnv("DB_CONNECT_ATTEMPTS", 10),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		ReportTTL:         parseDurationEnv("REPORT_TTL", 48*time.Hour),
		SweepInterval:     parseDurationEnv("SWEEP_INTERVAL", 60*time.Minute),
		SweepWorkers:      parseIntEnv("SWEEP_WORKERS", 4),
		FetchTimeout:      parseDurationEnv("FETCH_TIMEOUT", 0),
		FetchHostInterval: parseDurationEnv("FETCH_HOST_INTERVAL", 0),
		CORSAllowOrigins:  splitList(getenv("CORS_ALLOW_ORIGINS", "*")),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		LogFormat:         getenv("LOG_FORMAT", "text"),
	}
}

// PostgresURL builds the lib/pq connection string.
func (c Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName,
	)
}

func (c Config) Validate() error {
	if c.StoreBackend != "postgres" && c.StoreBackend != "memory" {
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.StoreBackend)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be > 0, got %s", c.SweepInterval)
	}
	if c.SweepWorkers <= 0 {
		return fmt.Errorf("SWEEP_WORKERS must be > 0, got %d", c.SweepWorkers)
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("FETCH_TIMEOUT must not be negative")
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseIntEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
