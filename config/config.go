package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Env holds every runtime setting the panel reads from the environment.
// Values come from a .env file when present, otherwise from the process
// environment.
type Env struct {
	AppName string
	AppURL  string
	Port    string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	RedisAddr string
	RedisPass string
	RedisDB   int

	// External gateway API. Both are mandatory.
	APIBaseURL string
	APIKey     string

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	SessionLifetime   time.Duration
	MaxLoginAttempts  int
	LoginLockoutTime  time.Duration
	TrustedProxies    []string
	LogFile           string
}

func LoadEnv() (*Env, error) {
	// Missing .env is fine in containerized deployments where the
	// environment is injected directly.
	_ = godotenv.Load()

	env := &Env{
		AppName: getString("APP_NAME", "evopanel"),
		AppURL:  getString("APP_URL", "http://localhost:3000"),
		Port:    getString("PORT", "3000"),

		DBHost:     getString("DB_HOST", "localhost"),
		DBUser:     getString("DB_USER", "postgres"),
		DBPassword: getString("DB_PASS", ""),
		DBName:     getString("DB_NAME", "evopanel"),
		DBPort:     getString("DB_PORT", "5432"),

		RedisAddr: getString("REDIS_ADDR", "localhost:6379"),
		RedisPass: getString("REDIS_PASS", ""),
		RedisDB:   getInt("REDIS_DB", 0),

		APIBaseURL: getString("BASE_URL", ""),
		APIKey:     getString("API_KEY", ""),

		SMTPHost: getString("SMTP_HOST", ""),
		SMTPPort: getString("SMTP_PORT", "587"),
		SMTPUser: getString("SMTP_USER", ""),
		SMTPPass: getString("SMTP_PASS", ""),
		SMTPFrom: getString("SMTP_FROM", ""),

		SessionLifetime:  time.Duration(getInt("SESSION_LIFETIME", 3600)) * time.Second,
		MaxLoginAttempts: getInt("MAX_LOGIN_ATTEMPTS", 5),
		LoginLockoutTime: time.Duration(getInt("LOGIN_LOCKOUT_TIME", 900)) * time.Second,
		LogFile:          getString("LOG_FILE", "logs/app.log"),
	}

	if proxies := getString("TRUSTED_PROXIES", ""); proxies != "" {
		for _, p := range strings.Split(proxies, ",") {
			if p = strings.TrimSpace(p); p != "" {
				env.TrustedProxies = append(env.TrustedProxies, p)
			}
		}
	}

	if env.APIBaseURL == "" || env.APIKey == "" {
		return nil, fmt.Errorf("BASE_URL and API_KEY must be set")
	}

	return env, nil
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
