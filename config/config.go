package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"poker-tournament-system/utils"
)

type Config struct {
	DatabaseURL    string
	Port           string
	LogLevel       string
	LogPretty      bool
	AllowedOrigins []string
	Timer          TimerConfig
	R2             utils.R2Config
}

// TimerConfig tunes the timer engine.
type TimerConfig struct {
	TickInterval     time.Duration
	RefreshInterval  time.Duration
	PersistEvery     int
	GraceSeconds     int
	FailureThreshold int
	RetryCooldown    time.Duration
}

func DefaultTimerConfig() TimerConfig {
	return TimerConfig{
		TickInterval:     time.Second,
		RefreshInterval:  5 * time.Second,
		PersistEvery:     10,
		GraceSeconds:     60,
		FailureThreshold: 5,
		RetryCooldown:    5 * time.Second,
	}
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	def := DefaultTimerConfig()
	cfg := &Config{
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		Port:           getEnv("PORT", "5200"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogPretty:      getBool("LOG_PRETTY", false),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		Timer: TimerConfig{
			TickInterval:     getDuration("TIMER_TICK_INTERVAL", def.TickInterval),
			RefreshInterval:  getDuration("TIMER_REFRESH_INTERVAL", def.RefreshInterval),
			PersistEvery:     getInt("TIMER_PERSIST_EVERY_SECONDS", def.PersistEvery),
			GraceSeconds:     getInt("TIMER_GRACE_SECONDS", def.GraceSeconds),
			FailureThreshold: getInt("TIMER_FAILURE_THRESHOLD", def.FailureThreshold),
			RetryCooldown:    getDuration("TIMER_RETRY_COOLDOWN", def.RetryCooldown),
		},
		R2: utils.R2Config{
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			AccessKeySecret: getEnv("R2_ACCESS_KEY_SECRET", ""),
			Bucket:          getEnv("R2_BUCKET_NAME", ""),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
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
