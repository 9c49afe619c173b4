package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port             string
	DatabaseURL      string
	RedisURL         string
	APIKey           string
	TelegramBotToken string
	TelegramChatID   string

	BaseCurrency string

	RatesPollSecs     int
	RatesCacheTTLSecs int
	FetchTimeoutSecs  int
	FetchMaxRetries   int

	HistoryMax   int
	FavoritesMax int
	AuditMax     int
}

func Load() *Config {
	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		APIKey:           os.Getenv("API_KEY"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
	}

	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set, notifications disabled")
	}
	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set, rate history disabled")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}

	cfg.Port = strings.TrimSpace(os.Getenv("PORT"))
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	cfg.BaseCurrency = strings.ToUpper(strings.TrimSpace(os.Getenv("BASE_CURRENCY")))
	if cfg.BaseCurrency == "" {
		cfg.BaseCurrency = "USD"
	}

	cfg.RatesPollSecs = intEnv("RATES_POLL_SECS", 60)
	cfg.RatesCacheTTLSecs = intEnv("RATES_CACHE_TTL_SECS", 90)
	cfg.FetchTimeoutSecs = intEnv("FETCH_TIMEOUT_SECS", 30)
	cfg.FetchMaxRetries = intEnv("FETCH_MAX_RETRIES", 3)

	cfg.HistoryMax = intEnv("HISTORY_MAX", 50)
	cfg.FavoritesMax = intEnv("FAVORITES_MAX", 20)
	cfg.AuditMax = intEnv("AUDIT_MAX", 100)

	return cfg
}

func intEnv(name string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Printf("Warning: invalid %s=%q, using %d", name, v, fallback)
	}
	return fallback
}
