package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	LogLevel     string
	StateDBPath  string
	LookbackDays int

	// Client-side throttling of bank API calls.
	APIRateEvery time.Duration
	APIBurst     int

	// Circuit breaker settings for the bank API client.
	BreakerMaxRequests uint32
	BreakerInterval    time.Duration
	BreakerTimeout     time.Duration

	// How long a fetched accounts response may be served from cache.
	AccountsCacheTTL time.Duration
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	lookbackDaysStr := getEnv("SCRAPE_LOOKBACK_DAYS", "31")
	lookbackDays, err := strconv.Atoi(lookbackDaysStr)
	if err != nil || lookbackDays <= 0 {
		log.Printf("WARNING: Invalid SCRAPE_LOOKBACK_DAYS '%s'. Using default 31. Error: %v", lookbackDaysStr, err)
		lookbackDays = 31
	}

	Cfg = &AppConfig{
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		StateDBPath:  getEnv("STATE_DB_PATH", "./connector-state.db"),
		LookbackDays: lookbackDays,

		APIRateEvery: getEnvAsDuration("API_RATE_EVERY", 100*time.Millisecond),
		APIBurst:     getEnvAsInt("API_BURST", 10),

		BreakerMaxRequests: uint32(getEnvAsInt("API_BREAKER_MAX_REQUESTS", 3)),
		BreakerInterval:    getEnvAsDuration("API_BREAKER_INTERVAL", 60*time.Second),
		BreakerTimeout:     getEnvAsDuration("API_BREAKER_TIMEOUT", 30*time.Second),

		AccountsCacheTTL: getEnvAsDuration("ACCOUNTS_CACHE_TTL", 5*time.Minute),
	}

	log.Printf("Configuration loaded: LogLevel=%s, StateDBPath=%s, LookbackDays=%d",
		Cfg.LogLevel, Cfg.StateDBPath, Cfg.LookbackDays)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Integer value for %s not set or empty, using default: %d", key, fallback)
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Duration value for %s not set or empty, using default: %s", key, fallback.String())
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
