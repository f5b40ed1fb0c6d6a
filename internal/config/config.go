// internal/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds process-level settings read from the environment. Per-company
// send policy lives in Policy and is passed into component calls explicitly.
type Config struct {
	Port      string
	AMQPURL   string
	RedisAddr string
	RedisDB   int

	// ProviderLimits maps provider name to its daily send ceiling,
	// parsed from PROVIDER_LIMITS ("primary:2000,backup:500").
	ProviderLimits map[string]int
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg := Config{
		Port:           getenv("PORT", "8080"),
		AMQPURL:        os.Getenv("AMQP_URL"),
		RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
		RedisDB:        getenvInt("REDIS_DB", 0),
		ProviderLimits: parseProviderLimits(getenv("PROVIDER_LIMITS", "primary:2000,backup:500")),
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func parseProviderLimits(raw string) map[string]int {
	limits := map[string]int{}
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			continue
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil || n <= 0 {
			continue
		}
		limits[parts[0]] = n
	}
	return limits
}
