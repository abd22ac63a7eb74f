package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the API reads from the environment at startup.
type Config struct {
	DatabaseDSN string
	AutoMigrate bool
	JWTSecret   string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	ServerPort  string
	GinMode     string
	CORSOrigins []string
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}

	return &Config{
		DatabaseDSN: getEnv("DB_DSN_PRIMARY", "root:root@tcp(127.0.0.1:3306)/storefront?parseTime=true"),
		AutoMigrate: getBool("DB_AUTO_MIGRATE", true),
		JWTSecret:   getEnv("JWT_SECRET", "change-me-in-production"),
		AccessTTL:   getDuration("JWT_ACCESS_TTL", 5*time.Minute),
		RefreshTTL:  getDuration("JWT_REFRESH_TTL", 24*time.Hour),
		ServerPort:  getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: getList("CORS_ORIGINS", []string{"http://localhost:5173"}),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("WARNING: %s=%q is not a boolean, using %v", key, raw, defaultValue)
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("WARNING: %s=%q is not a positive duration, using %s", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func getList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
