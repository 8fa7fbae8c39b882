package config

import (
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

type Config struct {
	Addr          string
	DBDriver      string // "pgx" or "sqlite3"
	DBDSN         string
	EncryptionKey []byte // exactly 32 bytes
	JWTSecret     string
	TokenTTL      time.Duration
	RedisAddr     string // empty disables the relay
	CorsOptions   cors.Options
}

// Load reads .env (if present) and the process environment.
// It fails rather than guess when a secret is missing or malformed:
// a padded or truncated encryption key must never reach the codec.
func Load() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no", envFile, "file found, using process environment")
	}

	keyB64 := os.Getenv("ENCRYPTION_KEY")
	if keyB64 == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is not set")
	}
	key, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}

	ttl := 24 * time.Hour
	if raw := os.Getenv("TOKEN_TTL"); raw != "" {
		ttl, err = time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("TOKEN_TTL is not a valid duration: %w", err)
		}
	}

	cfg := &Config{
		Addr:          getEnv("ADDR", ":8080"),
		DBDriver:      getEnv("DB_DRIVER", "pgx"),
		DBDSN:         getEnv("DB_DSN", ""),
		EncryptionKey: key,
		JWTSecret:     secret,
		TokenTTL:      ttl,
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		CorsOptions:   corsOptions(),
	}
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is not set")
	}
	if cfg.DBDriver != "pgx" && cfg.DBDriver != "sqlite3" {
		return nil, fmt.Errorf("DB_DRIVER must be pgx or sqlite3, got %q", cfg.DBDriver)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func corsOptions() cors.Options {
	origins := []string{"http://localhost:5173"}
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		origins = strings.Split(raw, ",")
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}
}
