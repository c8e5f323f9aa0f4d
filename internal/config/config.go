// Package config loads server settings from the environment, with a .env
// file as the local-dev convenience layer.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/cashly-rent-a-car/bingo/internal"
)

type Config struct {
	Port          string
	RedisAddr     string
	RedisDB       int
	AdminPassword string
	PublicURL     string
	StatsEndpoint string

	DisconnectGrace time.Duration
}

// Load reads .env (if present) and the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("[Config] no .env file loaded: %v", err)
	}

	cfg := Config{
		Port:            getenv("PORT", "8080"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		AdminPassword:   getenv("ADMIN_PASSWORD", "8533"),
		PublicURL:       getenv("PUBLIC_URL", "http://localhost:8080"),
		DisconnectGrace: internal.DisconnectGrace,
	}

	if raw := os.Getenv("REDIS_DB"); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil {
			log.Printf("[Config] invalid REDIS_DB %q, using 0", raw)
		} else {
			cfg.RedisDB = db
		}
	}

	if raw := os.Getenv("DISCONNECT_GRACE"); raw != "" {
		grace, err := time.ParseDuration(raw)
		if err != nil {
			log.Printf("[Config] invalid DISCONNECT_GRACE %q, using %s", raw, cfg.DisconnectGrace)
		} else {
			cfg.DisconnectGrace = grace
		}
	}

	cfg.StatsEndpoint = getenv("STATS_ENDPOINT", "http://localhost:"+cfg.Port+"/admin/report")

	return cfg
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
