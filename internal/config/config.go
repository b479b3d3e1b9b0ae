package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string

	StripeSecretKey string
	JWTSecret       string

	// MinBilledSeconds is the minimum-duration billing policy threshold.
	// A checkout shorter than this is billed as if it lasted this long.
	// Zero disables the policy.
	MinBilledSeconds int
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:           os.Getenv("DB_HOST"),
		DBUser:           os.Getenv("DB_USER"),
		DBPassword:       os.Getenv("DB_PASSWORD"),
		DBName:           os.Getenv("DB_NAME"),
		DBPort:           os.Getenv("DB_PORT"),
		AppPort:          os.Getenv("APP_PORT"),
		AppEnv:           os.Getenv("APP_ENV"),
		StripeSecretKey:  os.Getenv("STRIPE_SECRET_KEY"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		MinBilledSeconds: envInt("MIN_BILLED_SECONDS", 900),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return n
}
