package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port       string
	HostSecret string
	Env        string
}

// Load reads configuration from the environment, after a best-effort .env
// load for local development. An empty HostSecret disables host capability
// entirely; the server still runs for players but no session can be created.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:       getEnv("PORT", "8080"),
		HostSecret: getEnv("HOST_SECRET", ""),
		Env:        getEnv("APP_ENV", "development"),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
