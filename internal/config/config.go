// Package config holds the environment-driven configuration for both binaries
// and the tuning constants shared by the coordinator.
package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Client configures the chat client binary.
type Client struct {
	// APIURL is the base URL of the backend REST API.
	APIURL string `env:"PAIRCHAT_API_URL" envDefault:"http://localhost:8000/api"`
	// RealtimeURL is the websocket endpoint delivering room events.
	RealtimeURL string `env:"PAIRCHAT_WS_URL" envDefault:"ws://localhost:8000/api/realtime"`
	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `env:"PAIRCHAT_LOG_LEVEL" envDefault:"info"`
	// LogPretty switches the logger to human-readable console output.
	LogPretty bool `env:"PAIRCHAT_LOG_PRETTY" envDefault:"true"`
}

// DevServer configures the development backend.
type DevServer struct {
	Addr string `env:"DEVSERVER_ADDR" envDefault:":8000"`
	// PostgresDSN is the gorm/postgres connection string.
	PostgresDSN string `env:"DEVSERVER_POSTGRES_DSN" envDefault:"host=localhost user=user password=password dbname=pairchat port=5432 sslmode=disable"`
	RedisAddr   string `env:"DEVSERVER_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB     int    `env:"DEVSERVER_REDIS_DB" envDefault:"0"`
	// JWTSecret signs session tokens.
	JWTSecret string `env:"DEVSERVER_JWT_SECRET" envDefault:"dev-only-secret"`
	LogLevel  string `env:"DEVSERVER_LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"DEVSERVER_LOG_PRETTY" envDefault:"true"`
}

// LoadClient reads the client configuration from the environment, loading a
// .env file first when one is present.
func LoadClient() (Client, error) {
	_ = godotenv.Load()
	var cfg Client
	err := env.Parse(&cfg)
	return cfg, err
}

// LoadDevServer reads the devserver configuration from the environment.
func LoadDevServer() (DevServer, error) {
	_ = godotenv.Load()
	var cfg DevServer
	err := env.Parse(&cfg)
	return cfg, err
}
