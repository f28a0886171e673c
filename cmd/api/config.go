package main

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is read from the environment, with a .env file loaded first when
// present.
type Config struct {
	MongoURI     string `envconfig:"MONGODB_URI" required:"true"`
	JWTSecret    string `envconfig:"JWT_SECRET" required:"true"`
	Port         string `envconfig:"PORT" default:"3008"`
	RateLimitRPM int    `envconfig:"RATE_LIMIT_RPM" default:"10"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
}

func loadConfig() (Config, error) {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return cfg, nil
}

func (c Config) slogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
