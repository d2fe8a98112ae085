// Package config loads runtime configuration from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Store backends selectable via the STORE variable.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env        string
	Port       string
	Store      string
	SQLitePath string
	RedisURL   string
	LogLevel   string
}

// Load reads config from env and an optional .env file. Every field has a
// development-friendly default; only a bad STORE value is an error.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Env:        withDefault(viper.GetString("APP_ENV"), "development"),
		Port:       withDefault(viper.GetString("PORT"), "8080"),
		Store:      strings.ToLower(withDefault(viper.GetString("STORE"), StoreSQLite)),
		SQLitePath: withDefault(viper.GetString("SQLITE_PATH"), "cobranza.db"),
		RedisURL:   withDefault(viper.GetString("REDIS_URL"), "redis://localhost:6379/0"),
		LogLevel:   withDefault(viper.GetString("LOG_LEVEL"), "info"),
	}

	switch cfg.Store {
	case StoreSQLite, StoreRedis, StoreMemory:
	default:
		return nil, fmt.Errorf("unknown STORE %q (want sqlite, redis, or memory)", cfg.Store)
	}
	return cfg, nil
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool { return c.Env == "production" }

func withDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
