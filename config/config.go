// Package config loads the server configuration from an optional YAML
// file, an optional .env file and environment variables, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/warp/carebalance/schedule"
)

// Config represents the overall application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Balance  BalanceConfig  `yaml:"balance"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port                   int      `yaml:"port"`
	AllowedOrigins         []string `yaml:"allowed_origins"`
	RateLimitPerSec        float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst         int      `yaml:"rate_limit_burst"`
	HolidayCacheTTLSeconds int      `yaml:"holiday_cache_ttl_seconds"`
}

// HolidayCacheTTL returns the cache TTL as a duration.
func (s ServerConfig) HolidayCacheTTL() time.Duration {
	return time.Duration(s.HolidayCacheTTLSeconds) * time.Second
}

// DatabaseConfig selects the store.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // sqlite | postgres
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns"`
}

// AuthConfig holds the JWT verification secret.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// BalanceConfig tunes the reconciliation engine.
type BalanceConfig struct {
	FestiveKeyPolicy string `yaml:"festive_key_policy"`
	MaxParallel      int    `yaml:"max_parallel"`
	Timezone         string `yaml:"timezone"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // json | text
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                   8080,
			AllowedOrigins:         []string{"*"},
			RateLimitPerSec:        20,
			RateLimitBurst:         40,
			HolidayCacheTTLSeconds: 600,
		},
		Database: DatabaseConfig{
			Driver:   "sqlite",
			DSN:      "carebalance.db",
			MaxConns: 10,
		},
		Balance: BalanceConfig{
			FestiveKeyPolicy: schedule.DefaultFestiveKeyPolicy.String(),
			MaxParallel:      4,
			Timezone:         "Europe/Madrid",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the YAML file at path (skipped when path is empty), then a .env
// file in the working directory if present, then applies env overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if port := getEnv("APP_PORT", ""); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid APP_PORT: %w", err)
		}
		c.Server.Port = p
	}
	if origins := getEnv("ALLOWED_ORIGINS", ""); origins != "" {
		c.Server.AllowedOrigins = strings.Split(origins, ",")
	}
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_DSN", c.Database.DSN)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Balance.FestiveKeyPolicy = getEnv("FESTIVE_KEY_POLICY", c.Balance.FestiveKeyPolicy)
	c.Balance.Timezone = getEnv("TIMEZONE", c.Balance.Timezone)
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimitPerSec <= 0 {
		c.Server.RateLimitPerSec = 20
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = int(c.Server.RateLimitPerSec) * 2
	}
	if c.Balance.MaxParallel <= 0 {
		c.Balance.MaxParallel = 4
	}
	if c.Balance.Timezone == "" {
		c.Balance.Timezone = "UTC"
	}
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (JWT_SECRET) is required")
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if _, err := schedule.ParseFestiveKeyPolicy(c.Balance.FestiveKeyPolicy); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Balance.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Balance.Timezone, err)
	}
	return nil
}

// Policy returns the parsed festive key policy. Call after Validate.
func (c *Config) Policy() schedule.FestiveKeyPolicy {
	p, _ := schedule.ParseFestiveKeyPolicy(c.Balance.FestiveKeyPolicy)
	return p
}

// Location returns the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Balance.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
