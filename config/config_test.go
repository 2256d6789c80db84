package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/carebalance/config"
	"github.com/warp/carebalance/schedule"
)

var envKeys = []string{
	"APP_PORT", "ALLOWED_ORIGINS", "DB_DRIVER", "DB_DSN", "JWT_SECRET",
	"LOG_LEVEL", "FESTIVE_KEY_POLICY", "TIMEZONE",
}

// isolate runs the test from an empty directory with none of the
// configuration variables set.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	for _, key := range envKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad_DefaultsWithSecretFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := config.Load("")

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, schedule.HolidayKeyOnGenuineHolidayOnly, cfg.Policy())
	assert.Equal(t, 4, cfg.Balance.MaxParallel)
	assert.Equal(t, 10*time.Minute, cfg.Server.HolidayCacheTTL())
	assert.Equal(t, "Europe/Madrid", cfg.Location().String())
}

func TestLoad_YAMLFile(t *testing.T) {
	// GIVEN: A YAML file overriding several sections
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, `
server:
  port: 9090
  allowed_origins: ["https://care.example.com"]
  rate_limit_per_sec: 5
database:
  driver: postgres
  dsn: postgres://localhost/care
auth:
  jwt_secret: from-file
balance:
  festive_key_policy: any_festive_day
  max_parallel: 8
  timezone: UTC
`)

	// WHEN: Loading it
	cfg, err := config.Load(path)

	// THEN: File values win over defaults
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://care.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 5.0, cfg.Server.RateLimitPerSec)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, schedule.HolidayKeyOnAnyFestiveDay, cfg.Policy())
	assert.Equal(t, 8, cfg.Balance.MaxParallel)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "server:\n  port: 9090\nauth:\n  jwt_secret: from-file\n")
	t.Setenv("APP_PORT", "7070")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := config.Load(path)

	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Len(t, cfg.Server.AllowedOrigins, 2)
}

func TestLoad_DotEnvFile(t *testing.T) {
	// GIVEN: A .env file in the working directory
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".env"), "JWT_SECRET=from-dotenv\nFESTIVE_KEY_POLICY=any_festive_day\n")

	// WHEN: Loading without a config file
	cfg, err := config.Load("")

	// THEN: The .env values are applied
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Auth.JWTSecret)
	assert.Equal(t, schedule.HolidayKeyOnAnyFestiveDay, cfg.Policy())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{}},
		{"bad port", map[string]string{"JWT_SECRET": "x", "APP_PORT": "eighty"}},
		{"unknown driver", map[string]string{"JWT_SECRET": "x", "DB_DRIVER": "mysql"}},
		{"unknown policy", map[string]string{"JWT_SECRET": "x", "FESTIVE_KEY_POLICY": "sometimes"}},
		{"unknown timezone", map[string]string{"JWT_SECRET": "x", "TIMEZONE": "Mars/Olympus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	dir := isolate(t)
	t.Setenv("JWT_SECRET", "x")

	_, err := config.Load(filepath.Join(dir, "nope.yaml"))
	assert.Error(t, err)
}
