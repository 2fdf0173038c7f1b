package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "UTC")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.App.Environment)
	assert.Equal(t, DriverBolt, cfg.Store.Driver)
	assert.Equal(t, "athlete-hub.db", cfg.Store.Path)
	assert.Equal(t, 52, cfg.Session.MaxOccurrences)
	assert.Equal(t, 60*time.Minute, cfg.Session.DefaultDuration)
	assert.Equal(t, 100, cfg.Sync.BatchSize)
	assert.Equal(t, 5*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, time.UTC, cfg.App.Location)
	assert.True(t, cfg.Features.AutoActivities)
	assert.False(t, cfg.SyncEnabled())
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("STORE_PATH", "/tmp/hub.sqlite")
	t.Setenv("SESSION_MAX_OCCURRENCES", "10")
	t.Setenv("SESSION_DEFAULT_DURATION", "90m")
	t.Setenv("SYNC_DATABASE_URL", "postgres://hub@localhost/hub")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/hub.sqlite", cfg.Store.Path)
	assert.Equal(t, 10, cfg.Session.MaxOccurrences)
	assert.Equal(t, 90*time.Minute, cfg.Session.DefaultDuration)
	assert.True(t, cfg.SyncEnabled())
	assert.Equal(t, "cache:6380", cfg.RedisAddr())
}

func TestFromEnvUnknownTimezoneFallsBack(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "Nowhere/Special")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, time.Local, cfg.App.Location)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Store.Driver = "floppy" },
			wantErr: "STORE_DRIVER",
		},
		{
			name:    "bolt without path",
			mutate:  func(c *Config) { c.Store.Path = " " },
			wantErr: "STORE_PATH",
		},
		{
			name: "memory in production",
			mutate: func(c *Config) {
				c.App.Environment = EnvProduction
				c.Store.Driver = DriverMemory
			},
			wantErr: "not allowed in production",
		},
		{
			name:    "zero occurrences",
			mutate:  func(c *Config) { c.Session.MaxOccurrences = 0 },
			wantErr: "SESSION_MAX_OCCURRENCES",
		},
		{
			name:    "sub-second sync interval",
			mutate:  func(c *Config) { c.Sync.Interval = 10 * time.Millisecond },
			wantErr: "SYNC_INTERVAL",
		},
		{
			name:    "zero batch",
			mutate:  func(c *Config) { c.Sync.BatchSize = 0 },
			wantErr: "SYNC_BATCH_SIZE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	assert.NoError(t, validConfig().Validate())
}

func validConfig() *Config {
	return &Config{
		App:     AppConfig{Environment: EnvDevelopment},
		Store:   StoreConfig{Driver: DriverBolt, Path: "hub.db"},
		Sync:    SyncConfig{BatchSize: 10, Interval: time.Minute},
		Session: SessionConfig{MaxOccurrences: 52, DefaultDuration: time.Hour},
	}
}
