package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg := LoadConfig()

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.False(t, cfg.Database.UseSSL)
	assert.Equal(t, "s3cret", cfg.Auth.Secret)
	assert.Equal(t, "HS256", cfg.Auth.Algorithm)
	assert.Equal(t, 30*time.Minute, cfg.Auth.ShortTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.LongTTL)
	assert.Empty(t, cfg.MQ.Backend)
	assert.Empty(t, cfg.Storage.Backend)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_DRIVER", "pgx")
	t.Setenv("DB_USE_SSL", "true")
	t.Setenv("JWT_SECRET", "  padded  ")
	t.Setenv("JWT_ALGORITHM", "HS512")
	t.Setenv("TOKEN_TTL", "15m")
	t.Setenv("TOKEN_REMEMBER_TTL", "not-a-duration")
	t.Setenv("MQ_BACKEND", "rabbitmq")
	t.Setenv("STORAGE_BACKEND", "s3")

	cfg := LoadConfig()

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, DriverPgx, cfg.Database.Driver)
	assert.True(t, cfg.Database.UseSSL)
	assert.Equal(t, "padded", cfg.Auth.Secret)
	assert.Equal(t, "HS512", cfg.Auth.Algorithm)
	assert.Equal(t, 15*time.Minute, cfg.Auth.ShortTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.LongTTL, "invalid duration falls back to default")
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := Config{
		Database: DatabaseConfig{Driver: DriverPostgres},
		Auth:     AuthConfig{Secret: "x", ShortTTL: time.Minute, LongTTL: time.Hour},
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid"},
		{name: "missing secret", mutate: func(c *Config) { c.Auth.Secret = "" }, wantErr: "JWT_SECRET is required"},
		{name: "zero ttl", mutate: func(c *Config) { c.Auth.ShortTTL = 0 }, wantErr: "token lifetimes"},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: "DB_DRIVER"},
		{name: "unknown mq", mutate: func(c *Config) { c.MQ.Backend = "kafka" }, wantErr: "MQ_BACKEND"},
		{name: "unknown storage", mutate: func(c *Config) { c.Storage.Backend = "ftp" }, wantErr: "STORAGE_BACKEND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
