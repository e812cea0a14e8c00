package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s3cr3t",
	}))
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, 8, cfg.Auth.MinPasswordLength)
	assert.Equal(t, 5, cfg.Auth.MaxLoginAttempts)
	assert.Equal(t, 2*time.Hour, cfg.Auth.LockDuration)
	assert.Equal(t, "recipe_hub", cfg.Mongo.Database)
	assert.Equal(t, int64(10<<20), cfg.Upload.MaxBytes)
	assert.Equal(t, 40_000_000, cfg.Upload.MaxPixels)
	assert.Empty(t, cfg.Redis.Password)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.False(t, cfg.Admin.Enabled())
	assert.False(t, cfg.Mail.Enabled())
}

func TestLoadWith_RequiresJWTSecret(t *testing.T) {
	_, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadWith_Overrides(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":        "s3cr3t",
		"ENV":               "production",
		"AUTH_TOKEN_TTL":    "168h",
		"AUTH_MAX_ATTEMPTS": "0",
		"CORS_ORIGINS":      "https://a.example,https://b.example",
		"ADMIN_USERNAME":    "admin",
		"ADMIN_EMAIL":       "admin@example.com",
		"ADMIN_PASSWORD":    "changeme1",
	}))
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 0, cfg.Auth.MaxLoginAttempts)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.True(t, cfg.Admin.Enabled())
}

func TestLoadWith_RejectsBadBcryptCost(t *testing.T) {
	_, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":       "s3cr3t",
		"AUTH_BCRYPT_COST": "99",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_BCRYPT_COST")
}

func TestLoadWith_TrustedProxies(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":      "s3cr3t",
		"TRUSTED_PROXIES": "10.0.0.0/8,192.0.2.10",
	}))
	require.NoError(t, err)

	nets, err := cfg.ProxyNets()
	require.NoError(t, err)
	require.Len(t, nets, 2)
	assert.Equal(t, "10.0.0.0/8", nets[0].String())
	assert.Equal(t, "192.0.2.10/32", nets[1].String())

	_, err = LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":      "s3cr3t",
		"TRUSTED_PROXIES": "not-a-network",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRUSTED_PROXIES")
}
