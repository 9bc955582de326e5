package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitNormalize(t *testing.T) {
	c := RateLimitConfig{Capacity: 0, AuthCapacity: 0, RefillTokens: 0, RefillInterval: 0, TTL: time.Second}.normalize()
	assert.Equal(t, 1, c.Capacity)
	assert.Equal(t, 1, c.AuthCapacity)
	assert.Equal(t, 1, c.RefillTokens)
	assert.Equal(t, time.Second, c.RefillInterval)
	assert.Equal(t, 5*time.Second, c.TTL)
}

func TestRateLimitWithCapacity(t *testing.T) {
	base := RateLimitConfig{Capacity: 60, AuthCapacity: 10, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute, Prefix: "rl"}
	auth := base.WithCapacity(base.AuthCapacity, "rl:auth")
	assert.Equal(t, 10, auth.Capacity)
	assert.Equal(t, "rl:auth", auth.Prefix)
	assert.Equal(t, 60, base.Capacity)
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_BOOL", "off")
	t.Setenv("X_INT", "nope")
	t.Setenv("X_DUR", "90s")
	assert.False(t, envBool("X_BOOL", true))
	assert.True(t, envBool("X_MISSING", true))
	assert.Equal(t, 7, envInt("X_INT", 7))
	assert.Equal(t, 90*time.Second, envDur("X_DUR", time.Second))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"http://a", "http://b"}, splitList(" http://a, ,http://b "))
	assert.Nil(t, splitList(""))
}

func TestRedisOptionsHostPortWins(t *testing.T) {
	t.Setenv("REDIS_ADDR", "ignored:1")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "2")
	opts := RedisOptions()
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Nil(t, opts.TLSConfig)
}

func TestLoadCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	c := LoadCacheConfig()
	assert.True(t, c.Methods["GET"])
	assert.True(t, c.Methods["HEAD"])
	assert.False(t, c.Methods["POST"])
}

func TestLoadResetRedirects(t *testing.T) {
	for k, v := range map[string]string{
		"APP_ENV": "test", "APP_PORT": "8080", "DB_USER": "u", "DB_HOST": "db", "DB_PORT": "3306",
		"DB_NAME": "events", "JWT_SECRET": "s", "ACCESS_TOKEN_TTL_MIN": "15",
		"REFRESH_TOKEN_TTL_DAYS": "7", "BCRYPT_COST": "10",
	} {
		t.Setenv(k, v)
	}
	t.Setenv("RESET_REDIRECT_URL", "")
	t.Setenv("RESET_REDIRECT_ALLOWLIST", "https://admin.example.com, https://m.example.com")

	c := Load()
	assert.Equal(t, "http://localhost:3000/reset-password", c.ResetRedirectURL)
	assert.Equal(t, []string{"https://admin.example.com", "https://m.example.com"}, c.ResetRedirectAllow)
}
