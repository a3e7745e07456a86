package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 2, cfg.RateLimitRPS)
	assert.Equal(t, 4, cfg.RateLimitBurst)
	assert.Equal(t, "http", cfg.SubmitTransport)
	assert.Equal(t, time.Second, cfg.SampleInterval)
	assert.Equal(t, 10*time.Second, cfg.FixTimeout)
	assert.Equal(t, 48*time.Hour, cfg.LastPositionTTL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SAMPLE_INTERVAL_MS", "250")
	t.Setenv("LOCATION_SOURCE", "gpx")
	t.Setenv("REPLAY_GPX", "drive.gpx")

	cfg := Load()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 250*time.Millisecond, cfg.SampleInterval)
	assert.Equal(t, "gpx", cfg.LocationSource)
	assert.Equal(t, "drive.gpx", cfg.ReplayGPX)
}

func TestLoadIgnoresMalformedInts(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "fast")

	cfg := Load()
	assert.Equal(t, 2, cfg.RateLimitRPS)
}
