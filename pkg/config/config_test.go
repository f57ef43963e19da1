package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, "builtin", c.Ephemeris.Provider)
	assert.Equal(t, 12, c.Engine.ScanHour)
	loc, err := c.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	p := writeConfig(t, `
environment: production
engine:
  bodies: [Sun, Moon, Mars]
  timezone: Europe/Berlin
  track_ended: true
  natal_aspects:
    - {name: Conjunction, angle: 0, orb: 10}
ephemeris:
  provider: http
  url: http://swe:8000
  timeout: 3s
`)
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, []string{"Sun", "Moon", "Mars"}, c.Engine.Bodies)
	assert.True(t, c.Engine.TrackEnded)
	assert.Equal(t, 3*time.Second, c.Ephemeris.Timeout)
	assert.Equal(t, 12, c.Engine.ScanHour)
	require.Len(t, c.Engine.NatalAspects, 1)
	assert.Equal(t, 10.0, c.Engine.NatalAspects[0].Orb)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"http without url":  "ephemeris: {provider: http}",
		"unknown provider":  "ephemeris: {provider: swiss}",
		"bad timezone":      "engine: {timezone: Mars/Olympus}",
		"bad scan hour":     "engine: {scan_hour: 25}",
		"bad aspect":        "engine: {natal_aspects: [{name: X, angle: 200, orb: 1}]}",
		"kafka w/o brokers": "kafka: {enabled: true, brokers: []}",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("EPHEMERIS_PROVIDER", "http")
	t.Setenv("EPHEMERIS_URL", "http://localhost:9999")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("REDIS_HOST", "cache:6380")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TRACKED_BODIES", "Sun,Moon")
	t.Setenv("TZ_NAME", "America/New_York")

	c, err := LoadWithEnv("")
	require.NoError(t, err)
	assert.Equal(t, "http", c.Ephemeris.Provider)
	assert.Equal(t, "http://localhost:9999", c.Ephemeris.URL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, "cache", c.Cache.Redis.Host)
	assert.Equal(t, 6380, c.Cache.Redis.Port)
	assert.True(t, c.Cache.Redis.Enabled)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, []string{"Sun", "Moon"}, c.Engine.Bodies)
	assert.Equal(t, "America/New_York", c.Engine.Timezone)
}
