package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:5000", c.OTPBaseURL)
	assert.Equal(t, 15*time.Second, c.RequestTimeout)
	assert.Equal(t, 30*time.Second, c.HealthCheckInterval)
	assert.Equal(t, "regflow.db", c.LocalDBPath)
	assert.False(t, c.StrictDuplicateCheck)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"otp_base_url":    "https://from-json",
		"request_timeout": "20s",
		"s3_bucket":       "json-bucket",
	})
	t.Setenv("REGFLOW_OTP_BASE_URL", "https://from-env")
	t.Setenv("REGFLOW_S3_REGION", "eu-central-1")

	cfg := LoadConfig([]string{"-c", path, "-u", "https://from-flag"})

	require.NotNil(t, cfg)
	assert.Equal(t, "https://from-flag", cfg.OTPBaseURL)
	assert.Equal(t, 20*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "json-bucket", cfg.S3Bucket)
	assert.Equal(t, "eu-central-1", cfg.S3Region)
}

func TestLoadConfig_NoSources(t *testing.T) {
	cfg := LoadConfig(nil)

	var want Config
	want.LoadDefaults()
	assert.Equal(t, &want, cfg)
}
