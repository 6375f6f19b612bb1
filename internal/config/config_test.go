package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "surf-forecasts", cfg.KafkaSinkTopic)
	assert.False(t, cfg.KafkaPublishing)
	assert.Equal(t, "./bundles", cfg.BundleDir)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 8.0, cfg.MinPeriodSeconds)
	assert.Equal(t, 2, cfg.SpectralPeakWindow)
	assert.Equal(t, 3, cfg.LookbackDays)
	assert.Equal(t, 120*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 2, cfg.MinSpecialistsRequired)
	assert.Equal(t, 10, cfg.MaxImages)
	assert.Equal(t, 1000, cfg.ScoringCacheSize)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("BUNDLE_DIR", "/data/bundles")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("MIN_PERIOD_SECONDS", "10")
	t.Setenv("LOOKBACK_DAYS", "5")
	t.Setenv("LLM_TIMEOUT", "60s")
	t.Setenv("MIN_SPECIALISTS_REQUIRED", "1")
	t.Setenv("MAX_IMAGES", "6")
	t.Setenv("SCORING_CACHE_SIZE", "500")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.True(t, cfg.KafkaPublishing)
	assert.Equal(t, "/data/bundles", cfg.BundleDir)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 10.0, cfg.MinPeriodSeconds)
	assert.Equal(t, 5, cfg.LookbackDays)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 1, cfg.MinSpecialistsRequired)
	assert.Equal(t, 6, cfg.MaxImages)
	assert.Equal(t, 500, cfg.ScoringCacheSize)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidMaxImages(t *testing.T) {
	t.Setenv("MAX_IMAGES", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_IMAGES")
}

func TestLoad_MinSpecialistsTooLarge(t *testing.T) {
	t.Setenv("MIN_SPECIALISTS_REQUIRED", "3")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MIN_SPECIALISTS_REQUIRED")
}

func TestLoad_InvalidLLMTimeout(t *testing.T) {
	t.Setenv("LLM_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM_TIMEOUT")
}

func TestLoad_InvalidMinPeriod(t *testing.T) {
	t.Setenv("MIN_PERIOD_SECONDS", "bad")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MIN_PERIOD_SECONDS")
}

func TestLoad_KafkaPublishingWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_PUBLISHING", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_KafkaBrokersImplyPublishing(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", defaultBroker)
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.KafkaPublishing)
}

func TestLoad_KafkaPublishingExplicitlyDisabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", defaultBroker)
	t.Setenv("KAFKA_PUBLISHING", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaPublishing)
}
