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

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.APIBaseURL)
	assert.Empty(t, cfg.APIWSURL)
	assert.Equal(t, 10*time.Second, cfg.APITimeout)
	assert.Equal(t, 5*time.Second, cfg.StreamRetryDelay)
	assert.Equal(t, 24, cfg.SnapshotHours)
	assert.Equal(t, 7, cfg.StatsDays)
	assert.Equal(t, SyntheticAuto, cfg.SyntheticMode)
	assert.Equal(t, 20, cfg.SyntheticHistory)
	assert.Zero(t, cfg.SyntheticSeed)
	assert.Equal(t, 30*time.Second, cfg.GenerateInterval)
	assert.InDelta(t, 0.2, cfg.GenerateProbability, 1e-9)
	assert.Equal(t, []float64{50, 30, 15, 5}, cfg.SeverityWeights)
	assert.Equal(t, 2*time.Second, cfg.SensorInterval)
	assert.Equal(t, 3*time.Second, cfg.ChartInterval)
	assert.Equal(t, 15*time.Minute, cfg.ActiveWindow)
	assert.False(t, cfg.KafkaEnabled)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "microburst-detections", cfg.KafkaTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("API_BASE_URL", "http://detections.local:8000")
	t.Setenv("API_WS_URL", "ws://detections.local:8000/ws/stream")
	t.Setenv("API_TIMEOUT", "3s")
	t.Setenv("STREAM_RETRY_DELAY", "1s")
	t.Setenv("SNAPSHOT_HOURS", "6")
	t.Setenv("STATS_DAYS", "30")
	t.Setenv("SYNTHETIC_MODE", "OFF")
	t.Setenv("SYNTHETIC_HISTORY", "0")
	t.Setenv("SYNTHETIC_SEED", "42")
	t.Setenv("GENERATE_INTERVAL", "10s")
	t.Setenv("GENERATE_PROBABILITY", "1")
	t.Setenv("SEVERITY_WEIGHTS", "1, 1, 1, 1")
	t.Setenv("SENSOR_INTERVAL", "500ms")
	t.Setenv("CHART_INTERVAL", "1s")
	t.Setenv("ACTIVE_WINDOW", "5m")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-detections")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "http://detections.local:8000", cfg.APIBaseURL)
	assert.Equal(t, "ws://detections.local:8000/ws/stream", cfg.APIWSURL)
	assert.Equal(t, 3*time.Second, cfg.APITimeout)
	assert.Equal(t, time.Second, cfg.StreamRetryDelay)
	assert.Equal(t, 6, cfg.SnapshotHours)
	assert.Equal(t, 30, cfg.StatsDays)
	assert.Equal(t, SyntheticOff, cfg.SyntheticMode)
	assert.Equal(t, 0, cfg.SyntheticHistory)
	assert.Equal(t, uint64(42), cfg.SyntheticSeed)
	assert.Equal(t, 10*time.Second, cfg.GenerateInterval)
	assert.InDelta(t, 1.0, cfg.GenerateProbability, 1e-9)
	assert.Equal(t, []float64{1, 1, 1, 1}, cfg.SeverityWeights)
	assert.Equal(t, 500*time.Millisecond, cfg.SensorInterval)
	assert.Equal(t, time.Second, cfg.ChartInterval)
	assert.Equal(t, 5*time.Minute, cfg.ActiveWindow)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-detections", cfg.KafkaTopic)
}

func TestLoad_KafkaEnabledDefaultBroker(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)
}

func TestLoad_KafkaBatchSettings(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("BATCH_SIZE", "10")
	t.Setenv("BATCH_FLUSH_INTERVAL", "2s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.BatchFlushInterval)
}

func TestLoad_InvalidBatchSizeIgnoredWhenKafkaDisabled(t *testing.T) {
	t.Setenv("BATCH_SIZE", "0")

	_, err := Load()
	require.NoError(t, err)

	t.Setenv("KAFKA_ENABLED", "true")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_InvalidAPIURLDoesNotFail(t *testing.T) {
	t.Setenv("API_BASE_URL", "::not a url::")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "::not a url::", cfg.APIBaseURL)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"API_TIMEOUT", "soon"},
		{"STREAM_RETRY_DELAY", "0s"},
		{"GENERATE_INTERVAL", "-1s"},
		{"SENSOR_INTERVAL", "fast"},
		{"CHART_INTERVAL", "0"},
		{"ACTIVE_WINDOW", "-15m"},
		{"SNAPSHOT_HOURS", "0"},
		{"STATS_DAYS", "week"},
		{"SYNTHETIC_HISTORY", "-1"},
		{"SYNTHETIC_SEED", "-5"},
		{"SYNTHETIC_MODE", "sometimes"},
		{"GENERATE_PROBABILITY", "1.5"},
		{"GENERATE_PROBABILITY", "often"},
		{"SEVERITY_WEIGHTS", "50,30,15"},
		{"SEVERITY_WEIGHTS", "50,30,-15,5"},
		{"SEVERITY_WEIGHTS", "0,0,0,0"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
