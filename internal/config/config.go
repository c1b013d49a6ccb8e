package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// SyntheticMode selects when the synthetic generator feeds the store.
type SyntheticMode string

const (
	// SyntheticAuto generates detections only when no healthy detection API
	// is available at startup.
	SyntheticAuto SyntheticMode = "auto"
	SyntheticOn   SyntheticMode = "on"
	SyntheticOff  SyntheticMode = "off"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Remote detection API. An empty base URL means no peer is configured.
	APIBaseURL       string
	APIWSURL         string
	APITimeout       time.Duration
	StreamRetryDelay time.Duration
	SnapshotHours    int
	StatsDays        int

	// Synthetic generation.
	SyntheticMode       SyntheticMode
	SyntheticHistory    int
	SyntheticSeed       uint64
	GenerateInterval    time.Duration
	GenerateProbability float64
	SeverityWeights     []float64 // LOW, MODERATE, SEVERE, EXTREME
	SensorInterval      time.Duration
	ChartInterval       time.Duration

	ActiveWindow time.Duration

	// Optional Kafka publication of accepted detections.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaTopic         string
	BatchSize          int
	BatchFlushInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
// The API URLs are not validated here: an unusable URL degrades the session to
// synthetic mode instead of stopping startup.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		APIBaseURL:      strings.TrimSpace(os.Getenv("API_BASE_URL")),
		APIWSURL:        strings.TrimSpace(os.Getenv("API_WS_URL")),
		KafkaEnabled:    os.Getenv("KAFKA_ENABLED") == "true",
		KafkaTopic:      sharedcfg.EnvOrDefault("KAFKA_TOPIC", "microburst-detections"),
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"API_TIMEOUT", "10s", &cfg.APITimeout},
		{"STREAM_RETRY_DELAY", "5s", &cfg.StreamRetryDelay},
		{"GENERATE_INTERVAL", "30s", &cfg.GenerateInterval},
		{"SENSOR_INTERVAL", "2s", &cfg.SensorInterval},
		{"CHART_INTERVAL", "3s", &cfg.ChartInterval},
		{"ACTIVE_WINDOW", "15m", &cfg.ActiveWindow},
	}
	for _, d := range durations {
		if *d.dst, err = parsePositiveDuration(d.key, d.def); err != nil {
			return nil, err
		}
	}

	ints := []struct {
		key string
		def int
		dst *int
	}{
		{"SNAPSHOT_HOURS", 24, &cfg.SnapshotHours},
		{"STATS_DAYS", 7, &cfg.StatsDays},
	}
	for _, n := range ints {
		if *n.dst, err = parsePositiveInt(n.key, n.def); err != nil {
			return nil, err
		}
	}

	if cfg.SyntheticHistory, err = parseNonNegativeInt("SYNTHETIC_HISTORY", 20); err != nil {
		return nil, err
	}
	if cfg.SyntheticSeed, err = parseSeed(); err != nil {
		return nil, err
	}
	if cfg.SyntheticMode, err = parseSyntheticMode(); err != nil {
		return nil, err
	}
	if cfg.GenerateProbability, err = parseProbability(); err != nil {
		return nil, err
	}
	if cfg.SeverityWeights, err = parseSeverityWeights(sharedcfg.EnvOrDefault("SEVERITY_WEIGHTS", "50,30,15,5")); err != nil {
		return nil, err
	}

	if cfg.KafkaEnabled {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092"))
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaTopic == "" {
			return nil, errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
		}
		if cfg.BatchSize, err = sharedcfg.ParseBatchSize(); err != nil {
			return nil, err
		}
		if cfg.BatchFlushInterval, err = sharedcfg.ParseBatchFlushInterval(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	n, err := parseNonNegativeInt(key, def)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return n, nil
}

func parseNonNegativeInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseSeed() (uint64, error) {
	s := os.Getenv("SYNTHETIC_SEED")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.New("invalid SYNTHETIC_SEED")
	}
	return n, nil
}

func parseSyntheticMode() (SyntheticMode, error) {
	mode := SyntheticMode(strings.ToLower(sharedcfg.EnvOrDefault("SYNTHETIC_MODE", string(SyntheticAuto))))
	switch mode {
	case SyntheticAuto, SyntheticOn, SyntheticOff:
		return mode, nil
	default:
		return "", fmt.Errorf("invalid SYNTHETIC_MODE %q: want auto, on or off", mode)
	}
}

func parseProbability() (float64, error) {
	p, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("GENERATE_PROBABILITY", "0.2"), 64)
	if err != nil || p < 0 || p > 1 {
		return 0, errors.New("invalid GENERATE_PROBABILITY: must be between 0 and 1")
	}
	return p, nil
}

// parseSeverityWeights reads four comma-separated non-negative weights in
// ascending severity order.
func parseSeverityWeights(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, errors.New("invalid SEVERITY_WEIGHTS: want four comma-separated values")
	}
	weights := make([]float64, len(parts))
	var total float64
	for i, p := range parts {
		w, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || w < 0 {
			return nil, fmt.Errorf("invalid SEVERITY_WEIGHTS value %q", p)
		}
		weights[i] = w
		total += w
	}
	if total == 0 {
		return nil, errors.New("invalid SEVERITY_WEIGHTS: at least one weight must be positive")
	}
	return weights, nil
}
