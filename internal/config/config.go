package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	BundleDir string
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ShutdownTimeout time.Duration

	// Fusion thresholds.
	MinPeriodSeconds   float64
	SpectralPeakWindow int
	LookbackDays       int
	DaysAhead          int

	// Specialist orchestration.
	LLMTimeout             time.Duration
	LLMMaxRetries          int
	MinSpecialistsRequired int
	MaxImages              int
	ScoringCacheSize       int

	// Historical-performance lookback used by the confidence accuracy factor.
	PerformanceWindowDays  int
	PerformanceMinSamples  int
	PerformanceOutlierFeet float64

	// Forecast publisher, enabled only when brokers are configured.
	KafkaBrokers    []string
	KafkaSinkTopic  string
	KafkaPublishing bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	llmTimeout, err := parseDuration("LLM_TIMEOUT", "120s")
	if err != nil {
		return nil, err
	}

	minPeriod, err := parseFloat("MIN_PERIOD_SECONDS", 8.0)
	if err != nil || minPeriod <= 0 {
		return nil, errors.New("invalid MIN_PERIOD_SECONDS")
	}

	peakWindow, err := parseInt("SPECTRAL_PEAK_WINDOW", 2)
	if err != nil || peakWindow < 1 {
		return nil, errors.New("invalid SPECTRAL_PEAK_WINDOW")
	}

	lookbackDays, err := parseInt("LOOKBACK_DAYS", 3)
	if err != nil || lookbackDays < 1 {
		return nil, errors.New("invalid LOOKBACK_DAYS")
	}

	daysAhead, err := parseInt("DAYS_AHEAD", 10)
	if err != nil || daysAhead < 1 {
		return nil, errors.New("invalid DAYS_AHEAD")
	}

	llmMaxRetries, err := parseInt("LLM_MAX_RETRIES", 2)
	if err != nil || llmMaxRetries < 0 {
		return nil, errors.New("invalid LLM_MAX_RETRIES")
	}

	minSpecialists, err := parseInt("MIN_SPECIALISTS_REQUIRED", 2)
	if err != nil || minSpecialists < 1 || minSpecialists > 2 {
		return nil, errors.New("invalid MIN_SPECIALISTS_REQUIRED")
	}

	maxImages, err := parseInt("MAX_IMAGES", 10)
	if err != nil || maxImages < 1 {
		return nil, errors.New("invalid MAX_IMAGES")
	}

	scoringCacheSize, err := parseInt("SCORING_CACHE_SIZE", 1000)
	if err != nil || scoringCacheSize < 1 {
		return nil, errors.New("invalid SCORING_CACHE_SIZE")
	}

	perfWindowDays, err := parseInt("PERFORMANCE_WINDOW_DAYS", 30)
	if err != nil || perfWindowDays < 1 {
		return nil, errors.New("invalid PERFORMANCE_WINDOW_DAYS")
	}

	perfMinSamples, err := parseInt("PERFORMANCE_MIN_SAMPLES", 10)
	if err != nil || perfMinSamples < 1 {
		return nil, errors.New("invalid PERFORMANCE_MIN_SAMPLES")
	}

	perfOutlierFeet, err := parseFloat("PERFORMANCE_OUTLIER_FEET", 5.0)
	if err != nil || perfOutlierFeet <= 0 {
		return nil, errors.New("invalid PERFORMANCE_OUTLIER_FEET")
	}

	kafkaBrokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaSinkTopic := envOrDefault("KAFKA_SINK_TOPIC", "surf-forecasts")
	kafkaPublishing := len(kafkaBrokers) > 0
	if v := os.Getenv("KAFKA_PUBLISHING"); v != "" {
		kafkaPublishing = v == "true"
	}

	cfg := &Config{
		BundleDir:       envOrDefault("BUNDLE_DIR", "./bundles"),
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		MinPeriodSeconds:   minPeriod,
		SpectralPeakWindow: peakWindow,
		LookbackDays:       lookbackDays,
		DaysAhead:          daysAhead,

		LLMTimeout:             llmTimeout,
		LLMMaxRetries:          llmMaxRetries,
		MinSpecialistsRequired: minSpecialists,
		MaxImages:              maxImages,
		ScoringCacheSize:       scoringCacheSize,

		PerformanceWindowDays:  perfWindowDays,
		PerformanceMinSamples:  perfMinSamples,
		PerformanceOutlierFeet: perfOutlierFeet,

		KafkaBrokers:    kafkaBrokers,
		KafkaSinkTopic:  kafkaSinkTopic,
		KafkaPublishing: kafkaPublishing,
	}

	if cfg.BundleDir == "" {
		return nil, errors.New("BUNDLE_DIR is required")
	}
	if cfg.KafkaPublishing && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_PUBLISHING is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	raw := envOrDefault(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parseInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return f, nil
}

func parseBrokers(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	brokers := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}
