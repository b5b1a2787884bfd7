package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Storage and historical dataset.
	SQLitePath  string
	DatasetPath string

	// TomTom mapping provider configuration.
	TomTomKey       string
	TomTomEnabled   bool
	TomTomTimeout   time.Duration
	TomTomCacheSize int
	GeocodeCountry  string
	GeocodeLimit    int
	RouteMaxAlts    int

	// External classifier configuration.
	ClassifierURL     string
	ClassifierTimeout time.Duration

	// Optional prediction record fan-out.
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	tomtomTimeout, err := parseDuration("TOMTOM_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	classifierTimeout, err := parseDuration("CLASSIFIER_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	tomtomKey := os.Getenv("TOMTOM_API_KEY")
	tomtomEnabled := tomtomKey != ""
	if v := os.Getenv("TOMTOM_ENABLED"); v != "" {
		tomtomEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		SQLitePath:  envOrDefault("SQLITE_PATH", "traffic_flow.db"),
		DatasetPath: envOrDefault("DATASET_PATH", "merged_dataset.csv"),

		TomTomKey:       tomtomKey,
		TomTomEnabled:   tomtomEnabled,
		TomTomTimeout:   tomtomTimeout,
		TomTomCacheSize: parsePositiveInt("TOMTOM_CACHE_SIZE", 1000),
		GeocodeCountry:  envOrDefault("GEOCODE_COUNTRY", "IN"),
		GeocodeLimit:    parsePositiveInt("GEOCODE_LIMIT", 5),
		RouteMaxAlts:    parsePositiveInt("ROUTE_MAX_ALTERNATIVES", 3),

		ClassifierURL:     os.Getenv("CLASSIFIER_URL"),
		ClassifierTimeout: classifierTimeout,

		KafkaEnabled:   os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:   parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "traffic-predictions"),
	}

	if cfg.SQLitePath == "" {
		return nil, errors.New("SQLITE_PATH is required")
	}
	if cfg.TomTomEnabled && cfg.TomTomKey == "" {
		return nil, errors.New("TOMTOM_ENABLED is true but TOMTOM_API_KEY is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_SINK_TOPIC is empty")
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
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func parseBrokers(raw string) []string {
	parts := strings.Split(raw, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
