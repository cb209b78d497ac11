// Package config loads service settings from environment variables.
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

	// Catalog and persistence.
	CatalogDir       string
	SQLitePath       string
	SalesTableName   string
	WeatherTableName string

	// Generation.
	LookbackHours int
	RegenInterval time.Duration
	Workers       int
	SalesMax      float64
	InjectNoise   bool
	// Seed of 0 means a fresh non-reproducible stream per run.
	Seed uint64

	// Weather source.
	UseSyntheticWeather bool
	FMIBaseURL          string
	FMITimeout          time.Duration
	FetchCacheSize      int

	// Streaming sink (feature-flagged).
	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaSalesTopic   string
	KafkaWeatherTopic string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	regenInterval, err := parseDuration("REGEN_INTERVAL", "1h")
	if err != nil {
		return nil, err
	}
	fmiTimeout, err := parseDuration("FMI_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	lookbackHours, err := parsePositiveInt("LOOKBACK_HOURS", 168)
	if err != nil {
		return nil, err
	}
	workers, err := parsePositiveInt("WORKERS", 4)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parsePositiveInt("FETCH_CACHE_SIZE", 100)
	if err != nil {
		return nil, err
	}

	salesMax := 0.0
	if s := os.Getenv("SALES_MAX"); s != "" {
		salesMax, err = strconv.ParseFloat(s, 64)
		if err != nil || salesMax <= 0 {
			return nil, errors.New("invalid SALES_MAX")
		}
	}

	var seed uint64
	if s := os.Getenv("SEED"); s != "" {
		seed, err = strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, errors.New("invalid SEED")
		}
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		CatalogDir:       envOrDefault("CATALOG_DIR", "./catalog"),
		SQLitePath:       envOrDefault("SQLITE_PATH", "./sales-synth.db"),
		SalesTableName:   envOrDefault("SALES_TABLE", "sales"),
		WeatherTableName: envOrDefault("WEATHER_TABLE", "weather"),

		LookbackHours: lookbackHours,
		RegenInterval: regenInterval,
		Workers:       workers,
		SalesMax:      salesMax,
		InjectNoise:   envBool("INJECT_NOISE"),
		Seed:          seed,

		UseSyntheticWeather: envBool("USE_SYNTHETIC_WEATHER"),
		FMIBaseURL:          os.Getenv("FMI_BASE_URL"),
		FMITimeout:          fmiTimeout,
		FetchCacheSize:      cacheSize,

		KafkaEnabled:      envBool("KAFKA_ENABLED"),
		KafkaBrokers:      parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSalesTopic:   envOrDefault("KAFKA_SALES_TOPIC", "synthetic-sales"),
		KafkaWeatherTopic: envOrDefault("KAFKA_WEATHER_TOPIC", "synthetic-weather"),
	}

	if cfg.CatalogDir == "" {
		return nil, errors.New("CATALOG_DIR is required")
	}
	if cfg.SQLitePath == "" {
		return nil, errors.New("SQLITE_PATH is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	return os.Getenv(key) == "true"
}

func parseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
