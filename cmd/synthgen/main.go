// Command synthgen runs the synthetic sales generation service: it
// periodically generates weather-correlated sales for every catalog location,
// persists the flat tables to SQLite, and optionally streams them to Kafka.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	fmiadapter "github.com/couchcryptid/sales-synth-service/internal/adapter/fmi"
	httpadapter "github.com/couchcryptid/sales-synth-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/sales-synth-service/internal/adapter/kafka"
	"github.com/couchcryptid/sales-synth-service/internal/adapter/sqlite"
	"github.com/couchcryptid/sales-synth-service/internal/catalog"
	"github.com/couchcryptid/sales-synth-service/internal/config"
	"github.com/couchcryptid/sales-synth-service/internal/domain"
	"github.com/couchcryptid/sales-synth-service/internal/observability"
	"github.com/couchcryptid/sales-synth-service/internal/pipeline"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogFormat, cfg.LogLevel)
	metrics := observability.NewMetrics()

	cat, err := catalog.Load(cfg.CatalogDir)
	if err != nil {
		logger.Error("failed to load catalog", "error", err, "dir", cfg.CatalogDir)
		os.Exit(1)
	}
	if problems := cat.Validate(); len(problems) > 0 {
		for _, p := range problems {
			logger.Error("catalog problem", "error", p)
		}
		os.Exit(1)
	}
	logger.Info("catalog loaded",
		"locations", len(cat.Locations),
		"salespeople", len(cat.Salespeople),
		"products", len(cat.Products))

	// Weather source (feature-flagged via USE_SYNTHETIC_WEATHER).
	var fetcher domain.ObservationFetcher
	if cfg.UseSyntheticWeather {
		fetcher = fmiadapter.NewSyntheticSource()
		logger.Info("synthetic weather source enabled")
	} else {
		fetcher = fmiadapter.NewClient(cfg.FMIBaseURL, cfg.FMITimeout, logger, metrics)
		logger.Info("fmi weather source enabled", "timeout", cfg.FMITimeout)
	}
	fetcher = fmiadapter.NewCachedFetcher(fetcher, cfg.FetchCacheSize, metrics)

	store, err := sqlite.Open(cfg.SQLitePath, logger)
	if err != nil {
		logger.Error("failed to open sqlite store", "error", err, "path", cfg.SQLitePath)
		os.Exit(1)
	}

	// Streaming sink (feature-flagged via KAFKA_ENABLED).
	var publisher pipeline.RecordPublisher
	var kafkaPub *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		kafkaPub = kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaSalesTopic, cfg.KafkaWeatherTopic, logger)
		publisher = kafkaPub
		logger.Info("kafka publishing enabled",
			"brokers", cfg.KafkaBrokers,
			"sales_topic", cfg.KafkaSalesTopic,
			"weather_topic", cfg.KafkaWeatherTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	build := func(interval domain.Interval) (*pipeline.Fleet, error) {
		return pipeline.BuildFleet(cat, interval, fetcher, pipeline.BuildOptions{
			InjectNoise: cfg.InjectNoise,
			Seed:        cfg.Seed,
			Workers:     cfg.Workers,
			SalesMax:    cfg.SalesMax,
		}, logger)
	}

	runner := pipeline.NewRunner(build, store, publisher, logger, metrics, pipeline.RunnerConfig{
		SalesTableName:   cfg.SalesTableName,
		WeatherTableName: cfg.WeatherTableName,
		Lookback:         time.Duration(cfg.LookbackHours) * time.Hour,
		Interval:         cfg.RegenInterval,
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, runner, runner, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start generation loop.
	go func() {
		if err := runner.Run(ctx); err != nil {
			logger.Error("generator error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Error("sqlite store close error", "error", err)
	}
	if kafkaPub != nil {
		if err := kafkaPub.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
