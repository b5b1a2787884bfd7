package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cityflow/traffic-insight-service/internal/adapter/classifier"
	"github.com/cityflow/traffic-insight-service/internal/adapter/httpapi"
	kafkaadapter "github.com/cityflow/traffic-insight-service/internal/adapter/kafka"
	"github.com/cityflow/traffic-insight-service/internal/adapter/sqlite"
	"github.com/cityflow/traffic-insight-service/internal/adapter/tomtom"
	"github.com/cityflow/traffic-insight-service/internal/config"
	"github.com/cityflow/traffic-insight-service/internal/domain"
	"github.com/cityflow/traffic-insight-service/internal/history"
	"github.com/cityflow/traffic-insight-service/internal/observability"
	"github.com/cityflow/traffic-insight-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	store, err := sqlite.Open(cfg.SQLitePath, logger)
	if err != nil {
		logger.Error("failed to open prediction store", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}

	// The historical index is optional: without it every prediction falls
	// back to the classifier score alone.
	var index domain.HistoricalIndex
	if idx, err := history.Load(cfg.DatasetPath, logger); err != nil {
		logger.Warn("historical dataset unavailable, predictions will not blend",
			"path", cfg.DatasetPath, "error", err)
	} else {
		index = idx
	}

	var clf domain.Classifier
	if cfg.ClassifierURL != "" {
		clf = classifier.NewClient(cfg.ClassifierURL, cfg.ClassifierTimeout, logger)
		metrics.ClassifierEnabled.Set(1)
		logger.Info("classifier enabled", "url", cfg.ClassifierURL, "timeout", cfg.ClassifierTimeout)
	} else {
		logger.Info("classifier disabled, predictions degrade to neutral default")
	}

	// Mapping provider (feature-flagged via TOMTOM_ENABLED / TOMTOM_API_KEY).
	var provider domain.MapProvider
	if cfg.TomTomEnabled {
		client := tomtom.NewClient(cfg.TomTomKey, cfg.TomTomTimeout, metrics, logger)
		provider = tomtom.NewCachedProvider(client, cfg.TomTomCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("tomtom mapping enabled", "cache_size", cfg.TomTomCacheSize, "timeout", cfg.TomTomTimeout)
	} else {
		logger.Info("tomtom mapping disabled")
	}

	var publisher *kafkaadapter.Publisher
	opts := service.Options{
		Classifier:   clf,
		History:      index,
		Provider:     provider,
		Country:      cfg.GeocodeCountry,
		GeocodeLimit: cfg.GeocodeLimit,
		RouteMaxAlts: cfg.RouteMaxAlts,
	}
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		opts.Publisher = publisher
		logger.Info("kafka fan-out enabled", "topic", cfg.KafkaSinkTopic, "brokers", cfg.KafkaBrokers)
	}

	svc := service.New(store, opts, logger, metrics)
	srv := httpapi.NewServer(cfg.HTTPAddr, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Error("prediction store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
