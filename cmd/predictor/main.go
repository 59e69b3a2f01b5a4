package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/river-stage-predictor/internal/adapter/http"
	"github.com/couchcryptid/river-stage-predictor/internal/adapter/influxdb"
	kafkaadapter "github.com/couchcryptid/river-stage-predictor/internal/adapter/kafka"
	"github.com/couchcryptid/river-stage-predictor/internal/adapter/model"
	"github.com/couchcryptid/river-stage-predictor/internal/adapter/sqlite"
	"github.com/couchcryptid/river-stage-predictor/internal/config"
	"github.com/couchcryptid/river-stage-predictor/internal/observability"
	"github.com/couchcryptid/river-stage-predictor/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The model is loaded exactly once; the service does not start without it.
	m, err := model.Load(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to load model", "backend", cfg.ModelBackend, "error", err)
		os.Exit(1)
	}

	var (
		sinks   []pipeline.ResultSink
		closers []func()
		opts    = []httpadapter.Option{httpadapter.WithMaxUploadBytes(cfg.MaxUploadBytes)}
	)

	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		sinks = append(sinks, writer)
		closers = append(closers, func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		})
		logger.Info("kafka sink enabled", "topic", cfg.KafkaSinkTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka sink disabled")
	}

	if cfg.StoreEnabled() {
		store, err := sqlite.Open(cfg.StorePath, logger)
		if err != nil {
			logger.Error("failed to open prediction store", "path", cfg.StorePath, "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, store)
		opts = append(opts, httpadapter.WithHistory(store))
		closers = append(closers, func() {
			if err := store.Close(); err != nil {
				logger.Error("prediction store close error", "error", err)
			}
		})
		logger.Info("prediction store enabled", "path", cfg.StorePath)
	}

	if cfg.InfluxEnabled() {
		writer, err := influxdb.NewWriter(ctx, cfg, logger)
		if err != nil {
			// Time-series export is optional; keep serving without it.
			logger.Warn("influxdb sink unavailable", "url", cfg.InfluxURL, "error", err)
		} else {
			sinks = append(sinks, writer)
			closers = append(closers, writer.Close)
			logger.Info("influxdb sink enabled", "url", cfg.InfluxURL, "org", cfg.InfluxOrg, "bucket", cfg.InfluxBucket)
		}
	}

	p := pipeline.New(m, sinks, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger, opts...)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	for _, closeSink := range closers {
		closeSink()
	}

	logger.Info("shutdown complete")
}
