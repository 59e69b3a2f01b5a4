package main

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/river-stage-predictor/internal/adapter/model"
	"github.com/couchcryptid/river-stage-predictor/internal/config"
	"github.com/couchcryptid/river-stage-predictor/internal/observability"
	"github.com/couchcryptid/river-stage-predictor/internal/pipeline"
	"github.com/spf13/cobra"
)

const (
	FlagModel       = "model"
	FlagModelServer = "model-server"
	FlagModelName   = "model-name"
	FlagTimeout     = "timeout"
	FlagLogLevel    = "log-level"
)

type rootOptions struct {
	modelPath   string
	modelServer string
	modelName   string
	timeout     time.Duration
	logLevel    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "stagectl",
		Short:        "Predict Chestnut Creek river stage from storm observations",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.modelPath, FlagModel, "",
		"path to the XGBoost model file")
	root.PersistentFlags().StringVar(&opts.modelServer, FlagModelServer, "",
		"model server base URL; used instead of --model")
	root.PersistentFlags().StringVar(&opts.modelName, FlagModelName, "flood_model",
		"model name on the model server")
	root.PersistentFlags().DurationVar(&opts.timeout, FlagTimeout, 5*time.Second,
		"model server request timeout")
	root.PersistentFlags().StringVar(&opts.logLevel, FlagLogLevel, "warn",
		"log level written to stderr: debug, info, warn, error")

	root.AddCommand(newPredictCmd(opts), newObserveCmd(opts))
	return root
}

// modelConfig maps the model flags onto the service configuration.
func (o *rootOptions) modelConfig() (*config.Config, error) {
	cfg := &config.Config{
		ModelBackend:         config.BackendXGBoost,
		ModelPath:            o.modelPath,
		ModelName:            o.modelName,
		ModelTimeout:         o.timeout,
		ModelConnectAttempts: 1,
	}
	switch {
	case o.modelServer != "":
		cfg.ModelBackend = config.BackendServer
		cfg.ModelServerURL = o.modelServer
	case o.modelPath == "":
		return nil, errors.New("one of --model or --model-server is required")
	}
	return cfg, nil
}

// newPipeline loads the model and returns a pipeline without result sinks.
func (o *rootOptions) newPipeline(cmd *cobra.Command) (*pipeline.Pipeline, error) {
	cfg, err := o.modelConfig()
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: parseLevel(o.logLevel)}))
	metrics := observability.NewUnregisteredMetrics()

	m, err := model.Load(cmd.Context(), cfg, logger, metrics)
	if err != nil {
		return nil, err
	}
	return pipeline.New(m, nil, logger, metrics), nil
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelWarn
	}
	return lvl
}
