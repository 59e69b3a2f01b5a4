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

// Model backends.
const (
	BackendXGBoost = "xgboost"
	BackendServer  = "server"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64

	// Model artifact configuration.
	ModelBackend   string
	ModelPath      string
	ModelServerURL string
	ModelName      string
	ModelTimeout   time.Duration
	ModelCacheSize int
	// ModelConnectAttempts bounds the startup probe of the model server.
	ModelConnectAttempts int

	// Result sinks. Each is disabled when its address is empty.
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string

	StorePath string

	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	modelTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("MODEL_TIMEOUT", "5s"))
	if err != nil || modelTimeout <= 0 {
		return nil, errors.New("invalid MODEL_TIMEOUT")
	}

	cacheSize, err := parseNonNegativeInt("MODEL_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	attempts, err := parseNonNegativeInt("MODEL_CONNECT_ATTEMPTS", 5)
	if err != nil {
		return nil, err
	}
	if attempts == 0 {
		return nil, errors.New("MODEL_CONNECT_ATTEMPTS must be positive")
	}

	maxUpload, err := parseNonNegativeInt("MAX_UPLOAD_BYTES", 10<<20)
	if err != nil {
		return nil, err
	}
	if maxUpload == 0 {
		return nil, errors.New("MAX_UPLOAD_BYTES must be positive")
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        strings.ToLower(sharedcfg.EnvOrDefault("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(sharedcfg.EnvOrDefault("LOG_FORMAT", "json")),
		ShutdownTimeout: shutdownTimeout,
		MaxUploadBytes:  int64(maxUpload),

		ModelBackend:   strings.ToLower(sharedcfg.EnvOrDefault("MODEL_BACKEND", BackendXGBoost)),
		ModelPath:      sharedcfg.EnvOrDefault("MODEL_PATH", "models/flood_model.bin"),
		ModelServerURL: os.Getenv("MODEL_SERVER_URL"),
		ModelName:      sharedcfg.EnvOrDefault("MODEL_NAME", "flood_model"),
		ModelTimeout:   modelTimeout,
		ModelCacheSize: cacheSize,

		ModelConnectAttempts: attempts,

		KafkaEnabled:   kafkaEnabled,
		KafkaBrokers:   brokers,
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "river-stage-predictions"),

		StorePath: os.Getenv("STORE_PATH"),

		InfluxURL:    os.Getenv("INFLUXDB_URL"),
		InfluxToken:  os.Getenv("INFLUXDB_TOKEN"),
		InfluxOrg:    os.Getenv("INFLUXDB_ORG"),
		InfluxBucket: sharedcfg.EnvOrDefault("INFLUXDB_BUCKET", "river-stage"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("invalid LOG_FORMAT %q", c.LogFormat)
	}

	switch c.ModelBackend {
	case BackendXGBoost:
		if c.ModelPath == "" {
			return errors.New("MODEL_PATH is required for the xgboost backend")
		}
	case BackendServer:
		if c.ModelServerURL == "" {
			return errors.New("MODEL_SERVER_URL is required for the server backend")
		}
		if c.ModelName == "" {
			return errors.New("MODEL_NAME is required for the server backend")
		}
	default:
		return fmt.Errorf("invalid MODEL_BACKEND %q", c.ModelBackend)
	}

	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
		}
		if c.KafkaSinkTopic == "" {
			return errors.New("KAFKA_SINK_TOPIC is required")
		}
	}

	if c.InfluxURL != "" && (c.InfluxOrg == "" || c.InfluxBucket == "") {
		return errors.New("INFLUXDB_ORG and INFLUXDB_BUCKET are required when INFLUXDB_URL is set")
	}
	return nil
}

// InfluxEnabled reports whether the InfluxDB sink is configured.
func (c *Config) InfluxEnabled() bool { return c.InfluxURL != "" }

// StoreEnabled reports whether the prediction history store is configured.
func (c *Config) StoreEnabled() bool { return c.StorePath != "" }

func parseNonNegativeInt(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}
