package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/river-stage-predictor/internal/config"
	"github.com/couchcryptid/river-stage-predictor/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes predictions to a Kafka topic, one message per row.
// It implements pipeline.ResultSink.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a synchronous Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

func (w *Writer) Name() string { return "kafka" }

// Store publishes every prediction of the batch in a single WriteMessages call.
func (w *Writer) Store(ctx context.Context, batch domain.PredictionBatch) error {
	if len(batch.Predictions) == 0 {
		return nil
	}
	records := batch.Records()
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d predictions: %w", len(msgs), err)
	}
	w.logger.Debug("predictions published", "submission_id", batch.ID, "rows", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals one record into a Kafka message keyed by
// "<submission id>-<row>".
func serializeToMessage(rec domain.RecordedPrediction) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize prediction: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.SubmissionID + "-" + strconv.Itoa(rec.Row)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte(rec.Source)},
			{Key: "submission_id", Value: []byte(rec.SubmissionID)},
			{Key: "predicted_at", Value: []byte(rec.PredictedAt.Format(time.RFC3339))},
		},
	}, nil
}
