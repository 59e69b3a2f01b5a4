package influxdb

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/couchcryptid/river-stage-predictor/internal/config"
	"github.com/couchcryptid/river-stage-predictor/internal/domain"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const measurement = "river_stage_prediction"

// Writer records predictions as InfluxDB points, one per row, with the
// blocking write API. It implements pipeline.ResultSink.
type Writer struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	logger   *slog.Logger
}

// NewWriter connects to InfluxDB and verifies it is reachable.
func NewWriter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Writer, error) {
	client := influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken)

	if _, err := client.Health(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to influxdb: %w", err)
	}

	return &Writer{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
		logger:   logger,
	}, nil
}

func (w *Writer) Name() string { return "influxdb" }

// Store writes all rows of the batch in one request.
func (w *Writer) Store(ctx context.Context, batch domain.PredictionBatch) error {
	if len(batch.Predictions) == 0 {
		return nil
	}
	if err := w.writeAPI.WritePoint(ctx, toPoints(batch)...); err != nil {
		return fmt.Errorf("write %d points: %w", len(batch.Predictions), err)
	}
	return nil
}

func (w *Writer) Close() {
	w.client.Close()
}

// toPoints maps each prediction to a point stamped with its observation time,
// or with the batch time when the observation has none.
func toPoints(batch domain.PredictionBatch) []*write.Point {
	points := make([]*write.Point, len(batch.Predictions))
	for i, p := range batch.Predictions {
		ts := p.Time
		if ts.IsZero() {
			ts = batch.PredictedAt
		}
		f := p.Features
		points[i] = write.NewPoint(
			measurement,
			map[string]string{
				"source":        batch.Source,
				"submission_id": batch.ID,
				"row":           strconv.Itoa(i),
			},
			map[string]interface{}{
				"rain_in":                   f.RainIn,
				"season":                    f.Season,
				"antecedent_rain_in":        f.AntecedentRainIn,
				"antecedent_rain_condition": f.AntecedentRainCondition,
				"rain_intensity_in_hr":      f.RainIntensityInHr,
				"peak_runoff":               f.PeakRunoff,
				"time_to_peak":              f.TimeToPeak,
				"month":                     f.Month,
				"chestnut_creek_ft":         p.Stage,
			},
			ts,
		)
	}
	return points
}
