// Package sqlite keeps a local history of predictions.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/river-stage-predictor/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
	CREATE TABLE IF NOT EXISTS river_stage_predictions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		submission_id TEXT NOT NULL,
		row_index INTEGER NOT NULL,
		source TEXT NOT NULL,
		predicted_at TEXT NOT NULL,
		observed_at TEXT,
		date_time TEXT NOT NULL,
		rain_in REAL NOT NULL,
		season REAL NOT NULL,
		antecedent_rain_in REAL NOT NULL,
		antecedent_rain_condition REAL NOT NULL,
		rain_intensity_in_hr REAL NOT NULL,
		peak_runoff REAL NOT NULL,
		time_to_peak REAL NOT NULL,
		month REAL NOT NULL,
		chestnut_creek_ft REAL NOT NULL,
		UNIQUE(submission_id, row_index)
	);
	CREATE INDEX IF NOT EXISTS idx_predicted_at ON river_stage_predictions(predicted_at);`

// timeLayout is fixed width so that text order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store persists prediction batches in SQLite. It implements pipeline.ResultSink.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer at a time; sqlite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	logger.Info("prediction store opened", "path", path)
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Name() string { return "sqlite" }

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Store implements pipeline.ResultSink.
func (s *Store) Store(ctx context.Context, batch domain.PredictionBatch) error {
	return s.SavePredictions(ctx, batch)
}

// SavePredictions writes every row of the batch in one transaction. Saving the
// same submission twice overwrites its rows.
func (s *Store) SavePredictions(ctx context.Context, batch domain.PredictionBatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO river_stage_predictions(
			submission_id, row_index, source, predicted_at, observed_at, date_time,
			rain_in, season, antecedent_rain_in, antecedent_rain_condition,
			rain_intensity_in_hr, peak_runoff, time_to_peak, month, chestnut_creek_ft)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(submission_id, row_index) DO UPDATE SET
			chestnut_creek_ft=excluded.chestnut_creek_ft`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	predictedAt := batch.PredictedAt.UTC().Format(timeLayout)
	for i, p := range batch.Predictions {
		var observedAt sql.NullString
		if !p.Time.IsZero() {
			observedAt = sql.NullString{String: p.Time.UTC().Format(timeLayout), Valid: true}
		}
		f := p.Features
		if _, err := stmt.ExecContext(ctx,
			batch.ID, i, batch.Source, predictedAt, observedAt, p.DateTime,
			f.RainIn, f.Season, f.AntecedentRainIn, f.AntecedentRainCondition,
			f.RainIntensityInHr, f.PeakRunoff, f.TimeToPeak, f.Month, p.Stage,
		); err != nil {
			return fmt.Errorf("insert row %d of %s: %w", i, batch.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	s.logger.Debug("predictions saved", "submission_id", batch.ID, "rows", len(batch.Predictions))
	return nil
}

// RecentPredictions returns up to limit rows, newest submission first and in
// table order within a submission.
func (s *Store) RecentPredictions(ctx context.Context, limit int) ([]domain.RecordedPrediction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT submission_id, row_index, source, predicted_at, observed_at, date_time,
			rain_in, season, antecedent_rain_in, antecedent_rain_condition,
			rain_intensity_in_hr, peak_runoff, time_to_peak, month, chestnut_creek_ft
		FROM river_stage_predictions
		ORDER BY predicted_at DESC, submission_id, row_index
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	var result []domain.RecordedPrediction
	for rows.Next() {
		var (
			rec         domain.RecordedPrediction
			predictedAt string
			observedAt  sql.NullString
		)
		f := &rec.Features
		if err := rows.Scan(
			&rec.SubmissionID, &rec.Row, &rec.Source, &predictedAt, &observedAt, &rec.DateTime,
			&f.RainIn, &f.Season, &f.AntecedentRainIn, &f.AntecedentRainCondition,
			&f.RainIntensityInHr, &f.PeakRunoff, &f.TimeToPeak, &f.Month, &rec.Stage,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if rec.PredictedAt, err = time.Parse(timeLayout, predictedAt); err != nil {
			return nil, fmt.Errorf("parse predicted_at %q: %w", predictedAt, err)
		}
		if observedAt.Valid {
			if rec.Time, err = time.Parse(timeLayout, observedAt.String); err != nil {
				return nil, fmt.Errorf("parse observed_at %q: %w", observedAt.String, err)
			}
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}
