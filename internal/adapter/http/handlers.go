package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/couchcryptid/river-stage-predictor/internal/adapter/csvtable"
	"github.com/couchcryptid/river-stage-predictor/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

const (
	headerSubmissionID = "X-Submission-ID"
	contentTypeCSV     = "text/csv; charset=utf-8"
	uploadField        = "file"

	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000

	kindBadRequest = "bad_request"
	kindTooLarge   = "payload_too_large"
)

// observationRequest is the JSON form of one manual observation. Numeric
// fields that are absent or null are missing.
type observationRequest struct {
	DateTime                string   `json:"DateTime"`
	RainIn                  *float64 `json:"Rain_in"`
	Season                  string   `json:"Season"`
	AntecedentRainIn        *float64 `json:"AntecedentRain_in"`
	AntecedentRainCondition string   `json:"AntecedentRainCondition"`
	RainIntensityInHr       *float64 `json:"RainIntensity_in_hr"`
	PeakRunoff              *float64 `json:"PeakRunoff"`
	TimeToPeak              *float64 `json:"TimeToPeak"`
}

func (req observationRequest) observation() domain.Observation {
	return domain.Observation{
		DateTime:                req.DateTime,
		RainIn:                  valueOrNaN(req.RainIn),
		Season:                  req.Season,
		AntecedentRainIn:        valueOrNaN(req.AntecedentRainIn),
		AntecedentRainCondition: req.AntecedentRainCondition,
		RainIntensityInHr:       valueOrNaN(req.RainIntensityInHr),
		PeakRunoff:              valueOrNaN(req.PeakRunoff),
		TimeToPeak:              valueOrNaN(req.TimeToPeak),
	}
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type historyResponse struct {
	Predictions []domain.RecordedPrediction `json:"predictions"`
}

// handleBatch accepts a CSV table, either as the raw body or as the "file"
// field of a multipart form, and answers with the augmented table.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	data, err := s.readUpload(w, r)
	if err != nil {
		s.writeRequestError(w, err)
		return
	}

	table, err := csvtable.ReadTable(bytes.NewReader(data))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	batch, err := s.predictor.PredictBatch(r.Context(), table)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	w.Header().Set(headerSubmissionID, batch.ID)
	if wantsJSON(r) {
		sharedobs.WriteJSON(w, http.StatusOK, batch)
		return
	}
	w.Header().Set("Content-Type", contentTypeCSV)
	w.WriteHeader(http.StatusOK)
	if err := csvtable.WritePredictions(w, batch.Predictions); err != nil {
		s.logger.Warn("write prediction table", "submission_id", batch.ID, "error", err)
	}
}

// handleSingle predicts one manually entered observation.
func (s *Server) handleSingle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	var req observationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeRequestError(w, fmt.Errorf("decode observation: %w", err))
		return
	}

	batch, err := s.predictor.PredictOne(r.Context(), req.observation())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	w.Header().Set(headerSubmissionID, batch.ID)
	sharedobs.WriteJSON(w, http.StatusOK, batch)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryLimit {
			sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{
				Error: fmt.Sprintf("limit must be between 1 and %d", maxHistoryLimit),
				Kind:  kindBadRequest,
			})
			return
		}
		limit = n
	}

	preds, err := s.history.RecentPredictions(r.Context(), limit)
	if err != nil {
		s.logger.Error("read prediction history", "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: "history unavailable", Kind: "internal"})
		return
	}
	if preds == nil {
		preds = []domain.RecordedPrediction{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, historyResponse{Predictions: preds})
}

func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return io.ReadAll(r.Body)
	}

	f, _, err := r.FormFile(uploadField)
	if err != nil {
		return nil, fmt.Errorf("read form field %q: %w", uploadField, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

// writeRequestError answers transport-level problems: oversized or
// unreadable bodies.
func (s *Server) writeRequestError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		sharedobs.WriteJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
			Error: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
			Kind:  kindTooLarge,
		})
		return
	}
	sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: kindBadRequest})
}

// writeDomainError maps the failure taxonomy onto status codes: bad input is
// 422, a failing model is 502, anything else is 500.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	kind := domain.ErrorKind(err)

	status := http.StatusUnprocessableEntity
	switch kind {
	case "inference_failure":
		status = http.StatusBadGateway
	case "internal", "artifact_load_failure":
		status = http.StatusInternalServerError
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
		msg = "internal error"
	}
	sharedobs.WriteJSON(w, status, errorResponse{Error: msg, Kind: kind})
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
