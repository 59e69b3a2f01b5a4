package http_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/river-stage-predictor/internal/adapter/http"
	"github.com/couchcryptid/river-stage-predictor/internal/domain"
	"github.com/couchcryptid/river-stage-predictor/internal/observability"
	"github.com/couchcryptid/river-stage-predictor/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "DateTime,Rain_in,Season,AntecedentRain_in,AntecedentRainCondition,RainIntensity_in_hr,PeakRunoff,TimeToPeak\n" +
	"2021-04-03 06:00,1.5,Dormant Season,0.5,AMC II (Average),0.2,150,6\n" +
	"2021-06-15,2,Growing Season,0.5,AMC I (Dry),0.2,150,6\n"

// rainModel scores 10*Rain_in + month.
type rainModel struct {
	err error
}

func (m rainModel) Predict(_ context.Context, rows [][]float64) ([]float64, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = 10*row[0] + row[7]
	}
	return out, nil
}

type fakeHistory struct {
	limit int
	preds []domain.RecordedPrediction
	err   error
}

func (h *fakeHistory) RecentPredictions(_ context.Context, limit int) ([]domain.RecordedPrediction, error) {
	h.limit = limit
	return h.preds, h.err
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(model domain.Model, opts ...httpadapter.Option) *httpadapter.Server {
	p := pipeline.New(model, nil, discardLogger(), observability.NewMetricsForTesting())
	return httpadapter.NewServer(":0", p, discardLogger(), opts...)
}

func serve(srv *httpadapter.Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// --- health ---

func TestHealthzReturns200(t *testing.T) {
	rec := serve(newTestServer(rainModel{}), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenModelLoaded(t *testing.T) {
	rec := serve(newTestServer(rainModel{}), httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WithoutModel(t *testing.T) {
	rec := serve(newTestServer(nil), httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "model artifact not loaded", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(newTestServer(rainModel{}), httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// --- batch ---

func TestBatch_CSV(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/predictions/batch", strings.NewReader(sampleCSV))
	req.Header.Set("Content-Type", "text/csv")

	rec := serve(newTestServer(rainModel{}), req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Submission-ID"))
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "ChestnutCreek_ft", records[0][9])
	assert.Equal(t, []string{"2021-04-03 06:00:00", "1.5", "1", "0.5", "1", "0.2", "150", "6", "4", "19"}, records[1])
	assert.Equal(t, "26", records[2][9])
}

func TestBatch_JSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/predictions/batch", strings.NewReader(sampleCSV))
	req.Header.Set("Accept", "application/json")

	rec := serve(newTestServer(rainModel{}), req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var batch domain.PredictionBatch
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
	assert.Equal(t, rec.Header().Get("X-Submission-ID"), batch.ID)
	assert.Equal(t, domain.SourceBatch, batch.Source)
	require.Len(t, batch.Predictions, 2)
	assert.Equal(t, 19.0, batch.Predictions[0].Stage)
	assert.Equal(t, 6.0, batch.Predictions[1].Features.Month)
}

func TestBatch_Multipart(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "observations.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(sampleCSV))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/predictions/batch", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := serve(newTestServer(rainModel{}), req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestBatch_MultipartMissingField(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("comment", "no file here"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/predictions/batch", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := serve(newTestServer(rainModel{}), req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", decodeError(t, rec).Kind)
}

func TestBatch_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKind string
	}{
		{
			name:     "invalid timestamp",
			body:     strings.Replace(sampleCSV, "2021-06-15", "yesterday", 1),
			wantKind: "invalid_timestamp",
		},
		{
			name:     "non-numeric cell",
			body:     strings.Replace(sampleCSV, ",150,", ",lots,", 1),
			wantKind: "malformed_table",
		},
		{
			name:     "unknown season",
			body:     strings.Replace(sampleCSV, "Dormant Season", "Monsoon", 1),
			wantKind: "incomplete_feature_vector",
		},
		{
			name:     "empty body",
			body:     "",
			wantKind: "malformed_table",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/predictions/batch", strings.NewReader(tt.body))
			rec := serve(newTestServer(rainModel{}), req)

			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantKind, decodeError(t, rec).Kind)
			assert.Empty(t, rec.Header().Get("X-Submission-ID"))
		})
	}
}

func TestBatch_ModelFailure(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/predictions/batch", strings.NewReader(sampleCSV))
	rec := serve(newTestServer(rainModel{err: errors.New("booster crashed")}), req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "inference_failure", body.Kind)
	assert.Contains(t, body.Error, "booster crashed")
}

func TestBatch_TooLarge(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/predictions/batch", strings.NewReader(sampleCSV))
	rec := serve(newTestServer(rainModel{}, httpadapter.WithMaxUploadBytes(32)), req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "payload_too_large", decodeError(t, rec).Kind)
}

// --- single ---

func singleRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/predictions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestSingle(t *testing.T) {
	body := `{"DateTime":"15/06/2021 08:00","Rain_in":1.5,"Season":"Growing Season",
		"AntecedentRain_in":0.5,"AntecedentRainCondition":"AMC III (Wet)",
		"RainIntensity_in_hr":0.2,"PeakRunoff":150,"TimeToPeak":6}`

	rec := serve(newTestServer(rainModel{}), singleRequest(body))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var batch domain.PredictionBatch
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
	assert.Equal(t, domain.SourceSingle, batch.Source)
	require.Len(t, batch.Predictions, 1)
	assert.Equal(t, 21.0, batch.Predictions[0].Stage)
	assert.Equal(t, 2.0, batch.Predictions[0].Features.AntecedentRainCondition)
	assert.Equal(t, rec.Header().Get("X-Submission-ID"), batch.ID)
}

func TestSingle_Rejections(t *testing.T) {
	full := func(season, peak string) string {
		return fmt.Sprintf(`{"DateTime":"2021-06-15","Rain_in":1.5,"Season":%q,
			"AntecedentRain_in":0.5,"AntecedentRainCondition":"AMC I (Dry)",
			"RainIntensity_in_hr":0.2,"PeakRunoff":%s,"TimeToPeak":6}`, season, peak)
	}

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantKind   string
	}{
		{"malformed json", `{"Rain_in":`, http.StatusBadRequest, "bad_request"},
		{"wrong type", `{"Rain_in":"lots"}`, http.StatusBadRequest, "bad_request"},
		{"unknown season", full("Monsoon", "150"), http.StatusUnprocessableEntity, "unresolved_category"},
		{"null numeric", full("Growing Season", "null"), http.StatusUnprocessableEntity, "incomplete_feature_vector"},
		{"bad timestamp", strings.Replace(full("Growing Season", "150"), "2021-06-15", "soon", 1),
			http.StatusUnprocessableEntity, "invalid_timestamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newTestServer(rainModel{}), singleRequest(tt.body))

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantKind, decodeError(t, rec).Kind)
		})
	}
}

// --- history ---

func TestHistory_NotConfigured(t *testing.T) {
	rec := serve(newTestServer(rainModel{}), httptest.NewRequest(http.MethodGet, "/v1/predictions", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHistory(t *testing.T) {
	h := &fakeHistory{preds: []domain.RecordedPrediction{{
		SubmissionID: "sub-1",
		Source:       domain.SourceBatch,
		PredictedAt:  time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC),
		Prediction:   domain.Prediction{Stage: 6.5},
	}}}
	srv := newTestServer(rainModel{}, httpadapter.WithHistory(h))

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/v1/predictions?limit=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, h.limit)

	var body struct {
		Predictions []domain.RecordedPrediction `json:"predictions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Predictions, 1)
	assert.Equal(t, "sub-1", body.Predictions[0].SubmissionID)
	assert.Equal(t, 6.5, body.Predictions[0].Stage)
}

func TestHistory_DefaultsAndErrors(t *testing.T) {
	h := &fakeHistory{}
	srv := newTestServer(rainModel{}, httpadapter.WithHistory(h))

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/v1/predictions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, h.limit)
	assert.JSONEq(t, `{"predictions":[]}`, rec.Body.String())

	for _, limit := range []string{"0", "-1", "abc", "5000"} {
		rec := serve(srv, httptest.NewRequest(http.MethodGet, "/v1/predictions?limit="+limit, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, limit)
	}

	h.err = errors.New("database is locked")
	rec = serve(srv, httptest.NewRequest(http.MethodGet, "/v1/predictions", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "locked")
}
