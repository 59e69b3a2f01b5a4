package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/river-stage-predictor/internal/domain"
)

// ServerModel implements domain.Model against a remote model server that
// speaks the TensorFlow Serving style REST protocol.
type ServerModel struct {
	name       string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewServerModel creates a client for the named model. Call Check before
// serving traffic.
func NewServerModel(baseURL, name string, timeout time.Duration, logger *slog.Logger) *ServerModel {
	return &ServerModel{
		name: name,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Check confirms the server has the model loaded and that it accepts the
// feature width this service produces.
func (m *ServerModel) Check(ctx context.Context) error {
	u := fmt.Sprintf("%s/v1/models/%s", m.baseURL, url.PathEscape(m.name))

	var status statusResponse
	if err := m.doRequest(ctx, http.MethodGet, u, nil, &status); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrArtifactLoadFailure, err)
	}
	if status.Features != 0 && status.Features != domain.NumFeatures {
		return fmt.Errorf("%w: model %s expects %d features, have %d",
			domain.ErrArtifactLoadFailure, m.name, status.Features, domain.NumFeatures)
	}

	m.logger.Info("model server ready", "model", m.name, "version", status.Version)
	return nil
}

// Predict sends every row in one request.
func (m *ServerModel) Predict(ctx context.Context, rows [][]float64) ([]float64, error) {
	body, err := json.Marshal(predictRequest{Instances: rows})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %w", domain.ErrInferenceFailure, err)
	}

	u := fmt.Sprintf("%s/v1/models/%s:predict", m.baseURL, url.PathEscape(m.name))

	var resp predictResponse
	if err := m.doRequest(ctx, http.MethodPost, u, body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInferenceFailure, err)
	}
	if len(resp.Predictions) != len(rows) {
		return nil, fmt.Errorf("%w: server returned %d predictions for %d rows",
			domain.ErrInferenceFailure, len(resp.Predictions), len(rows))
	}
	return resp.Predictions, nil
}

func (m *ServerModel) doRequest(ctx context.Context, method, fullURL string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("model server request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("model server error: status %d: %s", resp.StatusCode, msg)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Model server wire types.

type predictRequest struct {
	Instances [][]float64 `json:"instances"`
}

type predictResponse struct {
	Predictions []float64 `json:"predictions"`
}

type statusResponse struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Features int    `json:"features"` // 0 when the server does not report it
}
