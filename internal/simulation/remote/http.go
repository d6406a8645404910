package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fleetpulse/internal/domain/telemetry"
	"fleetpulse/internal/ingestion"
)

const defaultHTTPTimeout = 10 * time.Second

// HTTPSink delivers simulated telemetry to a running API server.
type HTTPSink struct {
	baseURL string
	client  *http.Client
}

var _ ingestion.Ingestor = (*HTTPSink)(nil)

// NewHTTPSink targets baseURL, for example http://localhost:8080/api/v1.
// A nil client uses one with a 10 second timeout.
func NewHTTPSink(baseURL string, client *http.Client) *HTTPSink {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPSink{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// apiResponse mirrors the server's response envelope.
type apiResponse struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
	Details json.RawMessage `json:"details"`
}

func (s *HTTPSink) Ingest(ctx context.Context, payload *ingestion.ReadingPayload) (*ingestion.Result, error) {
	var result ingestion.Result
	if err := s.post(ctx, "/telemetry", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *HTTPSink) RegisterDevice(ctx context.Context, req *ingestion.RegisterDeviceRequest) (*telemetry.Device, error) {
	var device telemetry.Device
	if err := s.post(ctx, "/devices", req, &device); err != nil {
		return nil, err
	}
	return &device, nil
}

func (s *HTTPSink) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("post %s: status %d: undecodable response", path, resp.StatusCode)
	}
	if resp.StatusCode >= 300 || !envelope.Success {
		if len(envelope.Details) > 0 {
			return fmt.Errorf("post %s: status %d: %s: %s", path, resp.StatusCode, envelope.Error, envelope.Details)
		}
		return fmt.Errorf("post %s: status %d: %s", path, resp.StatusCode, envelope.Error)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return nil
}
