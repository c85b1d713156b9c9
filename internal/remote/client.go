// Package remote implements the HTTP client for the ReelForge generation
// service: asset uploads, generation launches, status queries, voice cloning
// and model training requests.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Client is the boundary to the remote generation service. All methods are
// single-shot: retry and polling policy belongs to the callers.
type Client interface {
	UploadPhoto(ctx context.Context, path string) (*PhotoUpload, error)
	UploadVoice(ctx context.Context, path string) (*VoiceUpload, error)
	CloneVoice(ctx context.Context, samplePath, name, description string) (*CloneResult, error)
	UploadTraining(ctx context.Context, paths, kinds []string) (*TrainingUpload, error)
	StartTraining(ctx context.Context, modelID string) (*TrainingModelState, error)
	TrainingStatus(ctx context.Context, modelID string) (*TrainingModelState, error)
	Launch(ctx context.Context, req LaunchRequest) (*JobHandle, error)
	JobStatus(ctx context.Context, jobID string) (*JobState, error)
	Download(ctx context.Context, remotePath, destDir string) (string, error)
	Templates(ctx context.Context) ([]Template, error)
	AvailableVoices(ctx context.Context) ([]RemoteVoice, error)
}

// HTTPClient talks to the ReelForge service over HTTP with bearer auth.
type HTTPClient struct {
	baseURL    string
	token      string
	deviceID   string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPClient(baseURL, token string, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

func (c *HTTPClient) SetDeviceID(id string) {
	c.deviceID = id
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("X-ReelForge-Request-Id", uuid.NewString())
	if c.deviceID != "" {
		req.Header.Set("X-ReelForge-Device-Id", c.deviceID)
	}
	return req, nil
}

// postJSON marshals body, issues the request and decodes a 2xx response into
// out. Non-2xx responses are returned as an httpError with a bounded body.
func (c *HTTPClient) postJSON(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &httpError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// httpError is an internal transport-level error; endpoint methods translate
// it into the typed errors callers expect.
type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// remoteMessage extracts the error field from a JSON error body, falling
// back to the raw body.
func remoteMessage(body string) string {
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Detail != "" {
			return payload.Detail
		}
	}
	return body
}
