package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// endpointForMode maps a generation mode to its launch endpoint.
func endpointForMode(mode GenerationMode) (string, error) {
	switch mode {
	case ModeImage:
		return "/api/generate-video", nil
	case ModeText:
		return "/api/generate-video-from-text", nil
	case ModeAd:
		return "/api/generate-ad", nil
	case ModeAdvanced:
		return "/api/generate-advanced-video", nil
	default:
		return "", fmt.Errorf("unknown generation mode %q", mode)
	}
}

// Launch submits a generation request and returns the job handle. The
// service begins asynchronous work out of band; callers observe it through
// JobStatus.
func (c *HTTPClient) Launch(ctx context.Context, req LaunchRequest) (*JobHandle, error) {
	endpoint, err := endpointForMode(req.Mode)
	if err != nil {
		return nil, &LaunchError{Local: true, Message: err.Error()}
	}

	var resp launchResponse
	if err := c.postJSON(ctx, endpoint, req, &resp); err != nil {
		var he *httpError
		if errors.As(err, &he) {
			return nil, &LaunchError{StatusCode: he.StatusCode, Message: remoteMessage(he.Body)}
		}
		return nil, &LaunchError{Message: err.Error()}
	}

	if !resp.Success || resp.JobID == "" {
		return nil, &LaunchError{Message: orDefault(resp.Error, "service did not return a job id")}
	}

	c.logger.Info("generation launched", "mode", req.Mode, "job_id", resp.JobID, "status", resp.Status)
	return &JobHandle{ID: resp.JobID, InitialStatus: resp.Status}, nil
}

// JobStatus fetches one status snapshot for a job. Transport failures are
// returned as PollError; a snapshot with status "failed" is returned as data,
// not as an error, since the poller owns terminal-state handling.
func (c *HTTPClient) JobStatus(ctx context.Context, jobID string) (*JobState, error) {
	var state JobState
	if err := c.getJSON(ctx, "/api/status/"+jobID, &state); err != nil {
		return nil, &PollError{ID: jobID, Err: err}
	}
	return &state, nil
}

// Download streams a finished artifact into destDir and returns the local
// path.
func (c *HTTPClient) Download(ctx context.Context, remotePath, destDir string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/download/"+filepath.Base(remotePath), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("download failed: HTTP %d: %s", resp.StatusCode, remoteMessage(string(body)))
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("create artifacts dir: %w", err)
	}

	destPath := filepath.Join(destDir, filepath.Base(remotePath))
	f, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("create artifact file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("write artifact: %w", err)
	}

	c.logger.Info("artifact downloaded", "path", destPath, "bytes", n)
	return destPath, nil
}

// Templates fetches the template catalog.
func (c *HTTPClient) Templates(ctx context.Context) ([]Template, error) {
	var resp templatesResponse
	if err := c.getJSON(ctx, "/api/templates", &resp); err != nil {
		return nil, err
	}
	return resp.Templates, nil
}

// AvailableVoices fetches the service's stock voice catalog.
func (c *HTTPClient) AvailableVoices(ctx context.Context) ([]RemoteVoice, error) {
	var resp voicesResponse
	if err := c.getJSON(ctx, "/api/voices/available", &resp); err != nil {
		return nil, err
	}
	return resp.Voices, nil
}
