package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/reelforge/reelforge-agent/internal/playback"
	"github.com/reelforge/reelforge-agent/internal/remote"
	"github.com/reelforge/reelforge-agent/internal/session"
	"github.com/reelforge/reelforge-agent/internal/store"
)

const testToken = "test-token"

type fakeClient struct {
	mu          sync.Mutex
	photoErr    error
	launchCalls int
	templates   []remote.Template
}

func (f *fakeClient) UploadPhoto(ctx context.Context, path string) (*remote.PhotoUpload, error) {
	if f.photoErr != nil {
		return nil, f.photoErr
	}
	return &remote.PhotoUpload{Filepath: "/srv/uploads/photo.jpg", FaceDetected: true}, nil
}

func (f *fakeClient) UploadVoice(ctx context.Context, path string) (*remote.VoiceUpload, error) {
	return &remote.VoiceUpload{Success: true, VoiceID: "voice-raw", Filename: "sample.wav"}, nil
}

func (f *fakeClient) CloneVoice(ctx context.Context, samplePath, name, description string) (*remote.CloneResult, error) {
	return &remote.CloneResult{Success: true, VoiceID: "voice-cloned", VoiceName: name}, nil
}

func (f *fakeClient) UploadTraining(ctx context.Context, paths, kinds []string) (*remote.TrainingUpload, error) {
	return &remote.TrainingUpload{Success: true, ModelID: "model-1", FilesCount: len(paths)}, nil
}

func (f *fakeClient) StartTraining(ctx context.Context, modelID string) (*remote.TrainingModelState, error) {
	return &remote.TrainingModelState{ID: modelID, Status: "preprocessing"}, nil
}

func (f *fakeClient) TrainingStatus(ctx context.Context, modelID string) (*remote.TrainingModelState, error) {
	return &remote.TrainingModelState{ID: modelID, Status: "completed"}, nil
}

func (f *fakeClient) Launch(ctx context.Context, req remote.LaunchRequest) (*remote.JobHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.launchCalls++
	return &remote.JobHandle{ID: "job-1", InitialStatus: "initializing"}, nil
}

func (f *fakeClient) JobStatus(ctx context.Context, jobID string) (*remote.JobState, error) {
	return &remote.JobState{Status: "processing", Progress: 10}, nil
}

func (f *fakeClient) Download(ctx context.Context, remotePath, destDir string) (string, error) {
	return destDir + "/video.mp4", nil
}

func (f *fakeClient) Templates(ctx context.Context) ([]remote.Template, error) {
	return f.templates, nil
}

func (f *fakeClient) AvailableVoices(ctx context.Context) ([]remote.RemoteVoice, error) {
	return nil, nil
}

func newTestRepo(t *testing.T) store.Repository {
	t.Helper()
	database, err := store.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return store.NewRepository(database.Conn())
}

type testEnv struct {
	router       *chi.Mux
	client       *fakeClient
	repo         store.Repository
	sess         *session.Session
	artifactsDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := &fakeClient{}
	repo := newTestRepo(t)
	if err := repo.SetConfig(context.Background(), "auth_token", testToken); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}

	artifactsDir := t.TempDir()
	sess := session.New(session.Options{
		Client:              client,
		Repo:                repo,
		ArtifactsDir:        artifactsDir,
		JobPollInterval:     time.Hour,
		TrainingInterval:    time.Hour,
		TrainingMaxAttempts: 30,
		Logger:              logger,
	})
	t.Cleanup(sess.Close)

	router := NewRouter(ServerConfig{
		Port:         0,
		Session:      sess,
		Repository:   repo,
		Client:       client,
		Playback:     playback.NewServer(artifactsDir, logger),
		ArtifactsDir: artifactsDir,
		Logger:       logger,
		StartTime:    time.Now(),
		DeviceID:     "device-1",
	})
	return &testEnv{router: router, client: client, repo: repo, sess: sess, artifactsDir: artifactsDir}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func TestHealth_NoAuthRequired(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/health", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.DeviceID != "device-1" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestStatus_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	if rr := env.do(t, http.MethodGet, "/status", nil, false); rr.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d, want 401", rr.Code)
	}
}

func TestStatus_Idle(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/status", nil, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp StatusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.State != "idle" || resp.ActiveJob != nil {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestGenerate_Accepted(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodPost, "/generate", map[string]interface{}{
		"mode": "text", "prompt": "a city at night",
	}, true)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rr.Code, rr.Body.String())
	}

	var resp JobResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != "job-1" || resp.Status != "initializing" {
		t.Fatalf("resp = %+v", resp)
	}

	if rr := env.do(t, http.MethodGet, "/jobs/active", nil, true); rr.Code != http.StatusOK {
		t.Fatalf("active job status = %d, want 200", rr.Code)
	}
}

func TestGenerate_ValidationFailure(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodPost, "/generate", map[string]interface{}{"mode": "text"}, true)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if env.client.launchCalls != 0 {
		t.Fatalf("launch calls = %d, want 0", env.client.launchCalls)
	}
}

func TestGenerate_FaceRejection(t *testing.T) {
	env := newTestEnv(t)
	env.client.photoErr = &remote.UploadError{StatusCode: 400, Message: "no face detected", Precondition: true}

	rr := env.do(t, http.MethodPost, "/generate", map[string]interface{}{
		"mode": "image", "image_path": "/tmp/photo.jpg",
	}, true)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", rr.Code, rr.Body.String())
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != "PRECONDITION_FAILED" {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestCancelJob_NoneActive(t *testing.T) {
	env := newTestEnv(t)
	if rr := env.do(t, http.MethodPost, "/jobs/cancel", nil, true); rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestTraining_InsufficientAssets(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodPost, "/training", TrainingRequest{
		Name: "Me", Paths: []string{"a.jpg", "b.jpg"}, Kinds: []string{"image", "image"},
	}, true)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", rr.Code, rr.Body.String())
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != "INSUFFICIENT_ASSETS" {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestTrainingStatus_NoneStarted(t *testing.T) {
	env := newTestEnv(t)
	if rr := env.do(t, http.MethodGet, "/training/status", nil, true); rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestVoiceFlow_KeepViaAPI(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/voices", VoiceUploadRequest{Path: "/tmp/sample.wav"}, true)
	if rr.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, want 201: %s", rr.Code, rr.Body.String())
	}
	var uploaded VoiceUploadResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &uploaded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !uploaded.DecisionPending || uploaded.VoiceID != "voice-raw" {
		t.Fatalf("resp = %+v", uploaded)
	}

	rr = env.do(t, http.MethodPost, "/voices/"+uploaded.VoiceID+"/keep", nil, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("keep status = %d, want 200: %s", rr.Code, rr.Body.String())
	}

	// The decision is spent.
	rr = env.do(t, http.MethodPost, "/voices/"+uploaded.VoiceID+"/keep", nil, true)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second keep status = %d, want 404", rr.Code)
	}
}

func TestVoiceFlow_CloneViaAPI(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/voices", VoiceUploadRequest{Path: "/tmp/sample.wav"}, true)
	if rr.Code != http.StatusCreated {
		t.Fatalf("upload status = %d: %s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, http.MethodPost, "/voices/voice-raw/clone", VoiceCloneRequest{Name: "My Voice"}, true)
	if rr.Code != http.StatusCreated {
		t.Fatalf("clone status = %d, want 201: %s", rr.Code, rr.Body.String())
	}
	var cloned VoiceResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &cloned); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cloned.ID != "voice-cloned" || !cloned.Selected {
		t.Fatalf("cloned = %+v", cloned)
	}
}

func TestVoiceClone_EmptyNameKeepsDecisionOpen(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/voices", VoiceUploadRequest{Path: "/tmp/sample.wav"}, true)

	rr := env.do(t, http.MethodPost, "/voices/voice-raw/clone", VoiceCloneRequest{}, true)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("clone status = %d, want 400", rr.Code)
	}

	// Still resolvable afterwards.
	rr = env.do(t, http.MethodPost, "/voices/voice-raw/keep", nil, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("keep status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
}

func TestDeleteVoice(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/voices", VoiceUploadRequest{Path: "/tmp/sample.wav"}, true)
	env.do(t, http.MethodPost, "/voices/voice-raw/keep", nil, true)
	if got := env.sess.Voices().Selected(); got != "voice-raw" {
		t.Fatalf("Selected() = %q, want voice-raw", got)
	}

	rr := env.do(t, http.MethodDelete, "/voices/voice-raw", nil, true)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204: %s", rr.Code, rr.Body.String())
	}
	if got := env.sess.Voices().Selected(); got != "" {
		t.Fatalf("Selected() after delete = %q, want empty", got)
	}

	rr = env.do(t, http.MethodDelete, "/voices/voice-raw", nil, true)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rr.Code)
	}
}

func TestListModels_OnlyCompleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.repo.SaveModel(ctx, &store.Model{ID: "m1", Name: "Me", State: "completed", Progress: 100}); err != nil {
		t.Fatalf("SaveModel() error = %v", err)
	}
	if err := env.repo.SaveModel(ctx, &store.Model{ID: "m2", Name: "Draft", State: "failed"}); err != nil {
		t.Fatalf("SaveModel() error = %v", err)
	}

	rr := env.do(t, http.MethodGet, "/models", nil, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	var resp ModelsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Models) != 1 || resp.Models[0].ID != "m1" || resp.Models[0].Name != "Me" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestTemplatesProxy(t *testing.T) {
	env := newTestEnv(t)
	env.client.templates = []remote.Template{{ID: "t1", Name: "Product Demo", Category: "ads"}}

	rr := env.do(t, http.MethodGet, "/templates", nil, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp TemplatesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Templates) != 1 || resp.Templates[0].ID != "t1" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestPlayback_ServesRecordedArtifact(t *testing.T) {
	env := newTestEnv(t)

	artifact := filepath.Join(env.artifactsDir, "video_job9.mp4")
	if err := os.WriteFile(artifact, []byte("0123456789"), 0644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	if err := env.repo.UpsertJob(context.Background(), &store.Job{
		ID: "job-9", Mode: "text", Status: "completed", Progress: 100, VideoPath: artifact,
	}); err != nil {
		t.Fatalf("UpsertJob() error = %v", err)
	}

	rr := env.do(t, http.MethodGet, "/playback/artifact?job_id=job-9", nil, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	if rr.Body.String() != "0123456789" {
		t.Fatalf("body = %q", rr.Body.String())
	}
}

func TestPlayback_UnknownJob(t *testing.T) {
	env := newTestEnv(t)
	if rr := env.do(t, http.MethodGet, "/playback/artifact?job_id=nope", nil, true); rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}
