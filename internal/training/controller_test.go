package training

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/reelforge/reelforge-agent/internal/remote"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeService scripts the remote training endpoints and counts calls.
type fakeService struct {
	mu          sync.Mutex
	uploadErr   error
	startErr    error
	statuses    []string
	statusErrs  []error
	uploadCalls int
	startCalls  int
	statusCalls int
}

func (f *fakeService) UploadTraining(ctx context.Context, paths, kinds []string) (*remote.TrainingUpload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadCalls++
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &remote.TrainingUpload{Success: true, ModelID: "m-1", FilesCount: len(paths)}, nil
}

func (f *fakeService) StartTraining(ctx context.Context, modelID string) (*remote.TrainingModelState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &remote.TrainingModelState{ID: modelID, Status: "training"}, nil
}

func (f *fakeService) TrainingStatus(ctx context.Context, modelID string) (*remote.TrainingModelState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.statusCalls
	f.statusCalls++
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	if f.statusErrs != nil && f.statusErrs[i] != nil {
		return nil, f.statusErrs[i]
	}
	return &remote.TrainingModelState{ID: modelID, Status: f.statuses[i]}, nil
}

func (f *fakeService) counts() (int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploadCalls, f.startCalls, f.statusCalls
}

func newTestController(service Service, maxAttempts int) *Controller {
	return NewController(service, time.Millisecond, maxAttempts, testLogger())
}

func assetBatch() ([]string, []string) {
	return []string{"a.jpg", "b.jpg", "c.mp4"}, []string{"image", "image", "video"}
}

func TestRun_RejectsFewerThanThreeAssetsWithoutNetwork(t *testing.T) {
	service := &fakeService{}
	c := newTestController(service, 30)

	_, err := c.Run(context.Background(), []string{"a.jpg", "b.jpg"}, []string{"image", "image"})
	if !errors.Is(err, ErrInsufficientAssets) {
		t.Fatalf("err = %v, want ErrInsufficientAssets", err)
	}

	up, start, status := service.counts()
	if up != 0 || start != 0 || status != 0 {
		t.Errorf("network calls issued for rejected batch: %d/%d/%d", up, start, status)
	}
}

func TestRun_HappyPathPhaseCheckpoints(t *testing.T) {
	service := &fakeService{statuses: []string{
		"preprocessing", "feature_extraction", "training", "finetuning", "completed",
	}}
	c := newTestController(service, 30)

	var snapshots []*Model
	c.OnUpdate = func(m *Model) { snapshots = append(snapshots, m) }

	paths, kinds := assetBatch()
	model, err := c.Run(context.Background(), paths, kinds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if model.State != StateCompleted {
		t.Fatalf("state = %s, want completed", model.State)
	}
	if model.ID != "m-1" {
		t.Errorf("model id = %q, want m-1", model.ID)
	}
	if model.Progress != 100 {
		t.Errorf("progress = %d, want 100", model.Progress)
	}

	wantCheckpoints := map[string]int{
		"preprocessing":      60,
		"feature_extraction": 70,
		"training":           80,
		"finetuning":         90,
	}
	seen := map[string]int{}
	for _, s := range snapshots {
		if s.Phase != "" {
			seen[s.Phase] = s.Progress
		}
	}
	for phase, want := range wantCheckpoints {
		if seen[phase] < want {
			t.Errorf("phase %s progress = %d, want >= %d", phase, seen[phase], want)
		}
	}

	// Progress must be monotonic across all snapshots.
	for i := 1; i < len(snapshots); i++ {
		if snapshots[i].State.Terminal() && snapshots[i].State != StateCompleted {
			continue
		}
		if snapshots[i].Progress < snapshots[i-1].Progress {
			t.Errorf("progress regressed at snapshot %d: %d -> %d",
				i, snapshots[i-1].Progress, snapshots[i].Progress)
		}
	}
}

func TestRun_UploadFailureEndsRun(t *testing.T) {
	service := &fakeService{uploadErr: &remote.UploadError{StatusCode: 500, Message: "storage down"}}
	c := newTestController(service, 30)

	paths, kinds := assetBatch()
	model, err := c.Run(context.Background(), paths, kinds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.State != StateFailed {
		t.Fatalf("state = %s, want failed", model.State)
	}

	_, start, _ := service.counts()
	if start != 0 {
		t.Error("start-training issued after failed upload")
	}
}

func TestRun_StartRejectionEndsRun(t *testing.T) {
	service := &fakeService{startErr: &remote.RemoteFailure{ID: "m-1", Message: "quota exceeded"}}
	c := newTestController(service, 30)

	paths, kinds := assetBatch()
	model, _ := c.Run(context.Background(), paths, kinds)
	if model.State != StateFailed {
		t.Fatalf("state = %s, want failed", model.State)
	}

	_, _, status := service.counts()
	if status != 0 {
		t.Error("polling started after rejected start request")
	}
}

func TestRun_RemoteFailedPhaseAbortsImmediately(t *testing.T) {
	service := &fakeService{statuses: []string{"preprocessing", "failed"}}
	c := newTestController(service, 30)

	paths, kinds := assetBatch()
	model, _ := c.Run(context.Background(), paths, kinds)

	if model.State != StateFailed {
		t.Fatalf("state = %s, want failed", model.State)
	}
	_, _, status := service.counts()
	if status != 2 {
		t.Errorf("status calls = %d, want 2 (abort on failed)", status)
	}
}

func TestRun_TransportErrorsConsumeAttemptsWithoutAborting(t *testing.T) {
	pollErr := &remote.PollError{ID: "m-1", Err: errors.New("timeout")}
	service := &fakeService{
		statuses:   []string{"", "", "completed"},
		statusErrs: []error{pollErr, pollErr, nil},
	}
	c := newTestController(service, 30)

	paths, kinds := assetBatch()
	model, _ := c.Run(context.Background(), paths, kinds)

	if model.State != StateCompleted {
		t.Fatalf("state = %s, want completed despite transient errors", model.State)
	}
	_, _, status := service.counts()
	if status != 3 {
		t.Errorf("status calls = %d, want 3", status)
	}
}

func TestRun_TimesOutAfterExactlyMaxAttempts(t *testing.T) {
	service := &fakeService{statuses: []string{"training"}}
	c := newTestController(service, 30)

	paths, kinds := assetBatch()
	model, _ := c.Run(context.Background(), paths, kinds)

	if model.State != StateTimedOut {
		t.Fatalf("state = %s, want timed_out", model.State)
	}
	_, _, status := service.counts()
	if status != 30 {
		t.Errorf("status calls = %d, want exactly 30", status)
	}
	if model.Error == "" || model.State == StateFailed {
		t.Error("timeout must carry the still-running-remotely message, not a hard failure")
	}
}

func TestRun_RemoteFailureDuringPollAborts(t *testing.T) {
	service := &fakeService{
		statuses:   []string{""},
		statusErrs: []error{&remote.RemoteFailure{ID: "m-1", Message: "model not found"}},
	}
	c := newTestController(service, 30)

	paths, kinds := assetBatch()
	model, _ := c.Run(context.Background(), paths, kinds)

	if model.State != StateFailed {
		t.Fatalf("state = %s, want failed", model.State)
	}
	if model.Error != "model not found" {
		t.Errorf("error = %q, want remote message", model.Error)
	}
}

func TestDescribePhase_IsTotal(t *testing.T) {
	if DescribePhase("quantum_annealing") == "" {
		t.Error("unknown phase must still describe")
	}
	if DescribePhase(PhaseFinetuning) != "Fine-tuning model" {
		t.Errorf("DescribePhase(finetuning) = %q", DescribePhase(PhaseFinetuning))
	}
}
