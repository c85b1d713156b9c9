package generation

import (
	"testing"
	"time"

	"github.com/reelforge/reelforge-agent/internal/remote"
)

func TestJobApply_ProgressNeverDecreases(t *testing.T) {
	job := NewJob("job-1", "image")

	job.Apply(&remote.JobState{Status: "generating_video", Progress: 40})
	if job.Progress != 40 {
		t.Fatalf("progress = %d, want 40", job.Progress)
	}

	// A stale duplicate read must not regress progress.
	job.Apply(&remote.JobState{Status: "generating_video", Progress: 30})
	if job.Progress != 40 {
		t.Errorf("progress regressed to %d after stale read", job.Progress)
	}

	job.Apply(&remote.JobState{Status: "finalizing", Progress: 90})
	if job.Progress != 90 {
		t.Errorf("progress = %d, want 90", job.Progress)
	}
}

func TestJobApply_CompletedClearsError(t *testing.T) {
	job := NewJob("job-1", "text")
	job.Error = "transient"

	job.Apply(&remote.JobState{
		Status:   "completed",
		Progress: 100,
		Result:   &remote.JobResult{VideoPath: "out.mp4"},
	})

	if job.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", job.Status)
	}
	if job.Result == nil || job.Result.VideoPath != "out.mp4" {
		t.Errorf("result = %+v, want video path", job.Result)
	}
	if job.Error != "" {
		t.Error("completed job must not carry an error")
	}
	if job.Progress != 100 {
		t.Errorf("progress = %d, want 100", job.Progress)
	}
}

func TestJobApply_FailedClearsResult(t *testing.T) {
	job := NewJob("job-1", "text")
	job.Result = &remote.JobResult{VideoPath: "stale.mp4"}

	job.Apply(&remote.JobState{Status: "failed", Error: "gpu quota exceeded"})

	if job.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	if job.Result != nil {
		t.Error("failed job must not carry a result")
	}
	if job.Error != "gpu quota exceeded" {
		t.Errorf("error = %q", job.Error)
	}
}

func TestJobApply_UnknownStatusIsInProgress(t *testing.T) {
	job := NewJob("job-1", "advanced")

	job.Apply(&remote.JobState{Status: "upscaling_frames", Progress: 55})

	if job.Status.Terminal() {
		t.Error("unknown status must not be terminal")
	}
	if job.Progress != 55 {
		t.Errorf("progress = %d, want 55", job.Progress)
	}
}

func TestJobApply_DerivesEstimateWhenHintAbsent(t *testing.T) {
	job := NewJob("job-1", "text")
	job.StartedAt = time.Now().Add(-30 * time.Second)

	// Half done after 30s: about 30s should remain.
	job.Apply(&remote.JobState{Status: "generating_video", Progress: 50})

	if job.EstimatedTimeRemaining == nil {
		t.Fatal("no estimate derived from elapsed time")
	}
	if got := *job.EstimatedTimeRemaining; got < 25 || got > 35 {
		t.Errorf("estimate = %ds, want about 30s", got)
	}
}

func TestJobApply_ServiceHintWins(t *testing.T) {
	job := NewJob("job-1", "text")
	job.StartedAt = time.Now().Add(-30 * time.Second)
	hint := 42

	job.Apply(&remote.JobState{Status: "generating_video", Progress: 50, EstimatedTimeRemaining: &hint})

	if job.EstimatedTimeRemaining == nil || *job.EstimatedTimeRemaining != 42 {
		t.Errorf("estimate = %v, want the service's 42", job.EstimatedTimeRemaining)
	}
}

func TestJobApply_NoEstimateOnEarlyProgress(t *testing.T) {
	job := NewJob("job-1", "text")
	job.StartedAt = time.Now().Add(-30 * time.Second)

	job.Apply(&remote.JobState{Status: "initializing", Progress: 5})

	if job.EstimatedTimeRemaining != nil {
		t.Errorf("estimate = %v, want none below the sampling threshold", job.EstimatedTimeRemaining)
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusFailed} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusInitializing, StatusGeneratingVideo, "mystery_phase"} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
