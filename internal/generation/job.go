// Package generation holds the client-side model of one remote generation
// job: its status vocabulary, progress derivation, and the polling watcher
// that drives it to a terminal state.
package generation

import (
	"time"

	"github.com/reelforge/reelforge-agent/internal/remote"
)

// Status is a phase label reported by the generation service. The vocabulary
// is open: the service grows new labels independently of this client, so
// unknown values are tolerated and treated as in-progress.
type Status string

const (
	StatusInitializing     Status = "initializing"
	StatusPending          Status = "pending"
	StatusProcessing       Status = "processing"
	StatusGeneratingScript Status = "generating_script"
	StatusGeneratingVideo  Status = "generating_video"
	StatusAddingVoiceover  Status = "adding_voiceover"
	StatusEnhancingVideo   Status = "enhancing_video"
	StatusProcessingAudio  Status = "processing_audio"
	StatusFinalizing       Status = "finalizing"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
)

// Terminal reports whether no further transition can occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is the session-scoped view of one in-flight or completed generation
// request.
type Job struct {
	ID                     string             `json:"id"`
	Mode                   string             `json:"mode,omitempty"`
	Status                 Status             `json:"status"`
	Progress               int                `json:"progress"`
	EstimatedTimeRemaining *int               `json:"estimated_time_remaining,omitempty"`
	Result                 *remote.JobResult  `json:"result,omitempty"`
	Error                  string             `json:"error,omitempty"`
	StartedAt              time.Time          `json:"started_at"`
	UpdatedAt              time.Time          `json:"updated_at"`
}

// NewJob creates the record for a freshly launched job.
func NewJob(id, mode string) *Job {
	now := time.Now()
	return &Job{
		ID:        id,
		Mode:      mode,
		Status:    StatusInitializing,
		Progress:  0,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Apply folds one observed status snapshot into the job. Progress never
// decreases while non-terminal, and result/error stay mutually exclusive.
func (j *Job) Apply(state *remote.JobState) {
	j.Status = Status(state.Status)
	if state.Progress > j.Progress {
		j.Progress = state.Progress
	}
	j.EstimatedTimeRemaining = state.EstimatedTimeRemaining
	j.UpdatedAt = time.Now()

	switch j.Status {
	case StatusCompleted:
		j.Progress = 100
		j.Result = state.Result
		j.Error = ""
	case StatusFailed:
		j.Result = nil
		j.Error = state.Error
		if j.Error == "" {
			j.Error = "generation failed"
		}
	}

	// Some service paths omit the hint; derive an advisory one from elapsed
	// time once progress is meaningful.
	if j.EstimatedTimeRemaining == nil && !j.Status.Terminal() {
		j.EstimatedTimeRemaining = EstimateRemaining(time.Since(j.StartedAt), j.Progress, nil)
	}
}

// Fail marks the job failed with a client-side message, e.g. when status
// checking itself broke down.
func (j *Job) Fail(message string) {
	j.Status = StatusFailed
	j.Result = nil
	j.Error = message
	j.UpdatedAt = time.Now()
}

// Clone returns an independent copy safe to hand to other goroutines.
func (j *Job) Clone() *Job {
	c := *j
	if j.EstimatedTimeRemaining != nil {
		v := *j.EstimatedTimeRemaining
		c.EstimatedTimeRemaining = &v
	}
	if j.Result != nil {
		r := *j.Result
		c.Result = &r
	}
	return &c
}
