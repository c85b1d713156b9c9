// Package training drives the custom-model training pipeline: batch upload,
// start request, and a bounded tolerant polling loop with a hard local
// ceiling. Its phase vocabulary and timing are distinct from the generic
// generation poller.
package training

import "time"

// State is the controller's own lifecycle state, distinct from the remote
// phase labels it observes.
type State string

const (
	StateUploading State = "uploading"
	StateQueued    State = "queued"
	StatePolling   State = "polling"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed_out"
)

// Terminal reports whether the controller has stopped driving the model.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateTimedOut
}

// Remote phase labels, in pipeline order.
const (
	PhasePreprocessing     = "preprocessing"
	PhaseFeatureExtraction = "feature_extraction"
	PhaseTraining          = "training"
	PhaseFinetuning        = "finetuning"
	PhaseCompleted         = "completed"
	PhaseFailed            = "failed"
)

// phaseProgress maps each remote phase to its fixed progress checkpoint.
// Checkpoints start at 60 because upload and start already account for the
// first half of the bar.
var phaseProgress = map[string]int{
	PhasePreprocessing:     60,
	PhaseFeatureExtraction: 70,
	PhaseTraining:          80,
	PhaseFinetuning:        90,
	PhaseCompleted:         100,
}

// phaseDescriptions for the training pipeline's own vocabulary.
var phaseDescriptions = map[string]string{
	PhasePreprocessing:     "Preprocessing training data",
	PhaseFeatureExtraction: "Extracting features",
	PhaseTraining:          "Training model",
	PhaseFinetuning:        "Fine-tuning model",
	PhaseCompleted:         "Training completed",
	PhaseFailed:            "Training failed",
}

// DescribePhase is total over any phase label, like the generation describe.
func DescribePhase(phase string) string {
	if d, ok := phaseDescriptions[phase]; ok {
		return d
	}
	return "Training in progress"
}

// MinAssets is the smallest batch the pipeline accepts.
const MinAssets = 3

// Model is the session-scoped view of one training run.
type Model struct {
	ID         string    `json:"id"`
	State      State     `json:"state"`
	Phase      string    `json:"phase,omitempty"`
	Progress   int       `json:"progress"`
	FilesCount int       `json:"files_count"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// setPhase applies an observed remote phase and its progress checkpoint.
// Progress only moves forward: a transient stale read cannot regress it.
func (m *Model) setPhase(phase string) {
	m.Phase = phase
	if p, ok := phaseProgress[phase]; ok && p > m.Progress {
		m.Progress = p
	}
	m.UpdatedAt = time.Now()
}

func (m *Model) setState(state State, progress int) {
	m.State = state
	if progress > m.Progress {
		m.Progress = progress
	}
	m.UpdatedAt = time.Now()
}

// Clone returns an independent copy safe for other goroutines.
func (m *Model) Clone() *Model {
	c := *m
	return &c
}
