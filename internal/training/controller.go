package training

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/reelforge/reelforge-agent/internal/remote"
)

// ErrInsufficientAssets is returned before any network call when fewer than
// MinAssets training files are supplied.
var ErrInsufficientAssets = errors.New("at least 3 training files are required")

// Service is the slice of the remote client the controller needs.
type Service interface {
	UploadTraining(ctx context.Context, paths, kinds []string) (*remote.TrainingUpload, error)
	StartTraining(ctx context.Context, modelID string) (*remote.TrainingModelState, error)
	TrainingStatus(ctx context.Context, modelID string) (*remote.TrainingModelState, error)
}

// Controller runs one training lifecycle: uploading -> queued -> polling ->
// {completed, failed, timed_out}.
//
// Unlike the generation watcher, the polling stage tolerates transport
// failures: training runs for minutes, so a network hiccup only consumes one
// of the bounded attempts instead of aborting the run. The attempt ceiling
// is the only local cancellation mechanism; the remote process has no
// cancel endpoint and is simply abandoned on timeout.
type Controller struct {
	service     Service
	logger      *slog.Logger
	interval    time.Duration
	maxAttempts int

	// OnUpdate, when set, receives a snapshot after every state change.
	OnUpdate func(*Model)
}

func NewController(service Service, interval time.Duration, maxAttempts int, logger *slog.Logger) *Controller {
	return &Controller{
		service:     service,
		logger:      logger,
		interval:    interval,
		maxAttempts: maxAttempts,
	}
}

// Run drives one training run to a terminal state. Only the asset-count
// precondition is returned as an error; every remote outcome, including
// failure and timeout, is encoded in the returned Model.
func (c *Controller) Run(ctx context.Context, paths, kinds []string) (*Model, error) {
	if len(paths) < MinAssets {
		return nil, ErrInsufficientAssets
	}

	now := time.Now()
	model := &Model{State: StateUploading, Progress: 10, StartedAt: now, UpdatedAt: now}
	c.notify(model)

	upload, err := c.service.UploadTraining(ctx, paths, kinds)
	if err != nil {
		c.logger.Error("training upload failed", "error", err)
		model.Error = err.Error()
		model.setState(StateFailed, 0)
		c.notify(model)
		return model, nil
	}

	model.ID = upload.ModelID
	model.FilesCount = upload.FilesCount
	model.setState(StateQueued, 30)
	c.notify(model)
	c.logger.Info("training assets accepted", "model_id", model.ID, "files_count", model.FilesCount)

	if _, err := c.service.StartTraining(ctx, model.ID); err != nil {
		c.logger.Error("training start rejected", "model_id", model.ID, "error", err)
		model.Error = err.Error()
		model.setState(StateFailed, 0)
		c.notify(model)
		return model, nil
	}

	model.setState(StatePolling, 50)
	c.notify(model)

	c.poll(ctx, model)
	return model, nil
}

// poll queries training status every interval, up to maxAttempts times.
func (c *Controller) poll(ctx context.Context, model *Model) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			model.Error = "training abandoned locally"
			model.setState(StateTimedOut, 0)
			c.notify(model)
			return
		case <-ticker.C:
		}

		state, err := c.service.TrainingStatus(ctx, model.ID)
		if err != nil {
			var rf *remote.RemoteFailure
			if errors.As(err, &rf) {
				model.Error = rf.Message
				model.setState(StateFailed, 0)
				c.notify(model)
				return
			}
			// Transport hiccup: expected to recover, costs one attempt.
			c.logger.Warn("training status check failed",
				"model_id", model.ID, "attempt", attempt, "error", err)
			continue
		}

		model.setPhase(state.Status)
		c.logger.Info("training status", "model_id", model.ID, "phase", state.Status, "attempt", attempt)

		switch state.Status {
		case PhaseCompleted:
			model.setState(StateCompleted, 100)
			c.notify(model)
			return
		case PhaseFailed:
			model.Error = "training failed"
			model.setState(StateFailed, 0)
			c.notify(model)
			return
		}
		c.notify(model)
	}

	// Ceiling reached without a terminal phase. The remote run is not
	// canceled; surface that rather than a hard failure.
	c.logger.Warn("training polling ceiling reached", "model_id", model.ID, "attempts", c.maxAttempts)
	model.Error = "training timed out - the model may still be processing remotely"
	model.setState(StateTimedOut, 0)
	c.notify(model)
}

func (c *Controller) notify(model *Model) {
	if c.OnUpdate != nil {
		c.OnUpdate(model.Clone())
	}
}
