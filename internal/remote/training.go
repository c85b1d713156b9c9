package remote

import (
	"context"
	"errors"
)

// StartTraining asks the service to begin training an uploaded model.
func (c *HTTPClient) StartTraining(ctx context.Context, modelID string) (*TrainingModelState, error) {
	req := map[string]string{"model_id": modelID}

	var resp trainingStatusResponse
	if err := c.postJSON(ctx, "/api/training/start", req, &resp); err != nil {
		var he *httpError
		if errors.As(err, &he) {
			return nil, &RemoteFailure{ID: modelID, Message: remoteMessage(he.Body)}
		}
		return nil, err
	}

	if !resp.Success || resp.Model == nil {
		return nil, &RemoteFailure{ID: modelID, Message: orDefault(resp.ErrorMsg, "training start rejected")}
	}

	c.logger.Info("training started", "model_id", modelID, "status", resp.Model.Status)
	return resp.Model, nil
}

// TrainingStatus fetches one training status snapshot. Transport failures
// come back as PollError; the training controller decides whether to tolerate
// them.
func (c *HTTPClient) TrainingStatus(ctx context.Context, modelID string) (*TrainingModelState, error) {
	var resp trainingStatusResponse
	if err := c.getJSON(ctx, "/api/training/status/"+modelID, &resp); err != nil {
		return nil, &PollError{ID: modelID, Err: err}
	}

	if !resp.Success || resp.Model == nil {
		return nil, &RemoteFailure{ID: modelID, Message: orDefault(resp.ErrorMsg, "model not found")}
	}
	return resp.Model, nil
}
