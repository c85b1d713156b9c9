package remote

import "fmt"

// UploadError represents a failed asset upload: either a transport/HTTP
// failure or a remote precondition rejection (e.g. no detectable face).
type UploadError struct {
	StatusCode   int
	Message      string
	Precondition bool
}

func (e *UploadError) Error() string {
	if e.Precondition {
		return fmt.Sprintf("upload rejected: %s", e.Message)
	}
	return fmt.Sprintf("upload failed: HTTP %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true for server errors (5xx). Client errors and
// precondition rejections are permanent.
func (e *UploadError) IsRetryable() bool {
	return !e.Precondition && e.StatusCode >= 500
}

// LaunchError represents a rejected generation request, either locally
// (malformed config, caught before any network call) or by the service.
type LaunchError struct {
	StatusCode int
	Message    string
	Local      bool
}

func (e *LaunchError) Error() string {
	if e.Local {
		return fmt.Sprintf("invalid generation config: %s", e.Message)
	}
	return fmt.Sprintf("generation request rejected: HTTP %d: %s", e.StatusCode, e.Message)
}

// PollError represents a transport-level failure while checking the status
// of a job or training model. The job itself may still be running remotely.
type PollError struct {
	ID  string
	Err error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("status check for %s failed: %v", e.ID, e.Err)
}

func (e *PollError) Unwrap() error {
	return e.Err
}

// RemoteFailure represents a job or training run that the service itself
// reported as failed, with the service's message.
type RemoteFailure struct {
	ID      string
	Message string
}

func (e *RemoteFailure) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote operation %s failed", e.ID)
	}
	return fmt.Sprintf("remote operation %s failed: %s", e.ID, e.Message)
}
