package store

import "time"

// Voice is a persisted voice library entry.
type Voice struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Location    string    `json:"location,omitempty"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}

// Model is a persisted custom-model training record.
type Model struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	State     string    `json:"state"`
	Progress  int       `json:"progress"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Job is one generation request and its final (or in-flight) state.
type Job struct {
	ID        string    `json:"id"`
	Mode      string    `json:"mode"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	VideoPath string    `json:"video_path,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
