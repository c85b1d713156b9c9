package api

import (
	"time"

	"github.com/reelforge/reelforge-agent/internal/generation"
	"github.com/reelforge/reelforge-agent/internal/store"
	"github.com/reelforge/reelforge-agent/internal/training"
	"github.com/reelforge/reelforge-agent/internal/voice"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type StatusResponse struct {
	State         string            `json:"state"`
	ActiveJob     *JobResponse      `json:"active_job,omitempty"`
	Training      *TrainingResponse `json:"training,omitempty"`
	SelectedVoice string            `json:"selected_voice,omitempty"`
}

type JobResponse struct {
	ID            string `json:"id"`
	Mode          string `json:"mode,omitempty"`
	Status        string `json:"status"`
	StatusText    string `json:"status_text"`
	Progress      int    `json:"progress"`
	TimeRemaining string `json:"time_remaining"`
	VideoPath     string `json:"video_path,omitempty"`
	Script        string `json:"script,omitempty"`
	Error         string `json:"error,omitempty"`
	StartedAt     string `json:"started_at"`
	UpdatedAt     string `json:"updated_at"`
}

type JobRecordResponse struct {
	ID        string `json:"id"`
	Mode      string `json:"mode"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	VideoPath string `json:"video_path,omitempty"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type JobsResponse struct {
	Jobs []JobRecordResponse `json:"jobs"`
}

type TrainingResponse struct {
	ModelID    string `json:"model_id,omitempty"`
	State      string `json:"state"`
	Phase      string `json:"phase,omitempty"`
	PhaseText  string `json:"phase_text,omitempty"`
	Progress   int    `json:"progress"`
	FilesCount int    `json:"files_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

type ModelRecordResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	State     string `json:"state"`
	CreatedAt string `json:"created_at"`
}

type ModelsResponse struct {
	Models []ModelRecordResponse `json:"models"`
}

type TrainingRequest struct {
	Name  string   `json:"name"`
	Paths []string `json:"paths"`
	Kinds []string `json:"kinds"`
}

type VoiceUploadRequest struct {
	Path string `json:"path"`
}

type VoiceUploadResponse struct {
	VoiceID         string `json:"voice_id"`
	DisplayName     string `json:"display_name"`
	DecisionPending bool   `json:"decision_pending"`
}

type VoiceCloneRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type VoiceResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Category    string `json:"category"`
	Selected    bool   `json:"selected"`
}

type VoicesResponse struct {
	Voices []VoiceResponse `json:"voices"`
}

type VoiceSelectRequest struct {
	VoiceID string `json:"voice_id"`
}

type TemplateResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

type TemplatesResponse struct {
	Templates []TemplateResponse `json:"templates"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func JobToResponse(j *generation.Job) JobResponse {
	resp := JobResponse{
		ID:            j.ID,
		Mode:          j.Mode,
		Status:        string(j.Status),
		StatusText:    generation.Describe(j.Status),
		Progress:      j.Progress,
		TimeRemaining: generation.FormatRemaining(j.EstimatedTimeRemaining),
		Error:         j.Error,
		StartedAt:     j.StartedAt.Format(time.RFC3339),
		UpdatedAt:     j.UpdatedAt.Format(time.RFC3339),
	}
	if j.Result != nil {
		resp.VideoPath = j.Result.VideoPath
		resp.Script = j.Result.Script
	}
	return resp
}

func JobRecordToResponse(j *store.Job) JobRecordResponse {
	return JobRecordResponse{
		ID:        j.ID,
		Mode:      j.Mode,
		Status:    j.Status,
		Progress:  j.Progress,
		VideoPath: j.VideoPath,
		Error:     j.Error,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
		UpdatedAt: j.UpdatedAt.Format(time.RFC3339),
	}
}

func ModelRecordToResponse(m *store.Model) ModelRecordResponse {
	return ModelRecordResponse{
		ID:        m.ID,
		Name:      m.Name,
		State:     m.State,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}

func TrainingToResponse(m *training.Model) TrainingResponse {
	return TrainingResponse{
		ModelID:    m.ID,
		State:      string(m.State),
		Phase:      m.Phase,
		PhaseText:  training.DescribePhase(m.Phase),
		Progress:   m.Progress,
		FilesCount: m.FilesCount,
		Error:      m.Error,
	}
}

func VoiceToResponse(a voice.Asset, selected string) VoiceResponse {
	return VoiceResponse{
		ID:          a.ID,
		DisplayName: a.DisplayName,
		Category:    a.Category,
		Selected:    a.ID == selected,
	}
}
