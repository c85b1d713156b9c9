package remote

// Wire types for the ReelForge generation service API.

// GenerationMode selects which generation endpoint a launch request targets.
type GenerationMode string

const (
	ModeImage    GenerationMode = "image"
	ModeText     GenerationMode = "text"
	ModeAd       GenerationMode = "ad"
	ModeAdvanced GenerationMode = "advanced"
)

// LaunchRequest is the JSON body for the generate-video family of endpoints.
// Style and Template are opaque selectors forwarded verbatim.
type LaunchRequest struct {
	Mode         GenerationMode `json:"-"`
	ImagePath    string         `json:"image_path,omitempty"`
	Prompt       string         `json:"prompt,omitempty"`
	Style        string         `json:"style,omitempty"`
	Template     string         `json:"template,omitempty"`
	Duration     int            `json:"duration,omitempty"`
	AddVoiceover bool           `json:"add_voiceover,omitempty"`
	VoiceID      string         `json:"voice_id,omitempty"`
	ModelID      string         `json:"model_id,omitempty"`
}

type launchResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// JobHandle identifies a launched generation job.
type JobHandle struct {
	ID            string
	InitialStatus string
}

// JobResult is the payload attached to a completed job.
type JobResult struct {
	VideoPath       string   `json:"video_path"`
	Script          string   `json:"script,omitempty"`
	Effects         []string `json:"effects,omitempty"`
	UsedCustomVoice bool     `json:"used_custom_voice,omitempty"`
	UsedCustomModel bool     `json:"used_custom_model,omitempty"`
}

// JobState is one observed snapshot of a job from GET /api/status/{id}.
type JobState struct {
	Status                 string     `json:"status"`
	Progress               int        `json:"progress"`
	EstimatedTimeRemaining *int       `json:"estimated_time_remaining,omitempty"`
	Result                 *JobResult `json:"result,omitempty"`
	Error                  string     `json:"error,omitempty"`
}

// PhotoUpload is the response from POST /api/upload-photo.
type PhotoUpload struct {
	Filepath     string `json:"filepath"`
	FaceDetected bool   `json:"face_detected"`
	Message      string `json:"message,omitempty"`
	ErrorMsg     string `json:"error,omitempty"`
}

// VoiceUpload is the response from POST /api/upload-voice.
type VoiceUpload struct {
	Success  bool   `json:"success"`
	VoiceID  string `json:"voice_id"`
	Filename string `json:"filename"`
	URL      string `json:"url,omitempty"`
	ErrorMsg string `json:"error,omitempty"`
}

// CloneResult is the response from POST /api/clone-voice.
type CloneResult struct {
	Success   bool   `json:"success"`
	VoiceID   string `json:"voice_id"`
	VoiceName string `json:"voice_name"`
	ErrorMsg  string `json:"error,omitempty"`
}

// TrainingUpload is the response from POST /api/upload-training.
type TrainingUpload struct {
	Success    bool                `json:"success"`
	ModelID    string              `json:"model_id"`
	FilesCount int                 `json:"files_count"`
	Model      *TrainingModelState `json:"model,omitempty"`
	ErrorMsg   string              `json:"error,omitempty"`
}

// TrainingModelState is the model object embedded in training responses.
type TrainingModelState struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Status string `json:"status"`
}

type trainingStatusResponse struct {
	Success  bool                `json:"success"`
	Model    *TrainingModelState `json:"model,omitempty"`
	ErrorMsg string              `json:"error,omitempty"`
}

// Template is one entry from GET /api/templates.
type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

type templatesResponse struct {
	Templates []Template `json:"templates"`
}

// RemoteVoice is one entry from GET /api/voices/available.
type RemoteVoice struct {
	VoiceID  string `json:"voice_id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Gender   string `json:"gender,omitempty"`
}

type voicesResponse struct {
	Success bool          `json:"success"`
	Voices  []RemoteVoice `json:"voices"`
}
