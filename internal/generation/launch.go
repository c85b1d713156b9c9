package generation

import (
	"fmt"

	"github.com/reelforge/reelforge-agent/internal/remote"
)

// Duration bounds per mode, in seconds. The advanced motion pipeline caps
// lower because its render cost grows steeply with length.
var durationBounds = map[remote.GenerationMode][2]int{
	remote.ModeImage:    {3, 60},
	remote.ModeText:     {3, 60},
	remote.ModeAd:       {5, 60},
	remote.ModeAdvanced: {3, 30},
}

// LaunchConfig is the validated, client-side generation request. Style and
// Template are opaque selectors forwarded verbatim to the service.
type LaunchConfig struct {
	Mode         remote.GenerationMode `json:"mode"`
	ImagePath    string                `json:"image_path,omitempty"`
	Prompt       string                `json:"prompt,omitempty"`
	Style        string                `json:"style,omitempty"`
	Template     string                `json:"template,omitempty"`
	Duration     int                   `json:"duration,omitempty"`
	AddVoiceover bool                  `json:"add_voiceover,omitempty"`
	VoiceID      string                `json:"voice_id,omitempty"`
	ModelID      string                `json:"model_id,omitempty"`
}

// Validate rejects malformed configs before any network call: the content
// field required by the mode must be present and the duration in bounds.
func (c *LaunchConfig) Validate() error {
	bounds, ok := durationBounds[c.Mode]
	if !ok {
		return &remote.LaunchError{Local: true, Message: fmt.Sprintf("unknown generation mode %q", c.Mode)}
	}

	switch c.Mode {
	case remote.ModeImage:
		if c.ImagePath == "" {
			return &remote.LaunchError{Local: true, Message: "image path is required for image generation"}
		}
	default:
		if c.Prompt == "" {
			return &remote.LaunchError{Local: true, Message: "prompt is required for " + string(c.Mode) + " generation"}
		}
	}

	if c.Duration != 0 && (c.Duration < bounds[0] || c.Duration > bounds[1]) {
		return &remote.LaunchError{
			Local:   true,
			Message: fmt.Sprintf("duration must be between %d and %d seconds for %s mode", bounds[0], bounds[1], c.Mode),
		}
	}
	return nil
}

// Request converts the config into the wire request for the launch endpoint.
func (c *LaunchConfig) Request() remote.LaunchRequest {
	return remote.LaunchRequest{
		Mode:         c.Mode,
		ImagePath:    c.ImagePath,
		Prompt:       c.Prompt,
		Style:        c.Style,
		Template:     c.Template,
		Duration:     c.Duration,
		AddVoiceover: c.AddVoiceover,
		VoiceID:      c.VoiceID,
		ModelID:      c.ModelID,
	}
}
