package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/reelforge/reelforge-agent/internal/remote"
)

var (
	ErrNameRequired    = errors.New("a display name is required to clone a voice")
	ErrAlreadyResolved = errors.New("this uploaded voice was already kept or cloned")
)

// Asset categories. Cloned voices carry a distinguishing marker so the UI
// can group them apart from raw uploads and stock voices.
const (
	CategoryUploaded = "uploaded"
	CategoryCloned   = "cloned"
	CategoryStock    = "stock"
)

// Asset is a named, addressable voice usable in generation requests.
type Asset struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Location    string `json:"location"`
	Category    string `json:"category"`
}

// Library persists voices across sessions.
type Library interface {
	SaveVoice(ctx context.Context, asset Asset) error
	ListVoices(ctx context.Context) ([]Asset, error)
}

// Service is the slice of the remote client the coordinator needs.
type Service interface {
	UploadVoice(ctx context.Context, path string) (*remote.VoiceUpload, error)
	CloneVoice(ctx context.Context, samplePath, name, description string) (*remote.CloneResult, error)
	AvailableVoices(ctx context.Context) ([]remote.RemoteVoice, error)
}

// Coordinator converges the capture and direct-upload paths on one uploaded
// voice, then suspends on the clone-or-keep decision. The decision is an
// explicit value (PendingVoice) rather than a blocking prompt, so the branch
// is drivable from the API and testable without user interaction.
type Coordinator struct {
	service Service
	library Library
	logger  *slog.Logger

	mu       sync.Mutex
	selected string
}

func NewCoordinator(service Service, library Library, logger *slog.Logger) *Coordinator {
	return &Coordinator{service: service, library: library, logger: logger}
}

// PendingVoice is a successfully uploaded sample awaiting the user's
// clone-or-keep decision.
type PendingVoice struct {
	coordinator *Coordinator
	samplePath  string
	raw         Asset
	resolved    bool
	mu          sync.Mutex
}

// Asset returns the raw uploaded voice backing this decision.
func (p *PendingVoice) Asset() Asset {
	return p.raw
}

// UploadSample uploads an audio file and returns the pending decision.
func (c *Coordinator) UploadSample(ctx context.Context, path string) (*PendingVoice, error) {
	result, err := c.service.UploadVoice(ctx, path)
	if err != nil {
		return nil, err
	}

	raw := Asset{
		ID:          result.VoiceID,
		DisplayName: filepath.Base(path),
		Location:    result.URL,
		Category:    CategoryUploaded,
	}
	if raw.Location == "" {
		raw.Location = result.Filename
	}

	c.logger.Info("voice sample uploaded", "voice_id", raw.ID)
	return &PendingVoice{coordinator: c, samplePath: result.Filename, raw: raw}, nil
}

// UploadCapture writes an assembled recording to a temporary file and
// uploads it through the same path as a direct file selection.
func (c *Coordinator) UploadCapture(ctx context.Context, sample *Sample) (*PendingVoice, error) {
	if sample == nil || len(sample.Data) == 0 {
		return nil, ErrEmptyRecording
	}

	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("recording_%s.%s", uuid.NewString(), sample.Format))
	if err := os.WriteFile(tmp, sample.Data, 0600); err != nil {
		return nil, fmt.Errorf("write recording: %w", err)
	}
	defer os.Remove(tmp)

	return c.UploadSample(ctx, tmp)
}

// Keep declines cloning: the raw uploaded asset becomes the selectable
// voice immediately, and no clone request is issued.
func (p *PendingVoice) Keep(ctx context.Context) (Asset, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resolved {
		return Asset{}, ErrAlreadyResolved
	}
	p.resolved = true

	p.coordinator.adopt(ctx, p.raw)
	return p.raw, nil
}

// Clone promotes the uploaded sample into a reusable cloned voice. On
// failure the raw uploaded asset is kept as the selectable fallback and
// returned alongside the error, so the flow never dead-ends.
func (p *PendingVoice) Clone(ctx context.Context, name, description string) (Asset, error) {
	if name == "" {
		return Asset{}, ErrNameRequired
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resolved {
		return Asset{}, ErrAlreadyResolved
	}
	p.resolved = true

	result, err := p.coordinator.service.CloneVoice(ctx, p.samplePath, name, description)
	if err != nil {
		p.coordinator.logger.Warn("voice cloning failed, keeping raw upload",
			"voice_id", p.raw.ID, "error", err)
		p.coordinator.adopt(ctx, p.raw)
		return p.raw, err
	}

	cloned := Asset{
		ID:          result.VoiceID,
		DisplayName: result.VoiceName,
		Location:    p.raw.Location,
		Category:    CategoryCloned,
	}
	p.coordinator.adopt(ctx, cloned)
	return cloned, nil
}

// adopt persists an asset and auto-selects it.
func (c *Coordinator) adopt(ctx context.Context, asset Asset) {
	if c.library != nil {
		if err := c.library.SaveVoice(ctx, asset); err != nil {
			c.logger.Error("failed to persist voice", "voice_id", asset.ID, "error", err)
		}
	}

	c.mu.Lock()
	c.selected = asset.ID
	c.mu.Unlock()
	c.logger.Info("voice selected", "voice_id", asset.ID, "category", asset.Category)
}

// Selected returns the id of the currently selected voice, if any.
func (c *Coordinator) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Select manually switches the active voice.
func (c *Coordinator) Select(id string) {
	c.mu.Lock()
	c.selected = id
	c.mu.Unlock()
}

// Deselect clears the selection if the given voice holds it. Deleting a
// voice other than the selected one leaves the selection alone.
func (c *Coordinator) Deselect(id string) {
	c.mu.Lock()
	if c.selected == id {
		c.selected = ""
	}
	c.mu.Unlock()
}

// Voices merges the local library with the service's stock voice catalog.
// A catalog fetch failure degrades to the local list rather than erroring:
// the user's own voices remain usable offline.
func (c *Coordinator) Voices(ctx context.Context) ([]Asset, error) {
	var out []Asset
	if c.library != nil {
		local, err := c.library.ListVoices(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, local...)
	}

	stock, err := c.service.AvailableVoices(ctx)
	if err != nil {
		c.logger.Warn("stock voice catalog unavailable", "error", err)
		return out, nil
	}

	for _, v := range stock {
		out = append(out, Asset{
			ID:          v.VoiceID,
			DisplayName: v.Name,
			Category:    CategoryStock,
		})
	}
	return out, nil
}
