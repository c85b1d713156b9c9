// Package session orchestrates the agent's active work: the single
// in-flight generation job, the single in-flight training run, and the
// voice library. It ties the remote client, the local store and the
// optional artifact archive together.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/reelforge/reelforge-agent/internal/archive"
	"github.com/reelforge/reelforge-agent/internal/generation"
	"github.com/reelforge/reelforge-agent/internal/remote"
	"github.com/reelforge/reelforge-agent/internal/store"
	"github.com/reelforge/reelforge-agent/internal/training"
	"github.com/reelforge/reelforge-agent/internal/voice"
)

// Options bundle the session's collaborators and tuning knobs.
type Options struct {
	Client              remote.Client
	Repo                store.Repository
	Archiver            archive.Archiver
	ArtifactsDir        string
	JobPollInterval     time.Duration
	TrainingInterval    time.Duration
	TrainingMaxAttempts int
	Logger              *slog.Logger
}

// Session holds at most one active generation job and one active training
// run. Starting a new operation of the same kind tears the previous one
// down first.
type Session struct {
	client       remote.Client
	repo         store.Repository
	watcher      *generation.Watcher
	voices       *voice.Coordinator
	archiver     archive.Archiver
	artifactsDir string
	logger       *slog.Logger

	trainingInterval    time.Duration
	trainingMaxAttempts int

	mu             sync.Mutex
	activeJob      *generation.Job
	cancelJob      generation.CancelFunc
	activeModel    *training.Model
	modelName      string
	cancelTraining context.CancelFunc
}

func New(opts Options) *Session {
	s := &Session{
		client:              opts.Client,
		repo:                opts.Repo,
		archiver:            opts.Archiver,
		artifactsDir:        opts.ArtifactsDir,
		logger:              opts.Logger,
		trainingInterval:    opts.TrainingInterval,
		trainingMaxAttempts: opts.TrainingMaxAttempts,
	}
	s.watcher = generation.NewWatcher(opts.Client, opts.JobPollInterval, opts.Logger)
	s.voices = voice.NewCoordinator(opts.Client, &voiceLibrary{repo: opts.Repo}, opts.Logger)
	return s
}

// Voices exposes the voice capture and cloning flow.
func (s *Session) Voices() *voice.Coordinator {
	return s.voices
}

// Snapshot is the agent-wide status served to the UI.
type Snapshot struct {
	Job           *generation.Job `json:"job,omitempty"`
	Training      *training.Model `json:"training,omitempty"`
	SelectedVoice string          `json:"selected_voice,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{SelectedVoice: s.voices.Selected()}
	if s.activeJob != nil {
		snap.Job = s.activeJob.Clone()
	}
	if s.activeModel != nil {
		snap.Training = s.activeModel.Clone()
	}
	return snap
}

// StartGeneration validates the request, uploads the source photo when the
// mode needs one, launches the remote job and begins watching it. Any
// previously active job stops being watched.
func (s *Session) StartGeneration(ctx context.Context, cfg generation.LaunchConfig) (*generation.Job, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Mode == remote.ModeImage {
		photo, err := s.client.UploadPhoto(ctx, cfg.ImagePath)
		if err != nil {
			return nil, err
		}
		// Launch against the server-side copy of the photo.
		cfg.ImagePath = photo.Filepath
	}

	handle, err := s.client.Launch(ctx, cfg.Request())
	if err != nil {
		return nil, err
	}

	job := generation.NewJob(handle.ID, string(cfg.Mode))
	// The watcher owns the live record from the moment Watch is called;
	// everything the session hands out afterwards comes from this snapshot.
	initial := job.Clone()

	s.mu.Lock()
	prev := s.cancelJob
	s.cancelJob = nil
	s.mu.Unlock()
	// Cancellation blocks until the old loop drains, so it must run outside
	// the lock its callbacks contend for.
	if prev != nil {
		prev()
	}

	s.mu.Lock()
	s.activeJob = initial.Clone()
	// The watch outlives the request; only CancelActive or terminal
	// status ends it.
	s.cancelJob = s.watcher.Watch(context.Background(), job, s.onJobUpdate, s.onJobTerminal)
	s.mu.Unlock()

	s.persistJob(initial.Clone())
	s.logger.Info("generation started", "job_id", initial.ID, "mode", initial.Mode)
	return initial, nil
}

// ActiveJob returns the current job snapshot, terminal or not, or nil when
// nothing has been launched this session.
func (s *Session) ActiveJob() *generation.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeJob == nil {
		return nil
	}
	return s.activeJob.Clone()
}

// CancelActive stops watching the active job. The remote job keeps running;
// only the local record is marked.
func (s *Session) CancelActive() *generation.Job {
	s.mu.Lock()
	cancel := s.cancelJob
	s.cancelJob = nil
	s.mu.Unlock()
	// Drain the watch before marking so a late update cannot overwrite
	// the cancellation.
	if cancel != nil {
		cancel()
	}

	s.mu.Lock()
	job := s.activeJob
	canceled := job != nil && !job.Status.Terminal()
	if canceled {
		job.Fail("canceled by user")
	}
	s.mu.Unlock()

	if job == nil {
		return nil
	}
	if canceled {
		s.persistJob(job.Clone())
	}
	s.logger.Info("generation canceled", "job_id", job.ID)
	return job.Clone()
}

func (s *Session) onJobUpdate(job *generation.Job) {
	snap := job.Clone()
	s.mu.Lock()
	// A late callback from a superseded watch must not clobber the
	// current job.
	if s.activeJob != nil && s.activeJob.ID == snap.ID {
		s.activeJob = snap
	}
	s.mu.Unlock()
	s.persistJob(snap)
}

func (s *Session) onJobTerminal(job *generation.Job) {
	if job.Status == generation.StatusCompleted && job.Result != nil && job.Result.VideoPath != "" {
		s.materialize(job)
	}

	snap := job.Clone()
	s.mu.Lock()
	if s.activeJob != nil && s.activeJob.ID == snap.ID {
		s.activeJob = snap
		s.cancelJob = nil
	}
	s.mu.Unlock()

	s.persistJob(snap)
	s.logger.Info("generation finished", "job_id", job.ID, "status", string(job.Status))
}

// materialize downloads the finished artifact and, when an archiver is
// configured, copies it to durable storage.
func (s *Session) materialize(job *generation.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	local, err := s.client.Download(ctx, job.Result.VideoPath, s.artifactsDir)
	if err != nil {
		s.logger.Warn("artifact download failed", "job_id", job.ID, "error", err)
		return
	}
	job.Result.VideoPath = local

	if s.archiver != nil {
		if location, err := s.archiver.Archive(ctx, job.ID, local); err != nil {
			s.logger.Warn("artifact archive failed", "job_id", job.ID, "error", err)
		} else {
			s.logger.Info("artifact archived", "job_id", job.ID, "location", location)
		}
	}
}

// StartTraining begins a custom-model training run with the given asset
// files. A run already in progress is canceled and replaced.
func (s *Session) StartTraining(ctx context.Context, name string, paths, kinds []string) (*training.Model, error) {
	if len(paths) < training.MinAssets {
		return nil, training.ErrInsufficientAssets
	}

	controller := training.NewController(s.client, s.trainingInterval, s.trainingMaxAttempts, s.logger)
	controller.OnUpdate = s.onTrainingUpdate

	runCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.cancelTraining != nil {
		s.cancelTraining()
	}
	s.cancelTraining = cancel
	s.activeModel = &training.Model{State: training.StateUploading, StartedAt: time.Now(), UpdatedAt: time.Now()}
	s.modelName = name
	initial := s.activeModel.Clone()
	s.mu.Unlock()

	go func() {
		model, err := controller.Run(runCtx, paths, kinds)
		if err != nil {
			s.logger.Warn("training run rejected", "error", err)
			return
		}
		s.onTrainingUpdate(model)
	}()

	return initial, nil
}

// TrainingState returns the latest training snapshot, or nil when no run
// has been started this session.
func (s *Session) TrainingState() *training.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeModel == nil {
		return nil
	}
	return s.activeModel.Clone()
}

func (s *Session) onTrainingUpdate(model *training.Model) {
	s.mu.Lock()
	s.activeModel = model
	name := s.modelName
	s.mu.Unlock()

	if model.ID != "" {
		s.persistModel(model, name)
	}
}

// Close tears down any active watches and poll loops.
func (s *Session) Close() {
	s.mu.Lock()
	cancelTraining := s.cancelTraining
	s.cancelTraining = nil
	s.cancelJob = nil
	s.mu.Unlock()

	if cancelTraining != nil {
		cancelTraining()
	}
	s.watcher.CancelAll()
}

func (s *Session) persistJob(job *generation.Job) {
	record := &store.Job{
		ID:        job.ID,
		Mode:      job.Mode,
		Status:    string(job.Status),
		Progress:  job.Progress,
		Error:     job.Error,
		CreatedAt: job.StartedAt,
	}
	if job.Result != nil {
		record.VideoPath = job.Result.VideoPath
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.repo.UpsertJob(ctx, record); err != nil {
		s.logger.Error("failed to persist job", "job_id", job.ID, "error", err)
	}
}

func (s *Session) persistModel(model *training.Model, name string) {
	record := &store.Model{
		ID:        model.ID,
		Name:      name,
		State:     string(model.State),
		Progress:  model.Progress,
		Error:     model.Error,
		CreatedAt: model.StartedAt,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.repo.SaveModel(ctx, record); err != nil {
		s.logger.Error("failed to persist model", "model_id", model.ID, "error", err)
	}
}

// voiceLibrary adapts the store repository to the voice package's
// persistence interface.
type voiceLibrary struct {
	repo store.Repository
}

func (l *voiceLibrary) SaveVoice(ctx context.Context, asset voice.Asset) error {
	return l.repo.SaveVoice(ctx, &store.Voice{
		ID:          asset.ID,
		DisplayName: asset.DisplayName,
		Location:    asset.Location,
		Category:    asset.Category,
	})
}

func (l *voiceLibrary) ListVoices(ctx context.Context) ([]voice.Asset, error) {
	records, err := l.repo.ListVoices(ctx)
	if err != nil {
		return nil, err
	}
	assets := make([]voice.Asset, 0, len(records))
	for _, r := range records {
		assets = append(assets, voice.Asset{
			ID:          r.ID,
			DisplayName: r.DisplayName,
			Location:    r.Location,
			Category:    r.Category,
		})
	}
	return assets, nil
}
