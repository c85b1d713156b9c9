package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/reelforge/reelforge-agent/internal/generation"
	"github.com/reelforge/reelforge-agent/internal/remote"
	"github.com/reelforge/reelforge-agent/internal/training"
	"github.com/reelforge/reelforge-agent/internal/voice"
)

// pendingVoices holds uploads awaiting the clone-or-keep decision, keyed by
// the raw voice id returned from upload.
type pendingVoices struct {
	mu      sync.Mutex
	entries map[string]*voice.PendingVoice
}

func (p *pendingVoices) put(id string, pv *voice.PendingVoice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[id] = pv
}

func (p *pendingVoices) take(id string) *voice.PendingVoice {
	p.mu.Lock()
	defer p.mu.Unlock()
	pv := p.entries[id]
	delete(p.entries, id)
	return pv
}

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()
	pending := &pendingVoices{entries: make(map[string]*voice.PendingVoice)}

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))

		r.Post("/generate", generateHandler(cfg))
		r.Get("/jobs/active", activeJobHandler(cfg))
		r.Post("/jobs/cancel", cancelJobHandler(cfg))
		r.Get("/jobs", listJobsHandler(cfg))

		r.Get("/voices", listVoicesHandler(cfg))
		r.Post("/voices", uploadVoiceHandler(cfg, pending))
		r.Post("/voices/{id}/clone", cloneVoiceHandler(cfg, pending))
		r.Post("/voices/{id}/keep", keepVoiceHandler(cfg, pending))
		r.Post("/voices/select", selectVoiceHandler(cfg))
		r.Delete("/voices/{id}", deleteVoiceHandler(cfg))

		r.Post("/training", startTrainingHandler(cfg))
		r.Get("/training/status", trainingStatusHandler(cfg))
		r.Get("/models", listModelsHandler(cfg))

		r.Get("/templates", templatesHandler(cfg))
		r.Get("/playback/artifact", playbackHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  "0.1.0",
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := cfg.Session.Snapshot()

		state := "idle"
		resp := StatusResponse{SelectedVoice: snap.SelectedVoice}

		if snap.Job != nil {
			jr := JobToResponse(snap.Job)
			resp.ActiveJob = &jr
			if !snap.Job.Status.Terminal() {
				state = "generating"
			} else if snap.Job.Status == generation.StatusFailed {
				state = "error"
			}
		}
		if snap.Training != nil {
			tr := TrainingToResponse(snap.Training)
			resp.Training = &tr
			if !snap.Training.State.Terminal() {
				state = "training"
			}
		}

		resp.State = state
		WriteJSON(w, http.StatusOK, resp)
	}
}

func generateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generation.LaunchConfig
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		job, err := cfg.Session.StartGeneration(r.Context(), req)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		WriteJSON(w, http.StatusAccepted, JobToResponse(job))
	}
}

func activeJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job := cfg.Session.ActiveJob()
		if job == nil {
			WriteError(w, http.StatusNotFound, "no active job", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}

func cancelJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job := cfg.Session.CancelActive()
		if job == nil {
			WriteError(w, http.StatusNotFound, "no active job", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}

func listJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := cfg.Repository.ListJobs(r.Context(), 50)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list jobs", "INTERNAL_ERROR")
			return
		}

		resp := JobsResponse{Jobs: make([]JobRecordResponse, len(jobs))}
		for i, j := range jobs {
			resp.Jobs[i] = JobRecordToResponse(j)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func listVoicesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		coordinator := cfg.Session.Voices()
		voices, err := coordinator.Voices(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list voices", "INTERNAL_ERROR")
			return
		}

		selected := coordinator.Selected()
		resp := VoicesResponse{Voices: make([]VoiceResponse, len(voices))}
		for i, v := range voices {
			resp.Voices[i] = VoiceToResponse(v, selected)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func uploadVoiceHandler(cfg ServerConfig, pending *pendingVoices) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VoiceUploadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Path == "" {
			WriteError(w, http.StatusBadRequest, "path is required", "BAD_REQUEST")
			return
		}

		pv, err := cfg.Session.Voices().UploadSample(r.Context(), req.Path)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		asset := pv.Asset()
		pending.put(asset.ID, pv)
		WriteJSON(w, http.StatusCreated, VoiceUploadResponse{
			VoiceID:         asset.ID,
			DisplayName:     asset.DisplayName,
			DecisionPending: true,
		})
	}
}

func cloneVoiceHandler(cfg ServerConfig, pending *pendingVoices) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		pv := pending.take(id)
		if pv == nil {
			WriteError(w, http.StatusNotFound, "no pending decision for this voice", "NOT_FOUND")
			return
		}

		var req VoiceCloneRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			pending.put(id, pv)
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		asset, err := pv.Clone(r.Context(), req.Name, req.Description)
		if errors.Is(err, voice.ErrNameRequired) {
			// The decision is still open.
			pending.put(id, pv)
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		if err != nil {
			// Clone failed remotely; the raw upload was kept as fallback.
			WriteJSON(w, http.StatusOK, VoiceToResponse(asset, asset.ID))
			return
		}

		WriteJSON(w, http.StatusCreated, VoiceToResponse(asset, asset.ID))
	}
}

func keepVoiceHandler(cfg ServerConfig, pending *pendingVoices) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		pv := pending.take(id)
		if pv == nil {
			WriteError(w, http.StatusNotFound, "no pending decision for this voice", "NOT_FOUND")
			return
		}

		asset, err := pv.Keep(r.Context())
		if err != nil {
			WriteError(w, http.StatusConflict, err.Error(), "CONFLICT")
			return
		}
		WriteJSON(w, http.StatusOK, VoiceToResponse(asset, asset.ID))
	}
}

func selectVoiceHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VoiceSelectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.VoiceID == "" {
			WriteError(w, http.StatusBadRequest, "voice_id is required", "BAD_REQUEST")
			return
		}

		cfg.Session.Voices().Select(req.VoiceID)
		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteVoiceHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		existing, err := cfg.Repository.GetVoice(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if existing == nil {
			WriteError(w, http.StatusNotFound, "voice not found", "NOT_FOUND")
			return
		}

		if err := cfg.Repository.DeleteVoice(r.Context(), id); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		cfg.Session.Voices().Deselect(id)
		w.WriteHeader(http.StatusNoContent)
	}
}

func startTrainingHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TrainingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		model, err := cfg.Session.StartTraining(r.Context(), req.Name, req.Paths, req.Kinds)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		WriteJSON(w, http.StatusAccepted, TrainingToResponse(model))
	}
}

func trainingStatusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		model := cfg.Session.TrainingState()
		if model == nil {
			WriteError(w, http.StatusNotFound, "no training run this session", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, TrainingToResponse(model))
	}
}

// listModelsHandler lists completed custom models, the ones usable as a
// ModelID for advanced-mode generation.
func listModelsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		models, err := cfg.Repository.ListCompletedModels(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list models", "INTERNAL_ERROR")
			return
		}

		resp := ModelsResponse{Models: make([]ModelRecordResponse, len(models))}
		for i, m := range models {
			resp.Models[i] = ModelRecordToResponse(m)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func templatesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templates, err := cfg.Client.Templates(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := TemplatesResponse{Templates: make([]TemplateResponse, len(templates))}
		for i, t := range templates {
			resp.Templates[i] = TemplateResponse{
				ID:          t.ID,
				Name:        t.Name,
				Description: t.Description,
				Category:    t.Category,
			}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func playbackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := r.URL.Query().Get("job_id")
		if jobID == "" {
			WriteError(w, http.StatusBadRequest, "job_id is required", "BAD_REQUEST")
			return
		}

		job, err := cfg.Repository.GetJob(r.Context(), jobID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if job == nil || job.VideoPath == "" {
			WriteError(w, http.StatusNotFound, "no artifact for this job", "NOT_FOUND")
			return
		}

		if err := cfg.Playback.ServeArtifact(w, r, filepath.Base(job.VideoPath)); err != nil {
			cfg.Logger.Error("playback error", "error", err, "job_id", jobID)
		}
	}
}

// writeDomainError maps typed domain errors onto HTTP statuses. Local
// validation failures are the caller's fault; remote failures surface as
// bad gateway.
func writeDomainError(w http.ResponseWriter, err error) {
	var uploadErr *remote.UploadError
	var launchErr *remote.LaunchError
	var pollErr *remote.PollError
	var failure *remote.RemoteFailure

	switch {
	case errors.Is(err, training.ErrInsufficientAssets):
		WriteError(w, http.StatusUnprocessableEntity, err.Error(), "INSUFFICIENT_ASSETS")
	case errors.As(err, &launchErr) && launchErr.Local:
		WriteError(w, http.StatusBadRequest, launchErr.Message, "BAD_REQUEST")
	case errors.As(err, &uploadErr) && uploadErr.Precondition:
		WriteError(w, http.StatusUnprocessableEntity, uploadErr.Message, "PRECONDITION_FAILED")
	case errors.As(err, &uploadErr):
		WriteError(w, http.StatusBadGateway, uploadErr.Message, "UPSTREAM_ERROR")
	case errors.As(err, &launchErr):
		WriteError(w, http.StatusBadGateway, launchErr.Message, "UPSTREAM_ERROR")
	case errors.As(err, &pollErr), errors.As(err, &failure):
		WriteError(w, http.StatusBadGateway, err.Error(), "UPSTREAM_ERROR")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}
