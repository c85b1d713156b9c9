package store

import (
	"context"
	"path/filepath"
	"testing"
)

func testRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	database, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewRepository(database.Conn())
}

func TestVoiceRoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	v := &Voice{ID: "voice-1", DisplayName: "My Voice", Location: "/uploads/v.wav", Category: "cloned"}
	if err := repo.SaveVoice(ctx, v); err != nil {
		t.Fatalf("SaveVoice() error = %v", err)
	}

	got, err := repo.GetVoice(ctx, "voice-1")
	if err != nil {
		t.Fatalf("GetVoice() error = %v", err)
	}
	if got == nil || got.DisplayName != "My Voice" || got.Category != "cloned" {
		t.Fatalf("GetVoice() = %+v", got)
	}

	// Upsert keeps the row unique.
	v.DisplayName = "Renamed"
	if err := repo.SaveVoice(ctx, v); err != nil {
		t.Fatalf("SaveVoice() upsert error = %v", err)
	}
	voices, err := repo.ListVoices(ctx)
	if err != nil {
		t.Fatalf("ListVoices() error = %v", err)
	}
	if len(voices) != 1 || voices[0].DisplayName != "Renamed" {
		t.Fatalf("ListVoices() = %+v", voices)
	}

	if err := repo.DeleteVoice(ctx, "voice-1"); err != nil {
		t.Fatalf("DeleteVoice() error = %v", err)
	}
	got, err = repo.GetVoice(ctx, "voice-1")
	if err != nil {
		t.Fatalf("GetVoice() after delete error = %v", err)
	}
	if got != nil {
		t.Fatalf("GetVoice() after delete = %+v, want nil", got)
	}
}

func TestModelListCompletedFiltersState(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	for _, m := range []*Model{
		{ID: "m1", Name: "Done", State: "completed", Progress: 100},
		{ID: "m2", Name: "Broken", State: "failed", Progress: 70},
		{ID: "m3", Name: "Stuck", State: "timed_out", Progress: 80},
	} {
		if err := repo.SaveModel(ctx, m); err != nil {
			t.Fatalf("SaveModel(%s) error = %v", m.ID, err)
		}
	}

	completed, err := repo.ListCompletedModels(ctx)
	if err != nil {
		t.Fatalf("ListCompletedModels() error = %v", err)
	}
	if len(completed) != 1 || completed[0].ID != "m1" {
		t.Fatalf("ListCompletedModels() = %+v", completed)
	}

	all, err := repo.ListModels(ctx)
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListModels() len = %d, want 3", len(all))
	}
}

func TestJobUpsertAndHistory(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	j := &Job{ID: "job-1", Mode: "image", Status: "processing", Progress: 40}
	if err := repo.UpsertJob(ctx, j); err != nil {
		t.Fatalf("UpsertJob() error = %v", err)
	}

	j.Status = "completed"
	j.Progress = 100
	j.VideoPath = "/videos/out.mp4"
	if err := repo.UpsertJob(ctx, j); err != nil {
		t.Fatalf("UpsertJob() update error = %v", err)
	}

	got, err := repo.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got.Status != "completed" || got.Progress != 100 || got.VideoPath != "/videos/out.mp4" {
		t.Fatalf("GetJob() = %+v", got)
	}

	jobs, err := repo.ListJobs(ctx, 10)
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("ListJobs() len = %d, want 1", len(jobs))
	}
}

func TestConfigRoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	value, err := repo.GetConfig(ctx, "missing")
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}
	if value != "" {
		t.Fatalf("GetConfig(missing) = %q, want empty", value)
	}

	if err := repo.SetConfig(ctx, "auth_token", "secret"); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	if err := repo.SetConfig(ctx, "auth_token", "rotated"); err != nil {
		t.Fatalf("SetConfig() overwrite error = %v", err)
	}

	value, err = repo.GetConfig(ctx, "auth_token")
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}
	if value != "rotated" {
		t.Fatalf("GetConfig() = %q, want rotated", value)
	}
}
