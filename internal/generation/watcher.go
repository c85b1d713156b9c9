package generation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/reelforge/reelforge-agent/internal/remote"
)

// StatusSource is the slice of the remote client the watcher needs.
type StatusSource interface {
	JobStatus(ctx context.Context, jobID string) (*remote.JobState, error)
}

// CancelFunc stops a watch. It is idempotent and blocks until the polling
// goroutine has exited, so once it returns no further callbacks fire for
// that watch. It must not be called from inside the watch's own callbacks.
type CancelFunc func()

// Watcher polls job status at a fixed cadence until a terminal state is
// observed. At most one watch is active per job id: a new Watch for the same
// id supersedes the previous one, whose CancelFunc becomes a no-op.
//
// Transport failures are fatal to a watch: the loop stops and onTerminal
// receives the job marked failed with a generic status-check message.
type Watcher struct {
	source   StatusSource
	logger   *slog.Logger
	interval time.Duration

	mu     sync.Mutex
	active map[string]*watch
}

type watch struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewWatcher(source StatusSource, interval time.Duration, logger *slog.Logger) *Watcher {
	return &Watcher{
		source:   source,
		logger:   logger,
		interval: interval,
		active:   make(map[string]*watch),
	}
}

// Watch polls the job until terminal. Each successful read is folded into
// job and delivered to onUpdate; the terminal read goes to onTerminal exactly
// once. Callbacks run on the polling goroutine, one at a time.
func (w *Watcher) Watch(ctx context.Context, job *Job, onUpdate func(*Job), onTerminal func(*Job)) CancelFunc {
	watchCtx, cancel := context.WithCancel(ctx)
	entry := &watch{cancel: cancel, done: make(chan struct{})}

	w.mu.Lock()
	if prev, ok := w.active[job.ID]; ok {
		prev.cancel()
	}
	w.active[job.ID] = entry
	w.mu.Unlock()

	go func() {
		defer close(entry.done)
		defer w.detach(job.ID, entry)

		repeat(watchCtx, w.interval, true, func(ctx context.Context) bool {
			state, err := w.source.JobStatus(ctx, job.ID)
			if ctx.Err() != nil {
				return false
			}

			if err != nil {
				w.logger.Error("status check failed, stopping poll", "job_id", job.ID, "error", err)
				job.Fail("failed to check video status")
				if onTerminal != nil {
					onTerminal(job)
				}
				return false
			}

			job.Apply(state)

			if job.Status.Terminal() {
				w.logger.Info("job reached terminal state", "job_id", job.ID, "status", job.Status)
				if onTerminal != nil {
					onTerminal(job)
				}
				return false
			}

			if ctx.Err() != nil {
				return false
			}
			if onUpdate != nil {
				onUpdate(job)
			}
			return true
		})
	}()

	return func() {
		w.detach(job.ID, entry)
		entry.cancel()
		<-entry.done
	}
}

// CancelAll stops every active watch; used on shutdown.
func (w *Watcher) CancelAll() {
	w.mu.Lock()
	entries := make([]*watch, 0, len(w.active))
	for _, e := range w.active {
		entries = append(entries, e)
	}
	w.active = make(map[string]*watch)
	w.mu.Unlock()

	for _, e := range entries {
		e.cancel()
	}
}

// Watching reports whether a watch is currently registered for the job id.
func (w *Watcher) Watching(jobID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.active[jobID]
	return ok
}

// detach removes the registry entry only if it still belongs to this watch,
// so a superseded watch cannot evict its replacement.
func (w *Watcher) detach(jobID string, entry *watch) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if current, ok := w.active[jobID]; ok && current == entry {
		delete(w.active, jobID)
	}
}
