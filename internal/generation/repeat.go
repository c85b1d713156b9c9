package generation

import (
	"context"
	"time"
)

// repeat invokes fn immediately and then once per interval until fn returns
// false or the context is cancelled. Calls are strictly sequential: a tick
// that fires while fn is still running is delivered only after fn returns,
// so a new query is never issued before the previous one resolves.
func repeat(ctx context.Context, interval time.Duration, immediate bool, fn func(context.Context) bool) {
	if immediate {
		if ctx.Err() != nil || !fn(ctx) {
			return
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !fn(ctx) {
				return
			}
		}
	}
}
