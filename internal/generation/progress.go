package generation

import (
	"fmt"
	"time"
)

// phaseDescriptions maps known status labels to user-facing phrases. The map
// is a hint, not a contract: Describe falls back for anything unlisted.
var phaseDescriptions = map[Status]string{
	StatusInitializing:     "Preparing your request",
	StatusPending:          "Waiting for the generation service",
	StatusProcessing:       "Processing",
	StatusGeneratingScript: "Writing the script",
	StatusGeneratingVideo:  "Generating video",
	StatusAddingVoiceover:  "Adding voiceover",
	StatusEnhancingVideo:   "Enhancing video quality",
	StatusProcessingAudio:  "Processing audio",
	StatusFinalizing:       "Finalizing your video",
	StatusCompleted:        "Completed",
	StatusFailed:           "Failed",
}

// Describe returns a human-readable phrase for a status label. It is total:
// unrecognized labels get a generic in-progress phrase since the remote
// vocabulary evolves independently of this client.
func Describe(status Status) string {
	if phrase, ok := phaseDescriptions[status]; ok {
		return phrase
	}
	return "Processing"
}

// FormatRemaining renders an advisory remaining-time hint. Absent, zero and
// negative values render as the neutral placeholder. Values under a minute
// render as seconds; longer ones as whole minutes rounded up.
func FormatRemaining(seconds *int) string {
	if seconds == nil || *seconds <= 0 {
		return "00:00"
	}
	if *seconds < 60 {
		return fmt.Sprintf("00:%02d", *seconds)
	}
	minutes := (*seconds + 59) / 60
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}

// EstimateRemaining recomputes the remaining seconds from elapsed time and
// progress. Below 10% the sample is too noisy, so the fallback (typically
// the service's own hint) is returned unchanged.
func EstimateRemaining(elapsed time.Duration, progress int, fallback *int) *int {
	if progress < 10 || progress > 100 {
		return fallback
	}
	if progress == 100 {
		zero := 0
		return &zero
	}

	total := elapsed.Seconds() / float64(progress) * 100
	remaining := int(total - elapsed.Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}
