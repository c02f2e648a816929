package progress

import "time"

// Stage identifies which phase of persona initialization is active.
type Stage string

const (
	StageFetch      Stage = "fetch"
	StageSynthesize Stage = "synthesize"
	StageComplete   Stage = "complete"
)

// Event carries progress information from the session manager to the
// renderer. Percent is monotonically non-decreasing within one
// initialization run.
type Event struct {
	Stage   Stage
	Message string
	Percent float64 // 0.0–1.0
	Elapsed time.Duration
	Error   error

	// VideoNum and VideoTotal report per-item position during StageFetch.
	VideoNum   int
	VideoTotal int

	// Subject and VideosUsed are set on StageComplete.
	Subject    string
	VideosUsed int
}

// Callback is the function signature for progress event handlers.
type Callback func(Event)

// NopCallback is a no-op progress callback for tests and silent mode.
func NopCallback(Event) {}

// NewEvent creates an Event with common fields populated.
func NewEvent(stage Stage, msg string, pct float64, start time.Time) Event {
	return Event{
		Stage:   stage,
		Message: msg,
		Percent: pct,
		Elapsed: time.Since(start),
	}
}
