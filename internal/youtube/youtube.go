// Package youtube resolves video references and fetches caption transcripts.
package youtube

import "context"

// TranscriptFetcher retrieves the full caption text for a video.
// Client is the production implementation; tests substitute fakes.
type TranscriptFetcher interface {
	Transcript(ctx context.Context, videoID string) (string, error)
}
