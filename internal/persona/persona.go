// Package persona turns raw transcript text into a system prompt that makes
// an assistant speak like the transcripts' author.
package persona

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/apresai/mimic/internal/llm"
)

// ErrSynthesis marks a failed persona synthesis: the analysis call errored
// or returned nothing usable. There is no partial persona.
var ErrSynthesis = errors.New("persona synthesis failed")

// Synthesize runs a low-temperature analysis pass over the transcripts and
// assembles the resulting profile into a reusable system prompt.
func Synthesize(ctx context.Context, client llm.Client, transcripts, subject string) (string, error) {
	analysis, err := client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildAnalysisPrompt(transcripts, subject)},
		},
		MaxTokens:   analysisMaxTokens,
		Temperature: analysisTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: analysis call: %w", ErrSynthesis, err)
	}
	if strings.TrimSpace(analysis) == "" {
		return "", fmt.Errorf("%w: analysis returned no content", ErrSynthesis)
	}

	return buildPersonaPrompt(analysis, transcripts, subject), nil
}
