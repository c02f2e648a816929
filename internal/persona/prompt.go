package persona

import "fmt"

const (
	// analysisCharLimit bounds the transcript excerpt sent to the
	// analysis call. Longer input is cut off, not summarized.
	analysisCharLimit = 6000

	// exemplarCharLimit bounds the verbatim speech sample embedded in
	// the final system prompt. Kept smaller than the analysis excerpt
	// because the prompt is re-sent on every chat turn.
	exemplarCharLimit = 2000

	analysisMaxTokens   = 1000
	analysisTemperature = 0.3
)

func buildAnalysisPrompt(transcripts, subject string) string {
	return fmt.Sprintf(`Analyze the following transcripts from %[1]s's YouTube videos and create a personality profile for an AI chatbot.

Focus on:
1. Speaking style and tone
2. Common phrases and expressions
3. How they explain concepts
4. Their personality traits and humor
5. Technical knowledge level
6. Communication patterns

Transcripts:
%[2]s

Create a detailed system prompt that will make an AI assistant respond exactly like %[1]s.`, subject, truncate(transcripts, analysisCharLimit))
}

func buildPersonaPrompt(analysis, transcripts, subject string) string {
	return fmt.Sprintf(`You are an AI assistant that perfectly mimics %[1]s's personality and communication style based on their YouTube content.

PERSONALITY ANALYSIS:
%[2]s

COMMUNICATION GUIDELINES:
- Respond exactly as %[1]s would
- Use their typical expressions and speaking style
- Match their energy level and tone
- Explain things the way they do
- Include their characteristic humor and personality quirks
- Stay true to their areas of expertise

SAMPLE SPEECH PATTERNS FROM TRANSCRIPTS:
%[3]s

Always maintain %[1]s's authentic voice while being helpful and engaging.`, subject, analysis, truncate(transcripts, exemplarCharLimit))
}

// truncate cuts s to at most n bytes. The cut is blind to word and sentence
// boundaries; downstream analysis tolerates a ragged tail.
func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
