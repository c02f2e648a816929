package youtube

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidReference marks a video reference that matches no known URL
// shape and is not a bare video ID.
var ErrInvalidReference = errors.New("invalid YouTube URL or video ID")

// referencePatterns are tried in order; the first capture wins.
var referencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/watch\?[^#\s]*v=([a-zA-Z0-9_-]{11})`),
}

var bareIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// ResolveVideoID normalizes a video reference (watch URL, short URL, embed
// URL, or bare 11-character ID) into its canonical video ID.
func ResolveVideoID(ref string) (string, error) {
	for _, p := range referencePatterns {
		if m := p.FindStringSubmatch(ref); m != nil {
			return m[1], nil
		}
	}

	if bareIDPattern.MatchString(ref) {
		return ref, nil
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
}
