package summarizer

import (
	"context"
	"strings"
)

// DefaultMaxLength is the default summary length in characters.
const DefaultMaxLength = 200

// Lead summarizes by taking leading sentences up to a length cap. Cheap
// and deterministic; used when no generation budget should be spent on
// summaries.
type Lead struct {
	maxLength int
}

// NewLead creates a lead summarizer with the given character cap.
func NewLead(maxLength int) *Lead {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Lead{maxLength: maxLength}
}

// Summarize returns the leading sentences of text that fit the cap,
// ending with an ellipsis when the text was cut.
func (l *Lead) Summarize(_ context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if len(text) <= l.maxLength {
		return text, nil
	}

	cut := text[:l.maxLength]
	if idx := lastSentenceEnd(cut); idx > 0 {
		return cut[:idx+1], nil
	}
	if idx := strings.LastIndexAny(cut, " \n"); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "...", nil
}

// lastSentenceEnd returns the index of the last sentence terminator in
// s, or -1 if there is none.
func lastSentenceEnd(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case '.', '!', '?':
			return i
		}
	}
	return -1
}
