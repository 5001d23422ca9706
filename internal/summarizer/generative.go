package summarizer

import (
	"context"
	"fmt"

	"docsrag/internal/domain"
)

// Generative summarizes by asking the generation service for a short
// abstract. Summaries are optional context, so callers should degrade
// to an empty summary when this fails rather than dropping the chunk.
type Generative struct {
	generator domain.Generator
}

// NewGenerative creates a summarizer backed by a Generator.
func NewGenerative(generator domain.Generator) *Generative {
	return &Generative{generator: generator}
}

const summarySystemPrompt = "You summarize technical documentation. Reply with a single short sentence."

func (g *Generative) Summarize(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf("Summarize the following documentation excerpt in one sentence:\n\n%s", text)
	summary, err := g.generator.Generate(ctx, summarySystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}
	return summary, nil
}
