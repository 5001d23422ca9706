package assembler

import (
	"fmt"
	"sort"
	"strings"

	"docsrag/internal/domain"
)

// DefaultBudget is the default context budget in characters.
const DefaultBudget = 6000

const sectionRule = "=================================================="

// Assembler turns ranked matches into a budget-bounded context block
// plus citations. Chunks overlapping through the chunker's overlap
// policy are deduplicated, and no chunk is ever cut mid-sentence.
type Assembler struct {
	budget int
}

// New creates an Assembler with the given character budget.
func New(budget int) *Assembler {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Assembler{budget: budget}
}

// Assemble builds the context block. Zero matches (or matches that all
// get deduplicated or dropped for budget) yield domain.ErrNoContext so
// the caller can switch to a no-answer prompt template.
func (a *Assembler) Assemble(matches []domain.RetrievedMatch) (domain.AssembledContext, error) {
	if len(matches) == 0 {
		return domain.AssembledContext{}, domain.ErrNoContext
	}

	ordered := make([]domain.RetrievedMatch, len(matches))
	copy(ordered, matches)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Similarity != ordered[j].Similarity {
			return ordered[i].Similarity > ordered[j].Similarity
		}
		return ordered[i].Chunk.Index < ordered[j].Chunk.Index
	})

	deduped := dedupe(ordered)

	var (
		blocks    []string
		citations []domain.Citation
		citedURLs = map[string]bool{}
		used      int
	)

	appendMatch := func(c domain.Chunk) {
		blocks = append(blocks, formatBlock(c))
		used = totalLen(blocks)
		if !citedURLs[c.URL] {
			citedURLs[c.URL] = true
			citations = append(citations, domain.Citation{Title: c.Title, URL: c.URL})
		}
	}

	for i, m := range deduped {
		block := formatBlock(m.Chunk)
		cost := len(block)
		if len(blocks) > 0 {
			cost += len("\n\n")
		}
		if used+cost <= a.budget {
			appendMatch(m.Chunk)
			continue
		}
		// Over budget. A chunk that alone exceeds the remaining budget is
		// skipped when alternatives exist, and truncated at a sentence
		// boundary only when it is the sole candidate.
		if len(blocks) > 0 || i+1 < len(deduped) {
			continue
		}
		truncated, ok := truncateAtSentence(m.Chunk, a.budget)
		if ok {
			appendMatch(truncated)
		}
	}

	if len(blocks) == 0 {
		return domain.AssembledContext{}, domain.ErrNoContext
	}

	return domain.AssembledContext{
		Text:      strings.Join(blocks, "\n\n"),
		Citations: citations,
	}, nil
}

// dedupe drops exact (url, index) duplicates and chunks adjacent to an
// already-kept chunk of the same URL, since adjacent chunks repeat the
// chunker's overlap region.
func dedupe(matches []domain.RetrievedMatch) []domain.RetrievedMatch {
	type key struct {
		url   string
		index int
	}
	seen := map[key]bool{}
	var kept []domain.RetrievedMatch

	for _, m := range matches {
		k := key{m.Chunk.URL, m.Chunk.Index}
		if seen[k] {
			continue
		}
		if seen[key{m.Chunk.URL, m.Chunk.Index - 1}] || seen[key{m.Chunk.URL, m.Chunk.Index + 1}] {
			continue
		}
		seen[k] = true
		kept = append(kept, m)
	}
	return kept
}

// formatBlock renders one chunk with its source attribution.
func formatBlock(c domain.Chunk) string {
	return fmt.Sprintf("Section: %s\nURL: %s\nContent:\n%s\n%s",
		c.Title, c.URL, c.Content, sectionRule)
}

func totalLen(blocks []string) int {
	n := 0
	for i, b := range blocks {
		if i > 0 {
			n += len("\n\n")
		}
		n += len(b)
	}
	return n
}

// truncateAtSentence cuts the chunk content at the last sentence
// boundary that fits the budget once block formatting is accounted for.
// Returns false when not even one sentence fits.
func truncateAtSentence(c domain.Chunk, budget int) (domain.Chunk, bool) {
	overhead := len(formatBlock(domain.Chunk{Title: c.Title, URL: c.URL}))
	room := budget - overhead
	if room <= 0 {
		return domain.Chunk{}, false
	}
	if len(c.Content) <= room {
		return c, true
	}

	cut := c.Content[:room]
	end := -1
	for i := len(cut) - 1; i >= 0; i-- {
		if cut[i] == '.' || cut[i] == '!' || cut[i] == '?' {
			end = i
			break
		}
	}
	if end <= 0 {
		return domain.Chunk{}, false
	}
	c.Content = strings.TrimSpace(cut[:end+1])
	return c, true
}
