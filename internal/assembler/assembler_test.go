package assembler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsrag/internal/domain"
)

func match(url string, index int, similarity float64, content string) domain.RetrievedMatch {
	return domain.RetrievedMatch{
		Chunk: domain.Chunk{
			URL:     url,
			Index:   index,
			Title:   "Section " + url,
			Content: content,
		},
		Similarity: similarity,
	}
}

func TestAssembleNoMatchesSignalsNoContext(t *testing.T) {
	a := New(1000)
	_, err := a.Assemble(nil)
	assert.ErrorIs(t, err, domain.ErrNoContext)
}

func TestAssembleOrdersBySimilarity(t *testing.T) {
	a := New(10000)
	out, err := a.Assemble([]domain.RetrievedMatch{
		match("https://a", 0, 0.4, "lower ranked text."),
		match("https://b", 0, 0.9, "top ranked text."),
	})
	require.NoError(t, err)
	assert.Less(t,
		strings.Index(out.Text, "top ranked text."),
		strings.Index(out.Text, "lower ranked text."))
}

func TestAssembleRespectsBudget(t *testing.T) {
	big := strings.Repeat("A sentence that fills space. ", 40)
	a := New(1500)
	out, err := a.Assemble([]domain.RetrievedMatch{
		match("https://a", 0, 0.9, big),
		match("https://b", 0, 0.8, big),
		match("https://c", 0, 0.7, big),
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out.Text), 1500)
}

func TestAssembleSkipsOversizedWhenOthersRemain(t *testing.T) {
	a := New(400)
	out, err := a.Assemble([]domain.RetrievedMatch{
		match("https://big", 0, 0.9, strings.Repeat("Long sentence here. ", 50)),
		match("https://small", 0, 0.8, "Short answer."),
	})
	require.NoError(t, err)
	assert.NotContains(t, out.Text, "https://big")
	assert.Contains(t, out.Text, "Short answer.")
}

func TestAssembleTruncatesSoleCandidateAtSentence(t *testing.T) {
	content := strings.TrimSpace(strings.Repeat("A complete sentence lives here. ", 50))
	a := New(500)
	out, err := a.Assemble([]domain.RetrievedMatch{
		match("https://only", 0, 0.9, content),
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out.Text), 500)

	// The content must end at a sentence boundary, right before the rule.
	lines := strings.Split(out.Text, "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	contentLine := lines[len(lines)-2]
	assert.True(t, strings.HasSuffix(contentLine, "."),
		"content should end on a sentence: %q", contentLine)
}

func TestAssembleDeduplicatesAdjacentChunks(t *testing.T) {
	a := New(10000)
	out, err := a.Assemble([]domain.RetrievedMatch{
		match("https://a", 3, 0.9, "chunk three."),
		match("https://a", 4, 0.85, "chunk four, overlapping three."),
		match("https://a", 7, 0.8, "chunk seven."),
	})
	require.NoError(t, err)
	assert.Contains(t, out.Text, "chunk three.")
	assert.NotContains(t, out.Text, "chunk four")
	assert.Contains(t, out.Text, "chunk seven.")
}

func TestAssembleCitationsDedupedByURLInOrder(t *testing.T) {
	a := New(10000)
	out, err := a.Assemble([]domain.RetrievedMatch{
		match("https://a", 0, 0.9, "first."),
		match("https://b", 0, 0.8, "second."),
		match("https://a", 5, 0.7, "third from a."),
	})
	require.NoError(t, err)
	require.Len(t, out.Citations, 2)
	assert.Equal(t, "https://a", out.Citations[0].URL)
	assert.Equal(t, "https://b", out.Citations[1].URL)
}

func TestAssembleNothingFitsSignalsNoContext(t *testing.T) {
	a := New(40)
	_, err := a.Assemble([]domain.RetrievedMatch{
		match("https://a", 0, 0.9, strings.Repeat("word ", 100)),
	})
	assert.ErrorIs(t, err, domain.ErrNoContext)
}

func TestAssembleBlockFormat(t *testing.T) {
	a := New(10000)
	out, err := a.Assemble([]domain.RetrievedMatch{
		match("https://docs/page", 0, 0.9, "The content body."),
	})
	require.NoError(t, err)
	assert.Contains(t, out.Text, "Section: Section https://docs/page\n")
	assert.Contains(t, out.Text, "URL: https://docs/page\n")
	assert.Contains(t, out.Text, "Content:\nThe content body.\n")
	assert.True(t, strings.HasSuffix(out.Text, sectionRule))
}
