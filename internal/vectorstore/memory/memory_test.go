package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsrag/internal/domain"
)

func chunk(url string, index int, framework string, embedding []float32) domain.Chunk {
	return domain.Chunk{
		URL:       url,
		Index:     index,
		Content:   "content",
		Metadata:  map[string]string{"framework": framework},
		Embedding: embedding,
	}
}

func newStore(t *testing.T) *Store {
	t.Helper()
	s := New()
	require.NoError(t, s.Init(context.Background(), 3))
	return s
}

func TestUpsertRejectsWrongDimension(t *testing.T) {
	s := newStore(t)
	err := s.Upsert(context.Background(), []domain.Chunk{
		chunk("u", 0, "foo", []float32{1, 0}),
	})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	n, err := s.CountByFramework(context.Background(), "")
	require.NoError(t, err)
	assert.Zero(t, n, "a record violating the dimension invariant is never persisted")
}

func TestSearchFilterIsCaseInsensitive(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Upsert(context.Background(), []domain.Chunk{
		chunk("u1", 0, "foo", []float32{1, 0, 0}),
		chunk("u2", 0, "bar", []float32{1, 0, 0}),
	}))

	matches, err := s.Search(context.Background(), []float32{1, 0, 0}, 5, "FOO")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "u1", matches[0].Chunk.URL)

	matches, err = s.Search(context.Background(), []float32{1, 0, 0}, 5, "")
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestSearchOrderingAndTies(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Upsert(context.Background(), []domain.Chunk{
		chunk("u", 2, "foo", []float32{1, 0, 0}),
		chunk("u", 0, "foo", []float32{1, 0, 0}),
		chunk("u", 1, "foo", []float32{0, 1, 0}),
	}))

	matches, err := s.Search(context.Background(), []float32{1, 0, 0}, 3, "foo")
	require.NoError(t, err)
	require.Len(t, matches, 3)
	// Equal similarity resolves by ascending chunk index.
	assert.Equal(t, 0, matches[0].Chunk.Index)
	assert.Equal(t, 2, matches[1].Chunk.Index)
	assert.Equal(t, 1, matches[2].Chunk.Index)
	assert.Greater(t, matches[0].Similarity, matches[2].Similarity)
}

func TestSimilarityWithinUnitRange(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Upsert(context.Background(), []domain.Chunk{
		chunk("u", 0, "foo", []float32{-1, 0, 0}),
		chunk("u", 1, "foo", []float32{1, 0, 0}),
	}))

	matches, err := s.Search(context.Background(), []float32{1, 0, 0}, 2, "")
	require.NoError(t, err)
	for _, m := range matches {
		assert.GreaterOrEqual(t, m.Similarity, 0.0)
		assert.LessOrEqual(t, m.Similarity, 1.0)
	}
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-9)
	assert.InDelta(t, 0.0, matches[1].Similarity, 1e-9)
}

func TestDeleteByURLRemovesWholeChunkSet(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Upsert(context.Background(), []domain.Chunk{
		chunk("a", 0, "foo", []float32{1, 0, 0}),
		chunk("a", 1, "foo", []float32{0, 1, 0}),
		chunk("b", 0, "foo", []float32{0, 0, 1}),
	}))

	require.NoError(t, s.DeleteByURL(context.Background(), "a"))
	n, err := s.CountByFramework(context.Background(), "foo")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUpsertReplacesSameKey(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Upsert(context.Background(), []domain.Chunk{
		chunk("a", 0, "foo", []float32{1, 0, 0}),
	}))
	updated := chunk("a", 0, "foo", []float32{0, 1, 0})
	updated.Content = "newer"
	require.NoError(t, s.Upsert(context.Background(), []domain.Chunk{updated}))

	n, err := s.CountByFramework(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	matches, err := s.Search(context.Background(), []float32{0, 1, 0}, 1, "")
	require.NoError(t, err)
	assert.Equal(t, "newer", matches[0].Chunk.Content)
}

func TestSearchEmptyCorpusReturnsEmpty(t *testing.T) {
	s := newStore(t)
	matches, err := s.Search(context.Background(), []float32{1, 0, 0}, 5, "foo")
	require.NoError(t, err)
	assert.Empty(t, matches)
}
