package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsrag/internal/domain"
	"docsrag/internal/embedding"
	"docsrag/internal/vectorstore/memory"
)

type failingStore struct {
	domain.VectorStore
	err error
}

func (f *failingStore) Search(context.Context, []float32, int, string) ([]domain.RetrievedMatch, error) {
	return nil, f.err
}

func seedStore(t *testing.T, emb domain.Embedder) *memory.Store {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.Init(ctx, emb.Dimension()))

	texts := map[string][2]string{
		"https://a/one": {"foo", "how to configure the crawler timeout"},
		"https://a/two": {"foo", "tuning retrieval for large corpora"},
		"https://b/one": {"bar", "validating models with type hints"},
	}
	for url, meta := range texts {
		results, err := emb.EmbedBatch(ctx, []string{meta[1]})
		require.NoError(t, err)
		require.NoError(t, store.Upsert(ctx, []domain.Chunk{{
			URL:       url,
			Index:     0,
			Content:   meta[1],
			Metadata:  map[string]string{"framework": meta[0]},
			Embedding: results[0].Vector,
		}}))
	}
	return store
}

func TestRetrieveEmptyQuery(t *testing.T) {
	emb := embedding.NewStub(16)
	r := New(emb, seedStore(t, emb))

	_, err := r.Retrieve(context.Background(), "   ", "", 5)
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}

func TestRetrieveFilterCorrectness(t *testing.T) {
	emb := embedding.NewStub(16)
	r := New(emb, seedStore(t, emb))

	matches, err := r.Retrieve(context.Background(), "configure crawler", "FOO", 5)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	for _, m := range matches {
		assert.Equal(t, "foo", m.Chunk.Metadata["framework"])
	}
}

func TestRetrieveEmptyResultIsNotAnError(t *testing.T) {
	emb := embedding.NewStub(16)
	r := New(emb, seedStore(t, emb))

	matches, err := r.Retrieve(context.Background(), "anything", "unknown-framework", 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRetrieveEmbeddingFailurePropagates(t *testing.T) {
	emb := embedding.NewStub(16)
	emb.FailText = map[string]error{"anything": errors.New("rate limited")}
	r := New(emb, seedStore(t, emb))

	_, err := r.Retrieve(context.Background(), "anything", "", 5)
	require.Error(t, err)
	var stageErr *domain.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, domain.StageEmbed, stageErr.Stage)
}

func TestRetrieveSearchFailurePropagates(t *testing.T) {
	emb := embedding.NewStub(16)
	r := New(emb, &failingStore{err: errors.New("connection refused")})

	_, err := r.Retrieve(context.Background(), "anything", "", 5)
	require.Error(t, err)
	var stageErr *domain.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, domain.StageSearch, stageErr.Stage)
}

func TestClampK(t *testing.T) {
	assert.Equal(t, DefaultTopK, clampK(0, DefaultTopK))
	assert.Equal(t, DefaultTopK, clampK(-3, DefaultTopK))
	assert.Equal(t, MaxTopK, clampK(100, DefaultTopK))
	assert.Equal(t, 7, clampK(7, DefaultTopK))
}

func TestMinSimilarityThreshold(t *testing.T) {
	emb := embedding.NewStub(16)
	r := New(emb, seedStore(t, emb), WithMinSimilarity(0.99))

	// An unrelated query scores well below the threshold everywhere.
	matches, err := r.Retrieve(context.Background(), "zzz qqq xxx", "", 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
