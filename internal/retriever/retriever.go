package retriever

import (
	"context"
	"sort"
	"strings"

	"docsrag/internal/domain"
)

// DefaultTopK is the number of matches requested when the caller does
// not ask for a specific count.
const DefaultTopK = 5

// MaxTopK bounds k to keep the assembled context small.
const MaxTopK = 20

// Retriever embeds a query and asks the vector store for the most
// similar chunks. Similarity ranking itself is the store's job; the
// retriever owns query validation, k clamping, filter normalization,
// and the distinction between "nothing found" and "call failed".
type Retriever struct {
	embedder      domain.Embedder
	store         domain.VectorStore
	defaultK      int
	minSimilarity float64
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithDefaultTopK sets the k used when the query does not specify one.
func WithDefaultTopK(k int) Option {
	return func(r *Retriever) {
		if k > 0 {
			r.defaultK = k
		}
	}
}

// WithMinSimilarity drops matches scoring below the threshold, so a
// sparse corpus yields the not-found outcome instead of noise.
func WithMinSimilarity(threshold float64) Option {
	return func(r *Retriever) {
		if threshold > 0 {
			r.minSimilarity = threshold
		}
	}
}

// New creates a Retriever.
func New(embedder domain.Embedder, store domain.VectorStore, opts ...Option) *Retriever {
	r := &Retriever{embedder: embedder, store: store, defaultK: DefaultTopK}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns up to k matches for the query, ordered by descending
// similarity with ties broken by ascending chunk index. An empty result
// is a valid outcome (no relevant documentation), not an error; call
// failures come back wrapped with their stage.
func (r *Retriever) Retrieve(ctx context.Context, query, framework string, k int) ([]domain.RetrievedMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	k = clampK(k, r.defaultK)
	framework = strings.ToLower(strings.TrimSpace(framework))

	results, err := r.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, domain.WrapStage(domain.StageEmbed, err)
	}
	if len(results) != 1 {
		return nil, domain.WrapStage(domain.StageEmbed, domain.ErrEmptyQuery)
	}
	if results[0].Err != nil {
		return nil, domain.WrapStage(domain.StageEmbed, results[0].Err)
	}

	matches, err := r.store.Search(ctx, results[0].Vector, k, framework)
	if err != nil {
		return nil, domain.WrapStage(domain.StageSearch, err)
	}

	if r.minSimilarity > 0 {
		kept := matches[:0]
		for _, m := range matches {
			if m.Similarity >= r.minSimilarity {
				kept = append(kept, m)
			}
		}
		matches = kept
	}

	// Stores are expected to order results, but the tie-break is part of
	// this contract, so enforce it here.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Chunk.Index < matches[j].Chunk.Index
	})

	return matches, nil
}

func clampK(k, fallback int) int {
	if k <= 0 {
		k = fallback
	}
	if k < 1 {
		k = 1
	}
	if k > MaxTopK {
		k = MaxTopK
	}
	return k
}
