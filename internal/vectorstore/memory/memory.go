package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"

	"docsrag/internal/domain"
)

// Store is an in-memory vector store using brute-force cosine
// similarity. It backs tests and small local corpora.
type Store struct {
	mu        sync.RWMutex
	dimension int
	chunks    []domain.Chunk
}

// New creates an empty in-memory store.
func New() *Store { return &Store{} }

func (s *Store) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.chunks = nil
	return nil
}

// Upsert inserts chunks, replacing any existing record with the same
// (URL, chunk index) key.
func (s *Store) Upsert(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		if len(c.Embedding) != s.dimension {
			return domain.ErrDimensionMismatch
		}
	}
	for _, c := range chunks {
		replaced := false
		for i := range s.chunks {
			if s.chunks[i].URL == c.URL && s.chunks[i].Index == c.Index {
				s.chunks[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			s.chunks = append(s.chunks, c)
		}
	}
	return nil
}

func (s *Store) DeleteByURL(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.chunks[:0]
	for _, c := range s.chunks {
		if c.URL != url {
			kept = append(kept, c)
		}
	}
	s.chunks = kept
	return nil
}

// Search returns the k most similar chunks, ordered by descending
// similarity with ties broken by ascending chunk index. Similarity is
// cosine rescaled to [0,1].
func (s *Store) Search(_ context.Context, vector []float32, k int, framework string) ([]domain.RetrievedMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if k <= 0 {
		k = 5
	}

	var matches []domain.RetrievedMatch
	for _, c := range s.chunks {
		if !frameworkMatches(c, framework) {
			continue
		}
		matches = append(matches, domain.RetrievedMatch{
			Chunk:      c,
			Similarity: rescaledCosine(c.Embedding, vector),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Chunk.Index < matches[j].Chunk.Index
	})

	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *Store) CountByFramework(_ context.Context, framework string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.chunks {
		if frameworkMatches(c, framework) {
			n++
		}
	}
	return n, nil
}

func (s *Store) Close() error { return nil }

func frameworkMatches(c domain.Chunk, framework string) bool {
	if framework == "" {
		return true
	}
	return strings.EqualFold(c.Metadata["framework"], framework)
}

// rescaledCosine maps cosine similarity from [-1,1] to [0,1].
func rescaledCosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	sim := (cos + 1) / 2
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
