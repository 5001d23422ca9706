package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"docsrag/internal/domain"
)

// Stub is a deterministic local embedder for tests and offline runs.
// Vectors are derived from token hashes and L2-normalized, so equal
// texts always map to equal vectors.
type Stub struct {
	dimension int

	// FailText marks texts whose embedding should fail, keyed by exact
	// content. Used to simulate partial batch failures.
	FailText map[string]error
}

// NewStub creates a stub embedder with the given dimensionality.
func NewStub(dimension int) *Stub {
	if dimension <= 0 {
		dimension = 64
	}
	return &Stub{dimension: dimension}
}

func (s *Stub) Dimension() int { return s.dimension }

func (s *Stub) EmbedBatch(ctx context.Context, texts []string) ([]domain.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	results := make([]domain.EmbeddingResult, len(texts))
	for i, text := range texts {
		if err, ok := s.FailText[text]; ok {
			results[i] = domain.EmbeddingResult{Err: err}
			continue
		}
		results[i] = domain.EmbeddingResult{Vector: s.embed(text)}
	}
	return results, nil
}

func (s *Stub) embed(text string) []float32 {
	vec := make([]float32, s.dimension)
	h := fnv.New32a()
	for _, field := range tokenize(text) {
		h.Reset()
		h.Write([]byte(field))
		vec[h.Sum32()%uint32(s.dimension)]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}

func tokenize(text string) []string {
	var tokens []string
	var current []rune
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			if len(current) > 0 {
				tokens = append(tokens, string(current))
				current = current[:0]
			}
			continue
		}
		current = append(current, r)
	}
	if len(current) > 0 {
		tokens = append(tokens, string(current))
	}
	return tokens
}
