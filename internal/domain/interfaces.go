package domain

import "context"

// EmbeddingResult is the outcome of embedding a single text within a
// batch. Exactly one of Vector or Err is set. Callers must skip storing
// failed items; a zero vector would corrupt similarity rankings.
type EmbeddingResult struct {
	Vector []float32
	Err    error
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Embedder converts texts into fixed-dimensionality vectors.
// EmbedBatch returns one result per input, in input order. A non-nil
// error means the whole call failed permanently (auth, bad request,
// dimension drift) and no results are usable.
type Embedder interface {
	Dimension() int
	EmbedBatch(ctx context.Context, texts []string) ([]EmbeddingResult, error)
}

// Generator produces text from a prompt via a language model.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// VectorStore persists embedded chunks and supports similarity search.
// When framework is non-empty, Search and CountByFramework only consider
// chunks whose framework matches case-insensitively.
type VectorStore interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []Chunk) error
	DeleteByURL(ctx context.Context, url string) error
	Search(ctx context.Context, vector []float32, k int, framework string) ([]RetrievedMatch, error)
	CountByFramework(ctx context.Context, framework string) (int, error)
	Close() error
}

// Crawler turns a documentation site into plain-text documents.
type Crawler interface {
	FetchDocuments(ctx context.Context, framework string) ([]Document, error)
}
