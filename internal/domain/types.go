package domain

import "time"

// Document represents a single crawled documentation page.
type Document struct {
	URL       string
	Title     string
	Content   string
	Framework string
	CrawledAt time.Time
	Metadata  map[string]string
}

// Chunk is a bounded slice of a document's text, the unit of embedding
// and retrieval. (URL, Index) is unique; re-ingesting a URL replaces all
// of its chunks.
type Chunk struct {
	URL       string
	Index     int
	Title     string
	Heading   string
	Summary   string
	Content   string
	Metadata  map[string]string
	Embedding []float32
}

// RetrievedMatch is a stored chunk plus its similarity to the query,
// rescaled to [0,1]. Results are ordered by descending similarity with
// ties broken by ascending chunk index.
type RetrievedMatch struct {
	Chunk      Chunk
	Similarity float64
}

// Citation points a reader at the documentation page a chunk came from.
type Citation struct {
	Title string
	URL   string
}

// AssembledContext is the budget-bounded context block handed to the
// generator, plus the citations for every chunk it includes.
type AssembledContext struct {
	Text      string
	Citations []Citation
}

// Answer is the final response to a user question.
type Answer struct {
	Text      string
	Citations []Citation
}

// ChunkFailure records a single chunk that could not be ingested.
type ChunkFailure struct {
	URL   string
	Index int
	Err   error
}

// IngestReport summarizes an ingestion run. Per-chunk failures are
// collected here rather than aborting the surrounding batch.
type IngestReport struct {
	Documents   int
	SkippedDocs int
	Chunks      int
	Stored      int
	Failed      int
	Failures    []ChunkFailure
}
