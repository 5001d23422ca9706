package record

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"docsrag/internal/domain"
)

// Builder enriches chunks into storable records: it derives the title,
// attaches the optional summary, merges document metadata, and enforces
// the embedding dimensionality invariant.
type Builder struct {
	summarizer domain.Summarizer
	dimension  int
	log        *slog.Logger
}

// NewBuilder creates a record builder. summarizer may be nil, in which
// case records carry no summary.
func NewBuilder(summarizer domain.Summarizer, dimension int, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{summarizer: summarizer, dimension: dimension, log: log}
}

// Build attaches title, summary, metadata, and the embedding to a chunk.
// A dimension mismatch is a configuration-level fault and returns
// domain.ErrDimensionMismatch; callers must abort the ingestion run.
func (b *Builder) Build(ctx context.Context, chunk domain.Chunk, embedding []float32, doc domain.Document) (domain.Chunk, error) {
	if len(embedding) != b.dimension {
		return domain.Chunk{}, fmt.Errorf("%w: record %s#%d has %d dims, want %d",
			domain.ErrDimensionMismatch, chunk.URL, chunk.Index, len(embedding), b.dimension)
	}

	chunk.Title = deriveTitle(chunk, doc)
	chunk.Embedding = embedding

	if b.summarizer != nil {
		summary, err := b.summarizer.Summarize(ctx, chunk.Content)
		if err != nil {
			// Summaries are optional context; keep the record.
			b.log.Warn("summary generation failed",
				"url", chunk.URL, "chunk", chunk.Index, "error", err)
		} else {
			chunk.Summary = summary
		}
	}

	chunk.Metadata = mergeMetadata(doc, chunk.Metadata)
	return chunk, nil
}

// deriveTitle picks the nearest preceding heading, then the document
// title, then the last URL path segment.
func deriveTitle(chunk domain.Chunk, doc domain.Document) string {
	if chunk.Heading != "" {
		return chunk.Heading
	}
	if doc.Title != "" {
		return doc.Title
	}
	return TitleFromURL(chunk.URL)
}

// TitleFromURL derives a readable title from the last path segment of a
// URL, e.g. "https://docs.example.com/async-crawling" -> "Async Crawling".
func TitleFromURL(url string) string {
	trimmed := strings.TrimRight(url, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	if idx := strings.LastIndex(trimmed, "."); idx > 0 {
		trimmed = trimmed[:idx]
	}
	trimmed = strings.NewReplacer("-", " ", "_", " ").Replace(trimmed)
	if strings.TrimSpace(trimmed) == "" {
		return url
	}
	words := strings.Fields(trimmed)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// mergeMetadata combines document metadata with chunk metadata; chunk
// keys win on collision. The framework tag and crawl timestamp always
// end up at the top level of the map (one canonical, flat shape).
func mergeMetadata(doc domain.Document, chunkMeta map[string]string) map[string]string {
	merged := make(map[string]string, len(doc.Metadata)+len(chunkMeta)+2)
	for k, v := range doc.Metadata {
		merged[k] = v
	}
	if doc.Framework != "" {
		merged["framework"] = strings.ToLower(doc.Framework)
	}
	if !doc.CrawledAt.IsZero() {
		merged["crawled_at"] = doc.CrawledAt.UTC().Format(time.RFC3339)
	}
	for k, v := range chunkMeta {
		merged[k] = v
	}
	return merged
}
