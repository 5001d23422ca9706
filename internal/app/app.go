// Package app wires configuration into running pipeline components.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"docsrag/internal/assembler"
	"docsrag/internal/chunker"
	"docsrag/internal/config"
	"docsrag/internal/crawler"
	"docsrag/internal/domain"
	"docsrag/internal/embedding"
	"docsrag/internal/generation"
	"docsrag/internal/pipeline"
	"docsrag/internal/record"
	"docsrag/internal/retriever"
	"docsrag/internal/summarizer"
	"docsrag/internal/vectorstore/memory"
	"docsrag/internal/vectorstore/pgvector"
	"docsrag/internal/vectorstore/qdrant"
)

// BuildEngine assembles a pipeline engine from config. withGenerator
// controls whether the chat model is wired in; the indexer does not
// need one.
func BuildEngine(ctx context.Context, cfg *config.AppConfig, log *slog.Logger, withGenerator bool) (*pipeline.Engine, error) {
	if log == nil {
		log = slog.Default()
	}

	emb, err := buildEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("build embedder: %w", err)
	}

	store, err := buildStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("build vector store: %w", err)
	}

	var gen domain.Generator
	if withGenerator {
		gen, err = generation.NewClient(generation.Config{
			BaseURL:     cfg.Generator.BaseURL,
			APIKeyEnv:   cfg.Generator.APIKeyEnv,
			Model:       cfg.Generator.Model,
			Temperature: cfg.Generator.Temperature,
			Timeout:     time.Duration(cfg.Generator.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("build generator: %w", err)
		}
	}

	sum, err := buildSummarizer(cfg, gen)
	if err != nil {
		return nil, fmt.Errorf("build summarizer: %w", err)
	}

	var retrieverOpts []retriever.Option
	if cfg.Retrieval.TopK > 0 {
		retrieverOpts = append(retrieverOpts, retriever.WithDefaultTopK(cfg.Retrieval.TopK))
	}
	if cfg.Retrieval.MinSimilarity > 0 {
		retrieverOpts = append(retrieverOpts, retriever.WithMinSimilarity(cfg.Retrieval.MinSimilarity))
	}

	batchSize := 0
	if cfg.Embedder.OpenAI != nil {
		batchSize = cfg.Embedder.OpenAI.BatchSize
	}

	return pipeline.New(ctx, pipeline.Config{
		Chunker:   chunker.NewMarkdown(cfg.Chunker.MaxChunkSize, cfg.Chunker.OverlapChars()),
		Embedder:  emb,
		Builder:   record.NewBuilder(sum, emb.Dimension(), log),
		Store:     store,
		Retriever: retriever.New(emb, store, retrieverOpts...),
		Assembler: assembler.New(cfg.Retrieval.ContextBudget),
		Generator: gen,
		BatchSize: batchSize,
		Logger:    log,
	})
}

// BuildCrawler assembles the documentation crawler over the configured
// frameworks.
func BuildCrawler(cfg *config.AppConfig, log *slog.Logger) *crawler.Crawler {
	sites := make([]crawler.Site, 0, len(cfg.Frameworks))
	for _, fw := range cfg.Frameworks {
		sites = append(sites, crawler.Site{
			Framework:  fw.Name,
			SitemapURL: fw.SitemapURL,
			BaseURL:    fw.BaseURL,
		})
	}
	return crawler.New(sites,
		crawler.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Crawl.TimeoutSecs) * time.Second,
		}),
		crawler.WithConcurrency(cfg.Crawl.Concurrency),
		crawler.WithLogger(log),
	)
}

func buildEmbedder(cfg *config.AppConfig) (domain.Embedder, error) {
	switch cfg.Embedder.Type {
	case "openai", "":
		o := cfg.Embedder.OpenAI
		if o == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		return embedding.NewClient(embedding.Config{
			BaseURL:    o.BaseURL,
			APIKeyEnv:  o.APIKeyEnv,
			Model:      o.Model,
			Dimension:  o.Dimension,
			Timeout:    time.Duration(o.TimeoutSecs) * time.Second,
			MaxRetries: o.MaxRetries,
		})
	case "stub":
		dim := 64
		if cfg.Embedder.OpenAI != nil && cfg.Embedder.OpenAI.Dimension > 0 {
			dim = cfg.Embedder.OpenAI.Dimension
		}
		return embedding.NewStub(dim), nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}
}

func buildStore(cfg *config.AppConfig) (domain.VectorStore, error) {
	switch cfg.VectorStore.Type {
	case "memory", "":
		return memory.New(), nil
	case "qdrant":
		q := cfg.VectorStore.Qdrant
		if q == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		return qdrant.New(qdrant.Config{
			URL:        q.URL,
			APIKey:     os.Getenv(q.APIKeyEnv),
			Collection: q.Collection,
			Timeout:    time.Duration(q.TimeoutSecs) * time.Second,
		}), nil
	case "postgres":
		p := cfg.VectorStore.Postgres
		if p == nil {
			return nil, fmt.Errorf("postgres config missing")
		}
		return pgvector.New(pgvector.Config{DSN: os.Getenv(p.DSNEnv)})
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}
}

func buildSummarizer(cfg *config.AppConfig, gen domain.Generator) (domain.Summarizer, error) {
	switch cfg.Summarizer.Type {
	case "lead", "":
		return summarizer.NewLead(cfg.Summarizer.MaxLength), nil
	case "generative":
		if gen == nil {
			// The indexer runs without a chat model; fall back to the
			// lead summarizer rather than failing the run.
			return summarizer.NewLead(cfg.Summarizer.MaxLength), nil
		}
		return summarizer.NewGenerative(gen), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown summarizer: %s", cfg.Summarizer.Type)
	}
}
