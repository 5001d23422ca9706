package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"docsrag/internal/assembler"
	"docsrag/internal/domain"
	"docsrag/internal/generation"
	"docsrag/internal/record"
	"docsrag/internal/retriever"
)

// DefaultConcurrency bounds in-flight embedding batches during
// ingestion.
const DefaultConcurrency = 4

// DefaultBatchSize is the number of chunks embedded per request.
const DefaultBatchSize = 50

// Engine sequences the ingestion and query pipelines. Ingestion runs
// Chunker -> Embedder -> Record Builder -> store; queries run
// Retriever -> Assembler -> Generator.
type Engine struct {
	chunker     domain.Chunker
	embedder    domain.Embedder
	builder     *record.Builder
	store       domain.VectorStore
	retriever   *retriever.Retriever
	assembler   *assembler.Assembler
	generator   domain.Generator
	concurrency int
	batchSize   int
	log         *slog.Logger
}

// Config wires an Engine. Chunker, Embedder, and Store are required;
// Generator may be nil for index-only engines.
type Config struct {
	Chunker     domain.Chunker
	Embedder    domain.Embedder
	Builder     *record.Builder
	Store       domain.VectorStore
	Retriever   *retriever.Retriever
	Assembler   *assembler.Assembler
	Generator   domain.Generator
	Concurrency int
	BatchSize   int
	Logger      *slog.Logger
}

// New creates an Engine and initializes the store with the embedder's
// dimensionality.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.Chunker == nil || cfg.Embedder == nil || cfg.Store == nil {
		return nil, errors.New("pipeline: chunker, embedder, and store are required")
	}
	if cfg.Builder == nil {
		cfg.Builder = record.NewBuilder(nil, cfg.Embedder.Dimension(), cfg.Logger)
	}
	if cfg.Retriever == nil {
		cfg.Retriever = retriever.New(cfg.Embedder, cfg.Store)
	}
	if cfg.Assembler == nil {
		cfg.Assembler = assembler.New(0)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if err := cfg.Store.Init(ctx, cfg.Embedder.Dimension()); err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	return &Engine{
		chunker:     cfg.Chunker,
		embedder:    cfg.Embedder,
		builder:     cfg.Builder,
		store:       cfg.Store,
		retriever:   cfg.Retriever,
		assembler:   cfg.Assembler,
		generator:   cfg.Generator,
		concurrency: cfg.Concurrency,
		batchSize:   cfg.BatchSize,
		log:         cfg.Logger,
	}, nil
}

// Ingest chunks, embeds, and stores the documents. One chunk's failure
// never aborts the rest of its document; failures are counted and
// reported at the end of the run. A dimension mismatch aborts the whole
// run since it signals model/config drift.
func (e *Engine) Ingest(ctx context.Context, docs []domain.Document) (domain.IngestReport, error) {
	var report domain.IngestReport

	for _, doc := range docs {
		report.Documents++

		chunks, err := e.chunker.Chunk(doc)
		if err != nil {
			e.log.Warn("chunking failed, skipping document", "url", doc.URL, "error", err)
			report.SkippedDocs++
			continue
		}
		if len(chunks) == 0 {
			e.log.Info("document produced no chunks, skipping", "url", doc.URL)
			report.SkippedDocs++
			continue
		}
		report.Chunks += len(chunks)

		embedded, err := e.embedChunks(ctx, chunks)
		if err != nil {
			return report, err
		}

		var storable []domain.Chunk
		for i, res := range embedded {
			if res.Err != nil {
				report.Failed++
				report.Failures = append(report.Failures, domain.ChunkFailure{
					URL: doc.URL, Index: chunks[i].Index, Err: res.Err,
				})
				continue
			}
			built, err := e.builder.Build(ctx, chunks[i], res.Vector, doc)
			if err != nil {
				if errors.Is(err, domain.ErrDimensionMismatch) {
					return report, err
				}
				report.Failed++
				report.Failures = append(report.Failures, domain.ChunkFailure{
					URL: doc.URL, Index: chunks[i].Index, Err: err,
				})
				continue
			}
			storable = append(storable, built)
		}

		if len(storable) == 0 {
			// Nothing survived embedding. Keep the URL's existing chunk
			// set; wiping it here would turn a transient outage into data
			// loss.
			e.log.Warn("no chunks stored for document, keeping existing records",
				"url", doc.URL, "failed", len(chunks))
			continue
		}

		// Overwrite, never append: retire the URL's previous chunk set
		// only once a replacement set is ready to go in.
		if err := e.store.DeleteByURL(ctx, doc.URL); err != nil {
			e.log.Error("delete before re-ingest failed", "url", doc.URL, "error", err)
			report.Failed += len(storable)
			report.Failures = append(report.Failures, storeFailures(storable, err)...)
			continue
		}
		if err := e.store.Upsert(ctx, storable); err != nil {
			if errors.Is(err, domain.ErrDimensionMismatch) {
				return report, err
			}
			e.log.Error("storing chunks failed", "url", doc.URL, "error", err)
			report.Failed += len(storable)
			report.Failures = append(report.Failures, storeFailures(storable, err)...)
			continue
		}
		report.Stored += len(storable)
	}

	e.log.Info("ingestion run finished",
		"documents", report.Documents,
		"skipped_docs", report.SkippedDocs,
		"chunks", report.Chunks,
		"stored", report.Stored,
		"failed", report.Failed)

	return report, nil
}

func storeFailures(chunks []domain.Chunk, err error) []domain.ChunkFailure {
	wrapped := domain.WrapStage(domain.StageStore, err)
	failures := make([]domain.ChunkFailure, 0, len(chunks))
	for _, c := range chunks {
		failures = append(failures, domain.ChunkFailure{URL: c.URL, Index: c.Index, Err: wrapped})
	}
	return failures
}

// embedChunks embeds a document's chunks in batches with bounded
// concurrency, preserving chunk order in the result slice.
func (e *Engine) embedChunks(ctx context.Context, chunks []domain.Chunk) ([]domain.EmbeddingResult, error) {
	results := make([]domain.EmbeddingResult, len(chunks))

	type batch struct {
		start int
		texts []string
	}
	var batches []batch
	for start := 0; start < len(chunks); start += e.batchSize {
		end := start + e.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Content)
		}
		batches = append(batches, batch{start: start, texts: texts})
	}

	var (
		wg       sync.WaitGroup
		sem      = make(chan struct{}, e.concurrency)
		mu       sync.Mutex
		fatalErr error
	)
	for _, b := range batches {
		wg.Add(1)
		go func(b batch) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res, err := e.embedder.EmbedBatch(ctx, b.texts)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if fatalErr == nil {
					fatalErr = domain.WrapStage(domain.StageEmbed, err)
				}
				return
			}
			copy(results[b.start:], res)
		}(b)
	}
	wg.Wait()

	if fatalErr != nil {
		return nil, fatalErr
	}
	return results, nil
}

// Query answers a question grounded in stored documentation. A query
// with no relevant matches returns domain.ErrNotFound, which callers
// must present differently from a retrieval failure.
func (e *Engine) Query(ctx context.Context, question, framework string) (domain.Answer, error) {
	if e.generator == nil {
		return domain.Answer{}, errors.New("pipeline: engine has no generator")
	}

	matches, err := e.retriever.Retrieve(ctx, question, framework, 0)
	if err != nil {
		return domain.Answer{}, err
	}

	assembled, err := e.assembler.Assemble(matches)
	if err != nil {
		if errors.Is(err, domain.ErrNoContext) {
			return domain.Answer{}, domain.ErrNotFound
		}
		return domain.Answer{}, err
	}

	answer, err := e.generator.Generate(ctx,
		generation.SystemPrompt(framework),
		generation.UserPrompt(assembled.Text, question))
	if err != nil {
		return domain.Answer{}, domain.WrapStage(domain.StageGenerate, err)
	}

	return domain.Answer{Text: answer, Citations: assembled.Citations}, nil
}

// Count reports how many chunks are stored for a framework (all
// frameworks when empty).
func (e *Engine) Count(ctx context.Context, framework string) (int, error) {
	return e.store.CountByFramework(ctx, framework)
}
