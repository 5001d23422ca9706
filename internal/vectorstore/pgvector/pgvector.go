package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"docsrag/internal/domain"
)

// Store persists chunks in Postgres with the pgvector extension, using
// the same site_pages shape the hosted setup uses. (url, chunk_index)
// carries a uniqueness constraint; upserts replace on conflict.
type Store struct {
	db        *sql.DB
	dimension int
}

// Config contains connection details for the Postgres store.
type Config struct {
	DSN string
}

// New opens a connection to Postgres.
func New(cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("missing postgres DSN")
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.dimension = dimension

	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS site_pages (
			id BIGSERIAL PRIMARY KEY,
			url TEXT NOT NULL,
			chunk_index INT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			framework TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			embedding vector(%d) NOT NULL,
			crawled_at TIMESTAMPTZ,
			UNIQUE (url, chunk_index)
		)`, dimension)
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create site_pages: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		"CREATE INDEX IF NOT EXISTS site_pages_framework_idx ON site_pages (lower(framework))"); err != nil {
		return fmt.Errorf("create framework index: %w", err)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for _, c := range chunks {
		if len(c.Embedding) != s.dimension {
			return domain.ErrDimensionMismatch
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO site_pages (url, chunk_index, title, summary, content, framework, metadata, embedding, crawled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::vector, $9)
		ON CONFLICT (url, chunk_index) DO UPDATE SET
			title = EXCLUDED.title,
			summary = EXCLUDED.summary,
			content = EXCLUDED.content,
			framework = EXCLUDED.framework,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding,
			crawled_at = EXCLUDED.crawled_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		metaJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		framework := strings.ToLower(c.Metadata["framework"])
		var crawledAt any
		if ts, err := time.Parse(time.RFC3339, c.Metadata["crawled_at"]); err == nil {
			crawledAt = ts
		}
		if _, err := stmt.ExecContext(ctx,
			c.URL, c.Index, c.Title, c.Summary, c.Content, framework,
			metaJSON, vectorToString(c.Embedding), crawledAt,
		); err != nil {
			return fmt.Errorf("upsert chunk %s#%d: %w", c.URL, c.Index, err)
		}
	}

	return tx.Commit()
}

func (s *Store) DeleteByURL(ctx context.Context, url string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM site_pages WHERE url = $1", url)
	return err
}

// Search performs a cosine similarity search. The pgvector `<=>`
// operator returns cosine distance in [0,2]; `1 - distance/2` maps it
// to the same (cos+1)/2 scale in [0,1] the other adapters report. Ties
// resolve by ascending chunk index.
func (s *Store) Search(ctx context.Context, vector []float32, k int, framework string) ([]domain.RetrievedMatch, error) {
	if k <= 0 {
		k = 5
	}
	query := `
		SELECT url, chunk_index, title, summary, content, metadata,
		       1 - (embedding <=> $1::vector) / 2 AS similarity
		FROM site_pages
		WHERE $2 = '' OR lower(framework) = lower($2)
		ORDER BY embedding <=> $1::vector, chunk_index
		LIMIT $3`

	rows, err := s.db.QueryContext(ctx, query, vectorToString(vector), framework, k)
	if err != nil {
		return nil, fmt.Errorf("search similar: %w", err)
	}
	defer rows.Close()

	var matches []domain.RetrievedMatch
	for rows.Next() {
		var (
			c        domain.Chunk
			metaJSON []byte
			sim      float64
		)
		if err := rows.Scan(&c.URL, &c.Index, &c.Title, &c.Summary, &c.Content, &metaJSON, &sim); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &c.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
		}
		if sim < 0 {
			sim = 0
		}
		if sim > 1 {
			sim = 1
		}
		matches = append(matches, domain.RetrievedMatch{Chunk: c, Similarity: sim})
	}
	return matches, rows.Err()
}

func (s *Store) CountByFramework(ctx context.Context, framework string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM site_pages WHERE $1 = '' OR lower(framework) = lower($1)",
		framework).Scan(&n)
	return n, err
}

func (s *Store) Close() error { return s.db.Close() }

// vectorToString converts a float32 slice to pgvector text format:
// [0.1,0.2,0.3].
func vectorToString(v []float32) string {
	parts := make([]string, len(v))
	for i, val := range v {
		parts[i] = fmt.Sprintf("%g", val)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
