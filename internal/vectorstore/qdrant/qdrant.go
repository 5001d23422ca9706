package qdrant

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"docsrag/internal/domain"
)

// Store is a minimal REST client to Qdrant. It assumes cosine distance
// and creates the collection if missing. Point payloads carry the full
// record shape: url, chunk_index, title, summary, content, framework,
// and any extra metadata.
type Store struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
}

// Config contains connection details for a Qdrant vector store.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// New creates a Qdrant-backed store.
func New(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collection := cfg.Collection
	if collection == "" {
		collection = "site_pages"
	}
	return &Store{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *Store) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.dimension = dimension
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	// Qdrant returns 200 if the collection already exists with the same
	// schema; a schema conflict propagates as an error.
	return s.putJSON(ctx, fmt.Sprintf("%s/collections/%s", s.url, s.collection), body)
}

func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	points := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		if len(c.Embedding) != s.dimension {
			return domain.ErrDimensionMismatch
		}
		payload := map[string]any{
			"url":         c.URL,
			"chunk_index": c.Index,
			"title":       c.Title,
			"summary":     c.Summary,
			"content":     c.Content,
			"framework":   strings.ToLower(c.Metadata["framework"]),
		}
		for k, v := range c.Metadata {
			if k == "framework" {
				continue
			}
			payload[k] = v
		}
		points[i] = map[string]any{
			"id":      pointID(c.URL, c.Index),
			"vector":  c.Embedding,
			"payload": payload,
		}
	}
	body := map[string]any{"points": points}
	return s.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection), body)
}

func (s *Store) DeleteByURL(ctx context.Context, url string) error {
	body := map[string]any{
		"filter": matchFilter("url", url),
	}
	return s.postJSON(ctx,
		fmt.Sprintf("%s/collections/%s/points/delete?wait=true", s.url, s.collection), body, nil)
}

func (s *Store) Search(ctx context.Context, vector []float32, k int, framework string) ([]domain.RetrievedMatch, error) {
	if k <= 0 {
		k = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if framework != "" {
		req["filter"] = matchFilter("framework", strings.ToLower(framework))
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.postJSON(ctx,
		fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection), req, &resp); err != nil {
		return nil, err
	}

	matches := make([]domain.RetrievedMatch, 0, len(resp.Result))
	for _, r := range resp.Result {
		matches = append(matches, domain.RetrievedMatch{
			Chunk:      chunkFromPayload(r.Payload),
			Similarity: rescaleCosine(r.Score),
		})
	}
	return matches, nil
}

func (s *Store) CountByFramework(ctx context.Context, framework string) (int, error) {
	req := map[string]any{"exact": true}
	if framework != "" {
		req["filter"] = matchFilter("framework", strings.ToLower(framework))
	}
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := s.postJSON(ctx,
		fmt.Sprintf("%s/collections/%s/points/count", s.url, s.collection), req, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

func (s *Store) Close() error { return nil }

func matchFilter(key, value string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{"key": key, "match": map[string]any{"value": value}},
		},
	}
}

func chunkFromPayload(payload map[string]any) domain.Chunk {
	c := domain.Chunk{Metadata: map[string]string{}}
	for k, v := range payload {
		switch k {
		case "url":
			c.URL, _ = v.(string)
		case "chunk_index":
			if f, ok := v.(float64); ok {
				c.Index = int(f)
			}
		case "title":
			c.Title, _ = v.(string)
		case "summary":
			c.Summary, _ = v.(string)
		case "content":
			c.Content, _ = v.(string)
		case "framework":
			if fw, ok := v.(string); ok {
				c.Metadata["framework"] = fw
			}
		default:
			if sv, ok := v.(string); ok {
				c.Metadata[k] = sv
			}
		}
	}
	return c
}

// pointID derives a stable numeric point ID from the (url, chunk_index)
// key, so re-ingesting a URL overwrites its previous points.
func pointID(url string, index int) uint64 {
	h := sha1.Sum([]byte(fmt.Sprintf("%s#%d", url, index)))
	return binary.BigEndian.Uint64(h[:8])
}

// rescaleCosine maps a raw cosine score from [-1,1] to the [0,1] scale
// every store adapter reports, so similarity thresholds behave the same
// regardless of backend.
func rescaleCosine(score float64) float64 {
	s := (score + 1) / 2
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

func (s *Store) putJSON(ctx context.Context, url string, body any) error {
	return s.send(ctx, http.MethodPut, url, body, nil)
}

func (s *Store) postJSON(ctx context.Context, url string, body any, out any) error {
	return s.send(ctx, http.MethodPost, url, body, out)
}

func (s *Store) send(ctx context.Context, method, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
