package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsrag/internal/domain"
)

func newTestClient(t *testing.T, url string, dimension int) *Client {
	t.Helper()
	t.Setenv("TEST_EMBED_KEY", "sk-test")
	c, err := NewClient(Config{
		BaseURL:    url,
		APIKeyEnv:  "TEST_EMBED_KEY",
		Dimension:  dimension,
		Timeout:    2 * time.Second,
		MaxRetries: 2,
	})
	require.NoError(t, err)
	return c
}

func embeddingsResponse(dim int, n int) map[string]any {
	data := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		vec := make([]float32, dim)
		vec[i%dim] = 1
		data[i] = map[string]any{"index": i, "embedding": vec}
	}
	return map[string]any{"data": data}
}

func TestEmbedBatchOrderAndLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(embeddingsResponse(8, len(req.Input)))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 8)
	results, err := c.EmbedBatch(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, res := range results {
		require.NoError(t, res.Err)
		assert.Len(t, res.Vector, 8)
		assert.Equal(t, float32(1), res.Vector[i])
	}
}

func TestEmbedBatchRetriesTransient(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(embeddingsResponse(4, 1))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 4)
	results, err := c.EmbedBatch(context.Background(), []string{"q"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, 2, calls)
}

func TestEmbedBatchExhaustedRetriesFailsPerItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 4)
	results, err := c.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, res := range results {
		require.Error(t, res.Err)
		assert.True(t, domain.IsTransient(res.Err))
	}
}

func TestEmbedBatchPermanentFailureAbortsCall(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 4)
	_, err := c.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.False(t, domain.IsTransient(err))
	assert.Equal(t, 1, calls, "permanent failures must not be retried")
}

func TestEmbedBatchDimensionMismatchIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embeddingsResponse(4, 1))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1536)
	_, err := c.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))
}

func TestStubDeterministicAndNormalized(t *testing.T) {
	s := NewStub(32)
	a, err := s.EmbedBatch(context.Background(), []string{"hello world", "hello world"})
	require.NoError(t, err)
	assert.Equal(t, a[0].Vector, a[1].Vector)

	var norm float64
	for _, v := range a[0].Vector {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestStubFailText(t *testing.T) {
	s := NewStub(16)
	s.FailText = map[string]error{"bad": errors.New("boom")}
	results, err := s.EmbedBatch(context.Background(), []string{"ok", "bad"})
	require.NoError(t, err)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
}
