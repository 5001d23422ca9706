package qdrant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchRescalesCosineToUnitInterval(t *testing.T) {
	var searchReq map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/collections/site_pages/points/search", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&searchReq))
		fmt.Fprint(w, `{"result":[
			{"score":1.0,"payload":{"url":"https://a","chunk_index":0,"content":"same direction","framework":"foo"}},
			{"score":0.0,"payload":{"url":"https://a","chunk_index":1,"content":"orthogonal","framework":"foo"}},
			{"score":-1.0,"payload":{"url":"https://a","chunk_index":2,"content":"opposite","framework":"foo"}}
		]}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	s := New(Config{URL: server.URL})
	matches, err := s.Search(context.Background(), []float32{0, 1}, 5, "FOO")
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-9)
	assert.InDelta(t, 0.5, matches[1].Similarity, 1e-9)
	assert.InDelta(t, 0.0, matches[2].Similarity, 1e-9)

	// The framework filter goes downstream lowercased.
	filter, ok := searchReq["filter"].(map[string]any)
	require.True(t, ok, "search request carries no filter")
	must := filter["must"].([]any)
	match := must[0].(map[string]any)["match"].(map[string]any)
	assert.Equal(t, "foo", match["value"])
}

func TestRescaleCosineClamps(t *testing.T) {
	assert.Equal(t, 1.0, rescaleCosine(1.2))
	assert.Equal(t, 0.0, rescaleCosine(-1.3))
	assert.Equal(t, 0.75, rescaleCosine(0.5))
}
