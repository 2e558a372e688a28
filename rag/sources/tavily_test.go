package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/queryflow/types"
)

func TestTavilyNotConfigured(t *testing.T) {
	c := NewTavilyClient(TavilyConfig{}, nil)
	assert.False(t, c.Available())

	_, err := c.Search(context.Background(), "q", 3, DepthBasic)
	require.Error(t, err)
	assert.Equal(t, types.ErrServiceUnavailable, types.GetErrorCode(err))
}

func TestTavilySearchDecodesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)

		var req tavilyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tvly-key", req.APIKey)
		assert.Equal(t, "golang generics", req.Query)
		assert.Equal(t, DepthAdvanced, req.SearchDepth)

		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"title": "Generics in Go", "content": "...", "url": "https://go.dev", "score": 88.5},
			},
		})
	}))
	defer srv.Close()

	c := NewTavilyClient(TavilyConfig{APIKey: "tvly-key", BaseURL: srv.URL}, nil)
	results, err := c.Search(context.Background(), "golang generics", 3, DepthAdvanced)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Generics in Go", results[0].Title)
	assert.InDelta(t, 88.5, results[0].Score, 1e-9)
}

func TestTavilySearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewTavilyClient(TavilyConfig{APIKey: "k", BaseURL: srv.URL}, nil)
	_, err := c.Search(context.Background(), "q", 1, DepthBasic)
	require.Error(t, err)

	typed, ok := err.(*types.Error)
	require.True(t, ok)
	assert.True(t, typed.Retryable)
	assert.Equal(t, http.StatusTooManyRequests, typed.HTTPStatus)
}
