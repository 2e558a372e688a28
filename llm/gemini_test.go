package llm

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

func TestGeminiNotConfigured(t *testing.T) {
	g := NewGeminiGenerator(GeminiConfig{}, nil)
	assert.False(t, g.Available())
	assert.Equal(t, "gemini", g.Name())

	_, err := g.Generate(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, types.ErrServiceUnavailable, types.GetErrorCode(err))
}

func TestGeminiGenerateExtractsFirstCandidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Contains(t, r.URL.Path, ":generateContent")

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Contents)
		assert.Equal(t, "say hi", req.Contents[0].Parts[0].Text)

		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "hi there"}}}},
			},
		})
	}))
	defer srv.Close()

	g := NewGeminiGenerator(GeminiConfig{APIKey: "test-key", BaseURL: srv.URL}, nil)
	out, err := g.Generate(context.Background(), "say hi")
	require.NoError(t, err)
	assert.Equal(t, "hi there", out)
}

func TestGeminiGenerateNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer srv.Close()

	g := NewGeminiGenerator(GeminiConfig{APIKey: "k", BaseURL: srv.URL}, nil)
	_, err := g.Generate(context.Background(), "p")
	assert.Error(t, err)
}

func TestGeminiGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 400, "message": "invalid model"},
		})
	}))
	defer srv.Close()

	g := NewGeminiGenerator(GeminiConfig{APIKey: "k", BaseURL: srv.URL}, nil)
	_, err := g.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid model")
}
