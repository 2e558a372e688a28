package graphdb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTxServer(t *testing.T, rows [][]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var req txRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Statements)

		data := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			data = append(data, map[string]any{"row": row})
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{{"columns": []string{}, "data": data}},
			"errors":  []any{},
		})
	}))
}

func TestNewClientProbeSuccess(t *testing.T) {
	srv := newTxServer(t, [][]any{{1}})
	defer srv.Close()

	c := NewClient(context.Background(), Config{URI: srv.URL}, nil)
	assert.True(t, c.Connected())

	rows, err := c.Execute(context.Background(), "MATCH (n) RETURN n.title", nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestNewClientProbeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(context.Background(), Config{URI: srv.URL}, nil)
	assert.False(t, c.Connected())
}

func TestNewClientWithoutURI(t *testing.T) {
	c := NewClient(context.Background(), Config{}, nil)
	assert.False(t, c.Connected())
}

func TestExecuteDisconnectedReturnsEmpty(t *testing.T) {
	c := NewClient(context.Background(), Config{}, nil)

	rows, err := c.Execute(context.Background(), "RETURN 1", nil)
	assert.NoError(t, err, "disconnected client degrades silently")
	assert.Empty(t, rows)
}

func TestExecuteCypherError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req txRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Statements[0].Statement == "RETURN 1" {
			json.NewEncoder(w).Encode(map[string]any{"results": []any{}, "errors": []any{}})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []any{},
			"errors": []map[string]any{
				{"code": "Neo.ClientError.Statement.SyntaxError", "message": "bad cypher"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(context.Background(), Config{URI: srv.URL}, nil)
	require.True(t, c.Connected())

	_, err := c.Execute(context.Background(), "MATCH oops", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SyntaxError")
}
