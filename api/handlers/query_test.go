package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/queryflow/agent"
	"github.com/BaSui01/queryflow/types"
)

// stubProcessor 是可编程的查询处理器替身.
type stubProcessor struct {
	result      *agent.Result
	err         error
	lastQuery   string
	lastOptions types.Options
	called      bool
}

func (s *stubProcessor) ProcessQuery(_ context.Context, query string, options types.Options, _ map[string]any) (*agent.Result, error) {
	s.called = true
	s.lastQuery = query
	s.lastOptions = options
	return s.result, s.err
}

func postQuery(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/agent/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestQueryHandlerEmptyQuery(t *testing.T) {
	proc := &stubProcessor{}
	h := NewQueryHandler(proc, 0, nil)

	for _, body := range []string{`{"query":""}`, `{"query":"   "}`, `{}`} {
		rec := postQuery(t, h, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)

		payload := decodeBody(t, rec)
		assert.Equal(t, "error", payload["status"])
		errObj := payload["error"].(map[string]any)
		assert.Equal(t, "INVALID_REQUEST", errObj["code"])
	}
	assert.False(t, proc.called, "processor must not run for blank queries")
}

func TestQueryHandlerInvalidJSON(t *testing.T) {
	h := NewQueryHandler(&stubProcessor{}, 0, nil)

	rec := postQuery(t, h, `{"query": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeBody(t, rec)
	assert.Equal(t, "error", payload["status"])
}

func TestQueryHandlerMethodNotAllowed(t *testing.T) {
	h := NewQueryHandler(&stubProcessor{}, 0, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/agent/query", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestQueryHandlerSuccessEnvelope(t *testing.T) {
	proc := &stubProcessor{
		result: &agent.Result{
			Answer: "42",
			Sources: []types.Source{
				{Title: "Guide", Reference: "graph:g1", Type: types.KindGraph, Confidence: 0.8},
			},
			StructuredOutput: types.StructuredOutput{
				KeyPoints: []string{"k1"},
				Summary:   "s",
			},
		},
	}
	h := NewQueryHandler(proc, 0, nil)

	rec := postQuery(t, h, `{"query":"  meaning of life  "}`)
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decodeBody(t, rec)
	assert.Equal(t, "success", payload["status"])
	response := payload["response"].(map[string]any)
	assert.Equal(t, "42", response["answer"])
	assert.Len(t, response["sources"], 1)

	assert.Equal(t, "meaning of life", proc.lastQuery, "query is trimmed")
}

func TestQueryHandlerOptionDefaults(t *testing.T) {
	proc := &stubProcessor{result: &agent.Result{Answer: "ok"}}
	h := NewQueryHandler(proc, 0, nil)

	postQuery(t, h, `{"query":"q"}`)
	assert.Equal(t, types.DefaultOptions(), proc.lastOptions)

	postQuery(t, h, `{"query":"q","options":{"use_internet":false,"max_results":2}}`)
	assert.True(t, proc.lastOptions.UseGraph, "unset option keeps default")
	assert.False(t, proc.lastOptions.UseInternet, "explicit false is honored")
	assert.Equal(t, 2, proc.lastOptions.MaxResults)
}

func TestQueryHandlerProcessorErrorMapped(t *testing.T) {
	proc := &stubProcessor{
		err: types.NewError(types.ErrProcessingError, "Failed to process query").WithHTTPStatus(500),
	}
	h := NewQueryHandler(proc, 0, nil)

	rec := postQuery(t, h, `{"query":"boom"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	payload := decodeBody(t, rec)
	errObj := payload["error"].(map[string]any)
	assert.Equal(t, "PROCESSING_ERROR", errObj["code"])
}

func TestQueryHandlerUnknownErrorSanitized(t *testing.T) {
	proc := &stubProcessor{err: assert.AnError}
	h := NewQueryHandler(proc, 0, nil)

	rec := postQuery(t, h, `{"query":"q"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	payload := decodeBody(t, rec)
	errObj := payload["error"].(map[string]any)
	assert.Equal(t, "INTERNAL_ERROR", errObj["code"])
	assert.NotContains(t, errObj["message"], assert.AnError.Error())
}
