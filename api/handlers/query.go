package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/queryflow/agent"
	"github.com/BaSui01/queryflow/internal/cache"
	"github.com/BaSui01/queryflow/internal/history"
	"github.com/BaSui01/queryflow/types"
)

// QueryProcessor 是查询处理能力的抽象，由 agent.Orchestrator 实现.
type QueryProcessor interface {
	ProcessQuery(ctx context.Context, query string, options types.Options, queryContext map[string]any) (*agent.Result, error)
}

// QueryHandler 处理 POST /api/v1/agent/query.
type QueryHandler struct {
	processor   QueryProcessor
	answerCache *cache.Manager
	history     *history.Store
	timeout     time.Duration
	logger      *zap.Logger
}

// NewQueryHandler 创建查询处理器. timeout <= 0 表示不限时.
func NewQueryHandler(processor QueryProcessor, timeout time.Duration, logger *zap.Logger) *QueryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryHandler{
		processor: processor,
		timeout:   timeout,
		logger:    logger.With(zap.String("handler", "query")),
	}
}

// WithAnswerCache 启用 Redis 答案缓存. m 可为 nil（禁用）.
func (h *QueryHandler) WithAnswerCache(m *cache.Manager) *QueryHandler {
	h.answerCache = m
	return h
}

// WithHistory 启用查询历史留痕. s 可为 nil（禁用）.
func (h *QueryHandler) WithHistory(s *history.Store) *QueryHandler {
	h.history = s
	return h
}

// queryRequest 是查询请求体.
// 选项字段用指针区分"未提供"（取默认）与"显式 false".
type queryRequest struct {
	Query   string          `json:"query"`
	Options *optionsPayload `json:"options"`
	Context map[string]any  `json:"context"`
}

type optionsPayload struct {
	UseGraph    *bool `json:"use_graph"`
	UseInternet *bool `json:"use_internet"`
	MaxResults  *int  `json:"max_results"`
}

// queryResponse 是成功信封中的 response 对象.
type queryResponse struct {
	Answer           string                 `json:"answer"`
	Sources          []types.Source         `json:"sources"`
	StructuredOutput types.StructuredOutput `json:"structured_output"`
}

// ServeHTTP implements http.Handler.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest,
			"Method not allowed, use POST")
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"Request body must be valid JSON")
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		WriteError(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"Query cannot be empty")
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	h.logger.Info("Query received",
		zap.String("query", truncate(req.Query, 100)),
		zap.String("remote", r.RemoteAddr))

	query := strings.TrimSpace(req.Query)
	opts := req.options()

	// 带上下文的查询结果不可复用，跳过答案缓存
	cacheable := h.answerCache != nil && len(req.Context) == 0
	var cacheKey string
	if cacheable {
		cacheKey = h.answerCache.Key(query, opts.UseGraph, opts.UseInternet, opts.MaxResults)
		if data, ok := h.answerCache.Get(ctx, cacheKey); ok {
			var cached agent.Result
			if err := json.Unmarshal(data, &cached); err == nil {
				h.logger.Debug("answer cache hit", zap.String("query", truncate(query, 100)))
				WriteSuccess(w, queryResponse{
					Answer:           cached.Answer,
					Sources:          cached.Sources,
					StructuredOutput: cached.StructuredOutput,
				}, nil)
				return
			}
		}
	}

	start := time.Now()
	result, err := h.processor.ProcessQuery(ctx, query, opts, req.Context)
	if err != nil {
		h.logger.Warn("Query processing failed", zap.Error(err))
		h.record(query, result, err, time.Since(start))
		WriteErrorFrom(w, err)
		return
	}

	if cacheable {
		if data, err := json.Marshal(result); err == nil {
			h.answerCache.Set(ctx, cacheKey, data)
		}
	}
	h.record(query, result, nil, time.Since(start))

	WriteSuccess(w, queryResponse{
		Answer:           result.Answer,
		Sources:          result.Sources,
		StructuredOutput: result.StructuredOutput,
	}, req.Context)
}

// record 异步写入查询历史，不阻塞响应.
func (h *QueryHandler) record(query string, result *agent.Result, err error, elapsed time.Duration) {
	if h.history == nil {
		return
	}
	rec := history.Record{
		Query:      query,
		Status:     "success",
		DurationMs: elapsed.Milliseconds(),
	}
	if err != nil {
		rec.Status = "error"
	}
	if result != nil {
		rec.RunID = result.RunID
		rec.Answer = truncate(result.Answer, 2000)
		rec.Sources = len(result.Sources)
		rec.Iterations = result.Iterations
	}
	go h.history.Record(context.Background(), rec)
}

// options 把请求载荷合并到默认选项上.
func (r *queryRequest) options() types.Options {
	opts := types.DefaultOptions()
	if r.Options == nil {
		return opts
	}
	if r.Options.UseGraph != nil {
		opts.UseGraph = *r.Options.UseGraph
	}
	if r.Options.UseInternet != nil {
		opts.UseInternet = *r.Options.UseInternet
	}
	if r.Options.MaxResults != nil {
		opts.MaxResults = *r.Options.MaxResults
	}
	return opts.Normalize()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
