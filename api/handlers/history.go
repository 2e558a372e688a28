package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/BaSui01/queryflow/internal/history"
	"github.com/BaSui01/queryflow/types"
)

// HistoryHandler 处理 GET /api/v1/agent/history：返回最近的查询留痕.
type HistoryHandler struct {
	store     *history.Store
	maxRecent int
	logger    *zap.Logger
}

// NewHistoryHandler 创建历史查询处理器. store 可为 nil（端点返回 503）.
func NewHistoryHandler(store *history.Store, maxRecent int, logger *zap.Logger) *HistoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRecent <= 0 {
		maxRecent = 20
	}
	return &HistoryHandler{
		store:     store,
		maxRecent: maxRecent,
		logger:    logger.With(zap.String("handler", "history")),
	}
}

type historyResponse struct {
	Records []history.Record `json:"records"`
	Count   int64            `json:"count"`
}

// ServeHTTP implements http.Handler.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest,
			"Method not allowed, use GET")
		return
	}
	if h.store == nil {
		WriteError(w, http.StatusServiceUnavailable, types.ErrServiceUnavailable,
			"Query history is not enabled")
		return
	}

	limit := h.maxRecent
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= h.maxRecent {
			limit = n
		}
	}

	records, err := h.store.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Warn("failed to read history", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, types.ErrInternalError,
			"Failed to read query history")
		return
	}
	count, err := h.store.Count(r.Context())
	if err != nil {
		h.logger.Warn("failed to count history", zap.Error(err))
	}

	WriteSuccess(w, historyResponse{Records: records, Count: count}, nil)
}
