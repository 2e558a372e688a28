package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/queryflow/types"
)

// Version 是服务版本号，构建时可通过 -ldflags 覆盖.
var Version = "2.0.0"

// ===== 组件状态探针 =====

// GraphStatus 报告图谱检索器的降级状态.
type GraphStatus interface {
	FallbackMode() bool
}

// WebStatus 报告网络检索器的降级状态.
type WebStatus interface {
	MockMode() bool
}

// LLMStatus 报告生成器可用性.
type LLMStatus interface {
	LLMAvailable() bool
}

// CacheStatus 报告相似度缓存规模.
type CacheStatus interface {
	Size() int
}

// HealthHandler 聚合各组件状态，服务 /health、/status 与 /version.
type HealthHandler struct {
	graph     GraphStatus
	web       WebStatus
	llm       LLMStatus
	cache     CacheStatus
	startedAt time.Time
	logger    *zap.Logger
}

// NewHealthHandler 创建健康检查处理器. 任意探针可为 nil.
func NewHealthHandler(graph GraphStatus, web WebStatus, llm LLMStatus, cache CacheStatus, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		graph:     graph,
		web:       web,
		llm:       llm,
		cache:     cache,
		startedAt: time.Now(),
		logger:    logger.With(zap.String("handler", "health")),
	}
}

// Health 服务 GET /health.
// 任一组件处于降级路径时整体状态为 degraded（服务仍可用）.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	graphFallback := h.graph != nil && h.graph.FallbackMode()
	webMock := h.web != nil && h.web.MockMode()
	llmAvailable := h.llm != nil && h.llm.LLMAvailable()

	status := "healthy"
	if graphFallback || webMock || !llmAvailable {
		status = "degraded"
	}

	cacheSize := 0
	if h.cache != nil {
		cacheSize = h.cache.Size()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"service":   "queryflow",
		"version":   Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"components": map[string]any{
			"api": "healthy",
			"neo4j": map[string]any{
				"connected":     !graphFallback,
				"fallback_mode": graphFallback,
			},
			"web_search": map[string]any{
				"available": !webMock,
				"mock_mode": webMock,
			},
			"llm": map[string]any{
				"available": llmAvailable,
				"fallback":  !llmAvailable,
			},
			"cache": map[string]any{
				"documents": cacheSize,
			},
		},
	})
}

// Status 服务 GET /status（鉴权后的详细状态）.
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	graphFallback := h.graph != nil && h.graph.FallbackMode()
	webMock := h.web != nil && h.web.MockMode()
	llmAvailable := h.llm != nil && h.llm.LLMAvailable()

	cacheSize := 0
	if h.cache != nil {
		cacheSize = h.cache.Size()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"system": map[string]any{
			"version": Version,
			"uptime":  time.Since(h.startedAt).Round(time.Second).String(),
		},
		"services": map[string]any{
			"neo4j": map[string]any{
				"connected": !graphFallback,
			},
			"llm": map[string]any{
				"available": llmAvailable,
				"provider":  "gemini",
			},
			"web_search": map[string]any{
				"available": !webMock,
				"provider":  "tavily",
			},
			"similarity_cache": map[string]any{
				"documents": cacheSize,
			},
		},
	})
}

// VersionInfo 服务 GET /version.
func (h *HealthHandler) VersionInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "queryflow",
		"version": Version,
	})
}

// Root 服务 GET /：服务自述与端点索引.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		WriteError(w, http.StatusNotFound, types.ErrNotFound, "Resource not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "QueryFlow hybrid retrieval API is running",
		"status":  "active",
		"version": Version,
		"endpoints": map[string]string{
			"health":      "/health",
			"status":      "/status",
			"version":     "/version",
			"agent_query": "/api/v1/agent/query",
		},
	})
}
