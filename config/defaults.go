// =============================================================================
// 📦 QueryFlow 默认配置
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/queryflow/internal/cache"
	"github.com/BaSui01/queryflow/internal/graphdb"
	"github.com/BaSui01/queryflow/internal/history"
	"github.com/BaSui01/queryflow/internal/telemetry"
	"github.com/BaSui01/queryflow/llm"
	"github.com/BaSui01/queryflow/rag"
	"github.com/BaSui01/queryflow/rag/sources"
)

// DefaultConfig 返回带默认值的完整配置
// 默认配置无需任何外部后端即可启动：图谱走静态回落、
// 搜索走模拟数据、答案走确定性降级.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8000,
			MetricsPort:     9090,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Agent: AgentConfig{
			MaxIterations: 5,
			Timeout:       120 * time.Second,
		},
		Auth: AuthConfig{},
		Neo4j: graphdb.Config{
			Database: "neo4j",
			Timeout:  10 * time.Second,
		},
		Tavily: sources.TavilyConfig{
			Timeout: 30 * time.Second,
		},
		Gemini: llm.GeminiConfig{
			Model:       "gemini-2.0-flash",
			Timeout:     60 * time.Second,
			Temperature: 0.1,
		},
		Cache: rag.CacheConfig{
			SnapshotPath: "vector_store/similarity_cache.json",
			SaveInterval: 5,
			Dimension:    rag.DefaultEmbeddingDimension,
		},
		Redis: cache.Config{
			TTL:      5 * time.Minute,
			PoolSize: 10,
		},
		History: history.Config{
			Enabled:   false,
			Driver:    "sqlite",
			DSN:       "vector_store/history.db",
			MaxRecent: 20,
		},
		Telemetry: telemetry.Config{
			Enabled:     false,
			ServiceName: "queryflow",
			SampleRate:  1.0,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 10,
			Burst:             20,
		},
		Log: LogConfig{
			Level:        "info",
			Format:       "json",
			OutputPaths:  []string{"stdout"},
			EnableCaller: true,
		},
	}
}
