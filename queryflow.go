// Package queryflow provides a top-level convenience entry point for
// assembling the full query pipeline with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/queryflow"
//
//	p, err := queryflow.New(ctx, nil)                                  // 全默认配置，离线降级模式
//	p, err := queryflow.New(ctx, cfg, queryflow.WithLogger(logger))    // 注入日志
//	p, err := queryflow.New(ctx, cfg, queryflow.WithGenerator(gen))    // 替换 LLM 生成器
//
//	result, err := p.Process(ctx, "What is AI?", types.DefaultOptions(), nil)
//
// 任何外部后端（Neo4j、Tavily、Gemini）缺席都不阻止装配：
// 对应组件自动进入降级模式（静态图谱数据、模拟搜索结果、确定性回答）.
package queryflow

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/queryflow/agent"
	"github.com/BaSui01/queryflow/config"
	"github.com/BaSui01/queryflow/internal/graphdb"
	"github.com/BaSui01/queryflow/internal/metrics"
	"github.com/BaSui01/queryflow/llm"
	"github.com/BaSui01/queryflow/rag"
	"github.com/BaSui01/queryflow/rag/sources"
	"github.com/BaSui01/queryflow/types"
)

// Option 配置 [New] 装配的流水线.
type Option func(*pipelineOptions)

type pipelineOptions struct {
	logger    *zap.Logger
	generator llm.Generator
	collector *metrics.Collector
}

// WithLogger 注入自定义 zap 日志器.
func WithLogger(logger *zap.Logger) Option {
	return func(o *pipelineOptions) { o.logger = logger }
}

// WithGenerator 替换答案生成所用的 LLM 客户端，覆盖配置中的 Gemini 设置.
func WithGenerator(g llm.Generator) Option {
	return func(o *pipelineOptions) { o.generator = g }
}

// WithCollector 注入指标收集器；不提供时不记录指标.
func WithCollector(c *metrics.Collector) Option {
	return func(o *pipelineOptions) { o.collector = c }
}

// Pipeline 持有装配完成的检索与编排组件.
// 各字段导出以便上层（HTTP 处理器、健康检查）直接访问.
type Pipeline struct {
	Orchestrator *agent.Orchestrator
	Synthesizer  *agent.Synthesizer
	Graph        *rag.GraphRetriever
	Web          *rag.WebRetriever
	Cache        *rag.SimilarityCache
}

// New 按配置装配完整的查询流水线.
// cfg 为 nil 时使用 [config.DefaultConfig]；ctx 约束外部客户端的连接探测.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	po := pipelineOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&po)
	}
	logger := po.logger

	// ===== 外部客户端 =====
	graphClient := graphdb.NewClient(ctx, cfg.Neo4j, logger)
	tavilyClient := sources.NewTavilyClient(cfg.Tavily, logger)

	generator := po.generator
	if generator == nil {
		if gemini := llm.NewGeminiGenerator(cfg.Gemini, logger); gemini.Available() {
			generator = gemini
		} else {
			logger.Warn("Gemini API key not configured, answer synthesis runs in fallback mode")
		}
	}

	// ===== 检索层 =====
	embedder := rag.NewLocalEmbedder(cfg.Cache.Dimension)
	cache := rag.NewSimilarityCache(cfg.Cache, embedder, logger)
	graphRetriever := rag.NewGraphRetriever(graphClient, logger)
	webRetriever := rag.NewWebRetriever(tavilyClient, cache, logger)

	// ===== 编排层 =====
	analyzer := agent.NewQueryAnalyzer()
	synthesizer := agent.NewSynthesizer(generator, logger)
	orchestrator := agent.NewOrchestrator(
		analyzer, graphRetriever, webRetriever, cache, synthesizer, po.collector, logger).
		WithMaxIterations(cfg.Agent.MaxIterations)

	return &Pipeline{
		Orchestrator: orchestrator,
		Synthesizer:  synthesizer,
		Graph:        graphRetriever,
		Web:          webRetriever,
		Cache:        cache,
	}, nil
}

// Process 处理一条查询，等价于直接调用 Orchestrator.ProcessQuery.
func (p *Pipeline) Process(ctx context.Context, query string, options types.Options, queryContext map[string]any) (*agent.Result, error) {
	return p.Orchestrator.ProcessQuery(ctx, query, options, queryContext)
}

// Close 落盘缓存快照并释放资源.
func (p *Pipeline) Close() error {
	return p.Cache.Close()
}
