package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/queryflow"
	"github.com/BaSui01/queryflow/api/handlers"
	"github.com/BaSui01/queryflow/config"
	"github.com/BaSui01/queryflow/internal/cache"
	"github.com/BaSui01/queryflow/internal/history"
	"github.com/BaSui01/queryflow/internal/metrics"
	"github.com/BaSui01/queryflow/internal/server"
	"github.com/BaSui01/queryflow/llm"
)

// application 持有装配完成的流水线与两个 HTTP 服务器（API + 指标）.
type application struct {
	cfg         *config.Config
	logger      *zap.Logger
	pipeline    *queryflow.Pipeline
	answerCache *cache.Manager
	history     *history.Store
	api         *server.Manager
	metrics     *server.Manager
	cancel      context.CancelFunc
}

// buildApplication 显式依赖注入装配整个服务.
// 检索后端（Neo4j、Tavily、Gemini）缺席不阻止启动，对应组件进入降级模式；
// 显式启用的基础设施（Redis 答案缓存、历史存储）连不上则启动失败.
func buildApplication(cfg *config.Config, logger *zap.Logger) (*application, error) {
	ctx, cancel := context.WithCancel(context.Background())

	collector := metrics.NewCollector(nil)
	pipeline, err := queryflow.New(ctx, cfg,
		queryflow.WithLogger(logger),
		queryflow.WithCollector(collector))
	if err != nil {
		cancel()
		return nil, err
	}
	pipeline.Synthesizer.WithTokenCounter(llm.NewTiktokenCounter("", logger))

	// ===== 可选基础设施（并发初始化）=====
	var (
		answerCache  *cache.Manager
		historyStore *history.Store
	)
	g, gctx := errgroup.WithContext(ctx)
	if cfg.Redis.Addr != "" {
		g.Go(func() error {
			var err error
			answerCache, err = cache.NewManager(gctx, cfg.Redis, logger)
			return err
		})
	}
	if cfg.History.Enabled {
		g.Go(func() error {
			var err error
			historyStore, err = history.Open(cfg.History, logger)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		cancel()
		return nil, err
	}

	// ===== HTTP 层 =====
	queryHandler := handlers.NewQueryHandler(pipeline.Orchestrator, cfg.Agent.Timeout, logger).
		WithAnswerCache(answerCache).
		WithHistory(historyStore)
	historyHandler := handlers.NewHistoryHandler(historyStore, cfg.History.MaxRecent, logger)
	healthHandler := handlers.NewHealthHandler(
		pipeline.Graph, pipeline.Web, pipeline.Synthesizer, pipeline.Cache, logger)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/agent/query", queryHandler)
	mux.Handle("/api/v1/agent/history", historyHandler)
	mux.HandleFunc("/health", healthHandler.Health)
	mux.HandleFunc("/status", healthHandler.Status)
	mux.HandleFunc("/version", healthHandler.VersionInfo)
	mux.HandleFunc("/", healthHandler.Root)

	skipAuth := []string{"/", "/health", "/version", "/metrics"}
	chain := []Middleware{
		Recovery(logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(logger),
	}
	if cfg.Telemetry.Enabled {
		chain = append(chain, OTelTracing())
	}
	if cfg.RateLimit.Enabled {
		// 限流排在鉴权之前，未授权的洪泛同样被挡住
		chain = append(chain, RateLimiter(ctx, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	}
	chain = append(chain, CORS(nil), Auth(cfg.Auth, skipAuth, logger))
	handler := Chain(mux, chain...)

	apiManager := server.NewManager("api", handler, server.Config{
		Addr:            fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxConns:        cfg.Server.MaxConns,
	}, logger)

	var metricsManager *server.Manager
	if cfg.Server.MetricsPort > 0 {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsManager = server.NewManager("metrics", metricsMux, server.Config{
			Addr:            fmt.Sprintf(":%d", cfg.Server.MetricsPort),
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.WriteTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		}, logger)
	}

	return &application{
		cfg:         cfg,
		logger:      logger,
		pipeline:    pipeline,
		answerCache: answerCache,
		history:     historyStore,
		api:         apiManager,
		metrics:     metricsManager,
		cancel:      cancel,
	}, nil
}

// Start 启动全部 HTTP 服务器（非阻塞）.
func (a *application) Start() error {
	if err := a.api.Start(); err != nil {
		return err
	}
	if a.metrics != nil {
		if err := a.metrics.Start(); err != nil {
			return err
		}
	}
	a.logger.Info("QueryFlow started",
		zap.String("api_addr", a.api.Addr()))
	return nil
}

// WaitForShutdown 阻塞直至收到退出信号并完成优雅关闭.
func (a *application) WaitForShutdown() {
	managers := []*server.Manager{a.api}
	if a.metrics != nil {
		managers = append(managers, a.metrics)
	}
	server.WaitForShutdown(a.logger, managers...)
}

// Close 释放后台资源并落盘缓存快照.
func (a *application) Close() {
	a.cancel()
	if err := a.pipeline.Close(); err != nil {
		a.logger.Warn("failed to persist cache on shutdown", zap.Error(err))
	}
	if err := a.answerCache.Close(); err != nil {
		a.logger.Warn("failed to close answer cache", zap.Error(err))
	}
	if err := a.history.Close(); err != nil {
		a.logger.Warn("failed to close history store", zap.Error(err))
	}
}
