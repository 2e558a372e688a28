package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/queryflow/internal/metrics"
	"github.com/BaSui01/queryflow/rag"
	"github.com/BaSui01/queryflow/types"
)

// DefaultMaxIterations 是状态机非终结步骤的迭代上限.
const DefaultMaxIterations = 5

// GraphSearcher 是图谱检索能力的抽象，由 rag.GraphRetriever 实现.
type GraphSearcher interface {
	Search(ctx context.Context, query string, maxResults int) []types.Document
	FallbackMode() bool
}

// WebSearcher 是网络检索能力的抽象，由 rag.WebRetriever 实现.
type WebSearcher interface {
	Search(ctx context.Context, query string, maxResults int) []types.Document
	MockMode() bool
}

// SemanticSearcher 是语义缓存查询能力的抽象，由 rag.SimilarityCache 实现.
type SemanticSearcher interface {
	Query(text string, k int) []types.Document
	Size() int
}

var _ GraphSearcher = (*rag.GraphRetriever)(nil)
var _ WebSearcher = (*rag.WebRetriever)(nil)
var _ SemanticSearcher = (*rag.SimilarityCache)(nil)

// Result 是一次成功查询的最终产物.
type Result struct {
	RunID            string                 `json:"run_id"`
	Answer           string                 `json:"answer"`
	Sources          []types.Source         `json:"sources"`
	StructuredOutput types.StructuredOutput `json:"structured_output"`
	Reasoning        []string               `json:"reasoning,omitempty"`
	Iterations       int                    `json:"iterations"`
	CompletedSteps   []Step                 `json:"completed_steps"`
	LastError        string                 `json:"last_error,omitempty"`
}

// Orchestrator 驱动查询处理状态机.
// 无共享可变状态，可被任意多个请求并发调用.
type Orchestrator struct {
	analyzer      *QueryAnalyzer
	graph         GraphSearcher
	web           WebSearcher
	cache         SemanticSearcher
	synthesizer   *Synthesizer
	metrics       *metrics.Collector
	maxIterations int
	logger        *zap.Logger
}

// NewOrchestrator 创建查询编排器.
// graph/web/cache/collector 均可为 nil，对应能力降级为空操作.
func NewOrchestrator(
	analyzer *QueryAnalyzer,
	graph GraphSearcher,
	web WebSearcher,
	cache SemanticSearcher,
	synthesizer *Synthesizer,
	collector *metrics.Collector,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if analyzer == nil {
		analyzer = NewQueryAnalyzer()
	}
	if synthesizer == nil {
		synthesizer = NewSynthesizer(nil, logger)
	}
	return &Orchestrator{
		analyzer:      analyzer,
		graph:         graph,
		web:           web,
		cache:         cache,
		synthesizer:   synthesizer,
		metrics:       collector,
		maxIterations: DefaultMaxIterations,
		logger:        logger.With(zap.String("component", "orchestrator")),
	}
}

// WithMaxIterations 覆盖非终结步骤的迭代上限，n <= 0 时保持原值.
func (o *Orchestrator) WithMaxIterations(n int) *Orchestrator {
	if n > 0 {
		o.maxIterations = n
	}
	return o
}

// ProcessQuery 处理一条自然语言查询.
// 空白查询在任何检索器运行前即返回 INVALID_REQUEST；
// 处理过程中的 panic 被回收为 PROCESSING_ERROR，不携带内部细节.
func (o *Orchestrator) ProcessQuery(ctx context.Context, query string, options types.Options, queryContext map[string]any) (result *Result, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Query processing panicked",
				zap.String("query", query),
				zap.Any("panic", r))
			result = nil
			err = types.NewError(types.ErrProcessingError, "Failed to process query").
				WithHTTPStatus(500)
		}
		status := "success"
		if err != nil {
			status = "error"
		}
		o.metrics.RecordQuery(status, time.Since(start).Seconds())
	}()

	if strings.TrimSpace(query) == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "Query cannot be empty").
			WithHTTPStatus(400)
	}

	state := NewRunState(query, options, queryContext)
	o.logger.Info("Processing query",
		zap.String("run_id", state.RunID),
		zap.String("query", query))

	o.run(ctx, state)

	if o.cache != nil {
		o.metrics.SetCacheSize(o.cache.Size())
	}
	o.logger.Info("Query processed",
		zap.String("run_id", state.RunID),
		zap.Int("iterations", state.Iterations),
		zap.Int("documents", len(state.Documents)))

	return &Result{
		RunID:            state.RunID,
		Answer:           state.FinalAnswer,
		Sources:          state.Sources,
		StructuredOutput: state.StructuredOutput,
		Reasoning:        state.Reasoning,
		Iterations:       state.Iterations,
		CompletedSteps:   state.CompletedSteps,
		LastError:        state.LastError,
	}, nil
}

// run 驱动状态机直到终态.
// 迭代计数只统计非终结步骤；达到上限时强制进入答案生成，
// 保证 generate/format 必然执行且计数不越界.
func (o *Orchestrator) run(ctx context.Context, state *RunState) {
	for state.ShouldContinue {
		step := state.NextStep
		if step == StepDone {
			break
		}
		if !step.Terminal() {
			if state.Iterations >= o.maxIterations {
				state.MaxIterationsReached = true
				state.AddReasoning("Iteration limit reached, forcing answer generation")
				step = StepGenerate
			} else {
				state.Iterations++
			}
		}

		stepStart := time.Now()
		state.NextStep = o.execute(ctx, step, state)
		o.metrics.RecordStep(string(step), time.Since(stepStart).Seconds())
	}
}

// execute 执行单个步骤并返回后继步骤.
func (o *Orchestrator) execute(ctx context.Context, step Step, state *RunState) Step {
	switch step {
	case StepRoute:
		return o.routeQuery(state)
	case StepAnalyze:
		return o.analyzeQuery(state)
	case StepSearchGraph:
		return o.searchGraph(ctx, state)
	case StepSearchInternet:
		return o.searchInternet(ctx, state)
	case StepGenerate:
		return o.generateAnswer(ctx, state)
	case StepFormat:
		return o.formatAnswer(state)
	default:
		state.ShouldContinue = false
		return StepDone
	}
}

func (o *Orchestrator) routeQuery(state *RunState) Step {
	planned := []Step{StepAnalyze}
	if state.Options.UseGraph && o.analyzer.NeedsGraphSearch(state.Query) {
		planned = append(planned, StepSearchGraph)
	}
	if state.Options.UseInternet && o.analyzer.NeedsInternetSearch(state.Query) {
		planned = append(planned, StepSearchInternet)
	}
	planned = append(planned, StepGenerate)

	names := make([]string, len(planned))
	for i, s := range planned {
		names[i] = string(s)
	}
	state.AddReasoning(fmt.Sprintf("Query routed to steps: %s", strings.Join(names, ", ")))
	state.CompleteStep(StepRoute)
	return StepAnalyze
}

func (o *Orchestrator) analyzeQuery(state *RunState) Step {
	state.Analysis = o.analyzer.Analyze(state.Query)
	state.AddReasoning(fmt.Sprintf(
		"Query analysis: intent=%s complexity=%s needs_current_info=%t",
		state.Analysis.Intent, state.Analysis.Complexity, state.Analysis.NeedsCurrentInfo))
	state.CompleteStep(StepAnalyze)

	if state.Options.UseGraph {
		return StepSearchGraph
	}
	return StepSearchInternet
}

func (o *Orchestrator) searchGraph(ctx context.Context, state *RunState) Step {
	if !state.Options.UseGraph || o.graph == nil {
		state.CompleteStep(StepSearchGraph)
		return StepSearchInternet
	}

	docs, err := o.safeSearch(func() []types.Document {
		return o.graph.Search(ctx, state.Query, state.Options.MaxResults)
	})
	if err != nil {
		state.LastError = fmt.Sprintf("Graph search error: %v", err)
		o.logger.Warn("Graph search failed",
			zap.String("run_id", state.RunID),
			zap.Error(err))
	} else {
		state.GraphResults = docs
		state.AddDocuments(docs)
		state.AddReasoning(fmt.Sprintf("Found %d graph results", len(docs)))
		o.metrics.RecordRetrieverResults("graph", len(docs))
		if o.graph.FallbackMode() {
			o.metrics.RecordFallback("graph")
		}
	}

	state.CompleteStep(StepSearchGraph)
	if state.Options.UseInternet {
		return StepSearchInternet
	}
	return StepGenerate
}

func (o *Orchestrator) searchInternet(ctx context.Context, state *RunState) Step {
	if !state.Options.UseInternet || o.web == nil {
		state.CompleteStep(StepSearchInternet)
		return StepGenerate
	}

	docs, err := o.safeSearch(func() []types.Document {
		return o.web.Search(ctx, state.Query, state.Options.MaxResults)
	})
	if err != nil {
		state.LastError = fmt.Sprintf("Internet search error: %v", err)
		o.logger.Warn("Internet search failed",
			zap.String("run_id", state.RunID),
			zap.Error(err))
	} else {
		state.InternetResults = docs
		state.AddDocuments(docs)
		o.metrics.RecordRetrieverResults("internet", len(docs))
		if o.web.MockMode() {
			o.metrics.RecordFallback("internet")
		}

		var semantic []types.Document
		if o.cache != nil {
			semantic = o.cache.Query(state.Query, state.Options.MaxResults/2)
			state.SemanticResults = semantic
			state.AddDocuments(semantic)
			o.metrics.RecordRetrieverResults("semantic", len(semantic))
		}
		state.AddReasoning(fmt.Sprintf(
			"Found %d internet results and %d semantic results", len(docs), len(semantic)))
	}

	state.CompleteStep(StepSearchInternet)
	return StepGenerate
}

func (o *Orchestrator) generateAnswer(ctx context.Context, state *RunState) Step {
	answer, structured := o.synthesizer.Synthesize(ctx, state.Query, state.Documents)
	state.FinalAnswer = answer
	state.StructuredOutput = structured
	state.CompleteStep(StepGenerate)
	return StepFormat
}

func (o *Orchestrator) formatAnswer(state *RunState) Step {
	state.Sources = o.synthesizer.FormatSources(state.Documents)
	state.ShouldContinue = false
	state.CompleteStep(StepFormat)
	return StepDone
}

// safeSearch 把检索器的 panic 隔离为错误，保证状态机继续前进.
func (o *Orchestrator) safeSearch(fn func() []types.Document) (docs []types.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			docs = nil
			err = fmt.Errorf("retriever panic: %v", r)
		}
	}()
	return fn(), nil
}
