package agent

import (
	"github.com/google/uuid"

	"github.com/BaSui01/queryflow/types"
)

// Step 是状态机中的一个执行步骤.
type Step string

const (
	StepRoute          Step = "route_query"
	StepAnalyze        Step = "analyze_query"
	StepSearchGraph    Step = "search_graph"
	StepSearchInternet Step = "search_internet"
	StepGenerate       Step = "generate_answer"
	StepFormat         Step = "format_answer"
	StepDone           Step = "done"
)

// Terminal 报告该步骤是否属于终结阶段（不计入迭代计数）.
func (s Step) Terminal() bool {
	return s == StepGenerate || s == StepFormat || s == StepDone
}

// RunState 是一次查询处理的全部运行时状态.
// 由单次 ProcessQuery 调用独占，所有切片只追加.
type RunState struct {
	RunID   string
	Query   string
	Context map[string]any
	Options types.Options

	CompletedSteps []Step
	NextStep       Step

	Analysis        types.Analysis
	GraphResults    []types.Document
	InternetResults []types.Document
	SemanticResults []types.Document
	// Documents 是所有检索结果的累积序列：保序、允许重复.
	Documents []types.Document

	Reasoning  []string
	Iterations int

	FinalAnswer      string
	Sources          []types.Source
	StructuredOutput types.StructuredOutput

	ShouldContinue       bool
	MaxIterationsReached bool
	LastError            string
}

// NewRunState 创建初始运行状态.
func NewRunState(query string, options types.Options, queryContext map[string]any) *RunState {
	return &RunState{
		RunID:          uuid.NewString(),
		Query:          query,
		Context:        queryContext,
		Options:        options.Normalize(),
		NextStep:       StepRoute,
		ShouldContinue: true,
	}
}

// AddDocuments 追加一批检索结果到累积序列.
func (s *RunState) AddDocuments(docs []types.Document) {
	s.Documents = append(s.Documents, docs...)
}

// CompleteStep 记录一个步骤完成.
func (s *RunState) CompleteStep(step Step) {
	s.CompletedSteps = append(s.CompletedSteps, step)
}

// AddReasoning 追加一条推理轨迹.
func (s *RunState) AddReasoning(entry string) {
	s.Reasoning = append(s.Reasoning, entry)
}
