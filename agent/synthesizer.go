package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/queryflow/llm"
	"github.com/BaSui01/queryflow/types"
)

// synthesisResult 是一次答案合成的产物.
type synthesisResult struct {
	Answer    string   `json:"answer"`
	KeyPoints []string `json:"key_points"`
	Summary   string   `json:"summary"`
}

// responseParser 把 LLM 原始输出解析为结构化结果.
// 独立成接口：换用带 schema 校验的解析器时无需改动合成器.
type responseParser interface {
	Parse(raw string) synthesisResult
}

// braceParser 截取首个 '{' 到末个 '}' 的子串尝试 JSON 解析；
// 失败时降级为原文答案.
type braceParser struct{}

func (braceParser) Parse(raw string) synthesisResult {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		var result synthesisResult
		if err := json.Unmarshal([]byte(raw[start:end+1]), &result); err == nil && result.Answer != "" {
			return result
		}
	}

	summary := raw
	if len(summary) > 100 {
		summary = summary[:100] + "..."
	}
	return synthesisResult{
		Answer:    raw,
		KeyPoints: []string{"See main answer for details"},
		Summary:   summary,
	}
}

// promptTokenBudget 限制提示词中上下文块的总 token 数，
// 超出预算的来源被截断或丢弃，避免超过生成器的上下文窗口.
const promptTokenBudget = 6000

// Synthesizer 把累积的检索结果合成为最终答案.
// 生成器缺席或调用失败时走确定性降级路径，绝不访问网络.
type Synthesizer struct {
	generator llm.Generator
	parser    responseParser
	counter   llm.TokenCounter
	logger    *zap.Logger
}

// NewSynthesizer 创建答案合成器. generator 可为 nil（纯降级模式）.
func NewSynthesizer(generator llm.Generator, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{
		generator: generator,
		parser:    braceParser{},
		counter:   llm.EstimatorCounter{},
		logger:    logger.With(zap.String("component", "synthesizer")),
	}
}

// WithTokenCounter 替换提示词预算所用的 token 计数器.
func (s *Synthesizer) WithTokenCounter(counter llm.TokenCounter) *Synthesizer {
	if counter != nil {
		s.counter = counter
	}
	return s
}

// LLMAvailable 报告当前是否有可用的生成器.
func (s *Synthesizer) LLMAvailable() bool {
	return s.generator != nil && s.generator.Available()
}

// Synthesize 基于检索结果合成答案.
// documents 为空时两条路径都短路为固定的"信息不足"回答.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, documents []types.Document) (string, types.StructuredOutput) {
	if len(documents) == 0 {
		return "I couldn't find enough relevant information to answer your question.",
			types.StructuredOutput{
				KeyPoints: []string{"No information found"},
				Summary:   "Unable to generate answer due to insufficient information",
			}
	}

	if s.LLMAvailable() {
		raw, err := s.generator.Generate(ctx, s.buildPrompt(query, documents))
		if err == nil {
			result := s.parser.Parse(raw)
			return result.Answer, types.StructuredOutput{
				KeyPoints: result.KeyPoints,
				Summary:   result.Summary,
			}
		}
		s.logger.Warn("LLM generation failed, using fallback answer",
			zap.String("generator", s.generator.Name()),
			zap.Error(err))
	}

	return s.fallbackAnswer(documents)
}

// FormatSources 把累积的全部文档整形为来源列表.
func (s *Synthesizer) FormatSources(documents []types.Document) []types.Source {
	sources := make([]types.Source, 0, len(documents))
	for _, doc := range documents {
		sources = append(sources, types.Source{
			Title:      doc.Title,
			Reference:  doc.Reference,
			Type:       doc.Kind,
			Confidence: doc.Confidence,
		})
	}
	return sources
}

// buildPrompt 构造带编号上下文块的生成提示词，要求输出 JSON.
// 上下文块总量受 promptTokenBudget 约束：超出预算时截断当前来源内容，
// 其后的来源不再进入提示词.
func (s *Synthesizer) buildPrompt(query string, documents []types.Document) string {
	var contexts strings.Builder
	remaining := promptTokenBudget
	for i, doc := range documents {
		if remaining <= 0 {
			s.logger.Debug("prompt token budget exhausted",
				zap.Int("included_sources", i),
				zap.Int("total_sources", len(documents)))
			break
		}
		content := doc.Content
		if used := s.counter.Count(content); used > remaining {
			// 粗粒度截断：按剩余预算比例裁剪字符
			keep := len(content) * remaining / used
			if keep < len(content) {
				content = content[:keep]
			}
			remaining = 0
		} else {
			remaining -= used
		}
		fmt.Fprintf(&contexts, "\n--- Source %d (%s) ---\n", i+1, doc.Kind)
		fmt.Fprintf(&contexts, "Title: %s\n", doc.Title)
		fmt.Fprintf(&contexts, "Content: %s\n", content)
	}

	return fmt.Sprintf(`Based on the following information, provide a comprehensive answer to the query.

QUERY: %s

INFORMATION:
%s

Please provide:
1. A clear main answer
2. 3-5 key points
3. A brief summary

Format as JSON:
{
    "answer": "your answer",
    "key_points": ["point1", "point2", "point3"],
    "summary": "brief summary"
}`, query, contexts.String())
}

// fallbackAnswer 是不依赖 LLM 的确定性降级回答：按来源类别计数.
func (s *Synthesizer) fallbackAnswer(documents []types.Document) (string, types.StructuredOutput) {
	var graphCount, internetCount int
	for _, doc := range documents {
		switch doc.Kind {
		case types.KindGraph:
			graphCount++
		case types.KindInternet:
			internetCount++
		}
	}

	answer := fmt.Sprintf(
		"I found information about your query from %d sources (%d from knowledge graph, %d from web search). Configure LLM for detailed AI responses.",
		len(documents), graphCount, internetCount)

	return answer, types.StructuredOutput{
		KeyPoints: []string{
			fmt.Sprintf("Graph sources: %d", graphCount),
			fmt.Sprintf("Internet sources: %d", internetCount),
			"Fallback mode active",
			"LLM not configured",
		},
		Summary: fmt.Sprintf("Found %d information sources", len(documents)),
	}
}
