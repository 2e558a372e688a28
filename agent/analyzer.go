package agent

import (
	"strconv"
	"strings"
	"time"

	"github.com/BaSui01/queryflow/types"
)

// ===== 分类关键词表 =====

var (
	definitionKeywords  = []string{"what is", "define", "explain"}
	instructionKeywords = []string{"how to", "steps", "guide"}
	comparisonKeywords  = []string{"compare", "difference", "vs"}
	complexityKeywords  = []string{"complex", "advanced", "detailed"}
	currentInfoKeywords = []string{"latest", "recent", "news", "update"}

	// graphKeywords 判定查询是否值得走知识图谱.
	graphKeywords = []string{
		"what is", "define", "explain", "concept", "theory",
		"relationship", "how does", "compare", "difference between",
	}

	// recencyKeywords 判定查询是否需要实时网络信息.
	// 年份不在表里：4 位数字词元与当前/下一自然年比较，避免写死年份.
	recencyKeywords = []string{
		"latest", "recent", "news", "update", "current",
		"today", "yesterday", "this week", "this month", "trending",
	}
)

// QueryAnalyzer 对查询文本做纯函数式分类与路由判定.
// 不访问网络、不依赖可变状态；注入时钟仅用于年份词元比较.
type QueryAnalyzer struct {
	now func() time.Time
}

// NewQueryAnalyzer 创建查询分析器.
func NewQueryAnalyzer() *QueryAnalyzer {
	return &QueryAnalyzer{now: time.Now}
}

// Analyze 对查询做意图、复杂度与时效性分类.
// 同一查询（同一自然年内）恒返回相同结果.
func (a *QueryAnalyzer) Analyze(query string) types.Analysis {
	queryLower := strings.ToLower(query)
	wordCount := len(strings.Fields(query))

	analysis := types.Analysis{
		Intent:          types.IntentInformation,
		Complexity:      types.ComplexityMedium,
		NeedsFacts:      true,
		ExpectedSources: []string{"graph"},
	}

	switch {
	case containsAny(queryLower, definitionKeywords):
		analysis.Intent = types.IntentDefinition
	case containsAny(queryLower, instructionKeywords):
		analysis.Intent = types.IntentInstruction
	case containsAny(queryLower, comparisonKeywords):
		analysis.Intent = types.IntentComparison
	}

	if wordCount > 10 || containsAny(queryLower, complexityKeywords) {
		analysis.Complexity = types.ComplexityHigh
	} else if wordCount < 5 {
		analysis.Complexity = types.ComplexityLow
	}

	if containsAny(queryLower, currentInfoKeywords) {
		analysis.NeedsCurrentInfo = true
		analysis.ExpectedSources = append(analysis.ExpectedSources, "internet")
	}

	return analysis
}

// NeedsGraphSearch 判定查询是否应检索知识图谱.
func (a *QueryAnalyzer) NeedsGraphSearch(query string) bool {
	return containsAny(strings.ToLower(query), graphKeywords)
}

// NeedsInternetSearch 判定查询是否应检索实时网络.
// 命中时效关键词，或查询含等于当前/下一自然年的 4 位数字词元.
func (a *QueryAnalyzer) NeedsInternetSearch(query string) bool {
	queryLower := strings.ToLower(query)
	if containsAny(queryLower, recencyKeywords) {
		return true
	}

	currentYear := a.now().Year()
	for _, token := range strings.Fields(queryLower) {
		token = strings.Trim(token, ".,;:!?()\"'")
		if len(token) != 4 {
			continue
		}
		year, err := strconv.Atoi(token)
		if err != nil {
			continue
		}
		if year == currentYear || year == currentYear+1 {
			return true
		}
	}
	return false
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
