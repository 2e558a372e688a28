package types

// DocumentKind 标识文档的来源类别.
type DocumentKind string

const (
	KindGraph        DocumentKind = "graph"         // 知识图谱命中
	KindGraphRelated DocumentKind = "graph_related" // 图谱一跳关联概念
	KindInternet     DocumentKind = "internet"      // 实时网络搜索结果
	KindNews         DocumentKind = "news"          // 新闻搜索结果
	KindSemantic     DocumentKind = "semantic"      // 相似度缓存命中
)

// Relationship 表示图谱中一条指向相关概念的关系.
type Relationship struct {
	Relation string `json:"relation"`
	Target   string `json:"target"`
}

// Document 是一条带来源信息的检索结果.
// 一旦由检索器产出即视为不可变值；相似度缓存返回副本而非原件.
type Document struct {
	Kind          DocumentKind   `json:"type"`
	Title         string         `json:"title"`
	Content       string         `json:"content"`
	// Reference 是稳定定位符：图节点 ID、URL 或缓存槽位.
	Reference     string         `json:"reference"`
	// Confidence 是启发式相关度分数，取值 [0,1]，不是校准概率.
	Confidence    float64        `json:"confidence"`
	Category      string         `json:"category,omitempty"`
	PublishedDate string         `json:"published_date,omitempty"`
	Source        string         `json:"source,omitempty"`
	Relationship  string         `json:"relationship,omitempty"`
	Relationships []Relationship `json:"relationships,omitempty"`
}

// Source 是呈现给调用方的来源条目（出现在响应的 sources 列表中）.
type Source struct {
	Title      string       `json:"title"`
	Reference  string       `json:"reference"`
	Type       DocumentKind `json:"type"`
	Confidence float64      `json:"confidence"`
}

// StructuredOutput 是合成阶段产出的结构化摘要.
type StructuredOutput struct {
	KeyPoints []string `json:"key_points"`
	Summary   string   `json:"summary"`
}

// Options 控制一次查询调度哪些检索源.
type Options struct {
	UseGraph    bool `json:"use_graph"`
	UseInternet bool `json:"use_internet"`
	MaxResults  int  `json:"max_results"`
}

// DefaultOptions 返回默认查询选项.
func DefaultOptions() Options {
	return Options{
		UseGraph:    true,
		UseInternet: true,
		MaxResults:  5,
	}
}

// Normalize 补齐非法的选项字段（MaxResults <= 0 时回落默认值）.
func (o Options) Normalize() Options {
	if o.MaxResults <= 0 {
		o.MaxResults = 5
	}
	return o
}

// Intent 是查询意图分类.
type Intent string

const (
	IntentDefinition  Intent = "definition"
	IntentInstruction Intent = "instructions"
	IntentComparison  Intent = "comparison"
	IntentInformation Intent = "information_request"
)

// Complexity 是查询复杂度分级.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Analysis 是查询分析器对原始查询文本的纯函数分类结果.
type Analysis struct {
	Intent           Intent     `json:"intent"`
	Complexity       Complexity `json:"complexity"`
	NeedsFacts       bool       `json:"needs_facts"`
	NeedsCurrentInfo bool       `json:"needs_current_info"`
	ExpectedSources  []string   `json:"expected_sources"`
}
