package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/queryflow/internal/graphdb"
	"github.com/BaSui01/queryflow/types"
)

const (
	// defaultGraphConfidence 是后端未提供置信度时的缺省值.
	defaultGraphConfidence = 0.8
	// defaultRelatedConfidence 是关系边未提供置信度时的缺省值.
	defaultRelatedConfidence = 0.7
	// maxRelationshipMentions 是拼入 content 的关系提及上限.
	maxRelationshipMentions = 3
)

// graphSearchCypher 对 Concept 节点的标题与摘要做不区分大小写的包含匹配，
// 并收集一跳关系. 列顺序与 rowToDocument 的解析顺序一致.
const graphSearchCypher = `
MATCH (n:Concept)
WHERE toLower(n.title) CONTAINS toLower($query)
   OR toLower(n.summary) CONTAINS toLower($query)
OPTIONAL MATCH (n)-[r]-(related:Concept)
WITH n, collect({relation: type(r), target: related.title}) AS relationships
RETURN n.title, n.summary, n.category, n.confidence, n.id, relationships
LIMIT $max_results`

const relatedConceptsCypher = `
MATCH (n:Concept {title: $concept_name})-[r]-(related:Concept)
RETURN related.title, related.summary, type(r), r.confidence
LIMIT $max_related`

// GraphRetriever 是知识图谱检索器.
// 后端不可用或查询失败时回落到静态知识表，永不向调用方返回错误.
type GraphRetriever struct {
	client *graphdb.Client
	logger *zap.Logger
}

// NewGraphRetriever 创建图谱检索器.
func NewGraphRetriever(client *graphdb.Client, logger *zap.Logger) *GraphRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphRetriever{
		client: client,
		logger: logger.With(zap.String("component", "graph_retriever")),
	}
}

// FallbackMode 报告检索器当前是否运行在静态回落模式.
func (g *GraphRetriever) FallbackMode() bool {
	return g.client == nil || !g.client.Connected()
}

// Search 在概念图中检索与 query 相关的节点.
func (g *GraphRetriever) Search(ctx context.Context, query string, maxResults int) []types.Document {
	if maxResults <= 0 {
		maxResults = 3
	}
	if g.FallbackMode() {
		return g.fallback(query, maxResults)
	}

	rows, err := g.client.Execute(ctx, graphSearchCypher, map[string]any{
		"query":       query,
		"max_results": maxResults,
	})
	if err != nil {
		g.logger.Warn("Graph search failed, using fallback knowledge",
			zap.String("query", query),
			zap.Error(err))
		return g.fallback(query, maxResults)
	}

	docs := make([]types.Document, 0, len(rows))
	for _, row := range rows {
		if doc, ok := rowToDocument(row); ok {
			docs = append(docs, doc)
		}
	}
	g.logger.Info("Graph search completed",
		zap.String("query", query),
		zap.Int("results", len(docs)))
	return docs
}

// GetRelated 返回与 concept 一跳相连的概念.
// 与 Search 不同：后端不可用时返回空结果而非静态回落，
// 关联概念没有有意义的静态近似.
func (g *GraphRetriever) GetRelated(ctx context.Context, concept string, maxRelated int) []types.Document {
	if maxRelated <= 0 {
		maxRelated = 3
	}
	if g.FallbackMode() {
		return nil
	}

	rows, err := g.client.Execute(ctx, relatedConceptsCypher, map[string]any{
		"concept_name": concept,
		"max_related":  maxRelated,
	})
	if err != nil {
		g.logger.Warn("Related concepts lookup failed",
			zap.String("concept", concept),
			zap.Error(err))
		return nil
	}

	docs := make([]types.Document, 0, len(rows))
	for _, row := range rows {
		if len(row) < 4 {
			continue
		}
		docs = append(docs, types.Document{
			Kind:         types.KindGraphRelated,
			Title:        asString(row[0]),
			Content:      asString(row[1]),
			Relationship: asString(row[2]),
			Confidence:   asFloat(row[3], defaultRelatedConfidence),
			Reference:    fmt.Sprintf("graph:related:%s", concept),
		})
	}
	return docs
}

func (g *GraphRetriever) fallback(query string, maxResults int) []types.Document {
	docs := fallbackGraphData(query, maxResults)
	g.logger.Info("Using fallback graph data",
		zap.String("query", query),
		zap.Int("results", len(docs)))
	return docs
}

// rowToDocument 解析一行图谱检索结果:
// [title, summary, category, confidence, node_id, relationships].
func rowToDocument(row graphdb.Row) (types.Document, bool) {
	if len(row) < 6 {
		return types.Document{}, false
	}

	relationships := parseRelationships(row[5])
	content := asString(row[1])
	if len(relationships) > 0 {
		mentions := make([]string, 0, maxRelationshipMentions)
		for _, rel := range relationships {
			if len(mentions) == maxRelationshipMentions {
				break
			}
			mentions = append(mentions, fmt.Sprintf("%s (%s)", rel.Target, rel.Relation))
		}
		content += " Related to: " + strings.Join(mentions, ", ")
	}

	category := asString(row[2])
	if category == "" {
		category = "general"
	}

	return types.Document{
		Kind:          types.KindGraph,
		Title:         asString(row[0]),
		Content:       content,
		Reference:     fmt.Sprintf("graph:%s", asString(row[4])),
		Confidence:    asFloat(row[3], defaultGraphConfidence),
		Category:      category,
		Relationships: relationships,
	}, true
}

// parseRelationships 解析 collect() 产出的关系列表，丢弃 OPTIONAL MATCH
// 未命中时留下的空项.
func parseRelationships(value any) []types.Relationship {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	rels := make([]types.Relationship, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rel := types.Relationship{
			Relation: asString(m["relation"]),
			Target:   asString(m["target"]),
		}
		if rel.Target == "" {
			continue
		}
		rels = append(rels, rel)
	}
	if len(rels) == 0 {
		return nil
	}
	return rels
}

func asString(value any) string {
	s, _ := value.(string)
	return s
}

func asFloat(value any, fallback float64) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return fallback
	}
}
