package rag

import (
	"strings"

	"github.com/BaSui01/queryflow/types"
)

// fallbackEntry 把静态知识条目和它的选择键绑定在一起，保持表的确定顺序.
type fallbackEntry struct {
	key string
	doc types.Document
}

// fallbackKnowledge 是图谱后端不可用时的内置静态知识表.
// 条目顺序即回落结果顺序.
var fallbackKnowledge = []fallbackEntry{
	{
		key: "ai",
		doc: types.Document{
			Kind:       types.KindGraph,
			Title:      "Artificial Intelligence",
			Content:    "Field of computer science focused on creating intelligent machines that can learn, reason, and solve problems. Includes subfields like machine learning, natural language processing, and computer vision.",
			Reference:  "graph:fallback:ai001",
			Confidence: 0.85,
			Category:   "technology",
		},
	},
	{
		key: "machine learning",
		doc: types.Document{
			Kind:       types.KindGraph,
			Title:      "Machine Learning",
			Content:    "Subset of AI that uses statistical techniques to enable computers to learn and improve from experience without explicit programming. Common approaches include supervised learning, unsupervised learning, and reinforcement learning.",
			Reference:  "graph:fallback:ml001",
			Confidence: 0.82,
			Category:   "technology",
		},
	},
	{
		key: "deep learning",
		doc: types.Document{
			Kind:       types.KindGraph,
			Title:      "Deep Learning",
			Content:    "Type of machine learning using neural networks with multiple layers to model complex patterns in large amounts of data. Particularly effective for image recognition, speech recognition, and natural language processing.",
			Reference:  "graph:fallback:dl001",
			Confidence: 0.80,
			Category:   "technology",
		},
	},
	{
		key: "natural language processing",
		doc: types.Document{
			Kind:       types.KindGraph,
			Title:      "Natural Language Processing",
			Content:    "Branch of AI that helps computers understand, interpret, and manipulate human language. Applications include chatbots, translation, and sentiment analysis.",
			Reference:  "graph:fallback:nlp001",
			Confidence: 0.78,
			Category:   "technology",
		},
	},
	{
		key: "computer vision",
		doc: types.Document{
			Kind:       types.KindGraph,
			Title:      "Computer Vision",
			Content:    "Field of AI that enables computers to interpret and understand the visual world from digital images or videos. Used in facial recognition, autonomous vehicles, and medical imaging.",
			Reference:  "graph:fallback:cv001",
			Confidence: 0.77,
			Category:   "technology",
		},
	},
	{
		key: "neural networks",
		doc: types.Document{
			Kind:       types.KindGraph,
			Title:      "Neural Networks",
			Content:    "Computing systems inspired by biological neural networks. Consist of interconnected nodes (neurons) that process information and learn patterns.",
			Reference:  "graph:fallback:nn001",
			Confidence: 0.79,
			Category:   "technology",
		},
	},
}

// genericAITerms 命中其中任意词即触发通用 AI 组合回落.
var genericAITerms = []string{"ai", "artificial", "intelligence", "machine", "learning"}

// fallbackGraphData 从静态知识表中选出与 query 相关的条目.
// 纯函数：同一查询恒返回同一结果. 选择优先级：
//  1. 条目键整体出现在查询中；
//  2. 条目键的任一单词出现在查询中；
//  3. 查询提及通用 AI 词汇时返回 [ai, machine learning, deep learning] 组合；
//  4. 整表.
// 最终截断到 maxResults.
func fallbackGraphData(query string, maxResults int) []types.Document {
	queryLower := strings.ToLower(query)

	var relevant []types.Document
	for _, entry := range fallbackKnowledge {
		if strings.Contains(queryLower, entry.key) {
			relevant = append(relevant, entry.doc)
		}
	}

	if len(relevant) == 0 {
		for _, entry := range fallbackKnowledge {
			for _, word := range strings.Fields(entry.key) {
				if strings.Contains(queryLower, word) {
					relevant = append(relevant, entry.doc)
					break
				}
			}
		}
	}

	if len(relevant) == 0 {
		for _, term := range genericAITerms {
			if strings.Contains(queryLower, term) {
				relevant = []types.Document{
					fallbackKnowledge[0].doc, // ai
					fallbackKnowledge[1].doc, // machine learning
					fallbackKnowledge[2].doc, // deep learning
				}
				break
			}
		}
	}

	if len(relevant) == 0 {
		for _, entry := range fallbackKnowledge {
			relevant = append(relevant, entry.doc)
		}
	}

	if maxResults > 0 && len(relevant) > maxResults {
		relevant = relevant[:maxResults]
	}
	return relevant
}
