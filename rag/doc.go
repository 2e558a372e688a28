// Package rag 实现 QueryFlow 的三类检索器：
//
//   - SimilarityCache：嵌入向量相似度缓存（平铺 L2 索引 + 并行文档切片，
//     JSON 快照持久化），对历史检索结果做语义级复用；
//   - GraphRetriever：Neo4j 概念图检索，后端不可用时回落到内置静态知识表；
//   - WebRetriever：Tavily 实时网络/新闻搜索，未配置或失败时返回确定性模拟数据。
//
// 三者的公共契约：检索失败永远不向编排层传播为 error，
// 而是降级为空结果或回落数据，由编排层记录到推理轨迹。
package rag
