package rag

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/queryflow/rag/sources"
	"github.com/BaSui01/queryflow/types"
)

const (
	// defaultSearchScore 是后端未返回评分时的缺省原始分（百分制）.
	defaultSearchScore = 70
	// maxInternetConfidence / maxNewsConfidence 是两类结果的置信度上限.
	maxInternetConfidence = 0.9
	maxNewsConfidence     = 0.85
)

// SearchClient 是网络搜索后端的抽象，由 sources.TavilyClient 实现.
type SearchClient interface {
	Available() bool
	Search(ctx context.Context, query string, maxResults int, depth string) ([]sources.TavilyResult, error)
}

// DocumentSink 接收成功的检索结果，由 SimilarityCache 实现.
type DocumentSink interface {
	Insert(doc types.Document)
}

// WebRetriever 是实时网络/新闻检索器.
// 后端未配置或调用失败时返回确定性模拟数据；每条真实结果同时写入
// 相似度缓存以供后续语义复用. 永不向调用方返回错误.
type WebRetriever struct {
	client SearchClient
	cache  DocumentSink
	logger *zap.Logger
}

// NewWebRetriever 创建网络检索器. cache 可为 nil（不做缓存转发）.
func NewWebRetriever(client SearchClient, cache DocumentSink, logger *zap.Logger) *WebRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebRetriever{
		client: client,
		cache:  cache,
		logger: logger.With(zap.String("component", "web_retriever")),
	}
}

// MockMode 报告检索器当前是否运行在模拟数据模式.
func (w *WebRetriever) MockMode() bool {
	return w.client == nil || !w.client.Available()
}

// Search 执行一次通用网络搜索.
func (w *WebRetriever) Search(ctx context.Context, query string, maxResults int) []types.Document {
	if maxResults <= 0 {
		maxResults = 5
	}
	if w.MockMode() {
		return w.mockInternetData(query, maxResults)
	}

	results, err := w.client.Search(ctx, query, maxResults, sources.DepthAdvanced)
	if err != nil {
		w.logger.Warn("Internet search failed, using mock data",
			zap.String("query", query),
			zap.Error(err))
		return w.mockInternetData(query, maxResults)
	}

	docs := make([]types.Document, 0, len(results))
	for _, item := range results {
		doc := types.Document{
			Kind:          types.KindInternet,
			Title:         titleOrDefault(item.Title),
			Content:       item.Content,
			Reference:     item.URL,
			Confidence:    searchConfidence(item.Score, maxInternetConfidence),
			PublishedDate: item.PublishedDate,
			Source:        "tavily",
		}
		docs = append(docs, doc)
		w.forward(doc)
	}
	w.logger.Info("Internet search completed",
		zap.String("query", query),
		zap.Int("results", len(docs)))
	return docs
}

// SearchNews 搜索与 query 相关的新闻.
func (w *WebRetriever) SearchNews(ctx context.Context, query string, maxResults int) []types.Document {
	if maxResults <= 0 {
		maxResults = 5
	}
	if w.MockMode() {
		return w.mockNewsData(query, maxResults)
	}

	newsQuery := fmt.Sprintf("news %s 2024", query)
	results, err := w.client.Search(ctx, newsQuery, maxResults, sources.DepthBasic)
	if err != nil {
		w.logger.Warn("News search failed, using mock data",
			zap.String("query", query),
			zap.Error(err))
		return w.mockNewsData(query, maxResults)
	}

	docs := make([]types.Document, 0, len(results))
	for _, item := range results {
		doc := types.Document{
			Kind:          types.KindNews,
			Title:         titleOrDefault(item.Title),
			Content:       item.Content,
			Reference:     item.URL,
			Confidence:    searchConfidence(item.Score, maxNewsConfidence),
			PublishedDate: item.PublishedDate,
			Source:        "tavily_news",
		}
		docs = append(docs, doc)
		w.forward(doc)
	}
	w.logger.Info("News search completed",
		zap.String("query", query),
		zap.Int("results", len(docs)))
	return docs
}

func (w *WebRetriever) forward(doc types.Document) {
	if w.cache != nil {
		w.cache.Insert(doc)
	}
}

// mockInternetData 返回两条模板化的模拟结果，截断到 maxResults.
func (w *WebRetriever) mockInternetData(query string, maxResults int) []types.Document {
	mock := []types.Document{
		{
			Kind:          types.KindInternet,
			Title:         fmt.Sprintf("Research about %s", query),
			Content:       fmt.Sprintf("This is mock content about %s. In a real implementation, this would be actual web search results from Tavily API.", query),
			Reference:     "https://example.com/mock-data",
			Confidence:    0.75,
			PublishedDate: "2024-01-01",
			Source:        "mock",
		},
		{
			Kind:          types.KindInternet,
			Title:         fmt.Sprintf("Latest developments in %s", query),
			Content:       fmt.Sprintf("Mock summary of recent advancements in %s. This demonstrates the system structure when external APIs are not configured.", query),
			Reference:     "https://example.com/mock-news",
			Confidence:    0.70,
			PublishedDate: "2024-01-01",
			Source:        "mock",
		},
	}
	if maxResults < len(mock) {
		mock = mock[:maxResults]
	}
	w.logger.Info("Using mock internet data",
		zap.String("query", query),
		zap.Int("results", len(mock)))
	return mock
}

// mockNewsData 返回一条模板化的模拟新闻，截断到 maxResults.
func (w *WebRetriever) mockNewsData(query string, maxResults int) []types.Document {
	mock := []types.Document{
		{
			Kind:          types.KindNews,
			Title:         fmt.Sprintf("Breaking: New developments in %s", query),
			Content:       fmt.Sprintf("This is mock news content about %s. Real news would come from Tavily API news search.", query),
			Reference:     "https://example.com/mock-news",
			Confidence:    0.80,
			PublishedDate: "2024-01-15",
			Source:        "mock_news",
		},
	}
	if maxResults < len(mock) {
		mock = mock[:maxResults]
	}
	w.logger.Info("Using mock news data",
		zap.String("query", query),
		zap.Int("results", len(mock)))
	return mock
}

func titleOrDefault(title string) string {
	if title == "" {
		return "No title"
	}
	return title
}

// searchConfidence 把百分制评分映射为置信度并按来源上限截断.
// 评分缺失（为 0）按 70 处理.
func searchConfidence(score float64, cap float64) float64 {
	if score == 0 {
		score = defaultSearchScore
	}
	confidence := score / 100
	if confidence > cap {
		confidence = cap
	}
	return confidence
}
