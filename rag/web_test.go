package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/queryflow/rag/sources"
	"github.com/BaSui01/queryflow/types"
)

// stubSearchClient 是可编程的搜索后端替身.
type stubSearchClient struct {
	available bool
	results   []sources.TavilyResult
	err       error
	lastQuery string
	lastDepth string
}

func (s *stubSearchClient) Available() bool { return s.available }

func (s *stubSearchClient) Search(_ context.Context, query string, _ int, depth string) ([]sources.TavilyResult, error) {
	s.lastQuery = query
	s.lastDepth = depth
	return s.results, s.err
}

// recordingSink 记录被转发到缓存的文档.
type recordingSink struct {
	inserted []types.Document
}

func (r *recordingSink) Insert(doc types.Document) {
	r.inserted = append(r.inserted, doc)
}

func TestWebRetrieverMockModeCounts(t *testing.T) {
	w := NewWebRetriever(nil, nil, nil)
	assert.True(t, w.MockMode())

	for _, tc := range []struct {
		max  int
		want int
	}{
		{1, 1}, {2, 2}, {5, 2},
	} {
		docs := w.Search(context.Background(), "golang", tc.max)
		assert.Len(t, docs, tc.want, "max=%d", tc.max)
		for _, doc := range docs {
			assert.Equal(t, types.KindInternet, doc.Kind)
			assert.Equal(t, "mock", doc.Source)
		}
	}

	news := w.SearchNews(context.Background(), "golang", 5)
	require.Len(t, news, 1)
	assert.Equal(t, types.KindNews, news[0].Kind)
	assert.InDelta(t, 0.80, news[0].Confidence, 1e-9)
}

func TestWebRetrieverMockContainsQuery(t *testing.T) {
	w := NewWebRetriever(nil, nil, nil)

	docs := w.Search(context.Background(), "quantum computing", 2)
	require.Len(t, docs, 2)
	assert.Contains(t, docs[0].Title, "quantum computing")
	assert.InDelta(t, 0.75, docs[0].Confidence, 1e-9)
	assert.InDelta(t, 0.70, docs[1].Confidence, 1e-9)
}

func TestWebRetrieverSearchMapsResults(t *testing.T) {
	client := &stubSearchClient{
		available: true,
		results: []sources.TavilyResult{
			{Title: "Go 1.24 released", Content: "details", URL: "https://go.dev/blog", Score: 95},
			{Title: "", Content: "untitled", URL: "https://example.org", Score: 0},
		},
	}
	sink := &recordingSink{}
	w := NewWebRetriever(client, sink, nil)
	assert.False(t, w.MockMode())

	docs := w.Search(context.Background(), "go release", 5)
	require.Len(t, docs, 2)
	assert.Equal(t, sources.DepthAdvanced, client.lastDepth)

	// score 95 → 0.95 超过上限截到 0.9
	assert.InDelta(t, 0.9, docs[0].Confidence, 1e-9)
	// score 缺失按 70 处理
	assert.InDelta(t, 0.7, docs[1].Confidence, 1e-9)
	assert.Equal(t, "No title", docs[1].Title)
	assert.Equal(t, "tavily", docs[0].Source)

	// 每条成功结果都转发进缓存
	assert.Len(t, sink.inserted, 2)
}

func TestWebRetrieverSearchNewsRewritesQuery(t *testing.T) {
	client := &stubSearchClient{
		available: true,
		results:   []sources.TavilyResult{{Title: "headline", URL: "https://news.example", Score: 90}},
	}
	w := NewWebRetriever(client, nil, nil)

	docs := w.SearchNews(context.Background(), "AI regulation", 3)
	require.Len(t, docs, 1)
	assert.Equal(t, "news AI regulation 2024", client.lastQuery)
	assert.Equal(t, sources.DepthBasic, client.lastDepth)
	// 新闻置信度上限 0.85
	assert.InDelta(t, 0.85, docs[0].Confidence, 1e-9)
	assert.Equal(t, types.KindNews, docs[0].Kind)
}

func TestWebRetrieverErrorFallsBackToMock(t *testing.T) {
	client := &stubSearchClient{available: true, err: errors.New("upstream down")}
	sink := &recordingSink{}
	w := NewWebRetriever(client, sink, nil)

	docs := w.Search(context.Background(), "anything", 5)
	require.Len(t, docs, 2)
	assert.Equal(t, "mock", docs[0].Source)
	// 模拟数据不进缓存
	assert.Empty(t, sink.inserted)
}
