package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/queryflow/internal/tlsutil"
	"github.com/BaSui01/queryflow/types"
)

const (
	defaultTavilyBaseURL = "https://api.tavily.com"
	defaultTavilyTimeout = 30 * time.Second
)

// 搜索深度档位.
const (
	DepthBasic    = "basic"
	DepthAdvanced = "advanced"
)

// TavilyConfig 是 Tavily 搜索后端配置.
type TavilyConfig struct {
	APIKey  string        `yaml:"api_key" env:"API_KEY"`
	BaseURL string        `yaml:"base_url" env:"BASE_URL"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// TavilyClient 是 Tavily /search 端点的客户端.
type TavilyClient struct {
	config     TavilyConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// TavilyResult 是单条搜索结果.
type TavilyResult struct {
	Title         string  `json:"title"`
	Content       string  `json:"content"`
	URL           string  `json:"url"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date"`
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type tavilyResponse struct {
	Results []TavilyResult `json:"results"`
}

// NewTavilyClient 创建 Tavily 客户端.
// APIKey 为空时仍返回实例，但 Available() 为 false.
func NewTavilyClient(config TavilyConfig, logger *zap.Logger) *TavilyClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultTavilyBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTavilyTimeout
	}
	return &TavilyClient{
		config:     config,
		httpClient: tlsutil.SecureHTTPClient(config.Timeout),
		logger:     logger.With(zap.String("component", "tavily")),
	}
}

// Available 报告客户端是否已配置可用.
func (c *TavilyClient) Available() bool {
	return c.config.APIKey != ""
}

// Search 执行一次搜索，depth 取 DepthBasic 或 DepthAdvanced.
func (c *TavilyClient) Search(ctx context.Context, query string, maxResults int, depth string) ([]TavilyResult, error) {
	if !c.Available() {
		return nil, types.NewError(types.ErrServiceUnavailable, "tavily API key not configured")
	}
	if depth == "" {
		depth = DepthBasic
	}

	payload, err := json.Marshal(tavilyRequest{
		APIKey:      c.config.APIKey,
		Query:       query,
		MaxResults:  maxResults,
		SearchDepth: depth,
	})
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "failed to marshal tavily request").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "failed to create tavily request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "tavily request failed").WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "failed to read tavily response").WithCause(err)
	}
	if resp.StatusCode >= 400 {
		return nil, types.NewError(types.ErrUpstreamError,
			fmt.Sprintf("tavily returned status %d", resp.StatusCode)).
			WithHTTPStatus(resp.StatusCode).
			WithRetryable(resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500)
	}

	var searchResp tavilyResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "failed to decode tavily response").WithCause(err)
	}

	c.logger.Debug("Tavily search completed",
		zap.String("query", query),
		zap.String("depth", depth),
		zap.Int("results", len(searchResp.Results)))
	return searchResp.Results, nil
}
