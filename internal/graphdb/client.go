package graphdb

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

// Config 是 Neo4j 连接配置.
type Config struct {
	// URI 形如 http://localhost:7474，不含路径.
	URI      string `yaml:"uri" env:"URI"`
	Username string `yaml:"username" env:"USERNAME"`
	Password string `yaml:"password" env:"PASSWORD"`
	Database string `yaml:"database" env:"DATABASE"`
	// Timeout 是单次请求超时.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// Client 是 Neo4j HTTP 事务端点客户端.
// 连接状态在构造时探测一次并缓存，运行期间不自动重连.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
	connected  bool
}

// Row 是一行查询结果，按 RETURN 子句的列顺序排列.
type Row []any

// ===== 事务端点报文 =====

type txRequest struct {
	Statements []txStatement `json:"statements"`
}

type txStatement struct {
	Statement  string         `json:"statement"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type txResponse struct {
	Results []struct {
		Columns []string `json:"columns"`
		Data    []struct {
			Row Row `json:"row"`
		} `json:"data"`
	} `json:"results"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// NewClient 创建客户端并立即探测连通性.
// 探测失败不是错误：返回的客户端进入未连接状态，Execute 恒返回空结果.
func NewClient(ctx context.Context, config Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Database == "" {
		config.Database = "neo4j"
	}

	c := &Client{
		config:     config,
		httpClient: tlsutil.SecureHTTPClient(config.Timeout),
		logger:     logger.With(zap.String("component", "graphdb")),
	}

	if config.URI == "" {
		c.logger.Info("Neo4j URI not configured, graph database disabled")
		return c
	}

	if _, err := c.run(ctx, "RETURN 1", nil); err != nil {
		c.logger.Warn("Neo4j connectivity probe failed, falling back to static knowledge",
			zap.String("uri", config.URI),
			zap.Error(err))
		return c
	}

	c.connected = true
	c.logger.Info("Connected to Neo4j", zap.String("uri", config.URI))
	return c
}

// Connected 返回构造时探测到的连接状态.
func (c *Client) Connected() bool {
	return c.connected
}

// Execute 执行一条 Cypher 语句并返回结果行.
// 未连接时返回空结果和 nil 错误，调用方据此走回落路径.
func (c *Client) Execute(ctx context.Context, cypher string, params map[string]any) ([]Row, error) {
	if !c.connected {
		return nil, nil
	}
	return c.run(ctx, cypher, params)
}

func (c *Client) run(ctx context.Context, cypher string, params map[string]any) ([]Row, error) {
	reqBody := txRequest{
		Statements: []txStatement{{Statement: cypher, Parameters: params}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "failed to marshal cypher request").WithCause(err)
	}

	endpoint := fmt.Sprintf("%s/db/%s/tx/commit", c.config.URI, c.config.Database)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "failed to create cypher request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.Username != "" {
		req.SetBasicAuth(c.config.Username, c.config.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "cypher request failed").WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "failed to read cypher response").WithCause(err)
	}
	if resp.StatusCode >= 400 {
		return nil, types.NewError(types.ErrUpstreamError,
			fmt.Sprintf("neo4j returned status %d", resp.StatusCode)).
			WithHTTPStatus(resp.StatusCode)
	}

	var txResp txResponse
	if err := json.Unmarshal(body, &txResp); err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "failed to decode cypher response").WithCause(err)
	}
	if len(txResp.Errors) > 0 {
		first := txResp.Errors[0]
		return nil, types.NewError(types.ErrUpstreamError,
			fmt.Sprintf("cypher error %s: %s", first.Code, first.Message))
	}

	var rows []Row
	for _, result := range txResp.Results {
		for _, d := range result.Data {
			rows = append(rows, d.Row)
		}
	}
	return rows, nil
}
