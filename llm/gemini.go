package llm

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
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-2.0-flash"
	defaultGeminiTimeout = 60 * time.Second
)

// GeminiConfig 是 Gemini 生成器配置.
type GeminiConfig struct {
	APIKey      string        `yaml:"api_key" env:"API_KEY"`
	Model       string        `yaml:"model" env:"MODEL"`
	BaseURL     string        `yaml:"base_url" env:"BASE_URL"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
	Temperature float64       `yaml:"temperature" env:"TEMPERATURE"`
}

// GeminiGenerator 通过 Gemini generateContent API 生成文本.
type GeminiGenerator struct {
	config     GeminiConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// ===== API 报文 =====

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature float64 `json:"temperature"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewGeminiGenerator 创建 Gemini 生成器.
// APIKey 为空时仍返回实例，但 Available() 为 false.
func NewGeminiGenerator(config GeminiConfig, logger *zap.Logger) *GeminiGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Model == "" {
		config.Model = defaultGeminiModel
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultGeminiBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultGeminiTimeout
	}

	return &GeminiGenerator{
		config:     config,
		httpClient: tlsutil.SecureHTTPClient(config.Timeout),
		logger:     logger.With(zap.String("component", "gemini")),
	}
}

// Name implements Generator.
func (g *GeminiGenerator) Name() string {
	return "gemini"
}

// Available implements Generator.
func (g *GeminiGenerator) Available() bool {
	return g.config.APIKey != ""
}

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if !g.Available() {
		return "", types.NewError(types.ErrServiceUnavailable, "gemini API key not configured")
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: &geminiGenerationConfig{
			Temperature: g.config.Temperature,
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", types.NewError(types.ErrUpstreamError, "failed to marshal gemini request").WithCause(err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.config.BaseURL, g.config.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", types.NewError(types.ErrUpstreamError, "failed to create gemini request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.config.APIKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", types.NewError(types.ErrUpstreamError, "gemini request failed").WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", types.NewError(types.ErrUpstreamError, "failed to read gemini response").WithCause(err)
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", types.NewError(types.ErrUpstreamError, "failed to decode gemini response").WithCause(err)
	}
	if resp.StatusCode >= 400 {
		msg := fmt.Sprintf("gemini returned status %d", resp.StatusCode)
		if geminiResp.Error != nil {
			msg = fmt.Sprintf("gemini error %d: %s", geminiResp.Error.Code, geminiResp.Error.Message)
		}
		return "", types.NewError(types.ErrUpstreamError, msg).
			WithHTTPStatus(resp.StatusCode).
			WithRetryable(resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500)
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", types.NewError(types.ErrUpstreamError, "gemini returned no candidates")
	}

	g.logger.Debug("Gemini generation succeeded",
		zap.String("model", g.config.Model),
		zap.Int("prompt_length", len(prompt)))

	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}
