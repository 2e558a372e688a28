package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// TokenCounter 估算文本的 token 数，用于提示词预算控制.
type TokenCounter interface {
	Count(text string) int
}

// EstimatorCounter 按字符数估算 token 数（约 4 字符/token），
// 不依赖外部编码数据.
type EstimatorCounter struct{}

// Count 返回估算的 token 数.
func (EstimatorCounter) Count(text string) int {
	return len(text) / 4
}

// TiktokenCounter 基于 tiktoken 编码精确计数.
// 编码数据在首次使用时惰性加载（可能触发下载）；
// 加载失败时回退到字符估算并记录警告.
type TiktokenCounter struct {
	encoding string
	logger   *zap.Logger

	once    sync.Once
	enc     *tiktoken.Tiktoken
	initErr error
}

// NewTiktokenCounter 创建 tiktoken 计数器，encoding 为空时使用 cl100k_base.
func NewTiktokenCounter(encoding string, logger *zap.Logger) *TiktokenCounter {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TiktokenCounter{encoding: encoding, logger: logger}
}

func (c *TiktokenCounter) init() error {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding(c.encoding)
		if err != nil {
			c.initErr = err
			return
		}
		c.enc = enc
	})
	return c.initErr
}

// Count 返回文本的 token 数，编码不可用时回退到字符估算.
func (c *TiktokenCounter) Count(text string) int {
	if err := c.init(); err != nil {
		c.logger.Warn("tiktoken encoding unavailable, falling back to estimate",
			zap.String("encoding", c.encoding),
			zap.Error(err))
		return EstimatorCounter{}.Count(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}
