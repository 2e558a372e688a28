package llm

import "context"

// Generator 是文本生成器的最小接口.
type Generator interface {
	// Generate 根据提示词生成一段文本.
	Generate(ctx context.Context, prompt string) (string, error)
	// Available 报告生成器当前是否可用（已配置且可调用）.
	Available() bool
	// Name 返回生成器标识，用于日志与健康检查.
	Name() string
}
