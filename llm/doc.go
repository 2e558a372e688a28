// Package llm 提供文本生成能力的抽象与 Gemini 实现。
//
// 合成器只依赖 Generator 接口；未配置 API Key 时生成器不可用，
// 上层自动切换到确定性的降级回答路径。
package llm
