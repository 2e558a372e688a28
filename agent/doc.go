// Package agent 实现 QueryFlow 的查询编排核心：
//
//   - QueryAnalyzer：对查询文本做纯函数式的意图/复杂度分类与检索路由判定；
//   - Orchestrator：显式步骤状态机（route → analyze → search_graph →
//     search_internet → generate → format），带迭代上限保活；
//   - Synthesizer：基于 LLM 的答案合成，LLM 不可用时走确定性降级路径。
//
// 每次 ProcessQuery 独占一个 RunState，状态机内不共享可变状态，
// 检索失败被隔离为 last_error 与推理轨迹条目，不会中断整条流水线。
package agent
