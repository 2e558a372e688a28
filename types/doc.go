// Package types 定义 QueryFlow 各模块共享的值类型：
// 检索文档（Document）、查询选项（Options）、查询分析结果（Analysis）
// 以及统一的结构化错误模型（Error / ErrorCode）。
//
// 本包不依赖任何其他 QueryFlow 包，位于依赖图的最底层。
package types
