// Package sources 封装外部搜索后端的 HTTP 客户端。
// 目前只有 Tavily 一个实现；客户端保持薄：只负责报文编解码，
// 重试、回落与结果整形留给上层检索器。
package sources
