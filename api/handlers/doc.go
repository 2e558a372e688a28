// Package handlers 实现 QueryFlow 的 HTTP 处理器。
//
// 查询端点使用统一响应信封：
//
//	成功: {"status":"success","response":{...}}
//	失败: {"status":"error","error":{"code":"...","message":"..."}}
//
// 健康与状态端点返回各组件的降级情况（图谱回落、LLM 降级、缓存规模）。
package handlers
