// Package graphdb 封装 Neo4j HTTP 事务端点的最小客户端。
//
// 客户端在创建时探测一次连通性（RETURN 1），之后通过 Connected()
// 暴露缓存的连接状态；未连接时 Execute 返回空结果而非错误，
// 由上层检索器决定是否回落到静态知识表。
package graphdb
