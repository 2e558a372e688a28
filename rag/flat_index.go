package rag

import (
	"fmt"
	"math"
	"sort"
)

// SearchResult 是一次最近邻检索的单条结果.
type SearchResult struct {
	// Index 是向量在索引中的插入序号，与外部并行存储的文档序号一一对应.
	Index int
	// Distance 是查询向量与命中向量的 L2 距离.
	Distance float64
}

// FlatIndex 是平铺暴力扫描的 L2 向量索引.
// 数据规模是进程内缓存级别，线性扫描足够；本类型不做内部加锁，
// 并发控制由持有方（SimilarityCache）统一负责.
type FlatIndex struct {
	dimension int
	vectors   [][]float64
}

// NewFlatIndex 创建指定维度的索引，dimension <= 0 表示延迟到首次 Add 确定.
func NewFlatIndex(dimension int) *FlatIndex {
	return &FlatIndex{dimension: dimension}
}

// Dimension 返回索引维度，尚未确定时为 0.
func (idx *FlatIndex) Dimension() int {
	return idx.dimension
}

// Size 返回已索引的向量数.
func (idx *FlatIndex) Size() int {
	return len(idx.vectors)
}

// Add 追加一个向量.
// 首次 Add 在维度未定时以该向量定维；此后维度不匹配返回错误.
func (idx *FlatIndex) Add(vector []float64) error {
	if len(vector) == 0 {
		return fmt.Errorf("cannot index empty vector")
	}
	if idx.dimension == 0 {
		idx.dimension = len(vector)
	}
	if len(vector) != idx.dimension {
		return fmt.Errorf("vector dimension %d does not match index dimension %d", len(vector), idx.dimension)
	}
	idx.vectors = append(idx.vectors, vector)
	return nil
}

// Search 返回与 query 最近的至多 k 个结果，按距离升序.
// 空索引或 k <= 0 返回空切片.
func (idx *FlatIndex) Search(query []float64, k int) []SearchResult {
	if len(idx.vectors) == 0 || k <= 0 || len(query) != idx.dimension {
		return nil
	}

	results := make([]SearchResult, 0, len(idx.vectors))
	for i, v := range idx.vectors {
		results = append(results, SearchResult{Index: i, Distance: l2Distance(query, v)})
	}
	sort.Slice(results, func(a, b int) bool {
		return results[a].Distance < results[b].Distance
	})

	if k < len(results) {
		results = results[:k]
	}
	return results
}

// Vectors 返回底层向量切片，仅用于快照序列化.
func (idx *FlatIndex) Vectors() [][]float64 {
	return idx.vectors
}

func l2Distance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
