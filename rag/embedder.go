package rag

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultEmbeddingDimension 是本地嵌入器的固定输出维度.
const DefaultEmbeddingDimension = 256

// Embedder 把文本映射为定长向量.
type Embedder interface {
	Embed(text string) []float64
	Dimension() int
}

// LocalEmbedder 是确定性的本地嵌入器：
// 分词后按 FNV 哈希把词频散列到固定维度的词袋向量，再做 L2 归一化.
// 同一文本在任何进程中产出完全相同的向量，快照跨进程加载后距离不变.
type LocalEmbedder struct {
	dimension int
}

// NewLocalEmbedder 创建本地嵌入器，dimension <= 0 时取默认维度.
func NewLocalEmbedder(dimension int) *LocalEmbedder {
	if dimension <= 0 {
		dimension = DefaultEmbeddingDimension
	}
	return &LocalEmbedder{dimension: dimension}
}

// Dimension implements Embedder.
func (e *LocalEmbedder) Dimension() int {
	return e.dimension
}

// Embed implements Embedder.
// 空文本返回全零向量.
func (e *LocalEmbedder) Embed(text string) []float64 {
	vector := make([]float64, e.dimension)

	for _, token := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vector[int(h.Sum32())%e.dimension]++
	}

	// L2 归一化，使距离只反映词分布而非文本长度
	var norm float64
	for _, v := range vector {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vector {
			vector[i] /= norm
		}
	}
	return vector
}

// tokenize 小写化并按非字母数字字符切分.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
