package rag

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalEmbedderDeterministic(t *testing.T) {
	e := NewLocalEmbedder(0)
	assert.Equal(t, DefaultEmbeddingDimension, e.Dimension())

	a := e.Embed("machine learning is a subset of AI")
	b := e.Embed("machine learning is a subset of AI")
	assert.Equal(t, a, b, "same text must produce identical vectors")
}

func TestLocalEmbedderNormalized(t *testing.T) {
	e := NewLocalEmbedder(64)

	v := e.Embed("neural networks process information")
	require.Len(t, v, 64)

	var norm float64
	for _, x := range v {
		norm += x * x
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
}

func TestLocalEmbedderEmptyText(t *testing.T) {
	e := NewLocalEmbedder(32)

	v := e.Embed("")
	require.Len(t, v, 32)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestLocalEmbedderSimilarityOrdering(t *testing.T) {
	e := NewLocalEmbedder(0)

	query := e.Embed("deep learning neural networks")
	close := e.Embed("deep learning with neural networks")
	far := e.Embed("cooking pasta with tomato sauce")

	assert.Less(t, l2Distance(query, close), l2Distance(query, far))
}

func TestFlatIndexDimensionMismatch(t *testing.T) {
	idx := NewFlatIndex(0)

	require.NoError(t, idx.Add([]float64{1, 0, 0}))
	assert.Equal(t, 3, idx.Dimension())

	err := idx.Add([]float64{1, 0})
	assert.Error(t, err)
	assert.Equal(t, 1, idx.Size())
}

func TestFlatIndexSearchAscending(t *testing.T) {
	idx := NewFlatIndex(2)
	require.NoError(t, idx.Add([]float64{0, 0}))
	require.NoError(t, idx.Add([]float64{1, 0}))
	require.NoError(t, idx.Add([]float64{5, 5}))

	results := idx.Search([]float64{0.1, 0}, 3)
	require.Len(t, results, 3)
	assert.Equal(t, 0, results[0].Index)
	assert.Equal(t, 1, results[1].Index)
	assert.Equal(t, 2, results[2].Index)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
	}
}
