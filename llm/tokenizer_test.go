package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimatorCounter(t *testing.T) {
	c := EstimatorCounter{}
	assert.Equal(t, 0, c.Count(""))
	assert.Equal(t, 1, c.Count("abcd"))
	assert.Equal(t, 25, c.Count(strings.Repeat("x", 100)))
}

func TestNewTiktokenCounterDefaults(t *testing.T) {
	c := NewTiktokenCounter("", nil)
	assert.Equal(t, "cl100k_base", c.encoding)

	c = NewTiktokenCounter("o200k_base", nil)
	assert.Equal(t, "o200k_base", c.encoding)
}
