package agent

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/BaSui01/queryflow/types"
)

func TestAnalyzeIntent(t *testing.T) {
	a := NewQueryAnalyzer()

	tests := []struct {
		query string
		want  types.Intent
	}{
		{"What is machine learning?", types.IntentDefinition},
		{"define recursion", types.IntentDefinition},
		{"how to deploy a service", types.IntentInstruction},
		{"compare postgres and mysql", types.IntentComparison},
		{"go vs rust", types.IntentComparison},
		{"weather in tokyo", types.IntentInformation},
	}
	for _, tt := range tests {
		got := a.Analyze(tt.query)
		assert.Equal(t, tt.want, got.Intent, "query %q", tt.query)
	}
}

func TestAnalyzeComplexity(t *testing.T) {
	a := NewQueryAnalyzer()

	assert.Equal(t, types.ComplexityLow, a.Analyze("just one thing").Complexity)
	assert.Equal(t, types.ComplexityMedium, a.Analyze("tell me about neural networks today").Complexity)
	assert.Equal(t, types.ComplexityHigh,
		a.Analyze("give me a detailed comparison").Complexity, "complexity keyword")
	assert.Equal(t, types.ComplexityHigh,
		a.Analyze("one two three four five six seven eight nine ten eleven").Complexity, "long query")
}

func TestAnalyzeCurrentInfo(t *testing.T) {
	a := NewQueryAnalyzer()

	got := a.Analyze("latest news about fusion energy")
	assert.True(t, got.NeedsCurrentInfo)
	assert.Contains(t, got.ExpectedSources, "internet")

	got = a.Analyze("what is fusion energy")
	assert.False(t, got.NeedsCurrentInfo)
	assert.NotContains(t, got.ExpectedSources, "internet")
}

func TestAnalyzeDeterministic(t *testing.T) {
	a := NewQueryAnalyzer()
	q := "explain the difference between TCP and UDP in detail"
	assert.Equal(t, a.Analyze(q), a.Analyze(q))
}

func TestNeedsGraphSearch(t *testing.T) {
	a := NewQueryAnalyzer()

	assert.True(t, a.NeedsGraphSearch("What is a monad?"))
	assert.True(t, a.NeedsGraphSearch("explain the relationship between goroutines and threads"))
	assert.True(t, a.NeedsGraphSearch("difference between stack and heap"))
	assert.False(t, a.NeedsGraphSearch("latest golang release notes"))
}

func TestNeedsInternetSearchKeywords(t *testing.T) {
	a := NewQueryAnalyzer()

	assert.True(t, a.NeedsInternetSearch("latest kubernetes release"))
	assert.True(t, a.NeedsInternetSearch("trending topics this week"))
	assert.False(t, a.NeedsInternetSearch("what is a b-tree"))
}

func TestNeedsInternetSearchYearToken(t *testing.T) {
	a := NewQueryAnalyzer()
	a.now = func() time.Time { return time.Date(2031, 6, 1, 0, 0, 0, 0, time.UTC) }

	assert.True(t, a.NeedsInternetSearch("conference schedule 2031"))
	assert.True(t, a.NeedsInternetSearch("plans for 2032?"), "next year, punctuation stripped")
	assert.False(t, a.NeedsInternetSearch("what happened in 2019"), "past years are not recency signals")
	assert.False(t, a.NeedsInternetSearch("room 20311 availability"), "5-digit token is not a year")
}

func TestNeedsInternetSearchUsesRealClock(t *testing.T) {
	a := NewQueryAnalyzer()
	query := fmt.Sprintf("industry outlook %d", time.Now().Year())
	assert.True(t, a.NeedsInternetSearch(query))
}
