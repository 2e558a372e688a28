package queryflow

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/queryflow/config"
	"github.com/BaSui01/queryflow/types"
)

// 零外部依赖装配：所有后端缺席时流水线整体进入降级模式，
// 仍应返回完整的答案、来源与结构化输出.
func TestPipelineOfflineEndToEnd(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Cache.SnapshotPath = filepath.Join(t.TempDir(), "cache.json")

	p, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer p.Close()

	assert.True(t, p.Graph.FallbackMode())
	assert.True(t, p.Web.MockMode())
	assert.False(t, p.Synthesizer.LLMAvailable())

	result, err := p.Process(context.Background(),
		"What is machine learning?", types.DefaultOptions(), nil)
	require.NoError(t, err)

	assert.NotEmpty(t, result.Answer)
	assert.NotEmpty(t, result.Sources)
	assert.NotEmpty(t, result.StructuredOutput.Summary)
	assert.LessOrEqual(t, result.Iterations, 5)
}

func TestPipelineNilConfigUsesDefaults(t *testing.T) {
	p, err := New(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, p.Orchestrator)
	assert.NotNil(t, p.Cache)
}

func TestPipelineRejectsEmptyQuery(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Cache.SnapshotPath = filepath.Join(t.TempDir(), "cache.json")

	p, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Process(context.Background(), "   ", types.DefaultOptions(), nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
}
