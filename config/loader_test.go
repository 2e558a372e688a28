package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsLoadWithoutFile(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.HTTPPort)
	assert.Equal(t, 5, cfg.Agent.MaxIterations)
	assert.Equal(t, 5, cfg.Cache.SaveInterval)
	assert.Equal(t, "neo4j", cfg.Neo4j.Database)
	require.NoError(t, cfg.Validate())
}

func TestMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.HTTPPort)
}

func TestYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  http_port: 9001
agent:
  max_iterations: 3
  timeout: 30s
tavily:
  api_key: tvly-test
cache:
  snapshot_path: /tmp/qf-cache.json
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.HTTPPort)
	assert.Equal(t, 3, cfg.Agent.MaxIterations)
	assert.Equal(t, 30*time.Second, cfg.Agent.Timeout)
	assert.Equal(t, "tvly-test", cfg.Tavily.APIKey)
	// 未覆盖的字段保留默认值
	assert.Equal(t, 9090, cfg.Server.MetricsPort)
}

func TestEnvOverridesYAML(t *testing.T) {
	t.Setenv("QUERYFLOW_SERVER_HTTP_PORT", "7777")
	t.Setenv("QUERYFLOW_NEO4J_URI", "http://graph:7474")
	t.Setenv("QUERYFLOW_GEMINI_API_KEY", "gk-env")
	t.Setenv("QUERYFLOW_RATE_LIMIT_ENABLED", "false")
	t.Setenv("QUERYFLOW_LOG_OUTPUT_PATHS", "stdout, /var/log/qf.log")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.HTTPPort)
	assert.Equal(t, "http://graph:7474", cfg.Neo4j.URI)
	assert.Equal(t, "gk-env", cfg.Gemini.APIKey)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, []string{"stdout", "/var/log/qf.log"}, cfg.Log.OutputPaths)
}

func TestCustomEnvPrefix(t *testing.T) {
	t.Setenv("QF_SERVER_HTTP_PORT", "6060")

	cfg, err := NewLoader().WithEnvPrefix("QF").Load()
	require.NoError(t, err)
	assert.Equal(t, 6060, cfg.Server.HTTPPort)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.HTTPPort = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Agent.MaxIterations = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Auth.BasicUser = "admin" // 密码缺失
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RequestsPerSecond = 0
	assert.Error(t, cfg.Validate())
}

func TestLoaderValidatorRuns(t *testing.T) {
	_, err := NewLoader().
		WithValidator(func(c *Config) error {
			c.Server.HTTPPort = -1
			return c.Validate()
		}).
		Load()
	assert.Error(t, err)
}
