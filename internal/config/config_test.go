package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/predator4hack/ai-shark-sub001/internal/resilience"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Search.TimeoutSecs)
	assert.Equal(t, 5, cfg.Search.ResultsPerQuery)
	assert.Equal(t, []string{"jina", "google", "perplexity"}, cfg.Search.Providers)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 2000, cfg.Retry.InitialBackoffMs)
	assert.Equal(t, 0.25, cfg.Retry.JitterFraction)
	assert.Equal(t, 1000, cfg.Synth.ChunkSize)
	assert.Equal(t, 0, cfg.Synth.Overlap)
	assert.Equal(t, 1000, cfg.Chunk.Size)
	assert.Equal(t, 200, cfg.Chunk.Overlap)
	assert.Equal(t, 3, cfg.Questionnaire.MaxAttempts)
	assert.Equal(t, "markdown", cfg.Questionnaire.OutputFormat)
	assert.Equal(t, "outputs", cfg.Paths.CompaniesDir)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Batch.MaxConcurrentCompanies)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
log:
  level: debug
  format: console
chunk:
  size: 500
  overlap: 50
pricing:
  anthropic:
    claude-sonnet-4-5-20250929:
      input: 3
      output: 15
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 500, cfg.Chunk.Size)
	assert.Equal(t, 50, cfg.Chunk.Overlap)
	assert.Equal(t, 15.0, cfg.Pricing.Anthropic["claude-sonnet-4-5-20250929"].Output)
	assert.Equal(t, 5*time.Minute, cfg.Anthropic.Timeout)
	// Defaults still apply for unset values
	assert.Equal(t, 30, cfg.Search.TimeoutSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
paths:
  companies_dir: from-file
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("SHARK_PATHS_COMPANIES_DIR", "from-env")
	t.Setenv("SHARK_LOG_LEVEL", "warn")
	t.Setenv("SHARK_ANTHROPIC_KEY", "sk-ant-test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Paths.CompaniesDir)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "sk-ant-test", cfg.Anthropic.Key)
}

func TestLoadInvalidFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0644))

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadExplicitPath(t *testing.T) {
	chdirTemp(t)
	path := filepath.Join(t.TempDir(), "shark.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch:\n  max_concurrent_companies: 6\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Batch.MaxConcurrentCompanies)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit config file must exist")
}

func TestRetryPolicy(t *testing.T) {
	r := RetryConfig{MaxAttempts: 4, InitialBackoffMs: 500, MaxBackoffMs: 8000, JitterFraction: 0.1}
	p := r.Policy()
	assert.Equal(t, 4, p.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, p.InitialBackoff)
	assert.Equal(t, 8*time.Second, p.MaxBackoff)
	assert.Equal(t, 0.1, p.JitterFraction)

	def := RetryConfig{JitterFraction: -1}.Policy()
	assert.Equal(t, resilience.DefaultRetryConfig(), def)
}

func TestSearchBreaker(t *testing.T) {
	assert.Equal(t, resilience.DefaultCircuitBreakerConfig(), SearchConfig{}.Breaker())

	b := SearchConfig{BreakerFailures: 2, BreakerResetSecs: 90}.Breaker()
	assert.Equal(t, 2, b.FailureThreshold)
	assert.Equal(t, 90*time.Second, b.ResetTimeout)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

func validDefaults() *Config {
	cfg := &Config{}
	cfg.Questionnaire.OutputFormat = "markdown"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		setup   func(c *Config)
		wantErr string
	}{
		{
			name: "questionnaire ok",
			mode: "questionnaire",
			setup: func(c *Config) {
				c.Anthropic.Key = "sk-ant"
			},
		},
		{
			name:    "questionnaire missing key",
			mode:    "questionnaire",
			wantErr: "SHARK_ANTHROPIC_KEY",
		},
		{
			name:    "evaluate missing key",
			mode:    "evaluate",
			wantErr: "SHARK_ANTHROPIC_KEY",
		},
		{
			name: "public-data needs a search provider",
			mode: "public-data",
			setup: func(c *Config) {
				c.Anthropic.Key = "sk-ant"
			},
			wantErr: "SHARK_JINA_KEY",
		},
		{
			name: "public-data google without cx",
			mode: "public-data",
			setup: func(c *Config) {
				c.Anthropic.Key = "sk-ant"
				c.Google.Key = "g-key"
			},
			wantErr: "SHARK_GOOGLE_CX",
		},
		{
			name: "public-data ok",
			mode: "public-data",
			setup: func(c *Config) {
				c.Anthropic.Key = "sk-ant"
				c.Perplexity.Key = "pplx"
			},
		},
		{
			name: "search without completion key",
			mode: "search",
			setup: func(c *Config) {
				c.Jina.Key = "jina"
			},
		},
		{
			name:    "unknown mode",
			mode:    "bogus",
			wantErr: "unknown mode",
		},
		{
			name: "bad output format",
			mode: "questionnaire",
			setup: func(c *Config) {
				c.Anthropic.Key = "sk-ant"
				c.Questionnaire.OutputFormat = "pdf"
			},
			wantErr: "output_format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			if tt.setup != nil {
				tt.setup(cfg)
			}
			err := cfg.Validate(tt.mode)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, resilience.IsFatal(err), "config errors must be fatal")
		})
	}
}
