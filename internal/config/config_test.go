package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1000, cfg.Chunking.Size)
	assert.Equal(t, 200, cfg.Chunking.Overlap)
	assert.Equal(t, "o3-mini", cfg.OpenAI.Model)
	assert.Equal(t, "grok-3-latest", cfg.Grok.Model)
	assert.Equal(t, "claude-3-opus-20240229", cfg.Anthropic.Model)
	assert.Equal(t, "https://api.x.ai/v1", cfg.Grok.BaseURL)
	assert.Equal(t, 0.2, cfg.Summary.Temperature)
	assert.Equal(t, "sqlite", cfg.Vector.Backend)
	assert.NoError(t, cfg.Validate())
}

func TestDerivedPaths(t *testing.T) {
	paths := PathsConfig{InputDir: "input", OutputDir: "output", LogsDir: "logs"}

	assert.Equal(t, filepath.Join("output", "markdown"), paths.MarkdownDir())
	assert.Equal(t, filepath.Join("output", "markdown", "images"), paths.ImagesDir())
	assert.Equal(t, filepath.Join("output", "vectordb"), paths.VectorDBDir())
	assert.Equal(t, filepath.Join("output", "summary.md"), paths.SummaryPath())
	assert.Equal(t, filepath.Join("output", "summary_chinese.md"), paths.ChineseSummaryPath())
	assert.Equal(t, filepath.Join("logs", "error.log"), paths.ErrorLogPath())
}

func TestLoad_YAMLAndEnvLayering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
chunking:
  size: 500
  overlap: 50
openai:
  model: gpt-4o
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	t.Setenv("CHUNK_SIZE", "800")
	t.Setenv("OPENAI_API_KEY", "sk-test-1234567890")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 800, cfg.Chunking.Size, "env must win over file")
	assert.Equal(t, 50, cfg.Chunking.Overlap, "file must win over defaults")
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, "sk-test-1234567890", cfg.OpenAI.APIKey)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "overlap equals size", mutate: func(c *Config) { c.Chunking.Overlap = c.Chunking.Size }},
		{name: "overlap above size", mutate: func(c *Config) { c.Chunking.Overlap = c.Chunking.Size + 1 }},
		{name: "zero chunk size", mutate: func(c *Config) { c.Chunking.Size = 0 }},
		{name: "bad embedding provider", mutate: func(c *Config) { c.Embedding.Provider = "cohere" }},
		{name: "bad vector backend", mutate: func(c *Config) { c.Vector.Backend = "chroma" }},
		{name: "pgvector without dsn", mutate: func(c *Config) { c.Vector.Backend = "pgvector" }},
		{name: "bad cache backend", mutate: func(c *Config) { c.Cache.Backend = "memcached" }},
		{name: "temperature out of range", mutate: func(c *Config) { c.Summary.Temperature = 2.5 }},
		{name: "bad provider name", mutate: func(c *Config) { c.Provider = "mistral" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestIsConfigured_PlaceholdersRejected(t *testing.T) {
	cfg := DefaultConfig()

	cfg.OpenAI.APIKey = "your_openai_api_key"
	assert.False(t, cfg.IsConfigured(ProviderOpenAI))

	cfg.OpenAI.APIKey = "YOUR_OPENAI_API_KEY"
	assert.False(t, cfg.IsConfigured(ProviderOpenAI))

	cfg.OpenAI.APIKey = "sk-real-key-123456"
	assert.True(t, cfg.IsConfigured(ProviderOpenAI))
}

func TestIsConfigured_GrokPrefixEnforced(t *testing.T) {
	cfg := DefaultConfig()

	cfg.Grok.APIKey = "sk-wrong-prefix-key"
	assert.False(t, cfg.IsConfigured(ProviderGrok))
	assert.NotEmpty(t, cfg.ProviderWarnings())

	cfg.Grok.APIKey = "xai-proper-key-123456"
	assert.True(t, cfg.IsConfigured(ProviderGrok))
}

func TestResolveProvider(t *testing.T) {
	cfg := DefaultConfig()

	_, err := cfg.ResolveProvider()
	assert.Error(t, err, "nothing configured")

	cfg.Grok.APIKey = "xai-key-1234567890"
	cfg.Anthropic.APIKey = "sk-ant-1234567890"

	p, err := cfg.ResolveProvider()
	require.NoError(t, err)
	assert.Equal(t, ProviderGrok, p, "preference order skips unconfigured openai")

	cfg.Provider = ProviderAnthropic
	p, err = cfg.ResolveProvider()
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, p, "explicit selection wins")

	cfg.Provider = ProviderOpenAI
	_, err = cfg.ResolveProvider()
	assert.Error(t, err, "explicit selection of an unconfigured provider fails")
}

func TestConfiguredProviders_PreferenceOrder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OpenAI.APIKey = "sk-openai-1234567890"
	cfg.Grok.APIKey = "xai-grok-1234567890"
	cfg.Anthropic.APIKey = "sk-ant-1234567890"

	assert.Equal(t, []Provider{ProviderOpenAI, ProviderGrok, ProviderAnthropic}, cfg.ConfiguredProviders())
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Paths = PathsConfig{
		InputDir:  filepath.Join(dir, "input"),
		OutputDir: filepath.Join(dir, "output"),
		LogsDir:   filepath.Join(dir, "logs"),
	}

	require.NoError(t, cfg.EnsureDirectories())

	for _, p := range []string{
		cfg.Paths.InputDir,
		cfg.Paths.MarkdownDir(),
		cfg.Paths.ImagesDir(),
		cfg.Paths.VectorDBDir(),
		cfg.Paths.LogsDir,
	} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	_, err := os.Stat(cfg.Paths.ErrorLogPath())
	assert.True(t, os.IsNotExist(err), "error log must not be pre-created")
}

func TestDescribe_MasksSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OpenAI.APIKey = "sk-verysecretkey99"

	out := cfg.Describe()
	assert.NotContains(t, out, "sk-verysecretkey99")
	assert.Contains(t, out, "sk-v")
	assert.Contains(t, out, "ey99")
	assert.Contains(t, out, "grok-3-latest")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "******", maskSecret("short1"))
	masked := maskSecret("sk-abcdefghijklmnop")
	assert.True(t, strings.HasPrefix(masked, "sk-a"))
	assert.True(t, strings.HasSuffix(masked, "mnop"))
	assert.NotContains(t, masked, "efghij")
}
