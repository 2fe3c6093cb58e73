// Package config provides unified configuration loading for the pipeline.
// Supports YAML files, .env files, environment variables, and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider identifies an LLM provider.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderGrok      Provider = "grok"
	ProviderAnthropic Provider = "anthropic"
)

// preferenceOrder is the auto-selection order when no provider is forced.
var preferenceOrder = []Provider{ProviderOpenAI, ProviderGrok, ProviderAnthropic}

// Config holds all configuration for the pipeline.
type Config struct {
	Paths     PathsConfig     `yaml:"paths"`
	Provider  Provider        `yaml:"provider"` // empty means auto-select
	OpenAI    ProviderConfig  `yaml:"openai"`
	Grok      ProviderConfig  `yaml:"grok"`
	Anthropic ProviderConfig  `yaml:"anthropic"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	Cache     CacheConfig     `yaml:"cache"`
	Summary   SummaryConfig   `yaml:"summary"`
	Timer     TimerConfig     `yaml:"timer"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// PathsConfig holds the filesystem layout. Everything below OutputDir and
// LogsDir is derived, never configured directly.
type PathsConfig struct {
	InputDir  string `yaml:"input_dir"`
	OutputDir string `yaml:"output_dir"`
	LogsDir   string `yaml:"logs_dir"`
}

// MarkdownDir is where converted documents are written.
func (p PathsConfig) MarkdownDir() string { return filepath.Join(p.OutputDir, "markdown") }

// ImagesDir is where extracted images are written.
func (p PathsConfig) ImagesDir() string { return filepath.Join(p.MarkdownDir(), "images") }

// VectorDBDir is where the persistent vector store lives.
func (p PathsConfig) VectorDBDir() string { return filepath.Join(p.OutputDir, "vectordb") }

// SummaryPath is the English summary file.
func (p PathsConfig) SummaryPath() string { return filepath.Join(p.OutputDir, "summary.md") }

// ChineseSummaryPath is the Chinese summary file.
func (p PathsConfig) ChineseSummaryPath() string {
	return filepath.Join(p.OutputDir, "summary_chinese.md")
}

// ErrorLogPath is the append-only error log.
func (p PathsConfig) ErrorLogPath() string { return filepath.Join(p.LogsDir, "error.log") }

// ProviderConfig holds credentials and model selection for one provider.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// ChunkingConfig holds text splitting settings.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// EmbeddingConfig holds embedding generation settings.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider"` // local or openai
	Model             string  `yaml:"model"`
	BaseURL           string  `yaml:"base_url"`
	Dimension         int     `yaml:"dimension"`
	BatchSize         int     `yaml:"batch_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// VectorConfig holds vector store settings.
type VectorConfig struct {
	Backend string `yaml:"backend"` // sqlite or pgvector
	DSN     string `yaml:"dsn"`     // pgvector connection string
}

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	Backend string        `yaml:"backend"` // memory or redis
	TTL     time.Duration `yaml:"ttl"`
	Redis   RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SummaryConfig holds summary generation settings.
type SummaryConfig struct {
	Temperature    float64       `yaml:"temperature"`
	MaxTokens      int           `yaml:"max_tokens"`
	ContextBudget  int           `yaml:"context_budget"` // tokens allowed in a single pass
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// TimerConfig holds progress timer settings.
type TimerConfig struct {
	Interval time.Duration `yaml:"interval"`
	Enabled  bool          `yaml:"enabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads configuration from an optional YAML file, a .env file if one
// exists in the working directory, and environment variables. Environment
// always wins.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with the pipeline defaults.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			InputDir:  "input",
			OutputDir: "output",
			LogsDir:   "logs",
		},
		OpenAI: ProviderConfig{
			Model:   "o3-mini",
			BaseURL: "https://api.openai.com/v1",
		},
		Grok: ProviderConfig{
			Model:   "grok-3-latest",
			BaseURL: "https://api.x.ai/v1",
		},
		Anthropic: ProviderConfig{
			Model:   "claude-3-opus-20240229",
			BaseURL: "https://api.anthropic.com",
		},
		Chunking: ChunkingConfig{
			Size:    1000,
			Overlap: 200,
		},
		Embedding: EmbeddingConfig{
			Provider:          "local",
			Model:             "text-embedding-3-small",
			BaseURL:           "https://api.openai.com/v1",
			Dimension:         1536,
			BatchSize:         16,
			RequestsPerSecond: 5,
		},
		Vector: VectorConfig{
			Backend: "sqlite",
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     24 * time.Hour,
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		Summary: SummaryConfig{
			Temperature:    0.2,
			MaxTokens:      4096,
			ContextBudget:  24000,
			RequestTimeout: 2 * time.Minute,
		},
		Timer: TimerConfig{
			Interval: 15 * time.Second,
			Enabled:  true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Chunking.Size < 1 {
		return fmt.Errorf("chunk size must be positive, got %d", c.Chunking.Size)
	}

	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunk overlap must be in [0, size), got %d for size %d",
			c.Chunking.Overlap, c.Chunking.Size)
	}

	if c.Embedding.Provider != "local" && c.Embedding.Provider != "openai" {
		return fmt.Errorf("invalid embedding provider: %s", c.Embedding.Provider)
	}

	if c.Embedding.Dimension < 1 {
		return fmt.Errorf("embedding dimension must be positive, got %d", c.Embedding.Dimension)
	}

	if c.Embedding.BatchSize < 1 {
		return fmt.Errorf("embedding batch size must be positive, got %d", c.Embedding.BatchSize)
	}

	if c.Vector.Backend != "sqlite" && c.Vector.Backend != "pgvector" {
		return fmt.Errorf("invalid vector backend: %s", c.Vector.Backend)
	}

	if c.Vector.Backend == "pgvector" && c.Vector.DSN == "" {
		return fmt.Errorf("pgvector backend requires a dsn")
	}

	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("invalid cache backend: %s", c.Cache.Backend)
	}

	if c.Summary.Temperature < 0 || c.Summary.Temperature > 2 {
		return fmt.Errorf("temperature must be in [0, 2], got %g", c.Summary.Temperature)
	}

	if c.Summary.RequestTimeout < 0 {
		return fmt.Errorf("request timeout must not be negative, got %s", c.Summary.RequestTimeout)
	}

	if c.Provider != "" {
		switch c.Provider {
		case ProviderOpenAI, ProviderGrok, ProviderAnthropic:
		default:
			return fmt.Errorf("invalid provider: %s", c.Provider)
		}
	}

	return nil
}

// EnsureDirectories creates the filesystem layout the pipeline expects.
// The error log file itself is never pre-created.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.InputDir,
		c.Paths.MarkdownDir(),
		c.Paths.ImagesDir(),
		c.Paths.VectorDBDir(),
		c.Paths.LogsDir,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ProviderSettings returns the credentials block for the given provider.
func (c *Config) ProviderSettings(p Provider) ProviderConfig {
	switch p {
	case ProviderOpenAI:
		return c.OpenAI
	case ProviderGrok:
		return c.Grok
	case ProviderAnthropic:
		return c.Anthropic
	}
	return ProviderConfig{}
}

// IsConfigured reports whether the provider has a usable API key.
// Placeholder values left over from a .env template do not count, and a
// Grok key must carry the xai- prefix.
func (c *Config) IsConfigured(p Provider) bool {
	key := c.ProviderSettings(p).APIKey
	if isPlaceholder(key) {
		return false
	}
	if p == ProviderGrok && !strings.HasPrefix(key, "xai-") {
		return false
	}
	return true
}

// ConfiguredProviders returns the configured providers in preference order.
func (c *Config) ConfiguredProviders() []Provider {
	var out []Provider
	for _, p := range preferenceOrder {
		if c.IsConfigured(p) {
			out = append(out, p)
		}
	}
	return out
}

// ResolveProvider picks the provider to use: the explicitly requested one
// when set, otherwise the first configured provider in preference order.
func (c *Config) ResolveProvider() (Provider, error) {
	if c.Provider != "" {
		if !c.IsConfigured(c.Provider) {
			return "", fmt.Errorf("provider %s requested but not configured", c.Provider)
		}
		return c.Provider, nil
	}

	configured := c.ConfiguredProviders()
	if len(configured) == 0 {
		return "", fmt.Errorf("no LLM provider configured: set OPENAI_API_KEY, GROK_API_KEY, or ANTHROPIC_API_KEY")
	}
	return configured[0], nil
}

// ProviderWarnings returns human-readable notes about credential problems
// that do not block startup.
func (c *Config) ProviderWarnings() []string {
	var warnings []string
	if key := c.Grok.APIKey; !isPlaceholder(key) && !strings.HasPrefix(key, "xai-") {
		warnings = append(warnings, "GROK_API_KEY does not start with xai-, treating Grok as unconfigured")
	}
	for _, p := range preferenceOrder {
		if isPlaceholder(c.ProviderSettings(p).APIKey) && c.ProviderSettings(p).APIKey != "" {
			warnings = append(warnings, fmt.Sprintf("%s API key looks like a template placeholder", p))
		}
	}
	return warnings
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INPUT_DIR"); v != "" {
		cfg.Paths.InputDir = v
	}

	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.Paths.OutputDir = v
	}

	if v := os.Getenv("LOGS_DIR"); v != "" {
		cfg.Paths.LogsDir = v
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}

	if v := os.Getenv("OPENAI_API_BASE"); v != "" {
		cfg.OpenAI.BaseURL = v
	}

	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.OpenAI.Model = v
	}

	if v := os.Getenv("GROK_API_KEY"); v != "" {
		cfg.Grok.APIKey = v
	}

	if v := os.Getenv("GROK_MODEL"); v != "" {
		cfg.Grok.Model = v
	}

	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Anthropic.APIKey = v
	}

	if v := os.Getenv("ANTHROPIC_MODEL"); v != "" {
		cfg.Anthropic.Model = v
	}

	if v := os.Getenv("PROVIDER"); v != "" {
		cfg.Provider = Provider(strings.ToLower(v))
	}

	if v := os.Getenv("CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Chunking.Size = n
		}
	}

	if v := os.Getenv("CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Chunking.Overlap = n
		}
	}

	if v := os.Getenv("EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}

	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}

	if v := os.Getenv("VECTOR_BACKEND"); v != "" {
		cfg.Vector.Backend = v
	}

	if v := os.Getenv("PGVECTOR_DSN"); v != "" {
		cfg.Vector.DSN = v
	}

	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.Redis.Addr = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// isPlaceholder reports whether an API key value is empty or a template
// placeholder such as your_openai_api_key.
func isPlaceholder(key string) bool {
	if key == "" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(key), "your_")
}
