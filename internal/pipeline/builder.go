package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/docmill-ai/docmill/internal/cache"
	"github.com/docmill-ai/docmill/internal/config"
	"github.com/docmill-ai/docmill/internal/convert"
	"github.com/docmill-ai/docmill/internal/domain"
	"github.com/docmill-ai/docmill/internal/embedding"
	"github.com/docmill-ai/docmill/internal/index"
	"github.com/docmill-ai/docmill/internal/llm"
	"github.com/docmill-ai/docmill/internal/observability"
	"github.com/docmill-ai/docmill/internal/splitter"
	"github.com/docmill-ai/docmill/internal/summarize"
	"github.com/docmill-ai/docmill/internal/vectorstore"
)

// sqliteFile is the database name inside the vector store directory.
const sqliteFile = "vectors.db"

// BuildConfig holds everything needed to assemble a pipeline run.
type BuildConfig struct {
	Config *config.Config

	// Provider is the resolved LLM provider. Required only when the
	// summarize stage is selected.
	Provider config.Provider

	Stages Stages
	Logger *observability.Logger

	// NoTimer suppresses the interval progress reports. The final elapsed
	// report of each stage is always emitted.
	NoTimer bool
}

// Build wires the selected stages from configuration. Construction performs
// the hard-failure checks that belong at stage entry: invalid chunk geometry,
// missing embedding credentials, an unreachable vector store, or an
// unconfigured LLM provider all fail here before any document is touched.
func Build(ctx context.Context, bc BuildConfig) (*Pipeline, error) {
	if !bc.Stages.Any() {
		return nil, domain.ValidationError("no pipeline stages selected", nil)
	}
	if bc.Logger == nil {
		bc.Logger = observability.NewNopLogger()
	}

	interval := bc.Config.Timer.Interval
	if bc.NoTimer || !bc.Config.Timer.Enabled {
		interval = 0
	}

	p := &Pipeline{interval: interval, log: bc.Logger}

	if bc.Stages.Convert {
		stage, err := buildConvert(bc.Config, bc.Logger)
		if err != nil {
			return nil, err
		}
		p.stages = append(p.stages, stage)
	}

	if bc.Stages.Index {
		stage, closers, err := buildIndex(ctx, bc.Config, bc.Logger)
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		p.closers = append(p.closers, closers...)
		p.stages = append(p.stages, stage)
	}

	if bc.Stages.Summarize {
		stage, err := buildSummarize(bc.Config, bc.Provider, bc.Logger)
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		p.stages = append(p.stages, stage)
	}

	return p, nil
}

func buildConvert(cfg *config.Config, log *observability.Logger) (Stage, error) {
	converter, err := convert.New(convert.Config{
		InputDir:    cfg.Paths.InputDir,
		MarkdownDir: cfg.Paths.MarkdownDir(),
		ImagesDir:   cfg.Paths.ImagesDir(),
		Text:        convert.FitzExtractor{},
		Images:      convert.NewPdfcpuImageExtractor(),
		Validator:   convert.NewPdfcpuValidator(),
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}
	return namedStage{name: "convert", run: converter.Run}, nil
}

func buildIndex(ctx context.Context, cfg *config.Config, log *observability.Logger) (Stage, []func() error, error) {
	var closers []func() error

	split, err := splitter.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return nil, nil, err
	}

	embedder, closeEmbedder, err := buildEmbedder(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, closeEmbedder)

	store, err := buildStore(ctx, cfg)
	if err != nil {
		for _, close := range closers {
			_ = close()
		}
		return nil, nil, err
	}
	closers = append(closers, store.Close)

	indexer, err := index.New(index.Config{
		MarkdownDir: cfg.Paths.MarkdownDir(),
		Splitter:    split,
		Embedder:    embedder,
		Store:       store,
		BatchSize:   cfg.Embedding.BatchSize,
		Logger:      log,
	})
	if err != nil {
		for _, close := range closers {
			_ = close()
		}
		return nil, nil, err
	}

	return namedStage{name: "index", run: indexer.Run}, closers, nil
}

func buildSummarize(cfg *config.Config, provider config.Provider, log *observability.Logger) (Stage, error) {
	if provider == "" {
		return nil, domain.ConfigError("summarize stage needs an LLM provider but none is configured", nil)
	}

	client, err := llm.NewFromConfig(cfg, provider, log)
	if err != nil {
		return nil, err
	}

	summarizer, err := summarize.New(summarize.Config{
		MarkdownDir:   cfg.Paths.MarkdownDir(),
		EnglishPath:   cfg.Paths.SummaryPath(),
		ChinesePath:   cfg.Paths.ChineseSummaryPath(),
		Client:        client,
		Temperature:   cfg.Summary.Temperature,
		MaxTokens:     cfg.Summary.MaxTokens,
		ContextBudget: cfg.Summary.ContextBudget,
		Logger:        log,
	})
	if err != nil {
		return nil, err
	}

	return namedStage{name: "summarize", run: summarizer.Run}, nil
}

// buildEmbedder assembles the configured embedder wrapped in the embedding
// cache. The local deterministic embedder is the default; the OpenAI client
// requires a configured key and fails construction hard without one.
func buildEmbedder(cfg *config.Config, log *observability.Logger) (embedding.Embedder, func() error, error) {
	var inner embedding.Embedder
	switch cfg.Embedding.Provider {
	case "openai":
		if !cfg.IsConfigured(config.ProviderOpenAI) {
			return nil, nil, domain.ConfigError("embedding provider openai requires OPENAI_API_KEY", nil)
		}
		client, err := embedding.NewClient(embedding.Config{
			APIKey:            cfg.OpenAI.APIKey,
			Model:             cfg.Embedding.Model,
			BaseURL:           cfg.Embedding.BaseURL,
			Dimension:         cfg.Embedding.Dimension,
			Timeout:           30 * time.Second,
			RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
			Logger:            log,
		})
		if err != nil {
			return nil, nil, domain.ConfigError("failed to build embedding client", err)
		}
		inner = client
	default:
		inner = embedding.NewLocal(cfg.Embedding.Dimension)
	}

	store := buildCache(cfg, log)
	cached := embedding.WithCache(inner, store, cfg.Cache.TTL, log)
	return cached, store.Close, nil
}

// buildCache returns the configured cache backend. Redis being unreachable
// degrades to memory with a warning; the cache is an optimization, never a
// reason to abort the run.
func buildCache(cfg *config.Config, log *observability.Logger) cache.Client {
	if cfg.Cache.Backend == "redis" {
		client, err := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		if err == nil {
			return client
		}
		log.Warn().Err(err).Msg("redis cache unavailable, falling back to memory")
	}
	return cache.NewMemoryClient(0)
}

func buildStore(ctx context.Context, cfg *config.Config) (vectorstore.Store, error) {
	switch cfg.Vector.Backend {
	case "pgvector":
		return vectorstore.NewPGVectorStore(ctx, cfg.Vector.DSN, cfg.Embedding.Dimension)
	default:
		return vectorstore.NewSQLiteStore(filepath.Join(cfg.Paths.VectorDBDir(), sqliteFile))
	}
}
