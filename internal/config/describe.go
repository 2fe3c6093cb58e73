package config

import (
	"fmt"
	"strings"
)

// Describe renders the resolved configuration for display. API keys are
// masked; everything else is shown as the pipeline will use it.
func (c *Config) Describe() string {
	var b strings.Builder

	b.WriteString("Paths:\n")
	fmt.Fprintf(&b, "  input:          %s\n", c.Paths.InputDir)
	fmt.Fprintf(&b, "  markdown:       %s\n", c.Paths.MarkdownDir())
	fmt.Fprintf(&b, "  images:         %s\n", c.Paths.ImagesDir())
	fmt.Fprintf(&b, "  vector store:   %s\n", c.Paths.VectorDBDir())
	fmt.Fprintf(&b, "  summaries:      %s, %s\n", c.Paths.SummaryPath(), c.Paths.ChineseSummaryPath())
	fmt.Fprintf(&b, "  error log:      %s\n", c.Paths.ErrorLogPath())

	b.WriteString("Providers:\n")
	for _, p := range preferenceOrder {
		settings := c.ProviderSettings(p)
		status := "not configured"
		if c.IsConfigured(p) {
			status = fmt.Sprintf("configured, key %s", maskSecret(settings.APIKey))
		}
		fmt.Fprintf(&b, "  %-11s%s (model %s)\n", string(p)+":", status, settings.Model)
	}
	if c.Provider != "" {
		fmt.Fprintf(&b, "  selection:  %s (forced)\n", c.Provider)
	} else {
		b.WriteString("  selection:  auto\n")
	}

	b.WriteString("Chunking:\n")
	fmt.Fprintf(&b, "  size: %d, overlap: %d\n", c.Chunking.Size, c.Chunking.Overlap)

	b.WriteString("Embedding:\n")
	fmt.Fprintf(&b, "  provider: %s, model: %s, dimension: %d, batch: %d\n",
		c.Embedding.Provider, c.Embedding.Model, c.Embedding.Dimension, c.Embedding.BatchSize)

	b.WriteString("Vector store:\n")
	fmt.Fprintf(&b, "  backend: %s\n", c.Vector.Backend)

	b.WriteString("Cache:\n")
	fmt.Fprintf(&b, "  backend: %s\n", c.Cache.Backend)

	b.WriteString("Summary:\n")
	fmt.Fprintf(&b, "  temperature: %g, max tokens: %d, context budget: %d\n",
		c.Summary.Temperature, c.Summary.MaxTokens, c.Summary.ContextBudget)

	b.WriteString("Timer:\n")
	fmt.Fprintf(&b, "  interval: %s, enabled: %v\n", c.Timer.Interval, c.Timer.Enabled)

	b.WriteString("Logging:\n")
	fmt.Fprintf(&b, "  level: %s, format: %s\n", c.Logging.Level, c.Logging.Format)

	return b.String()
}

// maskSecret hides the middle of a credential, keeping just enough to
// recognize which key is loaded.
func maskSecret(key string) string {
	if len(key) < 12 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + "…" + key[len(key)-4:]
}
