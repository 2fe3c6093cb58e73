// Package summarize generates the bilingual cross-document summaries.
package summarize

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/docmill-ai/docmill/internal/domain"
	"github.com/docmill-ai/docmill/internal/llm"
	"github.com/docmill-ai/docmill/internal/observability"
	"github.com/docmill-ai/docmill/internal/ui"
)

// DefaultContextBudget is the token count above which the summarizer
// switches from a single pass to map-reduce.
const DefaultContextBudget = 24000

// Summarizer reads the converted corpus and writes the English and Chinese
// summary files.
type Summarizer struct {
	markdownDir   string
	englishPath   string
	chinesePath   string
	client        llm.Client
	tokens        TokenCounter
	temperature   float64
	maxTokens     int
	contextBudget int
	log           *observability.Logger
}

// Config holds the summarizer dependencies.
type Config struct {
	MarkdownDir   string
	EnglishPath   string
	ChinesePath   string
	Client        llm.Client
	Tokens        TokenCounter // defaults to the tiktoken counter
	Temperature   float64
	MaxTokens     int
	ContextBudget int
	Logger        *observability.Logger
}

// New creates a Summarizer.
func New(cfg Config) (*Summarizer, error) {
	if cfg.MarkdownDir == "" {
		return nil, domain.ValidationError("markdown directory is required", nil)
	}
	if cfg.EnglishPath == "" || cfg.ChinesePath == "" {
		return nil, domain.ValidationError("summary output paths are required", nil)
	}
	if cfg.Client == nil {
		return nil, domain.ValidationError("LLM client is required", nil)
	}
	if cfg.Tokens == nil {
		tokens, err := NewTokenCounter()
		if err != nil {
			return nil, err
		}
		cfg.Tokens = tokens
	}
	if cfg.ContextBudget <= 0 {
		cfg.ContextBudget = DefaultContextBudget
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NewNopLogger()
	}

	return &Summarizer{
		markdownDir:   cfg.MarkdownDir,
		englishPath:   cfg.EnglishPath,
		chinesePath:   cfg.ChinesePath,
		client:        cfg.Client,
		tokens:        cfg.Tokens,
		temperature:   cfg.Temperature,
		maxTokens:     cfg.MaxTokens,
		contextBudget: cfg.ContextBudget,
		log:           cfg.Logger,
	}, nil
}

// sourceDoc is one converted document loaded for summarization.
type sourceDoc struct {
	Name string
	Text string
}

// Run generates both summaries. The Chinese summary is derived from the
// English one, so an English failure fails the stage outright, while a
// Chinese failure still leaves the English file written.
func (s *Summarizer) Run(ctx context.Context) (domain.StageReport, error) {
	start := time.Now()
	report := domain.StageReport{Stage: "summarize"}
	log := s.log.WithStage("summarize")

	docs, err := s.loadCorpus()
	if err != nil {
		report.Duration = time.Since(start)
		return report, err
	}
	if len(docs) == 0 {
		log.Warn().Str("dir", s.markdownDir).Msg("no markdown documents found, nothing to summarize")
		report.Duration = time.Since(start)
		return report, nil
	}

	log.Info().
		Int("documents", len(docs)).
		Str("provider", s.client.Provider()).
		Str("model", s.client.Model()).
		Msg("generating summary")

	var spin *ui.Spinner
	if ui.IsInteractive() {
		spin = ui.NewSpinner("generating English summary")
	}
	spin.Start()
	defer spin.Stop()

	english, sources, err := s.buildEnglish(ctx, docs)
	if err != nil {
		report.Failed++  // English
		report.Skipped++ // Chinese depends on it
		report.Duration = time.Since(start)
		return report, err
	}
	if err := os.WriteFile(s.englishPath, []byte(renderEnglish(english, sources)), 0o644); err != nil {
		report.Failed++
		report.Skipped++
		report.Duration = time.Since(start)
		return report, domain.IOError(fmt.Sprintf("failed to write %s", s.englishPath), err)
	}
	report.Succeeded++
	log.Info().Str("path", s.englishPath).Msg("English summary written")

	spin.UpdateMessage("generating Chinese summary")
	chinese, err := s.buildChinese(ctx, english)
	if err != nil {
		log.Error().Err(err).Msg("failed to generate Chinese summary")
		report.Failed++
		report.Duration = time.Since(start)
		return report, err
	}
	if err := os.WriteFile(s.chinesePath, []byte(renderChinese(chinese, sources)), 0o644); err != nil {
		report.Failed++
		report.Duration = time.Since(start)
		return report, domain.IOError(fmt.Sprintf("failed to write %s", s.chinesePath), err)
	}
	report.Succeeded++
	log.Info().Str("path", s.chinesePath).Msg("Chinese summary written")

	report.Duration = time.Since(start)
	return report, nil
}

// loadCorpus reads the converted markdown, sorted by name. Empty documents
// are dropped.
func (s *Summarizer) loadCorpus() ([]sourceDoc, error) {
	files, err := filepath.Glob(filepath.Join(s.markdownDir, "*.md"))
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("failed to list markdown in %s", s.markdownDir), err)
	}
	sort.Strings(files)

	var docs []sourceDoc
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, domain.IOError(fmt.Sprintf("failed to read %s", path), err)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			s.log.WithStage("summarize").Debug().Str("document", filepath.Base(path)).Msg("skipping empty document")
			continue
		}
		docs = append(docs, sourceDoc{Name: filepath.Base(path), Text: text})
	}
	return docs, nil
}

// buildEnglish produces the model content of the English summary and the
// list of sources it covers. When the corpus exceeds the context budget it
// falls back to per-document summaries combined in a second pass.
func (s *Summarizer) buildEnglish(ctx context.Context, docs []sourceDoc) (string, []string, error) {
	log := s.log.WithStage("summarize")

	corpus := renderCorpus(docs)
	if s.tokens.Count(corpus) <= s.contextBudget {
		content, err := s.complete(ctx, englishSystemPrompt, summaryPrompt(corpus))
		if err != nil {
			return "", nil, err
		}
		return content, docNames(docs), nil
	}

	log.Info().
		Int("budget", s.contextBudget).
		Msg("corpus exceeds single-pass budget, summarizing documents individually")

	var (
		parts   []string
		sources []string
		lastErr error
	)
	for _, doc := range docs {
		text := doc.Text
		if s.tokens.Count(text) > s.contextBudget {
			log.Warn().Str("document", doc.Name).Msg("document exceeds context budget, truncating")
			text = s.tokens.Truncate(text, s.contextBudget)
		}

		part, err := s.complete(ctx, englishSystemPrompt, documentPrompt(doc.Name, text))
		if err != nil {
			log.Error().Err(err).Str("document", doc.Name).Msg("failed to summarize document")
			lastErr = err
			continue
		}
		parts = append(parts, fmt.Sprintf("## %s\n\n%s", doc.Name, part))
		sources = append(sources, doc.Name)
	}
	if len(parts) == 0 {
		return "", nil, domain.ProviderError("all document summaries failed", lastErr)
	}

	combined := strings.Join(parts, "\n\n")
	if s.tokens.Count(combined) > s.contextBudget {
		log.Warn().Msg("combined document summaries exceed context budget, truncating")
		combined = s.tokens.Truncate(combined, s.contextBudget)
	}

	content, err := s.complete(ctx, englishSystemPrompt, summaryPrompt(combined))
	if err != nil {
		return "", nil, err
	}
	return content, sources, nil
}

// buildChinese translates and restructures the English summary content.
func (s *Summarizer) buildChinese(ctx context.Context, english string) (string, error) {
	return s.complete(ctx, chineseSystemPrompt, chinesePrompt(english))
}

func (s *Summarizer) complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := s.client.Complete(ctx, llm.CompletionRequest{
		System:      system,
		Prompt:      prompt,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return "", err
	}
	if resp.Content == "" {
		return "", domain.ProviderError("model returned an empty summary", nil)
	}
	return resp.Content, nil
}

// renderCorpus lays the documents out for the single-pass prompt.
func renderCorpus(docs []sourceDoc) string {
	var b strings.Builder
	for _, doc := range docs {
		fmt.Fprintf(&b, "## Document: %s\n\n%s\n\n", doc.Name, doc.Text)
	}
	return b.String()
}

func docNames(docs []sourceDoc) []string {
	names := make([]string, len(docs))
	for i, doc := range docs {
		names[i] = doc.Name
	}
	return names
}

// renderEnglish assembles the final English summary document.
func renderEnglish(content string, sources []string) string {
	var b strings.Builder
	b.WriteString("# Comprehensive Summary of Documents\n\n")
	b.WriteString("## Overview\n")
	b.WriteString("This document provides a comprehensive summary of the key points, important concepts, and connections between the processed documents.\n\n")
	b.WriteString(strings.TrimSpace(content))
	b.WriteString("\n\n## Sources\n\n")
	for _, source := range sources {
		fmt.Fprintf(&b, "- %s\n", source)
	}
	return b.String()
}

// renderChinese assembles the final Chinese summary document.
func renderChinese(content string, sources []string) string {
	var b strings.Builder
	b.WriteString("# 文档综合摘要\n\n")
	b.WriteString("## 概述\n")
	b.WriteString("本文档提供了多份文档的要点、重要概念和相互联系的综合摘要。\n\n")
	b.WriteString(strings.TrimSpace(content))
	b.WriteString("\n\n## 来源\n\n")
	for _, source := range sources {
		fmt.Fprintf(&b, "- %s\n", source)
	}
	return b.String()
}
