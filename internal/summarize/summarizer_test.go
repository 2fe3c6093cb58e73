package summarize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmill-ai/docmill/internal/llm"
)

// wordTokens stands in for the tokenizer so tests stay offline: one word,
// one token.
type wordTokens struct{}

func (wordTokens) Count(text string) int {
	return len(strings.Fields(text))
}

func (wordTokens) Truncate(text string, budget int) string {
	words := strings.Fields(text)
	if len(words) <= budget {
		return text
	}
	return strings.Join(words[:budget], " ")
}

type fakeClient struct {
	mu                     sync.Mutex
	calls                  []llm.CompletionRequest
	englishResponse        string
	chineseResponse        string
	failEnglish            bool
	failChinese            bool
	failWhenPromptContains string
}

func (f *fakeClient) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if f.failWhenPromptContains != "" && strings.Contains(req.Prompt, f.failWhenPromptContains) {
		return llm.CompletionResponse{}, errors.New("provider rejected the request")
	}
	if req.System == chineseSystemPrompt {
		if f.failChinese {
			return llm.CompletionResponse{}, errors.New("chinese pass failed")
		}
		return llm.CompletionResponse{Content: f.chineseResponse, Model: "fake-model"}, nil
	}
	if f.failEnglish {
		return llm.CompletionResponse{}, errors.New("english pass failed")
	}
	return llm.CompletionResponse{Content: f.englishResponse, Model: "fake-model"}, nil
}

func (f *fakeClient) Provider() string { return "fake" }
func (f *fakeClient) Model() string    { return "fake-model" }

type testSetup struct {
	markdownDir string
	englishPath string
	chinesePath string
}

func newSetup(t *testing.T) testSetup {
	t.Helper()
	outDir := t.TempDir()
	return testSetup{
		markdownDir: t.TempDir(),
		englishPath: filepath.Join(outDir, "summary.md"),
		chinesePath: filepath.Join(outDir, "summary_chinese.md"),
	}
}

func (ts testSetup) write(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(ts.markdownDir, name), []byte(content), 0644))
}

func (ts testSetup) summarizer(t *testing.T, client llm.Client, budget int) *Summarizer {
	t.Helper()
	s, err := New(Config{
		MarkdownDir:   ts.markdownDir,
		EnglishPath:   ts.englishPath,
		ChinesePath:   ts.chinesePath,
		Client:        client,
		Tokens:        wordTokens{},
		Temperature:   0.2,
		MaxTokens:     4096,
		ContextBudget: budget,
	})
	require.NoError(t, err)
	return s
}

func TestSummarizer_Run_SinglePass(t *testing.T) {
	ts := newSetup(t)
	ts.write(t, "beta.md", "beta document body")
	ts.write(t, "alpha.md", "alpha document body")

	client := &fakeClient{englishResponse: "THE ENGLISH SUMMARY", chineseResponse: "中文摘要内容"}
	s := ts.summarizer(t, client, 10000)

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)
	assert.Zero(t, report.Failed)

	english, err := os.ReadFile(ts.englishPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(english), "# Comprehensive Summary of Documents\n\n## Overview\n"))
	assert.Contains(t, string(english), "THE ENGLISH SUMMARY")
	assert.Contains(t, string(english), "\n## Sources\n\n- alpha.md\n- beta.md\n")

	chinese, err := os.ReadFile(ts.chinesePath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(chinese), "# 文档综合摘要\n\n## 概述\n"))
	assert.Contains(t, string(chinese), "中文摘要内容")
	assert.Contains(t, string(chinese), "\n## 来源\n\n- alpha.md\n- beta.md\n")

	// One English pass over the whole corpus, one Chinese pass from the
	// English content.
	require.Len(t, client.calls, 2)
	first := client.calls[0]
	assert.Equal(t, englishSystemPrompt, first.System)
	assert.Contains(t, first.Prompt, "alpha document body")
	assert.Contains(t, first.Prompt, "beta document body")
	assert.Contains(t, first.Prompt, "What connections exist between the documents?")
	assert.InDelta(t, 0.2, first.Temperature, 1e-9)
	assert.Equal(t, 4096, first.MaxTokens)

	second := client.calls[1]
	assert.Equal(t, chineseSystemPrompt, second.System)
	assert.Contains(t, second.Prompt, "THE ENGLISH SUMMARY")
}

func TestSummarizer_Run_MapReduceWhenCorpusExceedsBudget(t *testing.T) {
	ts := newSetup(t)
	ts.write(t, "a.md", strings.Repeat("alpha ", 30))
	ts.write(t, "b.md", strings.Repeat("bravo ", 30))

	client := &fakeClient{englishResponse: "part summary", chineseResponse: "中文"}
	s := ts.summarizer(t, client, 40)

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)

	// Two per-document passes, one combining pass, one Chinese pass.
	require.Len(t, client.calls, 4)
	assert.Contains(t, client.calls[0].Prompt, "a.md")
	assert.Contains(t, client.calls[1].Prompt, "b.md")
	assert.Contains(t, client.calls[2].Prompt, "## a.md")
	assert.Contains(t, client.calls[2].Prompt, "## b.md")
	assert.Equal(t, chineseSystemPrompt, client.calls[3].System)
}

func TestSummarizer_Run_MapReduceTruncatesOversizedDocument(t *testing.T) {
	ts := newSetup(t)
	ts.write(t, "big.md", strings.Repeat("word ", 50)+"TAILMARKER")

	client := &fakeClient{englishResponse: "summary", chineseResponse: "中文"}
	s := ts.summarizer(t, client, 30)

	_, err := s.Run(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, client.calls)
	assert.NotContains(t, client.calls[0].Prompt, "TAILMARKER")
}

func TestSummarizer_Run_MapReduceSkipsFailedDocuments(t *testing.T) {
	ts := newSetup(t)
	ts.write(t, "good.md", strings.Repeat("healthy ", 30))
	ts.write(t, "poison.md", strings.Repeat("toxic ", 30))

	client := &fakeClient{
		englishResponse:        "part summary",
		chineseResponse:        "中文",
		failWhenPromptContains: "toxic",
	}
	s := ts.summarizer(t, client, 40)

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)

	english, err := os.ReadFile(ts.englishPath)
	require.NoError(t, err)
	assert.Contains(t, string(english), "- good.md")
	assert.NotContains(t, string(english), "- poison.md")
}

func TestSummarizer_Run_EnglishFailureSkipsChinese(t *testing.T) {
	ts := newSetup(t)
	ts.write(t, "doc.md", "some content")

	client := &fakeClient{failEnglish: true}
	s := ts.summarizer(t, client, 10000)

	report, err := s.Run(context.Background())
	require.Error(t, err)

	assert.Zero(t, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Skipped)
	assert.True(t, report.AllFailed())

	_, statErr := os.Stat(ts.englishPath)
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(ts.chinesePath)
	assert.True(t, os.IsNotExist(statErr))

	// No Chinese call was attempted.
	for _, call := range client.calls {
		assert.NotEqual(t, chineseSystemPrompt, call.System)
	}
}

func TestSummarizer_Run_ChineseFailureKeepsEnglish(t *testing.T) {
	ts := newSetup(t)
	ts.write(t, "doc.md", "some content")

	client := &fakeClient{englishResponse: "english summary", failChinese: true}
	s := ts.summarizer(t, client, 10000)

	report, err := s.Run(context.Background())
	require.Error(t, err)

	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.False(t, report.AllFailed())

	english, readErr := os.ReadFile(ts.englishPath)
	require.NoError(t, readErr)
	assert.Contains(t, string(english), "english summary")

	_, statErr := os.Stat(ts.chinesePath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSummarizer_Run_NoDocumentsIsNoOp(t *testing.T) {
	ts := newSetup(t)
	client := &fakeClient{}
	s := ts.summarizer(t, client, 10000)

	report, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, report.Succeeded)
	assert.Zero(t, report.Failed)
	assert.Empty(t, client.calls)

	_, statErr := os.Stat(ts.englishPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSummarizer_Run_OverwritesPreviousSummaries(t *testing.T) {
	ts := newSetup(t)
	ts.write(t, "doc.md", "fresh content")
	require.NoError(t, os.WriteFile(ts.englishPath, []byte("stale"), 0644))
	require.NoError(t, os.WriteFile(ts.chinesePath, []byte("stale"), 0644))

	client := &fakeClient{englishResponse: "new summary", chineseResponse: "新摘要"}
	s := ts.summarizer(t, client, 10000)

	_, err := s.Run(context.Background())
	require.NoError(t, err)

	english, err := os.ReadFile(ts.englishPath)
	require.NoError(t, err)
	assert.NotContains(t, string(english), "stale")
	assert.Contains(t, string(english), "new summary")
}

func TestSummarizer_Run_SkipsEmptyDocuments(t *testing.T) {
	ts := newSetup(t)
	ts.write(t, "empty.md", "   \n\t\n")
	ts.write(t, "real.md", "actual content")

	client := &fakeClient{englishResponse: "summary", chineseResponse: "摘要"}
	s := ts.summarizer(t, client, 10000)

	_, err := s.Run(context.Background())
	require.NoError(t, err)

	english, err := os.ReadFile(ts.englishPath)
	require.NoError(t, err)
	assert.Contains(t, string(english), "- real.md")
	assert.NotContains(t, string(english), "- empty.md")
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Config{EnglishPath: "a", ChinesePath: "b", Client: &fakeClient{}, Tokens: wordTokens{}})
	assert.Error(t, err)

	_, err = New(Config{MarkdownDir: "dir", Client: &fakeClient{}, Tokens: wordTokens{}})
	assert.Error(t, err)

	_, err = New(Config{MarkdownDir: "dir", EnglishPath: "a", ChinesePath: "b", Tokens: wordTokens{}})
	assert.Error(t, err)
}

func TestRenderEnglish(t *testing.T) {
	got := renderEnglish("body text", []string{"a.md", "b.md"})

	want := "# Comprehensive Summary of Documents\n\n" +
		"## Overview\n" +
		"This document provides a comprehensive summary of the key points, important concepts, and connections between the processed documents.\n\n" +
		"body text\n\n" +
		"## Sources\n\n" +
		"- a.md\n- b.md\n"
	assert.Equal(t, want, got)
}

func TestRenderChinese(t *testing.T) {
	got := renderChinese("正文", []string{"a.md"})

	assert.True(t, strings.HasPrefix(got, "# 文档综合摘要\n\n## 概述\n"))
	assert.Contains(t, got, "正文")
	assert.True(t, strings.HasSuffix(got, "## 来源\n\n- a.md\n"))
}
