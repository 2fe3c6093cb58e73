package summarize

import (
	"fmt"
	"strings"
)

// analysisQuestions are the axes the combined summary is asked to cover.
var analysisQuestions = []string{
	"What are the main topics covered in the documents?",
	"What are the key concepts and important ideas?",
	"What significant findings or conclusions are presented?",
	"What connections exist between the documents?",
	"What practical applications or implications follow from them?",
}

const englishSystemPrompt = "You are an AI assistant tasked with creating comprehensive summaries of documents."

const chineseSystemPrompt = "You are an AI assistant tasked with creating comprehensive summaries of documents in Chinese."

// summaryPrompt asks for the cross-document synthesis.
func summaryPrompt(corpus string) string {
	var b strings.Builder
	b.WriteString(`Based on the following information extracted from multiple documents, create a detailed summary that includes:
1. Key points from each document
2. Important concepts and ideas
3. Connections and relationships between the documents
4. Any significant findings or conclusions

Address these questions in your analysis:
`)
	for _, q := range analysisQuestions {
		fmt.Fprintf(&b, "- %s\n", q)
	}
	b.WriteString("\nInformation:\n")
	b.WriteString(corpus)
	b.WriteString("\n\nPlease format your response as a well-structured markdown document with appropriate headings, subheadings, and bullet points.")
	return b.String()
}

// documentPrompt asks for a summary of a single document, used by the
// map-reduce path when the corpus does not fit a single pass.
func documentPrompt(name, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Create a detailed summary of the following document (%s) that captures:
1. Its key points
2. Important concepts and ideas
3. Any significant findings or conclusions

Document:
`, name)
	b.WriteString(text)
	b.WriteString("\n\nPlease format your response as well-structured markdown with bullet points.")
	return b.String()
}

// chinesePrompt asks for the Simplified Chinese rendition of the English
// summary.
func chinesePrompt(englishSummary string) string {
	var b strings.Builder
	b.WriteString(`Based on the following English summary, create a detailed summary in Chinese (Simplified Chinese) that includes:
1. Key points from each document (每份文档的要点)
2. Important concepts and ideas (重要概念和想法)
3. Connections and relationships between the documents (文档之间的联系和关系)
4. Any significant findings or conclusions (重要发现或结论)

Information:
`)
	b.WriteString(englishSummary)
	b.WriteString("\n\nPlease format your response as a well-structured markdown document with appropriate headings, subheadings, and bullet points in Chinese.")
	return b.String()
}
