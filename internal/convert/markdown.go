package convert

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/docmill-ai/docmill/internal/domain"
)

// maxHeadingWords bounds how many words a line may have and still be
// promoted to a heading.
const maxHeadingWords = 9

// RenderMarkdown builds the markdown document for one converted PDF: a
// title derived from the filename, page texts in reading order, and each
// page's images referenced right after its text.
func RenderMarkdown(doc domain.SourceDocument, pages []domain.PageContent, images []domain.ImageRef) string {
	byPage := make(map[int][]domain.ImageRef)
	for _, ref := range images {
		byPage[ref.Page] = append(byPage[ref.Page], ref)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", doc.Title())

	for _, page := range pages {
		writePageText(&b, page.Text)
		writePageImages(&b, page.Number, byPage[page.Number])
		delete(byPage, page.Number)
	}

	// Images on pages the text extractor did not report still get placed,
	// in page order.
	if len(byPage) > 0 {
		leftover := make([]int, 0, len(byPage))
		for page := range byPage {
			leftover = append(leftover, page)
		}
		sort.Ints(leftover)
		for _, page := range leftover {
			writePageImages(&b, page, byPage[page])
		}
	}

	return b.String()
}

// writePageText emits the page's paragraphs, promoting short standalone
// lines to headings. Plain text extraction loses font information, so a
// line is treated as a heading when it stands alone between blank lines,
// has at most nine words, and does not end like a sentence.
func writePageText(b *strings.Builder, text string) {
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}

	i := 0
	for i < len(lines) {
		if lines[i] == "" {
			i++
			continue
		}

		j := i
		for j < len(lines) && lines[j] != "" {
			j++
		}
		block := lines[i:j]

		if len(block) == 1 && isHeadingLine(block[0]) {
			fmt.Fprintf(b, "## %s\n\n", block[0])
		} else {
			b.WriteString(strings.Join(block, "\n"))
			b.WriteString("\n\n")
		}
		i = j
	}
}

func writePageImages(b *strings.Builder, page int, refs []domain.ImageRef) {
	if len(refs) == 0 {
		return
	}
	fmt.Fprintf(b, "### Images (page %d)\n\n", page)
	for _, ref := range refs {
		fmt.Fprintf(b, "%s\n\n", ref.MarkdownRef())
	}
}

// isHeadingLine reports whether a standalone line looks like a title.
func isHeadingLine(line string) bool {
	words := strings.Fields(line)
	if len(words) == 0 || len(words) > maxHeadingWords {
		return false
	}
	if strings.Count(line, ",") > 1 {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(line)
	switch last {
	case '.', '!', '?', ':', ';', ',', '。', '！', '？', '：', '；', '，':
		return false
	}
	return true
}
