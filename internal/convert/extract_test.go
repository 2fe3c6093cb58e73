package convert

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmill-ai/docmill/internal/domain"
)

func writeImage(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("png"), 0o644))
}

func TestCollectImages_MovesIntoSharedDir(t *testing.T) {
	out := t.TempDir()
	tmp, err := os.MkdirTemp(out, ".extract-")
	require.NoError(t, err)

	writeImage(t, tmp, "report_2_Im0.png")
	writeImage(t, tmp, "report_1_Im1.png")
	writeImage(t, tmp, "report_1_Im0.png")

	refs, err := collectImages(tmp, out, "report")
	require.NoError(t, err)

	assert.Equal(t, []domain.ImageRef{
		{File: "report_1_Im0.png", Page: 1},
		{File: "report_1_Im1.png", Page: 1},
		{File: "report_2_Im0.png", Page: 2},
	}, refs, "references sorted by page, then name")

	for _, ref := range refs {
		assert.FileExists(t, filepath.Join(out, ref.File))
	}
}

func TestCollectImages_IgnoresOtherDocumentsInSharedDir(t *testing.T) {
	out := t.TempDir()

	// report_2.pdf was converted earlier; its page-1 image already sits in
	// the shared directory and its name happens to parse as page 2 of a
	// document with the shorter stem.
	writeImage(t, out, "report_2_1_Im0.png")

	tmp, err := os.MkdirTemp(out, ".extract-")
	require.NoError(t, err)
	writeImage(t, tmp, "report_1_Im0.png")

	refs, err := collectImages(tmp, out, "report")
	require.NoError(t, err)

	require.Len(t, refs, 1)
	assert.Equal(t, domain.ImageRef{File: "report_1_Im0.png", Page: 1}, refs[0])
}

func TestCollectImages_SkipsUnrelatedScratchFiles(t *testing.T) {
	out := t.TempDir()
	tmp, err := os.MkdirTemp(out, ".extract-")
	require.NoError(t, err)

	writeImage(t, tmp, "report_1_Im0.png")
	writeImage(t, tmp, "leftover.txt")

	refs, err := collectImages(tmp, out, "report")
	require.NoError(t, err)

	require.Len(t, refs, 1)
	assert.NoFileExists(t, filepath.Join(out, "leftover.txt"))
}

func TestImageForStem(t *testing.T) {
	tests := []struct {
		name     string
		stem     string
		filename string
		wantPage int
		wantOK   bool
	}{
		{"simple", "report", "report_1_Im0.png", 1, true},
		{"multi digit page", "report", "report_12_Im3.jpg", 12, true},
		{"underscored stem", "my_doc", "my_doc_2_Im0.png", 2, true},
		{"other document", "report", "guide_1_Im0.png", 0, false},
		{"longer stem not confused", "report", "report_v2_1_Im0.png", 0, false},
		{"missing resource part", "report", "report_1.png", 0, false},
		{"non numeric page", "report", "report_x_Im0.png", 0, false},
		{"zero page", "report", "report_0_Im0.png", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, ok := imageForStem(tt.stem, tt.filename)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantPage, page)
			}
		})
	}
}
