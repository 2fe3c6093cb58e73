package observability

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) (*Logger, *bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	errPath := filepath.Join(t.TempDir(), "logs", "error.log")
	log := NewLogger(LogConfig{
		Level:        "debug",
		Format:       "json",
		Output:       &buf,
		ServiceName:  "docmill-test",
		ErrorLogPath: errPath,
	})
	return log, &buf, errPath
}

func TestLogger_SilentSuccessWritesNoErrorFile(t *testing.T) {
	log, _, errPath := newTestLogger(t)
	defer log.Close()

	log.Info().Str("stage", "convert").Msg("converted document")
	log.Warn().Msg("input directory is empty")
	log.Debug().Int("chunks", 12).Msg("indexed")

	_, err := os.Stat(errPath)
	assert.True(t, os.IsNotExist(err), "error log must not exist after a clean run")
}

func TestLogger_ErrorCreatesAndAppendsErrorFile(t *testing.T) {
	log, _, errPath := newTestLogger(t)
	defer log.Close()

	log.WithStage("convert").WithDocument("report.pdf").Error().Msg("conversion failed")
	log.Error().Msg("second failure")

	data, err := os.ReadFile(errPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"stage":"convert"`)
	assert.Contains(t, lines[0], `"document":"report.pdf"`)
	assert.Contains(t, lines[0], "conversion failed")
}

func TestLogger_InfoAfterErrorDoesNotGrowErrorFile(t *testing.T) {
	log, _, errPath := newTestLogger(t)
	defer log.Close()

	log.Error().Msg("one failure")
	before, err := os.Stat(errPath)
	require.NoError(t, err)

	log.Info().Msg("back to normal")
	after, err := os.Stat(errPath)
	require.NoError(t, err)
	assert.Equal(t, before.Size(), after.Size())
}

func TestLogger_ConsoleCarriesContextFields(t *testing.T) {
	log, buf, _ := newTestLogger(t)
	defer log.Close()

	log.With().Str("stage", "index").Int("chunks", 7).Logger().Info().Msg("done")

	out := buf.String()
	assert.Contains(t, out, `"stage":"index"`)
	assert.Contains(t, out, `"chunks":7`)
	assert.Contains(t, out, `"service":"docmill-test"`)
}

func TestLogger_CloseIsIdempotent(t *testing.T) {
	log, _, _ := newTestLogger(t)
	log.Error().Msg("open the sink")
	assert.NoError(t, log.Close())
	assert.NoError(t, log.Close())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("unknown"))
}
