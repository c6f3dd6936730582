package pdftext

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casefile/internal/core/domain"
)

func TestExtract_RejectsNonPDF(t *testing.T) {
	extractor := New()

	_, err := extractor.Extract(context.Background(), "notes.txt")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestExtract_UnreadableFile(t *testing.T) {
	extractor := New()

	_, err := extractor.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestExtract_CorruptFile(t *testing.T) {
	extractor := New()

	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf at all"), 0600))

	_, err := extractor.Extract(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrParse)
}
