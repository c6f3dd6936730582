package pdf

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/custodia-labs/casefile/internal/core/domain"
)

// datePatterns pair a detection regex with the layout used to parse
// the match. Tried in order against the document text; the first
// parseable hit becomes the record timestamp.
var datePatterns = []struct {
	re     *regexp.Regexp
	layout string
}{
	{regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`), "2006-01-02"},
	{regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`), "1/2/2006"},
	{regexp.MustCompile(`\b(?:January|February|March|April|May|June|July|August|September|October|November|December) \d{1,2}, \d{4}\b`), "January 2, 2006"},
	{regexp.MustCompile(`\b\d{1,2} (?:January|February|March|April|May|June|July|August|September|October|November|December) \d{4}\b`), "2 January 2006"},
}

// dateScanLimit bounds how much of the document the heuristic scans.
// Invoice dates sit near the top; scanning megabytes buys nothing.
const dateScanLimit = 4096

// Adapter turns extracted PDF text into a single whole-document
// evidence record. Byte-level extraction happens outside, in the
// Extractor collaborator.
type Adapter struct{}

// New creates a PDF adapter.
func New() *Adapter {
	return &Adapter{}
}

// Ingest produces exactly one record per document with the filename
// as the source reference. Returns domain.ErrUnsupportedFormat when
// extraction yielded no text.
func (a *Adapter) Ingest(_ context.Context, caseID string, doc domain.ExtractedPDF) (*domain.EvidenceRecord, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, fmt.Errorf("%w: no text extracted from %s", domain.ErrUnsupportedFormat, doc.FileName)
	}

	rec := &domain.EvidenceRecord{
		CaseID:     caseID,
		SourceKind: domain.SourcePDF,
		SourceRef:  doc.FileName,
		Title:      titleFromFileName(doc.FileName),
		Body:       doc.Text,
		RawMetadata: map[string]any{
			"file_name": doc.FileName,
			"pages":     doc.Pages,
		},
	}

	if ts, ok := scanDate(doc.Text); ok {
		rec.Timestamp = &ts
	}

	return rec, nil
}

// scanDate looks for the first ISO-like or common date pattern near
// the top of the text.
func scanDate(text string) (time.Time, bool) {
	if len(text) > dateScanLimit {
		text = text[:dateScanLimit]
	}
	for _, p := range datePatterns {
		for _, match := range p.re.FindAllString(text, 5) {
			if ts, err := time.Parse(p.layout, match); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}

// titleFromFileName derives a human label from the document name.
func titleFromFileName(name string) string {
	title := name
	if i := strings.LastIndexByte(title, '.'); i > 0 {
		title = title[:i]
	}
	title = strings.ReplaceAll(title, "_", " ")
	title = strings.ReplaceAll(title, "-", " ")
	return strings.TrimSpace(title)
}
