package pdf

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casefile/internal/core/domain"
)

func TestIngest_WholeDocumentRecord(t *testing.T) {
	adapter := New()

	rec, err := adapter.Ingest(context.Background(), "case-1", domain.ExtractedPDF{
		FileName: "invoice_2024-03.pdf",
		Text:     "INVOICE\nDate: 2024-03-15\nAmount due: 1200 EUR",
		Pages:    2,
	})
	require.NoError(t, err)

	assert.Equal(t, "case-1", rec.CaseID)
	assert.Equal(t, domain.SourcePDF, rec.SourceKind)
	assert.Equal(t, "invoice_2024-03.pdf", rec.SourceRef)
	assert.Equal(t, "invoice 2024 03", rec.Title)
	assert.Contains(t, rec.Body, "Amount due")
	assert.Equal(t, 2, rec.RawMetadata["pages"])

	require.NotNil(t, rec.Timestamp)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), rec.Timestamp.UTC())
}

func TestIngest_NoTextExtracted(t *testing.T) {
	adapter := New()

	_, err := adapter.Ingest(context.Background(), "case-1", domain.ExtractedPDF{
		FileName: "scan.pdf",
		Text:     "   \n\t ",
		Pages:    1,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestScanDate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want time.Time
		ok   bool
	}{
		{
			name: "iso date",
			text: "Contract signed on 2023-11-02 by both parties",
			want: time.Date(2023, 11, 2, 0, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "slash date",
			text: "Filed 4/17/2024 with the registry",
			want: time.Date(2024, 4, 17, 0, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "long form",
			text: "Dated March 9, 2022",
			want: time.Date(2022, 3, 9, 0, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "day first long form",
			text: "Signed 12 August 2021 in Dublin",
			want: time.Date(2021, 8, 12, 0, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "invalid candidate skipped",
			text: "Reference 9999-99-99 then real date 2024-01-05",
			want: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "no date",
			text: "No temporal information in this document",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, ok := scanDate(tt.text)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, ts.UTC())
			}
		})
	}
}

func TestTitleFromFileName(t *testing.T) {
	assert.Equal(t, "bank statement q1", titleFromFileName("bank_statement-q1.pdf"))
	assert.Equal(t, "report", titleFromFileName("report"))
	assert.Equal(t, "archive.backup", titleFromFileName("archive.backup.pdf"))
}
