package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casefile/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/casefile/internal/core/domain"
)

func TestRecordsService(t *testing.T) {
	store := memory.NewEvidenceStore()
	svc := NewRecordsService(store)
	ctx := context.Background()
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	id := seedEvidence(t, store, "case-1", "ref-1", &ts)

	t.Run("search", func(t *testing.T) {
		records, err := svc.Search(ctx, "case-1", domain.SearchFilter{Query: "body of ref-1"})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, id, records[0].ID)
	})

	t.Run("source lookup", func(t *testing.T) {
		record, err := svc.SourceLookup(ctx, "case-1", domain.SourceChat, "ref-1")
		require.NoError(t, err)
		assert.Equal(t, id, record.ID)

		_, err = svc.SourceLookup(ctx, "case-1", domain.SourceKind("fax"), "ref-1")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		_, err = svc.SourceLookup(ctx, "case-1", domain.SourceEmail, "ref-1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("get and delete", func(t *testing.T) {
		record, err := svc.Get(ctx, "case-1", id)
		require.NoError(t, err)
		assert.Equal(t, "ref-1", record.SourceRef)

		require.NoError(t, svc.Delete(ctx, "case-1", id))
		_, err = svc.Get(ctx, "case-1", id)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
