package archive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hrdhat-backend/internal/domain"
	apperrors "hrdhat-backend/internal/errors"
	"hrdhat-backend/internal/storage"
)

func newTestService(now time.Time) (*Service, *storage.MemoryStore, *apperrors.Aggregator) {
	blobs := storage.NewMemoryStore()
	sink := apperrors.NewAggregator(zap.NewNop())
	svc := NewService(blobs, sink, zap.NewNop(),
		WithClock(func() time.Time { return now }))
	return svc, blobs, sink
}

func sampleDraft(id string, ts time.Time) domain.Draft {
	stamp := domain.FormatTimestamp(ts)
	return domain.Draft{ID: id, Title: "Crane lift plan", CreatedAt: stamp, UpdatedAt: stamp}
}

func TestArchiveForm(t *testing.T) {
	now := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	svc, _, _ := newTestService(now)
	ctx := context.Background()

	draft := sampleDraft("draft_1", now.Add(-time.Hour))
	form, err := svc.ArchiveForm(ctx, draft, domain.SubmissionValidated)
	require.NoError(t, err)

	assert.Equal(t, draft.ID, form.ID)
	assert.Equal(t, domain.FormatTimestamp(now), form.SubmittedAt)
	assert.Equal(t, domain.SubmissionValidated, form.SubmissionType)
	assert.Equal(t, draft.UpdatedAt, form.UpdatedAt, "archiving snapshots the draft as-is")

	stored, err := svc.GetForm(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, form, stored)
}

func TestArchiveFormStorageFailure(t *testing.T) {
	now := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	svc, blobs, sink := newTestService(now)
	blobs.SetError("Set", assert.AnError)

	_, err := svc.ArchiveForm(context.Background(), sampleDraft("draft_1", now), domain.SubmissionAsIs)
	require.Error(t, err)
	assert.True(t, apperrors.IsSystem(err))
	require.Len(t, sink.Active(), 1)
}

func TestGetArchiveOrdering(t *testing.T) {
	base := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	svc, _, _ := newTestService(base)
	ctx := context.Background()

	for i, tc := range []struct {
		id string
		at time.Time
	}{
		{"draft_100_aaaa", base.Add(-2 * time.Hour)},
		{"draft_200_bbbb", base},
		{"draft_300_cccc", base.Add(-time.Hour)},
	} {
		svc.clock = func() time.Time { return tc.at }
		_, err := svc.ArchiveForm(ctx, sampleDraft(tc.id, tc.at), domain.SubmissionAsIs)
		require.NoError(t, err, "case %d", i)
	}

	out := svc.GetArchive(ctx)
	require.Len(t, out, 3)
	assert.Equal(t, "draft_200_bbbb", out[0].ID)
	assert.Equal(t, "draft_300_cccc", out[1].ID)
	assert.Equal(t, "draft_100_aaaa", out[2].ID)
}

func TestDeleteFromArchive(t *testing.T) {
	now := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	svc, _, sink := newTestService(now)
	ctx := context.Background()

	_, err := svc.ArchiveForm(ctx, sampleDraft("draft_1", now), domain.SubmissionAsIs)
	require.NoError(t, err)

	svc.DeleteFromArchive(ctx, "draft_1")
	_, err = svc.GetForm(ctx, "draft_1")
	assert.True(t, apperrors.IsNotFound(err))

	svc.DeleteFromArchive(ctx, "draft_1")
	assert.Empty(t, sink.Active())
}

func TestArchiveCorruptionResets(t *testing.T) {
	now := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	svc, blobs, sink := newTestService(now)
	ctx := context.Background()

	require.NoError(t, blobs.Set(ctx, storage.KeyArchive, []byte("not json")))

	assert.Empty(t, svc.GetArchive(ctx))
	require.Len(t, sink.Active(), 1)
	assert.Equal(t, apperrors.TypeSystem, sink.Active()[0].Type)

	raw, ok, err := blobs.Get(ctx, storage.KeyArchive)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, "{}", string(raw))
}
