package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hrdhat-backend/internal/config"
	"hrdhat-backend/internal/domain"
	apperrors "hrdhat-backend/internal/errors"
	"hrdhat-backend/internal/storage"
	"hrdhat-backend/internal/validation"
)

func newTestStore(t *testing.T, now time.Time) (*DraftStore, *storage.MemoryStore, *apperrors.Aggregator) {
	t.Helper()
	blobs := storage.NewMemoryStore()
	schema := config.NewSchemaProvider(config.DefaultGeneralInfoFields())
	validator := validation.NewValidator(schema)
	sink := apperrors.NewAggregator(zap.NewNop())
	s := NewDraftStore(blobs, validator, sink, zap.NewNop(),
		WithClock(func() time.Time { return now }))
	return s, blobs, sink
}

func testDraft(id string, ts time.Time) domain.Draft {
	stamp := domain.FormatTimestamp(ts)
	return domain.Draft{
		ID:        id,
		Title:     "Site walkdown",
		CreatedAt: stamp,
		UpdatedAt: stamp,
	}
}

func TestCreateNewDraft(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	s, _, _ := newTestStore(t, now)
	ctx := context.Background()

	t.Run("allocates ID and timestamps", func(t *testing.T) {
		draft, err := s.CreateNewDraft(ctx, "Morning FLRA")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(draft.ID, "draft_1748764800000_"), "ID should embed creation millis, got %s", draft.ID)
		assert.Equal(t, "Morning FLRA", draft.Title)
		assert.Equal(t, draft.CreatedAt, draft.UpdatedAt)

		loaded, err := s.LoadDraft(ctx, draft.ID)
		require.NoError(t, err)
		assert.Equal(t, draft, loaded)
	})

	t.Run("blank title gets default", func(t *testing.T) {
		draft, err := s.CreateNewDraft(ctx, "  ")
		require.NoError(t, err)
		assert.Equal(t, DefaultTitle, draft.Title)
	})

	t.Run("IDs are unique at the same instant", func(t *testing.T) {
		a, err := s.CreateNewDraft(ctx, "first")
		require.NoError(t, err)
		b, err := s.CreateNewDraft(ctx, "second")
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})
}

func TestSaveDraft(t *testing.T) {
	created := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	saved := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("rewrites updatedAt to server time", func(t *testing.T) {
		s, _, _ := newTestStore(t, saved)
		draft := testDraft("draft_1", created)

		out, err := s.SaveDraft(ctx, draft.ID, draft)
		require.NoError(t, err)
		assert.Equal(t, domain.FormatTimestamp(saved), out.UpdatedAt)
		assert.Equal(t, draft.CreatedAt, out.CreatedAt)

		loaded, err := s.LoadDraft(ctx, draft.ID)
		require.NoError(t, err)
		assert.Equal(t, out, loaded)
	})

	t.Run("rejects structurally invalid draft", func(t *testing.T) {
		s, _, sink := newTestStore(t, saved)
		draft := testDraft("", created)

		_, err := s.SaveDraft(ctx, draft.ID, draft)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
		require.Len(t, sink.Active(), 1)
		assert.Equal(t, apperrors.TypeValidation, sink.Active()[0].Type)
	})

	t.Run("raises on storage failure", func(t *testing.T) {
		s, blobs, sink := newTestStore(t, saved)
		blobs.SetError("Set", errors.New("disk full"))

		_, err := s.SaveDraft(ctx, "draft_1", testDraft("draft_1", created))
		require.Error(t, err)
		assert.True(t, apperrors.IsSystem(err))
		require.Len(t, sink.Active(), 1)
	})
}

func TestGetAllDraftsCorruption(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	s, blobs, sink := newTestStore(t, now)
	ctx := context.Background()

	resets := 0
	WithResetHook(func() { resets++ })(s)

	require.NoError(t, blobs.Set(ctx, storage.KeyDrafts, []byte("{not json")))

	drafts := s.GetAllDrafts(ctx)
	assert.Empty(t, drafts)

	entries := sink.Active()
	require.Len(t, entries, 1)
	assert.Equal(t, apperrors.TypeSystem, entries[0].Type)
	assert.Equal(t, apperrors.SeverityHigh, entries[0].Severity)

	raw, ok, err := blobs.Get(ctx, storage.KeyDrafts)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, "{}", string(raw))

	// Subsequent reads see the reset storage, not a second corruption.
	s.GetAllDrafts(ctx)
	assert.Len(t, sink.Active(), 1)
	assert.Equal(t, 1, resets)
}

func TestListDraftsOrdering(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	s, blobs, _ := newTestStore(t, now)
	ctx := context.Background()

	older := testDraft("draft_100_aaaa", now.Add(-time.Hour))
	newer := testDraft("draft_200_bbbb", now)
	tieA := testDraft("draft_300_cccc", now.Add(-30*time.Minute))
	tieB := testDraft("draft_301_dddd", now.Add(-30*time.Minute))

	drafts := map[string]domain.Draft{
		older.ID: older, newer.ID: newer, tieA.ID: tieA, tieB.ID: tieB,
	}
	raw, err := json.Marshal(drafts)
	require.NoError(t, err)
	require.NoError(t, blobs.Set(ctx, storage.KeyDrafts, raw))

	out := s.ListDrafts(ctx)
	require.Len(t, out, 4)
	assert.Equal(t, newer.ID, out[0].ID)
	assert.Equal(t, tieB.ID, out[1].ID, "timestamp ties break on ID descending")
	assert.Equal(t, tieA.ID, out[2].ID)
	assert.Equal(t, older.ID, out[3].ID)
}

func TestLoadDraft(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("missing draft", func(t *testing.T) {
		s, _, _ := newTestStore(t, now)
		_, err := s.LoadDraft(ctx, "draft_nope")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("invalid stored draft is not found", func(t *testing.T) {
		s, blobs, sink := newTestStore(t, now)
		bad := testDraft("draft_1", now)
		bad.UpdatedAt = "yesterday"
		raw, err := json.Marshal(map[string]domain.Draft{bad.ID: bad})
		require.NoError(t, err)
		require.NoError(t, blobs.Set(ctx, storage.KeyDrafts, raw))

		_, err = s.LoadDraft(ctx, bad.ID)
		assert.True(t, apperrors.IsNotFound(err))
		require.Len(t, sink.Active(), 1)
		assert.Equal(t, apperrors.TypeValidation, sink.Active()[0].Type)
	})
}

func TestDeleteDraft(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	s, _, sink := newTestStore(t, now)
	ctx := context.Background()

	draft, err := s.CreateNewDraft(ctx, "doomed")
	require.NoError(t, err)

	s.DeleteDraft(ctx, draft.ID)
	_, err = s.LoadDraft(ctx, draft.ID)
	assert.True(t, apperrors.IsNotFound(err))

	// Deleting again is a no-op, not an error.
	s.DeleteDraft(ctx, draft.ID)
	assert.Empty(t, sink.Active())
}

func TestClearAll(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	s, blobs, sink := newTestStore(t, now)
	ctx := context.Background()

	_, err := s.CreateNewDraft(ctx, "one")
	require.NoError(t, err)
	sink.Record(errors.New("stale"), apperrors.Context{
		Type: apperrors.TypeNetwork, Severity: apperrors.SeverityMedium, Operation: "sync",
	})

	s.ClearAll(ctx)

	assert.Empty(t, s.GetAllDrafts(ctx))
	assert.Empty(t, sink.Active())

	_, ok, err := blobs.Get(ctx, storage.KeyDrafts)
	require.NoError(t, err)
	assert.False(t, ok)
}
