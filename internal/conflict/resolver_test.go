package conflict

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hrdhat-backend/internal/domain"
	apperrors "hrdhat-backend/internal/errors"
	"hrdhat-backend/internal/storage"
)

func newTestResolver(t *testing.T, now time.Time) (*Resolver, *storage.MemoryStore, *apperrors.Aggregator) {
	t.Helper()
	blobs := storage.NewMemoryStore()
	sink := apperrors.NewAggregator(zap.NewNop())
	r := NewResolver(context.Background(), blobs, sink, zap.NewNop(),
		WithClock(func() time.Time { return now }))
	return r, blobs, sink
}

func conflictDraft(id string, ts time.Time) domain.Draft {
	stamp := domain.FormatTimestamp(ts)
	return domain.Draft{ID: id, Title: "Pipe rack inspection", CreatedAt: stamp, UpdatedAt: stamp}
}

func TestCheckVersionFirstWrite(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	r, _, _ := newTestResolver(t, now)
	ctx := context.Background()

	draft := conflictDraft("draft_1", now)
	res := r.CheckVersion(ctx, draft.ID, DraftPayload(draft))

	assert.True(t, res.Resolved)
	require.NotNil(t, res.Draft)
	assert.Equal(t, draft, *res.Draft)
	assert.Equal(t, 1, r.Version(draft.ID))
}

func TestCheckVersionIdenticalWriteIsIdempotent(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	r, _, _ := newTestResolver(t, now)
	ctx := context.Background()

	draft := conflictDraft("draft_1", now)
	r.CheckVersion(ctx, draft.ID, DraftPayload(draft))

	for i := 0; i < 3; i++ {
		res := r.CheckVersion(ctx, draft.ID, DraftPayload(draft))
		assert.True(t, res.Resolved)
	}
	assert.Equal(t, 1, r.Version(draft.ID), "identical writes must not bump the version")
}

func TestCheckVersionDraftMerge(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	r, _, _ := newTestResolver(t, now)
	ctx := context.Background()

	first := conflictDraft("draft_1", now)
	first.Data.GeneralInfo = &domain.GeneralInfoData{
		ProjectName:  "North Tower Retrofit",
		TaskLocation: "Level 3",
	}
	first.Data.Modules = map[string]json.RawMessage{
		"checklist": json.RawMessage(`{"items":[1,2]}`),
		"ppe":       json.RawMessage(`{"hardhat":true}`),
	}
	r.CheckVersion(ctx, first.ID, DraftPayload(first))

	second := conflictDraft("draft_1", now)
	second.Data.GeneralInfo = &domain.GeneralInfoData{
		TaskLocation:   "Level 4 east wing",
		SupervisorName: "Dana Okafor",
	}
	second.Data.Modules = map[string]json.RawMessage{
		"checklist": json.RawMessage(`{"items":[1,2,3]}`),
	}

	res := r.CheckVersion(ctx, second.ID, DraftPayload(second))
	require.True(t, res.Resolved)
	require.NotNil(t, res.Draft)
	merged := *res.Draft

	info := merged.Data.GeneralInfo
	require.NotNil(t, info)
	assert.Equal(t, "North Tower Retrofit", info.ProjectName, "empty incoming falls back to stored")
	assert.Equal(t, "Level 4 east wing", info.TaskLocation, "non-empty incoming wins")
	assert.Equal(t, "Dana Okafor", info.SupervisorName)

	assert.JSONEq(t, `{"items":[1,2,3]}`, string(merged.Data.Modules["checklist"]),
		"module keys are incoming-wins")
	assert.JSONEq(t, `{"hardhat":true}`, string(merged.Data.Modules["ppe"]),
		"stored module keys absent from incoming survive")

	assert.Equal(t, 2, r.Version("draft_1"))
	assert.Equal(t, domain.FormatTimestamp(now), merged.UpdatedAt)
}

func TestCheckVersionMergeMaterializesGeneralInfo(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	r, _, _ := newTestResolver(t, now)
	ctx := context.Background()

	first := conflictDraft("draft_1", now)
	first.Data.Modules = map[string]json.RawMessage{
		"checklist": json.RawMessage(`{"items":[1]}`),
	}
	r.CheckVersion(ctx, first.ID, DraftPayload(first))

	second := conflictDraft("draft_1", now)
	second.Data.Modules = map[string]json.RawMessage{
		"checklist": json.RawMessage(`{"items":[1,2]}`),
	}

	res := r.CheckVersion(ctx, second.ID, DraftPayload(second))
	require.True(t, res.Resolved)
	require.NotNil(t, res.Draft)

	// Merging always produces a generalInfo object, all-empty when
	// neither side carried one.
	info := res.Draft.Data.GeneralInfo
	require.NotNil(t, info)
	for _, name := range domain.GeneralInfoFieldNames() {
		assert.Empty(t, info.Field(name))
	}
}

func TestCheckVersionOpaqueConflictUnresolved(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	r, _, _ := newTestResolver(t, now)
	ctx := context.Background()

	r.CheckVersion(ctx, "settings", OpaquePayload(json.RawMessage(`{"theme":"dark"}`)))
	res := r.CheckVersion(ctx, "settings", OpaquePayload(json.RawMessage(`{"theme":"light"}`)))

	assert.False(t, res.Resolved)
	assert.Equal(t, "Version conflict detected. Manual resolution required.", res.Reason)
	assert.Equal(t, 1, r.Version("settings"), "unresolved conflicts leave the version untouched")
}

func TestVersionsPersistAcrossResolvers(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	r, blobs, _ := newTestResolver(t, now)
	ctx := context.Background()

	draft := conflictDraft("draft_1", now)
	r.CheckVersion(ctx, draft.ID, DraftPayload(draft))

	reloaded := NewResolver(ctx, blobs, apperrors.NewAggregator(zap.NewNop()), zap.NewNop(),
		WithClock(func() time.Time { return now }))
	assert.Equal(t, 1, reloaded.Version(draft.ID))

	res := reloaded.CheckVersion(ctx, draft.ID, DraftPayload(draft))
	assert.True(t, res.Resolved)
	assert.Equal(t, 1, reloaded.Version(draft.ID))
}

func TestCorruptVersionBlobStartsEmpty(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	blobs := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, blobs.Set(ctx, storage.KeyVersions, []byte("{broken")))

	sink := apperrors.NewAggregator(zap.NewNop())
	r := NewResolver(ctx, blobs, sink, zap.NewNop(), WithClock(func() time.Time { return now }))

	assert.Equal(t, 0, r.Version("draft_1"))
	require.Len(t, sink.Active(), 1)
	assert.Equal(t, apperrors.TypeSystem, sink.Active()[0].Type)
}

func TestClearVersions(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	r, _, _ := newTestResolver(t, now)
	ctx := context.Background()

	a := conflictDraft("draft_a", now)
	b := conflictDraft("draft_b", now)
	r.CheckVersion(ctx, a.ID, DraftPayload(a))
	r.CheckVersion(ctx, b.ID, DraftPayload(b))

	r.ClearVersion(ctx, a.ID)
	assert.Equal(t, 0, r.Version(a.ID))
	assert.Equal(t, 1, r.Version(b.ID))

	r.ClearAllVersions(ctx)
	assert.Equal(t, 0, r.Version(b.ID))
}
