package modulestate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrdhat-backend/internal/config"
	"hrdhat-backend/internal/domain"
	"hrdhat-backend/internal/validation"
)

func newTestService() *Service {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	schema := config.NewSchemaProvider(config.DefaultGeneralInfoFields())
	validator := validation.NewValidator(schema, validation.WithClock(func() time.Time { return now }))
	return NewService(validator)
}

func TestForDraftGeneralInfo(t *testing.T) {
	svc := newTestService()
	stamp := domain.FormatTimestamp(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))

	t.Run("untouched module is clean and invalid", func(t *testing.T) {
		d := domain.Draft{
			ID: "draft_1", Title: "t", CreatedAt: stamp, UpdatedAt: stamp,
			Data: domain.DraftData{GeneralInfo: &domain.GeneralInfoData{}},
		}
		states := svc.ForDraft(d)
		require.Len(t, states, 1)
		assert.Equal(t, domain.ModuleGeneralInfo, states[0].ModuleName)
		assert.False(t, states[0].IsDirty)
		assert.False(t, states[0].IsValid)
		assert.NotEmpty(t, states[0].ValidationErrors)
		assert.Equal(t, stamp, states[0].LastSyncedAt)
	})

	t.Run("partial entry is dirty", func(t *testing.T) {
		d := domain.Draft{
			ID: "draft_1", Title: "t", CreatedAt: stamp, UpdatedAt: stamp,
			Data: domain.DraftData{GeneralInfo: &domain.GeneralInfoData{ProjectName: "North Tower"}},
		}
		states := svc.ForDraft(d)
		require.Len(t, states, 1)
		assert.True(t, states[0].IsDirty)
		assert.False(t, states[0].IsValid)
	})

	t.Run("state is recomputed, never carried over", func(t *testing.T) {
		d := domain.Draft{
			ID: "draft_1", Title: "t", CreatedAt: stamp, UpdatedAt: stamp,
			Data: domain.DraftData{GeneralInfo: &domain.GeneralInfoData{ProjectName: "North Tower"}},
		}
		before := svc.ForDraft(d)
		d.Data.GeneralInfo.ProjectName = ""
		after := svc.ForDraft(d)
		assert.True(t, before[0].IsDirty)
		assert.False(t, after[0].IsDirty)
	})
}

func TestForDraftOpaqueModules(t *testing.T) {
	svc := newTestService()
	stamp := domain.FormatTimestamp(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))

	d := domain.Draft{
		ID: "draft_1", Title: "t", CreatedAt: stamp, UpdatedAt: stamp,
		Data: domain.DraftData{
			Modules: map[string]json.RawMessage{
				"checklist":  json.RawMessage(`{"items":[{"id":1,"checked":true}]}`),
				"ppe":        json.RawMessage(`{}`),
				"signatures": json.RawMessage(`null`),
			},
		},
	}

	states := svc.ForDraft(d)
	require.Len(t, states, 3)

	byName := map[string]State{}
	for _, st := range states {
		byName[st.ModuleName] = st
	}
	assert.True(t, byName["checklist"].IsDirty)
	assert.False(t, byName["ppe"].IsDirty)
	assert.False(t, byName["signatures"].IsDirty)
}
