package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrdhat-backend/internal/config"
	"hrdhat-backend/internal/domain"
)

func newTestGenerator() *Generator {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	schema := config.NewSchemaProvider(config.DefaultGeneralInfoFields())
	return NewGenerator(schema, WithClock(func() time.Time { return now }))
}

func sampleDraft() domain.Draft {
	stamp := domain.FormatTimestamp(time.Date(2025, 5, 30, 7, 0, 0, 0, time.UTC))
	return domain.Draft{
		ID: "draft_1748588400000_ab12cd34", Title: "North Tower Retrofit",
		CreatedAt: stamp, UpdatedAt: stamp,
		Data: domain.DraftData{
			GeneralInfo: &domain.GeneralInfoData{
				ProjectName:    "North Tower Retrofit",
				SupervisorName: "Dana (day shift)",
			},
		},
	}
}

func TestGenerate(t *testing.T) {
	g := newTestGenerator()

	out, err := g.Generate(sampleDraft(), DefaultOptions())
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-1.")))
	assert.True(t, bytes.HasSuffix(bytes.TrimRight(out, "\n"), []byte("%%EOF")))
	assert.Contains(t, string(out), "North Tower Retrofit")
	assert.Contains(t, string(out), "draft_1748588400000_ab12cd34")
	assert.Contains(t, string(out), "Generated: 2025-06-01T08:00:00.000Z")
}

func TestGenerateOptions(t *testing.T) {
	g := newTestGenerator()

	t.Run("signatures omitted", func(t *testing.T) {
		opts := DefaultOptions()
		opts.IncludeSignatures = false
		out, err := g.Generate(sampleDraft(), opts)
		require.NoError(t, err)
		assert.NotContains(t, string(out), "Signatures")
	})

	t.Run("watermark rendered", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Watermark = "DRAFT"
		out, err := g.Generate(sampleDraft(), opts)
		require.NoError(t, err)
		assert.Contains(t, string(out), "(DRAFT) Tj")
	})

	t.Run("quality out of range", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Quality = 1.5
		_, err := g.Generate(sampleDraft(), opts)
		assert.Error(t, err)
	})
}

func TestGenerateEscapesParens(t *testing.T) {
	g := newTestGenerator()

	out, err := g.Generate(sampleDraft(), DefaultOptions())
	require.NoError(t, err)
	assert.Contains(t, string(out), `Dana \(day shift\)`)
}
