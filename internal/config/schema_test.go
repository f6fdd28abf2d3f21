package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleSchema = `
generalInfo:
  - name: projectName
    label: Project Name
    kind: text
    minLength: 3
    maxLength: 100
  - name: siteContact
    label: Site Contact
    format: phone
`

func writeSchemaFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSchemaFile(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		fields, err := LoadSchemaFile(writeSchemaFile(t, sampleSchema))
		require.NoError(t, err)
		require.Len(t, fields, 2)
		assert.Equal(t, "projectName", fields[0].Name)
		assert.Equal(t, 3, fields[0].MinLength)
		assert.Equal(t, FieldText, fields[1].Kind, "kind defaults to text")
		assert.Equal(t, FormatPhone, fields[1].Format)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSchemaFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("empty schema", func(t *testing.T) {
		_, err := LoadSchemaFile(writeSchemaFile(t, "generalInfo: []\n"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := LoadSchemaFile(writeSchemaFile(t, "generalInfo: ["))
		assert.Error(t, err)
	})
}

func TestDefaultGeneralInfoFields(t *testing.T) {
	fields := DefaultGeneralInfoFields()
	require.Len(t, fields, 9)

	byName := map[string]FieldSpec{}
	for _, f := range fields {
		byName[f.Name] = f
	}
	assert.Equal(t, FieldDate, byName["todaysDate"].Kind)
	assert.Equal(t, FieldTime, byName["startTime"].Kind)
	assert.Equal(t, FieldTime, byName["endTime"].Kind)
	assert.Equal(t, FormatPhone, byName["supervisorContact"].Format)
	assert.Equal(t, FormatNumber, byName["crewMembers"].Format)
	assert.Equal(t, 1, byName["crewMembers"].MinValue)
	assert.Equal(t, 100, byName["crewMembers"].MaxValue)
	assert.Equal(t, 10, byName["todaysTask"].MinLength)
	assert.Equal(t, 500, byName["todaysTask"].MaxLength)
}

func TestSchemaProviderReplace(t *testing.T) {
	p := NewSchemaProvider(DefaultGeneralInfoFields())
	require.Len(t, p.GeneralInfoFields(), 9)

	p.Replace([]FieldSpec{{Name: "projectName", Label: "Project", Kind: FieldText}})
	require.Len(t, p.GeneralInfoFields(), 1)
}

func TestSchemaWatcherReload(t *testing.T) {
	path := writeSchemaFile(t, sampleSchema)
	fields, err := LoadSchemaFile(path)
	require.NoError(t, err)
	provider := NewSchemaProvider(fields)

	watcher, err := NewSchemaWatcher(path, provider, zap.NewNop())
	require.NoError(t, err)
	defer watcher.Stop()

	updated := sampleSchema + `
  - name: permitNumber
    label: Permit Number
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	require.Eventually(t, func() bool {
		return len(provider.GeneralInfoFields()) == 3
	}, 5*time.Second, 50*time.Millisecond)

	t.Run("bad update keeps previous schema", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("generalInfo: ["), 0o644))
		time.Sleep(time.Second)
		assert.Len(t, provider.GeneralInfoFields(), 3)
	})
}
