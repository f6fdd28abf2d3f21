package config

import (
	"fmt"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// FieldKind distinguishes how a form field's value is checked.
type FieldKind string

const (
	FieldText FieldKind = "text"
	FieldDate FieldKind = "date"
	FieldTime FieldKind = "time"
)

// FieldFormat selects an extra format rule applied to text fields.
type FieldFormat string

const (
	FormatNone   FieldFormat = ""
	FormatPhone  FieldFormat = "phone"
	FormatNumber FieldFormat = "number"
)

// FieldSpec describes one general info form field. The validation service
// and the HTTP layer iterate the schema generically, so field changes are
// configuration changes, not code changes.
type FieldSpec struct {
	Name      string      `yaml:"name"`
	Label     string      `yaml:"label"`
	Kind      FieldKind   `yaml:"kind"`
	Format    FieldFormat `yaml:"format,omitempty"`
	MinLength int         `yaml:"minLength,omitempty"`
	MaxLength int         `yaml:"maxLength,omitempty"`
	MinValue  int         `yaml:"minValue,omitempty"`
	MaxValue  int         `yaml:"maxValue,omitempty"`
}

// DefaultGeneralInfoFields is the built-in general info schema, used when
// no schema file is configured.
func DefaultGeneralInfoFields() []FieldSpec {
	return []FieldSpec{
		{Name: "projectName", Label: "Project Name", Kind: FieldText, MinLength: 3, MaxLength: 100},
		{Name: "taskLocation", Label: "Task Location", Kind: FieldText, MinLength: 2, MaxLength: 100},
		{Name: "supervisorName", Label: "Supervisor's Name", Kind: FieldText, MinLength: 2, MaxLength: 100},
		{Name: "supervisorContact", Label: "Supervisor's Contact #", Kind: FieldText, Format: FormatPhone},
		{Name: "todaysDate", Label: "Today's Date", Kind: FieldDate},
		{Name: "crewMembers", Label: "# of Crew Members", Kind: FieldText, Format: FormatNumber, MinValue: 1, MaxValue: 100},
		{Name: "todaysTask", Label: "Today's Task", Kind: FieldText, MinLength: 10, MaxLength: 500},
		{Name: "startTime", Label: "Start Time", Kind: FieldTime},
		{Name: "endTime", Label: "End Time", Kind: FieldTime},
	}
}

// LoadSchemaFile reads a field schema from a YAML file.
func LoadSchemaFile(path string) ([]FieldSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	var doc struct {
		GeneralInfo []FieldSpec `yaml:"generalInfo"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse schema file: %w", err)
	}
	if len(doc.GeneralInfo) == 0 {
		return nil, fmt.Errorf("schema file %s defines no generalInfo fields", path)
	}
	for i := range doc.GeneralInfo {
		if doc.GeneralInfo[i].Kind == "" {
			doc.GeneralInfo[i].Kind = FieldText
		}
	}
	return doc.GeneralInfo, nil
}

// SchemaProvider hands out the current field schema and supports atomic
// replacement on reload.
type SchemaProvider struct {
	fields atomic.Value // []FieldSpec
}

// NewSchemaProvider creates a provider seeded with the given fields.
func NewSchemaProvider(fields []FieldSpec) *SchemaProvider {
	p := &SchemaProvider{}
	p.fields.Store(fields)
	return p
}

// GeneralInfoFields returns the current schema snapshot.
func (p *SchemaProvider) GeneralInfoFields() []FieldSpec {
	return p.fields.Load().([]FieldSpec)
}

// Replace swaps in a new schema.
func (p *SchemaProvider) Replace(fields []FieldSpec) {
	p.fields.Store(fields)
}
