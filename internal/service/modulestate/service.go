// Package modulestate derives per-module UI state from draft content.
// The derived state is transient: it is recomputed from field values on
// every change and never stored, so it can never drift from the data.
package modulestate

import (
	"encoding/json"
	"sort"

	"hrdhat-backend/internal/domain"
	"hrdhat-backend/internal/validation"
)

// State is the derived status of one module within a draft.
type State struct {
	ModuleName       string                  `json:"moduleName"`
	IsValid          bool                    `json:"isValid"`
	IsDirty          bool                    `json:"isDirty"`
	ValidationErrors []validation.FieldError `json:"validationErrors"`
	LastSyncedAt     string                  `json:"lastSyncedAt,omitempty"`
}

// Service recomputes module state from draft content.
type Service struct {
	validator *validation.Validator
}

// NewService creates a module state service.
func NewService(validator *validation.Validator) *Service {
	return &Service{validator: validator}
}

// ForDraft derives the state of every module present in the draft. The
// general info module is validated field by field; other modules carry
// opaque data and are dirty whenever non-empty.
func (s *Service) ForDraft(d domain.Draft) []State {
	var states []State

	if d.Data.GeneralInfo != nil {
		info := d.Data.GeneralInfo
		errs := s.validator.ValidateGeneralInfo(info)
		states = append(states, State{
			ModuleName:       domain.ModuleGeneralInfo,
			IsValid:          len(errs) == 0,
			IsDirty:          generalInfoDirty(info),
			ValidationErrors: errs,
			LastSyncedAt:     d.UpdatedAt,
		})
	}

	for _, name := range sortedModuleNames(d.Data.Modules) {
		raw := d.Data.Modules[name]
		states = append(states, State{
			ModuleName:   name,
			IsValid:      true,
			IsDirty:      len(raw) > 0 && string(raw) != "null" && string(raw) != "{}",
			LastSyncedAt: d.UpdatedAt,
		})
	}
	return states
}

func generalInfoDirty(info *domain.GeneralInfoData) bool {
	for _, name := range domain.GeneralInfoFieldNames() {
		if info.Field(name) != "" {
			return true
		}
	}
	return false
}

func sortedModuleNames(modules map[string]json.RawMessage) []string {
	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
