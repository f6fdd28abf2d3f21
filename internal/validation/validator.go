// Package validation implements pure, deterministic validation of drafts
// and general info payloads against the form field schema. It performs no
// storage or network access; its only ambient input is the injected clock.
package validation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"hrdhat-backend/internal/config"
	"hrdhat-backend/internal/domain"
	"hrdhat-backend/internal/storage"
)

// Validation error codes. This is a closed set; callers switch on these.
const (
	CodeRequiredField    = "REQUIRED_FIELD"
	CodeInvalidDate      = "INVALID_DATE"
	CodeInvalidTime      = "INVALID_TIME"
	CodeInvalidLength    = "INVALID_LENGTH"
	CodeInvalidPhone     = "INVALID_PHONE"
	CodeInvalidNumber    = "INVALID_NUMBER"
	CodeInvalidTimeRange = "INVALID_TIME_RANGE"
	CodeInvalidWorkDate  = "INVALID_WORK_DATE"
	CodeInvalidStructure = "INVALID_STRUCTURE"
	CodeParseError       = "PARSE_ERROR"

	// Roll-up codes for stored collection entries.
	CodeInvalidDraft        = "INVALID_DRAFT"
	CodeInvalidArchivedForm = "INVALID_ARCHIVED_FORM"
)

// workDateWindow is the rolling plausibility window for the work date.
const workDateWindow = 30 * 24 * time.Hour

var (
	timePattern  = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-()]{10,}$`)
)

// dateLayouts are the accepted calendar date formats for date fields.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	domain.TimestampFormat,
}

// FieldError describes one validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Result is the outcome of validating a draft or stored blob.
type Result struct {
	IsValid bool         `json:"isValid"`
	Errors  []FieldError `json:"errors"`
}

func resultOf(errs []FieldError) Result {
	return Result{IsValid: len(errs) == 0, Errors: errs}
}

// Validator checks drafts and general info payloads against the current
// form schema.
type Validator struct {
	schema *config.SchemaProvider
	clock  func() time.Time
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock overrides the validator's clock; tests pin it.
func WithClock(clock func() time.Time) Option {
	return func(v *Validator) { v.clock = clock }
}

// NewValidator creates a validator over the given schema.
func NewValidator(schema *config.SchemaProvider, opts ...Option) *Validator {
	v := &Validator{schema: schema, clock: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateDraft fully validates a draft: structure plus, when the general
// info module is present, its field-level rules.
func (v *Validator) ValidateDraft(d domain.Draft) Result {
	errs := v.structureErrors(d)
	if d.Data.GeneralInfo != nil {
		errs = append(errs, v.ValidateGeneralInfo(d.Data.GeneralInfo)...)
	}
	return resultOf(errs)
}

// ValidateDraftStructure checks only the draft envelope: identity, title
// and timestamps. Drafts are allowed to exist and be saved in an
// incomplete state, so the store gates writes on this check alone.
func (v *Validator) ValidateDraftStructure(d domain.Draft) Result {
	return resultOf(v.structureErrors(d))
}

func (v *Validator) structureErrors(d domain.Draft) []FieldError {
	var errs []FieldError
	if d.ID == "" {
		errs = append(errs, FieldError{Field: "id", Message: "Draft ID is required", Code: CodeRequiredField})
	}
	if d.Title == "" {
		errs = append(errs, FieldError{Field: "title", Message: "Draft title is required", Code: CodeRequiredField})
	}
	if !isCanonicalTimestamp(d.CreatedAt) {
		errs = append(errs, FieldError{Field: "createdAt", Message: "Invalid creation timestamp", Code: CodeInvalidDate})
	}
	if !isCanonicalTimestamp(d.UpdatedAt) {
		errs = append(errs, FieldError{Field: "updatedAt", Message: "Invalid update timestamp", Code: CodeInvalidDate})
	}
	return errs
}

// ValidateGeneralInfo applies the schema's field rules. For each field the
// required check runs first and short-circuits the type-specific checks,
// so a blank field yields exactly one error.
func (v *Validator) ValidateGeneralInfo(info *domain.GeneralInfoData) []FieldError {
	if info == nil {
		return []FieldError{{Field: domain.ModuleGeneralInfo, Message: "Invalid general info structure", Code: CodeInvalidStructure}}
	}

	var errs []FieldError
	for _, field := range v.schema.GeneralInfoFields() {
		value := info.Field(field.Name)
		if strings.TrimSpace(value) == "" {
			errs = append(errs, FieldError{
				Field:   field.Name,
				Message: fmt.Sprintf("%s is required", field.Label),
				Code:    CodeRequiredField,
			})
			continue
		}
		if fe := v.checkField(field, value); fe != nil {
			errs = append(errs, *fe)
		}
	}

	errs = append(errs, v.crossFieldErrors(info)...)
	return errs
}

func (v *Validator) checkField(field config.FieldSpec, value string) *FieldError {
	switch field.Kind {
	case config.FieldDate:
		if !isValidDate(value) {
			return &FieldError{
				Field:   field.Name,
				Message: fmt.Sprintf("%s must be a valid date", field.Label),
				Code:    CodeInvalidDate,
			}
		}
	case config.FieldTime:
		if !timePattern.MatchString(value) {
			return &FieldError{
				Field:   field.Name,
				Message: fmt.Sprintf("%s must be a valid time", field.Label),
				Code:    CodeInvalidTime,
			}
		}
	case config.FieldText:
		switch field.Format {
		case config.FormatPhone:
			if !phonePattern.MatchString(value) {
				return &FieldError{
					Field:   field.Name,
					Message: "Invalid phone number format",
					Code:    CodeInvalidPhone,
				}
			}
		case config.FormatNumber:
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || n < field.MinValue || n > field.MaxValue {
				return &FieldError{
					Field:   field.Name,
					Message: fmt.Sprintf("%s must be a number between %d and %d", field.Label, field.MinValue, field.MaxValue),
					Code:    CodeInvalidNumber,
				}
			}
		default:
			min, max := field.MinLength, field.MaxLength
			if min == 0 && max == 0 {
				min, max = 2, 100
			}
			if length := len([]rune(value)); length < min || length > max {
				return &FieldError{
					Field:   field.Name,
					Message: fmt.Sprintf("%s must be between %d and %d characters", field.Label, min, max),
					Code:    CodeInvalidLength,
				}
			}
		}
	}
	return nil
}

// crossFieldErrors checks the start/end time ordering and the work date
// window. The time comparison is a naive same-day check: an overnight
// shift where the end time is numerically earlier than the start is
// reported as invalid.
func (v *Validator) crossFieldErrors(info *domain.GeneralInfoData) []FieldError {
	var errs []FieldError

	if info.StartTime != "" && info.EndTime != "" &&
		timePattern.MatchString(info.StartTime) && timePattern.MatchString(info.EndTime) {
		if minutesOfDay(info.EndTime) <= minutesOfDay(info.StartTime) {
			errs = append(errs, FieldError{
				Field:   "endTime",
				Message: "End time must be after start time",
				Code:    CodeInvalidTimeRange,
			})
		}
	}

	if info.TodaysDate != "" {
		if date, ok := parseDate(info.TodaysDate); ok {
			now := v.clock()
			if date.Before(now.Add(-workDateWindow)) || date.After(now.Add(workDateWindow)) {
				errs = append(errs, FieldError{
					Field:   "todaysDate",
					Message: "Date must be within valid work range (not too far in past or future)",
					Code:    CodeInvalidWorkDate,
				})
			}
		}
	}

	return errs
}

// ValidateStoredBlob checks a raw persisted blob for one of the known
// storage keys, for corruption recovery. Collection entries are checked
// structurally only, since incomplete drafts are legal at rest.
func (v *Validator) ValidateStoredBlob(key string, raw []byte) Result {
	switch key {
	case storage.KeyDrafts:
		var drafts map[string]domain.Draft
		if err := json.Unmarshal(raw, &drafts); err != nil {
			return resultOf([]FieldError{{Field: key, Message: "Corrupted storage data", Code: CodeParseError}})
		}
		var errs []FieldError
		for id, draft := range drafts {
			if res := v.ValidateDraftStructure(draft); !res.IsValid {
				errs = append(errs, FieldError{
					Field:   "draft." + id,
					Message: "Invalid draft: " + joinMessages(res.Errors),
					Code:    CodeInvalidDraft,
				})
			}
		}
		return resultOf(errs)

	case storage.KeyArchive:
		var forms map[string]domain.ArchivedForm
		if err := json.Unmarshal(raw, &forms); err != nil {
			return resultOf([]FieldError{{Field: key, Message: "Corrupted storage data", Code: CodeParseError}})
		}
		var errs []FieldError
		for id, form := range forms {
			if res := v.ValidateDraftStructure(form.Draft); !res.IsValid {
				errs = append(errs, FieldError{
					Field:   "archive." + id,
					Message: "Invalid archived form: " + joinMessages(res.Errors),
					Code:    CodeInvalidArchivedForm,
				})
			}
		}
		return resultOf(errs)

	default:
		if !json.Valid(raw) {
			return resultOf([]FieldError{{Field: key, Message: "Corrupted storage data", Code: CodeParseError}})
		}
		return resultOf(nil)
	}
}

func joinMessages(errs []FieldError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Message
	}
	return strings.Join(parts, ", ")
}

// isCanonicalTimestamp reports whether s is a wire timestamp that
// round-trips through parse and format unchanged.
func isCanonicalTimestamp(s string) bool {
	if s == "" {
		return false
	}
	t, err := domain.ParseTimestamp(s)
	if err != nil {
		return false
	}
	return domain.FormatTimestamp(t) == s
}

func isValidDate(s string) bool {
	_, ok := parseDate(s)
	return ok
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// minutesOfDay converts a validated HH:MM string to minutes since
// midnight.
func minutesOfDay(hhmm string) int {
	parts := strings.SplitN(hhmm, ":", 2)
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	return h*60 + m
}
