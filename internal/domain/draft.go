// Package domain defines the core entities for FLRA draft management:
// drafts, their module payloads, and archived submissions.
package domain

import (
	"encoding/json"
	"time"
)

// ModuleGeneralInfo is the module key under Draft.Data that receives
// field-level conflict merging. All other module keys are opaque.
const ModuleGeneralInfo = "generalInfo"

// TimestampFormat is the wire format for all entity timestamps. It matches
// the millisecond-precision ISO-8601 strings the clients produce, so a
// valid timestamp round-trips through parse and format unchanged.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t in the wire timestamp format (UTC).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// ParseTimestamp parses a wire timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampFormat, s)
}

// SubmissionType records how a draft was submitted.
type SubmissionType string

const (
	SubmissionAsIs      SubmissionType = "as-is"
	SubmissionValidated SubmissionType = "validated"
)

// GeneralInfoData holds the general information module's field values.
// All fields are strings on the wire, including numeric and time-like ones.
type GeneralInfoData struct {
	ProjectName       string `json:"projectName"`
	TaskLocation      string `json:"taskLocation"`
	SupervisorName    string `json:"supervisorName"`
	SupervisorContact string `json:"supervisorContact"`
	TodaysDate        string `json:"todaysDate"`
	CrewMembers       string `json:"crewMembers"`
	TodaysTask        string `json:"todaysTask"`
	StartTime         string `json:"startTime"`
	EndTime           string `json:"endTime"`
}

// GeneralInfoFieldNames lists the general info field names in form order.
func GeneralInfoFieldNames() []string {
	return []string{
		"projectName",
		"taskLocation",
		"supervisorName",
		"supervisorContact",
		"todaysDate",
		"crewMembers",
		"todaysTask",
		"startTime",
		"endTime",
	}
}

// Field returns the value of the named general info field, or "" for an
// unknown name. Field access is by schema name so validation and merging
// can iterate the form schema generically.
func (g *GeneralInfoData) Field(name string) string {
	switch name {
	case "projectName":
		return g.ProjectName
	case "taskLocation":
		return g.TaskLocation
	case "supervisorName":
		return g.SupervisorName
	case "supervisorContact":
		return g.SupervisorContact
	case "todaysDate":
		return g.TodaysDate
	case "crewMembers":
		return g.CrewMembers
	case "todaysTask":
		return g.TodaysTask
	case "startTime":
		return g.StartTime
	case "endTime":
		return g.EndTime
	}
	return ""
}

// SetField sets the named field. Unknown names are ignored.
func (g *GeneralInfoData) SetField(name, value string) {
	switch name {
	case "projectName":
		g.ProjectName = value
	case "taskLocation":
		g.TaskLocation = value
	case "supervisorName":
		g.SupervisorName = value
	case "supervisorContact":
		g.SupervisorContact = value
	case "todaysDate":
		g.TodaysDate = value
	case "crewMembers":
		g.CrewMembers = value
	case "todaysTask":
		g.TodaysTask = value
	case "startTime":
		g.StartTime = value
	case "endTime":
		g.EndTime = value
	}
}

// DraftData maps module names to their payloads. The general info module is
// decoded into a typed struct at the deserialization boundary; every other
// module stays an opaque JSON value so unknown modules survive round-trips.
type DraftData struct {
	GeneralInfo *GeneralInfoData
	Modules     map[string]json.RawMessage
}

// MarshalJSON renders the data object with generalInfo inlined alongside
// the opaque module payloads.
func (d DraftData) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(d.Modules)+1)
	for name, payload := range d.Modules {
		out[name] = payload
	}
	if d.GeneralInfo != nil {
		raw, err := json.Marshal(d.GeneralInfo)
		if err != nil {
			return nil, err
		}
		out[ModuleGeneralInfo] = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits the data object into the typed general info module
// and the opaque remainder.
func (d *DraftData) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.GeneralInfo = nil
	d.Modules = nil
	for name, payload := range raw {
		if name == ModuleGeneralInfo {
			var info GeneralInfoData
			if err := json.Unmarshal(payload, &info); err != nil {
				return err
			}
			d.GeneralInfo = &info
			continue
		}
		if d.Modules == nil {
			d.Modules = make(map[string]json.RawMessage)
		}
		d.Modules[name] = payload
	}
	return nil
}

// Clone returns a deep copy of the data.
func (d DraftData) Clone() DraftData {
	out := DraftData{}
	if d.GeneralInfo != nil {
		info := *d.GeneralInfo
		out.GeneralInfo = &info
	}
	if d.Modules != nil {
		out.Modules = make(map[string]json.RawMessage, len(d.Modules))
		for name, payload := range d.Modules {
			cp := make(json.RawMessage, len(payload))
			copy(cp, payload)
			out.Modules[name] = cp
		}
	}
	return out
}

// Draft is one in-progress, unsubmitted FLRA form. The ID is immutable
// after creation and updatedAt never precedes createdAt.
type Draft struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt string    `json:"createdAt"`
	UpdatedAt string    `json:"updatedAt"`
	Data      DraftData `json:"data"`
}

// Clone returns a deep copy of the draft.
func (d Draft) Clone() Draft {
	out := d
	out.Data = d.Data.Clone()
	return out
}

// ArchivedForm is a submitted draft. It is created only by the submission
// workflow and never mutated afterwards.
type ArchivedForm struct {
	Draft
	SubmittedAt    string         `json:"submittedAt"`
	SubmissionType SubmissionType `json:"submissionType"`
}
