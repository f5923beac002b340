package types

import (
	"encoding/json"
	"fmt"
)

// Fixed column names of a task record
const (
	ColumnID                    = "id"
	ColumnDueDate               = "due_date"
	ColumnUserFullName          = "user_full_name"
	ColumnCrmTaskStatusID       = "crm_task_status_id"
	ColumnConvertTo             = "convert_to"
	ColumnEngagementType        = "engagement_type"
	ColumnAdditionalFields      = "additional_fields"
	ColumnMerged                = "merged"
	ColumnDueDateParsed         = "due_date_parsed"
	ColumnConvertToNumeric      = "convert_to_numeric"
	ColumnEngagementTypeNumeric = "engagement_type_numeric"
	ColumnStatusLabel           = "crm_task_status_label"
	ColumnConvertToLabel        = "convert_to_label"
)

// FixedColumns lists the columns every normalized record has, in table order
var FixedColumns = []string{
	ColumnID,
	ColumnDueDate,
	ColumnUserFullName,
	ColumnCrmTaskStatusID,
	ColumnConvertTo,
	ColumnEngagementType,
	ColumnMerged,
	ColumnDueDateParsed,
	ColumnConvertToNumeric,
	ColumnEngagementTypeNumeric,
	ColumnStatusLabel,
	ColumnConvertToLabel,
}

// DerivedColumns are computed during normalization. A raw top-level field of
// the same name is not passed through.
var DerivedColumns = []string{
	ColumnMerged,
	ColumnDueDateParsed,
	ColumnConvertToNumeric,
	ColumnEngagementTypeNumeric,
	ColumnStatusLabel,
	ColumnConvertToLabel,
}

// IsDerivedColumn reports whether name is one of DerivedColumns
func IsDerivedColumn(name string) bool {
	for _, col := range DerivedColumns {
		if col == name {
			return true
		}
	}
	return false
}

// AdditionalField is one dynamically named name/value pair attached to a task
type AdditionalField struct {
	Name  string `json:"name"`
	Value Text   `json:"value"`
}

// RawTaskRecord is one task as returned by the CRM task listing
type RawTaskRecord struct {
	ID               Text
	DueDate          Text
	UserFullName     Text
	CrmTaskStatusID  Text
	ConvertTo        Text
	EngagementType   Text
	AdditionalFields []AdditionalField

	// Other holds every other top-level field, passed through untouched
	Other map[string]json.RawMessage
}

// UnmarshalJSON implements json.Unmarshaler. Only a non-object record is an
// error; a malformed additional_fields list decodes as far as it can.
func (r *RawTaskRecord) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("task record is not an object: %w", err)
	}
	if obj == nil {
		return fmt.Errorf("task record is null")
	}

	*r = RawTaskRecord{}
	scalars := map[string]*Text{
		ColumnID:              &r.ID,
		ColumnDueDate:         &r.DueDate,
		ColumnUserFullName:    &r.UserFullName,
		ColumnCrmTaskStatusID: &r.CrmTaskStatusID,
		ColumnConvertTo:       &r.ConvertTo,
		ColumnEngagementType:  &r.EngagementType,
	}

	for key, raw := range obj {
		if dst, ok := scalars[key]; ok {
			if err := dst.UnmarshalJSON(raw); err != nil {
				return fmt.Errorf("field %s: %w", key, err)
			}
			continue
		}
		if key == ColumnAdditionalFields {
			r.AdditionalFields = decodeAdditionalFields(raw)
			continue
		}
		if r.Other == nil {
			r.Other = make(map[string]json.RawMessage)
		}
		r.Other[key] = raw
	}
	return nil
}

// MarshalJSON implements json.Marshaler
func (r RawTaskRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Other)+7)
	for k, v := range r.Other {
		out[k] = v
	}
	out[ColumnID] = r.ID
	out[ColumnDueDate] = r.DueDate
	out[ColumnUserFullName] = r.UserFullName
	out[ColumnCrmTaskStatusID] = r.CrmTaskStatusID
	out[ColumnConvertTo] = r.ConvertTo
	out[ColumnEngagementType] = r.EngagementType
	fields := r.AdditionalFields
	if fields == nil {
		fields = []AdditionalField{}
	}
	out[ColumnAdditionalFields] = fields
	return json.Marshal(out)
}

// TaskPage is one fetched page of the CRM task listing
type TaskPage struct {
	Records []RawTaskRecord

	// Skipped counts response elements that were not task objects
	Skipped int
}

func decodeAdditionalFields(raw json.RawMessage) []AdditionalField {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	fields := make([]AdditionalField, 0, len(items))
	for _, item := range items {
		var entry struct {
			Name  *string `json:"name"`
			Value Text    `json:"value"`
		}
		if err := json.Unmarshal(item, &entry); err != nil || entry.Name == nil {
			continue
		}
		fields = append(fields, AdditionalField{Name: *entry.Name, Value: entry.Value})
	}
	return fields
}

// NormalizedTaskRecord is one task after additional-field flattening and
// derived-label computation. Records are values; nothing mutates them after
// normalization.
type NormalizedTaskRecord struct {
	ID              Text
	DueDate         Text
	UserFullName    Text
	CrmTaskStatusID Text
	ConvertTo       Text
	EngagementType  Text

	// Other holds the raw record's pass-through fields minus any that share
	// a name with a derived column
	Other map[string]json.RawMessage

	// Fields is aligned with Schema.Columns()
	Schema *Schema
	Fields []Field

	Merged                string
	DueDateParsed         NullTime
	ConvertToNumeric      NullInt
	EngagementTypeNumeric NullInt
	StatusCode            NullInt
	StatusLabel           Label
	ConvertToLabel        Label
}

// Field returns the record's value for an additional field by its original
// name. ok is false when the name is not part of the batch schema.
func (r NormalizedTaskRecord) Field(name string) (Field, bool) {
	if r.Schema == nil {
		return AbsentField, false
	}
	i, ok := r.Schema.Index(name)
	if !ok || i >= len(r.Fields) {
		return AbsentField, false
	}
	return r.Fields[i], true
}

// Assignee returns the assigned sales user's name, if any
func (r NormalizedTaskRecord) Assignee() (string, bool) {
	if !r.UserFullName.Valid || r.UserFullName.Value == "" {
		return "", false
	}
	return r.UserFullName.Value, true
}

// MarshalJSON flattens the record into one JSON object keyed by column
func (r NormalizedTaskRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Other)+len(FixedColumns)+len(r.Fields))
	for k, v := range r.Other {
		out[k] = v
	}
	out[ColumnID] = r.ID
	out[ColumnDueDate] = r.DueDate
	out[ColumnUserFullName] = r.UserFullName
	out[ColumnCrmTaskStatusID] = r.CrmTaskStatusID
	out[ColumnConvertTo] = r.ConvertTo
	out[ColumnEngagementType] = r.EngagementType
	out[ColumnMerged] = r.Merged
	out[ColumnDueDateParsed] = r.DueDateParsed
	out[ColumnConvertToNumeric] = r.ConvertToNumeric
	out[ColumnEngagementTypeNumeric] = r.EngagementTypeNumeric
	out[ColumnStatusLabel] = r.StatusLabel
	out[ColumnConvertToLabel] = r.ConvertToLabel

	if r.Schema != nil {
		for i, col := range r.Schema.columns {
			if i < len(r.Fields) {
				out[col.Key] = r.Fields[i]
			} else {
				out[col.Key] = AbsentField
			}
		}
	}
	return json.Marshal(out)
}
