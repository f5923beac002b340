// Package normalize turns raw CRM task records into the flat, rectangular
// table the dashboard works on.
//
// Normalization never fails on data shape. Unparsable dates and codes become
// unparsed markers, unmapped codes become unknown labels, and each record is
// handled independently of the others.
package normalize

import (
	"encoding/json"
	"strings"

	"github.com/dennisdiepolder/salesboard/internal/types"
)

// Report counts the per-record anomalies met during one normalization
type Report struct {
	Records                  int `json:"records"`
	Columns                  int `json:"columns"`
	MalformedDates           int `json:"malformedDates"`
	MissingDates             int `json:"missingDates"`
	MalformedConversionCodes int `json:"malformedConversionCodes"`
	UnknownStatusCodes       int `json:"unknownStatusCodes"`
	UnknownConversionCodes   int `json:"unknownConversionCodes"`
	DuplicateFieldNames      int `json:"duplicateFieldNames"`
	ShadowedFields           int `json:"shadowedFields"`
	SkippedRecords           int `json:"skippedRecords"`
}

// Normalize flattens raw records into normalized records. The output has the
// same length and order as the input and every record carries every column of
// the batch schema.
func Normalize(raw []types.RawTaskRecord) []types.NormalizedTaskRecord {
	out, _ := NormalizeWithReport(raw)
	return out
}

// NormalizeWithReport is Normalize plus a count of the anomalies it absorbed
func NormalizeWithReport(raw []types.RawTaskRecord) ([]types.NormalizedTaskRecord, Report) {
	schema := BuildSchema(raw)
	report := Report{Records: len(raw), Columns: schema.Len()}

	out := make([]types.NormalizedTaskRecord, len(raw))
	for i := range raw {
		out[i] = normalizeRecord(&raw[i], schema, &report)
	}
	return out, report
}

// BuildSchema collects the union of additional-field names across records in
// first-appearance order
func BuildSchema(raw []types.RawTaskRecord) *types.Schema {
	var names []string
	seen := make(map[string]bool)
	reserved := make(map[string]bool, len(types.FixedColumns))
	for _, col := range types.FixedColumns {
		reserved[col] = true
	}

	for i := range raw {
		for key := range raw[i].Other {
			reserved[key] = true
		}
		for _, f := range raw[i].AdditionalFields {
			if seen[f.Name] {
				continue
			}
			seen[f.Name] = true
			names = append(names, f.Name)
		}
	}
	return types.NewSchema(names, reserved)
}

func normalizeRecord(r *types.RawTaskRecord, schema *types.Schema, report *Report) types.NormalizedTaskRecord {
	// Duplicate names within one record: the last value wins
	fields := make([]types.Field, schema.Len())
	assigned := make([]bool, schema.Len())
	for _, f := range r.AdditionalFields {
		i, ok := schema.Index(f.Name)
		if !ok {
			continue
		}
		if assigned[i] {
			report.DuplicateFieldNames++
		}
		assigned[i] = true
		if f.Value.Valid {
			fields[i] = types.FieldOf(f.Value.Value)
		} else {
			fields[i] = types.AbsentField
		}
	}

	n := types.NormalizedTaskRecord{
		ID:              r.ID,
		DueDate:         r.DueDate,
		UserFullName:    r.UserFullName,
		CrmTaskStatusID: r.CrmTaskStatusID,
		ConvertTo:       r.ConvertTo,
		EngagementType:  r.EngagementType,
		Other:           passthrough(r.Other, report),
		Schema:          schema,
		Fields:          fields,
		Merged:          Merge(r.AdditionalFields),
	}

	n.DueDateParsed = ParseDueDate(r.DueDate)
	if !n.DueDateParsed.Valid {
		if r.DueDate.Valid && strings.TrimSpace(r.DueDate.Value) != "" {
			report.MalformedDates++
		} else {
			report.MissingDates++
		}
	}

	n.ConvertToNumeric = ParseCode(r.ConvertTo)
	if !n.ConvertToNumeric.Valid && r.ConvertTo.Valid && strings.TrimSpace(r.ConvertTo.Value) != "" {
		report.MalformedConversionCodes++
	}
	n.EngagementTypeNumeric = ParseCode(r.EngagementType)

	n.StatusCode = ParseCode(r.CrmTaskStatusID)
	n.StatusLabel = types.StatusLabel(n.StatusCode)
	if !n.StatusLabel.Known {
		report.UnknownStatusCodes++
	}

	n.ConvertToLabel = types.ConversionLabel(n.ConvertToNumeric)
	if !n.ConvertToLabel.Known && n.ConvertToNumeric.Valid {
		report.UnknownConversionCodes++
	}

	return n
}

// passthrough drops raw fields named like a derived column. The input map is
// shared with the raw record and is only copied when something is dropped.
func passthrough(other map[string]json.RawMessage, report *Report) map[string]json.RawMessage {
	shadowed := 0
	for key := range other {
		if types.IsDerivedColumn(key) {
			shadowed++
		}
	}
	if shadowed == 0 {
		return other
	}
	report.ShadowedFields += shadowed

	out := make(map[string]json.RawMessage, len(other)-shadowed)
	for key, raw := range other {
		if !types.IsDerivedColumn(key) {
			out[key] = raw
		}
	}
	return out
}

// Merge joins "name: value" for every non-absent field in the record's own
// order
func Merge(fields []types.AdditionalField) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if !f.Value.Valid {
			continue
		}
		parts = append(parts, f.Name+": "+f.Value.Value)
	}
	return strings.Join(parts, ", ")
}
