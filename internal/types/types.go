package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Text is an optional scalar received from the CRM. The CRM is loose about
// scalar types (ids and codes arrive as numbers or strings), so Text accepts
// any JSON scalar and keeps the original bytes for pass-through.
type Text struct {
	Value string
	Valid bool
	raw   json.RawMessage
}

// TextOf returns a valid Text holding s
func TextOf(s string) Text {
	return Text{Value: s, Valid: true}
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*t = Text{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	t.raw = append(json.RawMessage(nil), data...)
	t.Valid = true

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		t.Value = s
	default:
		// numbers and booleans keep their literal text, objects and arrays
		// keep their compact JSON
		t.Value = string(data)
	}
	return nil
}

// MarshalJSON implements json.Marshaler
func (t Text) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	if len(t.raw) > 0 {
		return t.raw, nil
	}
	return json.Marshal(t.Value)
}

// Field is one additional-field cell of a normalized record. The zero value
// is the absent marker.
type Field struct {
	Value   string
	Present bool
}

// AbsentField marks a column the record had no value for
var AbsentField = Field{}

// FieldOf returns a present Field holding v
func FieldOf(v string) Field {
	return Field{Value: v, Present: true}
}

// MarshalJSON implements json.Marshaler
func (f Field) MarshalJSON() ([]byte, error) {
	if !f.Present {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// NullTime is a coerced date/time. Valid is false for the unparsed marker.
type NullTime struct {
	Time  time.Time
	Valid bool
}

// MarshalJSON implements json.Marshaler
func (n NullTime) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Time.Format(time.RFC3339))
}

// Date returns the calendar date (YYYY-MM-DD) in the time's own offset
func (n NullTime) Date() (string, bool) {
	if !n.Valid {
		return "", false
	}
	return n.Time.Format(DateLayout), true
}

// NullInt is a coerced integer. Valid is false for the unparsed marker.
type NullInt struct {
	Int64 int64
	Valid bool
}

// IntOf returns a valid NullInt
func IntOf(v int64) NullInt {
	return NullInt{Int64: v, Valid: true}
}

// MarshalJSON implements json.Marshaler
func (n NullInt) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(n.Int64, 10)), nil
}

// Label is a derived categorical label. The zero value is the unknown marker.
type Label struct {
	Name  string
	Known bool
}

// UnknownLabel is the result of looking up an unmapped or unparsed code
var UnknownLabel = Label{}

// MarshalJSON implements json.Marshaler
func (l Label) MarshalJSON() ([]byte, error) {
	if !l.Known {
		return []byte("null"), nil
	}
	return json.Marshal(l.Name)
}

// DateLayout is the calendar-date format used by filters and daily views
const DateLayout = "2006-01-02"
