package types

import "strconv"

// Column is one additional-field column. Key differs from Name only when the
// field name collides with a fixed column of the record.
type Column struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

// Schema is the ordered union of additional-field names for one batch. A
// single Schema is shared read-only by every record of the batch.
type Schema struct {
	columns []Column
	index   map[string]int
}

// CollisionPrefix is prepended to additional-field names that collide with a
// fixed column
const CollisionPrefix = ColumnAdditionalFields + "."

// NewSchema builds a schema from names in first-appearance order. Duplicate
// names are kept once. Names found in reserved get a prefixed key, and a key
// already taken by a reserved name or an earlier column gets a numeric
// suffix, so every key of the schema is distinct.
func NewSchema(names []string, reserved map[string]bool) *Schema {
	s := &Schema{
		columns: make([]Column, 0, len(names)),
		index:   make(map[string]int, len(names)),
	}
	used := make(map[string]bool, len(names))
	for _, name := range names {
		if _, seen := s.index[name]; seen {
			continue
		}
		key := name
		if reserved[name] {
			key = CollisionPrefix + name
		}
		key = uniqueKey(key, used, reserved)
		used[key] = true
		s.index[name] = len(s.columns)
		s.columns = append(s.columns, Column{Name: name, Key: key})
	}
	return s
}

func uniqueKey(key string, used, reserved map[string]bool) string {
	if !used[key] && !reserved[key] {
		return key
	}
	for n := 2; ; n++ {
		candidate := key + "_" + strconv.Itoa(n)
		if !used[candidate] && !reserved[candidate] {
			return candidate
		}
	}
}

// Len returns the number of additional-field columns
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.columns)
}

// Index returns the position of the column for name
func (s *Schema) Index(name string) (int, bool) {
	if s == nil {
		return 0, false
	}
	i, ok := s.index[name]
	return i, ok
}

// Columns returns a copy of the schema's columns in order
func (s *Schema) Columns() []Column {
	if s == nil {
		return []Column{}
	}
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// Keys returns the JSON keys of the schema's columns in order
func (s *Schema) Keys() []string {
	if s == nil {
		return []string{}
	}
	keys := make([]string, len(s.columns))
	for i, c := range s.columns {
		keys[i] = c.Key
	}
	return keys
}
