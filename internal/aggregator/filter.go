package aggregator

import (
	"fmt"
	"time"

	"github.com/dennisdiepolder/salesboard/internal/types"
)

// Filter selects records for a dashboard view. Dates are calendar dates
// (YYYY-MM-DD) compared against due_date_parsed in its own offset. An empty
// set places no restriction on that dimension.
type Filter struct {
	Date     string   `json:"date,omitempty"`
	From     string   `json:"from,omitempty"`
	To       string   `json:"to,omitempty"`
	Statuses []string `json:"statuses,omitempty"`
	Sales    []string `json:"sales,omitempty"`
	Stages   []string `json:"stages,omitempty"`
}

// Validate checks the date fields
func (f Filter) Validate() error {
	if f.Date != "" && (f.From != "" || f.To != "") {
		return fmt.Errorf("date cannot be combined with from/to")
	}
	for _, d := range []struct{ name, value string }{{"date", f.Date}, {"from", f.From}, {"to", f.To}} {
		if d.value == "" {
			continue
		}
		if _, err := time.Parse(types.DateLayout, d.value); err != nil {
			return fmt.Errorf("invalid %s %q: expected YYYY-MM-DD", d.name, d.value)
		}
	}
	if f.From != "" && f.To != "" && f.From > f.To {
		return fmt.Errorf("from %s is after to %s", f.From, f.To)
	}
	return nil
}

// HasDateFilter reports whether the filter restricts by due date
func (f Filter) HasDateFilter() bool {
	return f.Date != "" || f.From != "" || f.To != ""
}

// Apply returns the records matching f in their original order. The input is
// not modified.
func Apply(records []types.NormalizedTaskRecord, f Filter) []types.NormalizedTaskRecord {
	m := newMatcher(f)
	out := make([]types.NormalizedTaskRecord, 0, len(records))
	for _, r := range records {
		if m.match(r) {
			out = append(out, r)
		}
	}
	return out
}

type matcher struct {
	f        Filter
	statuses map[string]bool
	sales    map[string]bool
	stages   map[string]bool
}

func newMatcher(f Filter) matcher {
	return matcher{
		f:        f,
		statuses: toSet(f.Statuses),
		sales:    toSet(f.Sales),
		stages:   toSet(f.Stages),
	}
}

func (m matcher) match(r types.NormalizedTaskRecord) bool {
	if m.f.HasDateFilter() {
		day, ok := r.DueDateParsed.Date()
		if !ok {
			return false
		}
		if m.f.Date != "" && day != m.f.Date {
			return false
		}
		if m.f.From != "" && day < m.f.From {
			return false
		}
		if m.f.To != "" && day > m.f.To {
			return false
		}
	}

	if m.statuses != nil && (!r.StatusLabel.Known || !m.statuses[r.StatusLabel.Name]) {
		return false
	}

	if m.sales != nil {
		name, ok := r.Assignee()
		if !ok || !m.sales[name] {
			return false
		}
	}

	if m.stages != nil && (!r.ConvertToLabel.Known || !m.stages[r.ConvertToLabel.Name]) {
		return false
	}

	return true
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
