package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dennisdiepolder/salesboard/internal/types"
)

// dueDateLayouts are tried in order. Values without a zone are read as UTC.
var dueDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	time.RFC1123Z,
	time.RFC1123,
}

// ParseDueDate coerces a due date. Missing or unparsable input yields the
// unparsed marker.
func ParseDueDate(v types.Text) types.NullTime {
	if !v.Valid {
		return types.NullTime{}
	}
	s := strings.TrimSpace(v.Value)
	if s == "" {
		return types.NullTime{}
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return types.NullTime{Time: t, Valid: true}
		}
	}
	return types.NullTime{}
}

// ParseCode coerces an integer code given as a number or numeric string.
// Fractional, non-numeric or missing input yields the unparsed marker.
func ParseCode(v types.Text) types.NullInt {
	if !v.Valid {
		return types.NullInt{}
	}
	s := strings.TrimSpace(v.Value)
	if s == "" {
		return types.NullInt{}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return types.IntOf(n)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return types.NullInt{}
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return types.NullInt{}
	}
	return types.IntOf(int64(f))
}
