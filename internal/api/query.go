package api

import (
	"net/http"
	"strings"

	"github.com/dennisdiepolder/salesboard/internal/aggregator"
	"github.com/dennisdiepolder/salesboard/internal/auth"
	"github.com/dennisdiepolder/salesboard/internal/types"
)

// ParseFilter reads a Filter from the query string. List parameters may be
// repeated or comma-separated.
func ParseFilter(r *http.Request) (aggregator.Filter, error) {
	q := r.URL.Query()
	f := aggregator.Filter{
		Date:     strings.TrimSpace(q.Get("date")),
		From:     strings.TrimSpace(q.Get("from")),
		To:       strings.TrimSpace(q.Get("to")),
		Statuses: splitList(q["status"]),
		Sales:    splitList(q["sales"]),
		Stages:   splitList(q["stage"]),
	}
	if err := f.Validate(); err != nil {
		return aggregator.Filter{}, err
	}
	return f, nil
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// visibleRecords limits records to what the requesting user may see
func visibleRecords(r *http.Request, records []types.NormalizedTaskRecord) []types.NormalizedTaskRecord {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		return records
	}
	name, restricted := claims.RestrictedTo()
	if !restricted {
		return records
	}
	return aggregator.Apply(records, aggregator.Filter{Sales: []string{name}})
}
