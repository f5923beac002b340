package aggregator

import (
	"sort"

	"github.com/dennisdiepolder/salesboard/internal/types"
)

// TotalTaskColumn is the row-total column of a stage pivot
const TotalTaskColumn = "Total Task"

// ReportStages are the conversion stages summarised on the dashboard
var ReportStages = []string{
	types.StageProspect,
	types.StageProposalSubmitted,
	types.StagePresentation,
	types.StageDeal,
	types.StageInvoice,
}

// Summarize computes the headline counters of a view
func Summarize(records []types.NormalizedTaskRecord) types.Summary {
	summary := types.Summary{
		TotalTasks:      len(records),
		StatusBreakdown: make(map[string]int),
	}

	for _, r := range records {
		if r.StatusCode.Valid {
			switch r.StatusCode.Int64 {
			case types.StatusDone:
				summary.DoneTasks++
			case types.StatusInProgress:
				summary.InProgressTasks++
			case types.StatusNotStarted:
				summary.NotStartedTasks++
			}
		}
		if r.StatusLabel.Known {
			summary.StatusBreakdown[r.StatusLabel.Name]++
		} else {
			summary.UnknownStatus++
		}
	}
	return summary
}

type statusSalesKey struct {
	status string
	sales  string
}

// CountByStatusAndSales counts tasks per status label and assignee. Records
// without a known status or an assignee are left out.
func CountByStatusAndSales(records []types.NormalizedTaskRecord) types.StatusBySales {
	counts := make(map[statusSalesKey]int)
	for _, r := range records {
		sales, ok := r.Assignee()
		if !ok || !r.StatusLabel.Known {
			continue
		}
		counts[statusSalesKey{status: r.StatusLabel.Name, sales: sales}]++
	}

	out := make([]types.StatusCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, types.StatusCount{Status: k.status, Sales: k.sales, TotalTask: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Status != out[j].Status {
			return out[i].Status < out[j].Status
		}
		return out[i].Sales < out[j].Sales
	})

	return types.StatusBySales{
		Counts: out,
		Colors: types.StatusColors(),
	}
}

type dayStatusKey struct {
	date   string
	status string
}

// CountDaily counts tasks per due day and status label. Records with an
// unparsed due date or unknown status are left out.
func CountDaily(records []types.NormalizedTaskRecord) []types.DailyCount {
	counts := make(map[dayStatusKey]int)
	for _, r := range records {
		day, ok := r.DueDateParsed.Date()
		if !ok || !r.StatusLabel.Known {
			continue
		}
		counts[dayStatusKey{date: day, status: r.StatusLabel.Name}]++
	}

	out := make([]types.DailyCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, types.DailyCount{Date: k.date, Status: k.status, TotalTask: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Status < out[j].Status
	})
	return out
}

// PivotByStage builds the assignee x status table for one conversion stage.
// Missing cells are zero and every row carries its total.
func PivotByStage(records []types.NormalizedTaskRecord, stage string) types.StagePivot {
	perSales := make(map[string]map[string]int)
	statusSet := make(map[string]bool)

	for _, r := range records {
		if !r.ConvertToLabel.Known || r.ConvertToLabel.Name != stage {
			continue
		}
		sales, ok := r.Assignee()
		if !ok || !r.StatusLabel.Known {
			continue
		}
		if perSales[sales] == nil {
			perSales[sales] = make(map[string]int)
		}
		perSales[sales][r.StatusLabel.Name]++
		statusSet[r.StatusLabel.Name] = true
	}

	statuses := sortedKeys(statusSet)
	names := make([]string, 0, len(perSales))
	for name := range perSales {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]types.PivotRow, 0, len(names))
	for _, name := range names {
		row := types.PivotRow{Sales: name, Counts: make(map[string]int, len(statuses))}
		for _, status := range statuses {
			n := perSales[name][status]
			row.Counts[status] = n
			row.TotalTask += n
		}
		rows = append(rows, row)
	}

	return types.StagePivot{Stage: stage, Statuses: statuses, Rows: rows}
}

// PivotReportStages builds the pivot for every report stage
func PivotReportStages(records []types.NormalizedTaskRecord) []types.StagePivot {
	out := make([]types.StagePivot, 0, len(ReportStages))
	for _, stage := range ReportStages {
		out = append(out, PivotByStage(records, stage))
	}
	return out
}

// BuildOptions lists the filter choices offered for a snapshot
func BuildOptions(records []types.NormalizedTaskRecord) types.Options {
	sales := make(map[string]bool)
	stages := make(map[string]bool)
	var minDate, maxDate string

	for _, r := range records {
		if name, ok := r.Assignee(); ok {
			sales[name] = true
		}
		if r.ConvertToLabel.Known {
			stages[r.ConvertToLabel.Name] = true
		}
		if day, ok := r.DueDateParsed.Date(); ok {
			if minDate == "" || day < minDate {
				minDate = day
			}
			if maxDate == "" || day > maxDate {
				maxDate = day
			}
		}
	}

	return types.Options{
		Sales:    sortedKeys(sales),
		Statuses: types.StatusLabels(),
		Stages:   sortedKeys(stages),
		MinDate:  minDate,
		MaxDate:  maxDate,
	}
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
