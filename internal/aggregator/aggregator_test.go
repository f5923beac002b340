package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dennisdiepolder/salesboard/internal/types"
)

const (
	codeProspect = 3866815
	codeDeal     = 3866819
)

func task(sales string, status int64, stage int64, due string) types.NormalizedTaskRecord {
	r := types.NormalizedTaskRecord{}
	if sales != "" {
		r.UserFullName = types.TextOf(sales)
	}
	if status != 0 {
		r.StatusCode = types.IntOf(status)
		r.StatusLabel = types.StatusLabel(r.StatusCode)
	}
	if stage != 0 {
		r.ConvertToNumeric = types.IntOf(stage)
		r.ConvertToLabel = types.ConversionLabel(r.ConvertToNumeric)
	}
	if due != "" {
		t, err := time.Parse(time.RFC3339, due)
		if err == nil {
			r.DueDateParsed = types.NullTime{Time: t, Valid: true}
		}
	}
	return r
}

func sampleTasks() []types.NormalizedTaskRecord {
	return []types.NormalizedTaskRecord{
		task("Andi", types.StatusDone, codeProspect, "2025-03-01T09:00:00Z"),
		task("Andi", types.StatusInProgress, codeProspect, "2025-03-01T15:00:00Z"),
		task("Budi", types.StatusNotStarted, codeDeal, "2025-03-02T10:00:00Z"),
		task("Budi", types.StatusDone, codeProspect, "2025-03-03T10:00:00Z"),
		task("Citra", 99, codeDeal, "2025-03-02T10:00:00Z"),
		task("", types.StatusWaiting, 0, ""),
	}
}

func TestFilterValidate(t *testing.T) {
	tests := []struct {
		name    string
		filter  Filter
		wantErr bool
	}{
		{name: "empty", filter: Filter{}},
		{name: "single date", filter: Filter{Date: "2025-03-01"}},
		{name: "range", filter: Filter{From: "2025-03-01", To: "2025-03-31"}},
		{name: "open range", filter: Filter{From: "2025-03-01"}},
		{name: "bad date", filter: Filter{Date: "01/03/2025"}, wantErr: true},
		{name: "bad to", filter: Filter{To: "2025-13-01"}, wantErr: true},
		{name: "reversed range", filter: Filter{From: "2025-03-02", To: "2025-03-01"}, wantErr: true},
		{name: "date and range", filter: Filter{Date: "2025-03-01", From: "2025-03-01"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyEmptyFilterKeepsEverything(t *testing.T) {
	records := sampleTasks()
	got := Apply(records, Filter{})
	assert.Len(t, got, len(records))
}

func TestApplySingleDate(t *testing.T) {
	got := Apply(sampleTasks(), Filter{Date: "2025-03-01"})
	require.Len(t, got, 2)
	for _, r := range got {
		name, _ := r.Assignee()
		assert.Equal(t, "Andi", name)
	}
}

func TestApplyDateRange(t *testing.T) {
	got := Apply(sampleTasks(), Filter{From: "2025-03-02", To: "2025-03-03"})
	assert.Len(t, got, 3)
}

func TestApplyDateFilterDropsUnparsedDates(t *testing.T) {
	got := Apply(sampleTasks(), Filter{From: "2000-01-01"})
	assert.Len(t, got, 5)
}

func TestApplyDateUsesRecordOffset(t *testing.T) {
	loc := time.FixedZone("WIB", 7*60*60)
	r := types.NormalizedTaskRecord{
		DueDateParsed: types.NullTime{Time: time.Date(2025, 3, 2, 1, 0, 0, 0, loc), Valid: true},
	}

	assert.Len(t, Apply([]types.NormalizedTaskRecord{r}, Filter{Date: "2025-03-02"}), 1)
	assert.Empty(t, Apply([]types.NormalizedTaskRecord{r}, Filter{Date: "2025-03-01"}))
}

func TestApplyStatusSalesStage(t *testing.T) {
	records := sampleTasks()

	byStatus := Apply(records, Filter{Statuses: []string{types.LabelDone}})
	assert.Len(t, byStatus, 2)

	bySales := Apply(records, Filter{Sales: []string{"Budi", "Citra"}})
	assert.Len(t, bySales, 3)

	byStage := Apply(records, Filter{Stages: []string{types.StageDeal}})
	assert.Len(t, byStage, 2)

	combined := Apply(records, Filter{
		Statuses: []string{types.LabelDone},
		Sales:    []string{"Budi"},
		Stages:   []string{types.StageProspect},
	})
	assert.Len(t, combined, 1)
}

func TestApplyDoesNotModifyInput(t *testing.T) {
	records := sampleTasks()
	_ = Apply(records, Filter{Sales: []string{"Andi"}})
	assert.Equal(t, sampleTasks(), records)
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleTasks())

	assert.Equal(t, 6, s.TotalTasks)
	assert.Equal(t, 2, s.DoneTasks)
	assert.Equal(t, 1, s.InProgressTasks)
	assert.Equal(t, 1, s.NotStartedTasks)
	assert.Equal(t, 1, s.UnknownStatus)
	assert.Equal(t, map[string]int{
		types.LabelDone:       2,
		types.LabelInProgress: 1,
		types.LabelNotStarted: 1,
		types.LabelWaiting:    1,
	}, s.StatusBreakdown)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.TotalTasks)
	assert.NotNil(t, s.StatusBreakdown)
}

func TestCountByStatusAndSales(t *testing.T) {
	got := CountByStatusAndSales(sampleTasks())

	assert.Equal(t, []types.StatusCount{
		{Status: types.LabelNotStarted, Sales: "Budi", TotalTask: 1},
		{Status: types.LabelInProgress, Sales: "Andi", TotalTask: 1},
		{Status: types.LabelDone, Sales: "Andi", TotalTask: 1},
		{Status: types.LabelDone, Sales: "Budi", TotalTask: 1},
	}, got.Counts)
	assert.Equal(t, "#10B981", got.Colors[types.LabelDone])
}

func TestCountDaily(t *testing.T) {
	got := CountDaily(sampleTasks())

	assert.Equal(t, []types.DailyCount{
		{Date: "2025-03-01", Status: types.LabelInProgress, TotalTask: 1},
		{Date: "2025-03-01", Status: types.LabelDone, TotalTask: 1},
		{Date: "2025-03-02", Status: types.LabelNotStarted, TotalTask: 1},
		{Date: "2025-03-03", Status: types.LabelDone, TotalTask: 1},
	}, got)
}

func TestPivotByStage(t *testing.T) {
	records := append(sampleTasks(),
		task("Andi", types.StatusDone, codeProspect, "2025-03-04T09:00:00Z"),
	)

	p := PivotByStage(records, types.StageProspect)

	assert.Equal(t, types.StageProspect, p.Stage)
	assert.Equal(t, []string{types.LabelInProgress, types.LabelDone}, p.Statuses)
	require.Len(t, p.Rows, 2)

	assert.Equal(t, "Andi", p.Rows[0].Sales)
	assert.Equal(t, map[string]int{types.LabelInProgress: 1, types.LabelDone: 2}, p.Rows[0].Counts)
	assert.Equal(t, 3, p.Rows[0].TotalTask)

	assert.Equal(t, "Budi", p.Rows[1].Sales)
	assert.Equal(t, 0, p.Rows[1].Counts[types.LabelInProgress])
	assert.Equal(t, 1, p.Rows[1].TotalTask)
}

func TestPivotByStageWithoutData(t *testing.T) {
	p := PivotByStage(sampleTasks(), types.StageInvoice)
	assert.Empty(t, p.Rows)
	assert.Empty(t, p.Statuses)
}

func TestPivotReportStages(t *testing.T) {
	pivots := PivotReportStages(sampleTasks())
	require.Len(t, pivots, len(ReportStages))
	for i, p := range pivots {
		assert.Equal(t, ReportStages[i], p.Stage)
	}
}

func TestBuildOptions(t *testing.T) {
	opts := BuildOptions(sampleTasks())

	assert.Equal(t, []string{"Andi", "Budi", "Citra"}, opts.Sales)
	assert.Equal(t, types.StatusLabels(), opts.Statuses)
	assert.Equal(t, []string{types.StageDeal, types.StageProspect}, opts.Stages)
	assert.Equal(t, "2025-03-01", opts.MinDate)
	assert.Equal(t, "2025-03-03", opts.MaxDate)
}
