package types

import "time"

// Summary holds the headline counters for a filtered view
type Summary struct {
	TotalTasks      int            `json:"totalTasks"`
	DoneTasks       int            `json:"doneTasks"`
	InProgressTasks int            `json:"inProgressTasks"`
	NotStartedTasks int            `json:"notStartedTasks"`
	StatusBreakdown map[string]int `json:"statusBreakdown"`
	UnknownStatus   int            `json:"unknownStatus"`
}

// StatusCount is one bar of the tasks-per-sales chart
type StatusCount struct {
	Status    string `json:"status"`
	Sales     string `json:"sales"`
	TotalTask int    `json:"totalTask"`
}

// StatusBySales is the grouped bar chart of task counts per sales and status
type StatusBySales struct {
	Counts []StatusCount     `json:"counts"`
	Colors map[string]string `json:"colors"`
}

// DailyCount is one point of the daily trend chart
type DailyCount struct {
	Date      string `json:"date"`
	Status    string `json:"status"`
	TotalTask int    `json:"totalTask"`
}

// PivotRow is one assignee row of a stage pivot
type PivotRow struct {
	Sales     string         `json:"sales"`
	Counts    map[string]int `json:"counts"`
	TotalTask int            `json:"totalTask"`
}

// StagePivot summarises one conversion stage as assignee x status counts
type StagePivot struct {
	Stage    string     `json:"stage"`
	Statuses []string   `json:"statuses"`
	Rows     []PivotRow `json:"rows"`
}

// Options lists the choices available to the dashboard's filter widgets
type Options struct {
	Sales    []string `json:"sales"`
	Statuses []string `json:"statuses"`
	Stages   []string `json:"stages"`
	MinDate  string   `json:"minDate,omitempty"`
	MaxDate  string   `json:"maxDate,omitempty"`
}

// SnapshotStatus describes the currently loaded snapshot
type SnapshotStatus struct {
	FetchedAt time.Time `json:"fetchedAt"`
	Records   int       `json:"records"`
	Columns   int       `json:"columns"`
	NoData    bool      `json:"noData"`
	Error     string    `json:"error,omitempty"`
}

// RefreshNoticeType is the type tag of RefreshNotice messages
const RefreshNoticeType = "refresh"

// RefreshNotice is pushed to dashboard clients after each load
type RefreshNotice struct {
	Type   string         `json:"type"`
	Status SnapshotStatus `json:"status"`
}
