package model

import "time"

// Priority buckets a report by severity score.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ReportStatus tracks the handling state of a report.
type ReportStatus string

const (
	StatusOpen ReportStatus = "open"
)

// Report is a persisted analysis outcome.
type Report struct {
	ID          int64        `json:"id"`
	Filename    string       `json:"filename"`
	Labels      []string     `json:"labels"`
	Score       int          `json:"score"`
	Priority    Priority     `json:"priority"`
	Description string       `json:"description"`
	Status      ReportStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
}

// ReportFilter contains filtering options for querying reports.
type ReportFilter struct {
	Label  string
	Limit  int
	Offset int
}
