package repository

import (
	"infrascan/internal/model"
)

// ReportRepository defines the interface for report data operations.
type ReportRepository interface {
	// Create operations
	Insert(report *model.Report) (int64, error)

	// Read operations
	GetByID(id int64) (*model.Report, error)
	GetAll(filter *model.ReportFilter) ([]model.Report, error)
	GetTotalCount(filter *model.ReportFilter) (int, error)
}
