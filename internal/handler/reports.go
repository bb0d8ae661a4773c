package handler

import (
	"net/http"
	"strconv"

	"infrascan/internal/logger"
	"infrascan/internal/model"
	"infrascan/internal/repository"
)

const (
	defaultReportLimit = 24
	maxReportLimit     = 200
)

type reportsResponse struct {
	Reports     []model.Report `json:"reports"`
	Length      int            `json:"length"`
	TotalPages  int            `json:"total_pages"`
	CurrentPage int            `json:"current_page"`
	Limit       int            `json:"limit"`
}

// GetReportsHandler returns a page of reports, newest first, optionally
// restricted to one label.
func GetReportsHandler(reports repository.ReportRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, logger, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := min(atoiDefault(q.Get("limit"), defaultReportLimit), maxReportLimit)

		filter := &model.ReportFilter{
			Label:  q.Get("label"),
			Limit:  limit,
			Offset: (page - 1) * limit,
		}

		list, err := reports.GetAll(filter)
		if err != nil {
			logger.Error("Error querying reports from database: %v", err)
			writeError(w, logger, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		totalCount, err := reports.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting reports: %v", err)
			totalCount = len(list)
		}

		writeJSON(w, logger, http.StatusOK, reportsResponse{
			Reports:     list,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		})
	}
}

// GetReportHandler returns one report by the {id} path value.
func GetReportHandler(reports repository.ReportRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil || id <= 0 {
			writeError(w, logger, http.StatusBadRequest, "Invalid report id")
			return
		}

		report, err := reports.GetByID(id)
		if err != nil {
			logger.Error("Error loading report %d: %v", id, err)
			writeError(w, logger, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		if report == nil {
			writeError(w, logger, http.StatusNotFound, "Report not found")
			return
		}

		writeJSON(w, logger, http.StatusOK, report)
	}
}
