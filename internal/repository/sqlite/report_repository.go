package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"infrascan/internal/model"
)

// ReportRepository implements repository.ReportRepository for SQLite.
type ReportRepository struct {
	db *DB
}

// NewReportRepository creates a new SQLite report repository.
func NewReportRepository(db *DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `r.id, r.filename, r.labels, r.score, r.priority, r.description, r.status, r.created_at`

// Insert adds a report and its label index rows in a single transaction.
// ID is set on the report; a zero CreatedAt is set to now.
func (r *ReportRepository) Insert(report *model.Report) (int64, error) {
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}
	report.CreatedAt = report.CreatedAt.UTC()
	if report.Labels == nil {
		report.Labels = []string{}
	}

	labels, err := json.Marshal(report.Labels)
	if err != nil {
		return 0, fmt.Errorf("failed to encode labels: %w", err)
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO reports (filename, labels, score, priority, description, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, report.Filename, string(labels), report.Score, string(report.Priority), report.Description, string(report.Status), report.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert report: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read report id: %w", err)
	}

	if len(report.Labels) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO report_labels (report_id, label) VALUES (?, ?)`)
		if err != nil {
			return 0, fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, label := range report.Labels {
			if _, err := stmt.Exec(id, label); err != nil {
				return 0, fmt.Errorf("failed to insert report label: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit report: %w", err)
	}

	report.ID = id
	return id, nil
}

// GetByID retrieves a report by its ID, nil when it does not exist.
func (r *ReportRepository) GetByID(id int64) (*model.Report, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	report, err := scanReport(r.db.Conn().QueryRow(`SELECT `+reportColumns+` FROM reports r WHERE r.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return report, nil
}

// GetAll retrieves reports matching the filter, newest first.
func (r *ReportRepository) GetAll(filter *model.ReportFilter) ([]model.Report, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := reportWhere(filter)
	query := `SELECT ` + reportColumns + ` FROM reports r` + where + ` ORDER BY r.created_at DESC, r.id DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	reports := []model.Report{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, *report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}

	return reports, nil
}

// GetTotalCount returns the number of reports matching the filter.
func (r *ReportRepository) GetTotalCount(filter *model.ReportFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := reportWhere(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM reports r`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return count, nil
}

func reportWhere(filter *model.ReportFilter) (string, []interface{}) {
	if filter == nil || filter.Label == "" {
		return "", nil
	}
	return ` WHERE EXISTS (SELECT 1 FROM report_labels l WHERE l.report_id = r.id AND l.label = ?)`, []interface{}{filter.Label}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*model.Report, error) {
	var (
		report   model.Report
		labels   string
		priority string
		status   string
	)
	if err := row.Scan(&report.ID, &report.Filename, &labels, &report.Score, &priority, &report.Description, &status, &report.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(labels), &report.Labels); err != nil {
		return nil, fmt.Errorf("decode labels of report %d: %w", report.ID, err)
	}
	if report.Labels == nil {
		report.Labels = []string{}
	}
	report.Priority = model.Priority(priority)
	report.Status = model.ReportStatus(status)
	return &report, nil
}
