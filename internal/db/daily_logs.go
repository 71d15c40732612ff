package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ldi/jobsite/pkg/models"
)

// Daily reports

const dailyReportSelect = `
	SELECT r.id, r.project_id, r.foreman_id, r.report_date, r.status_notes, r.task_completion_notes,
	       r.closeout_completed, r.created_at, COALESCE(u.full_name, '')
	FROM foreman_daily_reports r
	LEFT JOIN user_profiles u ON r.foreman_id = u.id
`

func scanDailyReport(row interface{ Scan(...any) error }) (*models.DailyReport, error) {
	r := &models.DailyReport{}
	var closeout int
	if err := row.Scan(&r.ID, &r.ProjectID, &r.ForemanID, &r.ReportDate, &r.StatusNotes, &r.TaskCompletionNotes,
		&closeout, &r.CreatedAt, &r.ForemanName); err != nil {
		return nil, err
	}
	r.CloseoutCompleted = closeout == 1
	return r, nil
}

func (db *DB) CreateDailyReport(ctx context.Context, r *models.DailyReport) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	query := `
		INSERT INTO foreman_daily_reports (id, project_id, foreman_id, report_date, status_notes, task_completion_notes, closeout_completed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING created_at
	`
	err := db.QueryRowContext(ctx, query, r.ID, r.ProjectID, r.ForemanID, r.ReportDate, r.StatusNotes,
		r.TaskCompletionNotes, boolToInt(r.CloseoutCompleted)).Scan(&r.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create daily report: %w", err)
	}
	db.triggerChange(ctx, "foreman_daily_reports", models.ChangeInsert, r.ProjectID, r.ID)
	return nil
}

func (db *DB) GetDailyReport(ctx context.Context, id string) (*models.DailyReport, error) {
	r, err := scanDailyReport(db.QueryRowContext(ctx, dailyReportSelect+` WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily report: %w", err)
	}
	return r, nil
}

// GetDailyReportByDate returns the project's report for a date, if any.
func (db *DB) GetDailyReportByDate(ctx context.Context, projectID, date string) (*models.DailyReport, error) {
	r, err := scanDailyReport(db.QueryRowContext(ctx, dailyReportSelect+` WHERE r.project_id = ? AND r.report_date = ?`, projectID, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily report: %w", err)
	}
	return r, nil
}

// ListDailyReports returns a project's reports, latest date first.
func (db *DB) ListDailyReports(ctx context.Context, projectID string) ([]*models.DailyReport, error) {
	rows, err := db.QueryContext(ctx, dailyReportSelect+` WHERE r.project_id = ? ORDER BY r.report_date DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily reports: %w", err)
	}
	defer rows.Close()

	var items []*models.DailyReport
	for rows.Next() {
		r, err := scanDailyReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily report: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return items, nil
}

func (db *DB) DeleteDailyReport(ctx context.Context, id string) error {
	return db.deleteRecord(ctx, "foreman_daily_reports", id)
}

// Hours

const hoursSelect = `
	SELECT h.id, h.project_id, h.employee_id, h.date, h.hours_worked, h.created_at, COALESCE(u.full_name, '')
	FROM project_hours h
	LEFT JOIN user_profiles u ON h.employee_id = u.id
`

func scanHours(row interface{ Scan(...any) error }) (*models.HoursEntry, error) {
	h := &models.HoursEntry{}
	if err := row.Scan(&h.ID, &h.ProjectID, &h.EmployeeID, &h.Date, &h.HoursWorked, &h.CreatedAt, &h.EmployeeName); err != nil {
		return nil, err
	}
	return h, nil
}

func (db *DB) CreateHours(ctx context.Context, h *models.HoursEntry) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	query := `
		INSERT INTO project_hours (id, project_id, employee_id, date, hours_worked)
		VALUES (?, ?, ?, ?, ?)
		RETURNING created_at
	`
	err := db.QueryRowContext(ctx, query, h.ID, h.ProjectID, h.EmployeeID, h.Date, h.HoursWorked).Scan(&h.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to log hours: %w", err)
	}
	db.triggerChange(ctx, "project_hours", models.ChangeInsert, h.ProjectID, h.ID)
	return nil
}

func (db *DB) GetHours(ctx context.Context, id string) (*models.HoursEntry, error) {
	h, err := scanHours(db.QueryRowContext(ctx, hoursSelect+` WHERE h.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hours: %w", err)
	}
	return h, nil
}

// ListHours returns a project's hour entries, latest date first.
func (db *DB) ListHours(ctx context.Context, projectID string) ([]*models.HoursEntry, error) {
	rows, err := db.QueryContext(ctx, hoursSelect+` WHERE h.project_id = ? ORDER BY h.date DESC, h.created_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list hours: %w", err)
	}
	defer rows.Close()

	var items []*models.HoursEntry
	for rows.Next() {
		h, err := scanHours(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hours: %w", err)
		}
		items = append(items, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return items, nil
}

func (db *DB) DeleteHours(ctx context.Context, id string) error {
	return db.deleteRecord(ctx, "project_hours", id)
}

// Expenses

const expenseColumns = `id, project_id, expense_type, description, cost, date_incurred, created_at`

func scanExpense(row interface{ Scan(...any) error }) (*models.Expense, error) {
	e := &models.Expense{}
	if err := row.Scan(&e.ID, &e.ProjectID, &e.ExpenseType, &e.Description, &e.Cost, &e.DateIncurred, &e.CreatedAt); err != nil {
		return nil, err
	}
	return e, nil
}

func (db *DB) CreateExpense(ctx context.Context, e *models.Expense) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	query := `
		INSERT INTO project_expenses (id, project_id, expense_type, description, cost, date_incurred)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING created_at
	`
	err := db.QueryRowContext(ctx, query, e.ID, e.ProjectID, e.ExpenseType, e.Description, e.Cost, e.DateIncurred).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	db.triggerChange(ctx, "project_expenses", models.ChangeInsert, e.ProjectID, e.ID)
	return nil
}

func (db *DB) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	e, err := scanExpense(db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM project_expenses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return e, nil
}

// ListExpenses returns a project's expenses, latest first.
func (db *DB) ListExpenses(ctx context.Context, projectID string) ([]*models.Expense, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+expenseColumns+` FROM project_expenses WHERE project_id = ? ORDER BY date_incurred DESC, created_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var items []*models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return items, nil
}

func (db *DB) DeleteExpense(ctx context.Context, id string) error {
	return db.deleteRecord(ctx, "project_expenses", id)
}
