package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-day format used by daily logs.
const DateLayout = "2006-01-02"

// ExpenseType classifies a project expense.
type ExpenseType string

const (
	ExpenseMaterial          ExpenseType = "material"
	ExpenseSubcontractorBill ExpenseType = "subcontractor_bill"
	ExpenseGeneral           ExpenseType = "general"
)

func (t ExpenseType) Valid() bool {
	switch t {
	case ExpenseMaterial, ExpenseSubcontractorBill, ExpenseGeneral:
		return true
	}
	return false
}

// ChangeOrder is a signed change to the contracted scope. The document
// itself lives in the blob store.
type ChangeOrder struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	Details   string    `json:"details"`
	FilePath  string    `json:"file_path"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// DailyReport is a foreman's end-of-day note. A project has at most one
// report per date.
type DailyReport struct {
	ID                  string    `json:"id"`
	ProjectID           string    `json:"project_id"`
	ForemanID           string    `json:"foreman_id"`
	ReportDate          string    `json:"report_date"`
	StatusNotes         string    `json:"status_notes"`
	TaskCompletionNotes string    `json:"task_completion_notes"`
	CloseoutCompleted   bool      `json:"closeout_completed"`
	CreatedAt           time.Time `json:"created_at"`

	ForemanName string `json:"foreman_name,omitempty"`
}

// HoursEntry records time an employee spent on a project on one day.
type HoursEntry struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	EmployeeID  string    `json:"employee_id"`
	Date        string    `json:"date"`
	HoursWorked float64   `json:"hours_worked"`
	CreatedAt   time.Time `json:"created_at"`

	EmployeeName string `json:"employee_name,omitempty"`
}

type Expense struct {
	ID           string      `json:"id"`
	ProjectID    string      `json:"project_id"`
	ExpenseType  ExpenseType `json:"expense_type"`
	Description  string      `json:"description"`
	Cost         float64     `json:"cost"`
	DateIncurred string      `json:"date_incurred"`
	CreatedAt    time.Time   `json:"created_at"`
}

func validDate(field, v string) error {
	if _, err := time.Parse(DateLayout, v); err != nil {
		return fmt.Errorf("%w: %s must be a date like 2026-03-31", ErrValidation, field)
	}
	return nil
}

func (c *ChangeOrder) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	return nil
}

func (r *DailyReport) Validate() error {
	if err := validDate("report_date", r.ReportDate); err != nil {
		return err
	}
	if strings.TrimSpace(r.StatusNotes) == "" {
		return fmt.Errorf("%w: status_notes is required", ErrValidation)
	}
	return nil
}

func (h *HoursEntry) Validate() error {
	if h.EmployeeID == "" {
		return fmt.Errorf("%w: employee_id is required", ErrValidation)
	}
	if err := validDate("date", h.Date); err != nil {
		return err
	}
	if h.HoursWorked <= 0 || h.HoursWorked > 24 {
		return fmt.Errorf("%w: hours_worked must be between 0 and 24", ErrValidation)
	}
	return nil
}

func (e *Expense) Validate() error {
	if !e.ExpenseType.Valid() {
		return fmt.Errorf("%w: invalid expense_type %q", ErrValidation, e.ExpenseType)
	}
	if strings.TrimSpace(e.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrValidation)
	}
	if e.Cost < 0 {
		return fmt.Errorf("%w: cost must not be negative", ErrValidation)
	}
	return validDate("date_incurred", e.DateIncurred)
}
