package sitework

import (
	"context"
	"fmt"
	"strings"

	"github.com/ldi/jobsite/internal/logging"
	"github.com/ldi/jobsite/pkg/models"
)

// DailyLog is everything recorded on site for a project, with running totals.
type DailyLog struct {
	Reports       []*models.DailyReport `json:"reports"`
	Hours         []*models.HoursEntry  `json:"hours"`
	Expenses      []*models.Expense     `json:"expenses"`
	TotalHours    float64               `json:"total_hours"`
	TotalExpenses float64               `json:"total_expenses"`
}

// DailyLog is restricted to admins and foremen.
func (s *Service) DailyLog(ctx context.Context, actor models.Actor, projectID string) (*DailyLog, error) {
	if _, err := s.managedProject(ctx, actor, projectID, "view the daily log"); err != nil {
		return nil, err
	}
	reports, err := s.store.ListDailyReports(ctx, projectID)
	if err != nil {
		return nil, err
	}
	hours, err := s.store.ListHours(ctx, projectID)
	if err != nil {
		return nil, err
	}
	expenses, err := s.store.ListExpenses(ctx, projectID)
	if err != nil {
		return nil, err
	}

	log := &DailyLog{Reports: reports, Hours: hours, Expenses: expenses}
	for _, h := range hours {
		log.TotalHours += h.HoursWorked
	}
	for _, e := range expenses {
		log.TotalExpenses += e.Cost
	}
	return log, nil
}

// Daily reports

// CreateDailyReport files the acting foreman's report. Each date gets at
// most one report per project.
func (s *Service) CreateDailyReport(ctx context.Context, actor models.Actor, r *models.DailyReport) (*models.DailyReport, error) {
	if _, err := s.managedProject(ctx, actor, r.ProjectID, "file daily reports"); err != nil {
		return nil, err
	}
	r.StatusNotes = strings.TrimSpace(r.StatusNotes)
	if err := r.Validate(); err != nil {
		return nil, err
	}
	existing, err := s.store.GetDailyReportByDate(ctx, r.ProjectID, r.ReportDate)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: a daily report already exists for %s", models.ErrValidation, r.ReportDate)
	}

	r.ForemanID = actor.UserID
	if err := s.store.CreateDailyReport(ctx, r); err != nil {
		return nil, err
	}
	logging.Logger.WithField("project_id", r.ProjectID).
		Infof("Event ID: DAILY_REPORT_FILED, Description: report for %s", r.ReportDate)
	return s.store.GetDailyReport(ctx, r.ID)
}

func (s *Service) DeleteDailyReport(ctx context.Context, actor models.Actor, id string) error {
	r, err := s.store.GetDailyReport(ctx, id)
	if err != nil {
		return err
	}
	if r == nil {
		return notFound("daily report", id)
	}
	if _, err := s.managedProject(ctx, actor, r.ProjectID, "delete daily reports"); err != nil {
		return err
	}
	return s.store.DeleteDailyReport(ctx, id)
}

// Hours

// LogHours records time for an employee or foreman.
func (s *Service) LogHours(ctx context.Context, actor models.Actor, h *models.HoursEntry) (*models.HoursEntry, error) {
	if _, err := s.managedProject(ctx, actor, h.ProjectID, "log hours"); err != nil {
		return nil, err
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	u, err := s.store.GetUser(ctx, h.EmployeeID)
	if err != nil {
		return nil, err
	}
	if u == nil || (u.Role != models.RoleEmployee && u.Role != models.RoleForeman) {
		return nil, fmt.Errorf("%w: %s is not an employee or foreman", models.ErrValidation, h.EmployeeID)
	}
	if err := s.store.CreateHours(ctx, h); err != nil {
		return nil, err
	}
	return s.store.GetHours(ctx, h.ID)
}

func (s *Service) DeleteHours(ctx context.Context, actor models.Actor, id string) error {
	h, err := s.store.GetHours(ctx, id)
	if err != nil {
		return err
	}
	if h == nil {
		return notFound("hours", id)
	}
	if _, err := s.managedProject(ctx, actor, h.ProjectID, "delete hours"); err != nil {
		return err
	}
	return s.store.DeleteHours(ctx, id)
}

// Expenses

func (s *Service) CreateExpense(ctx context.Context, actor models.Actor, e *models.Expense) (*models.Expense, error) {
	if _, err := s.managedProject(ctx, actor, e.ProjectID, "log expenses"); err != nil {
		return nil, err
	}
	if e.ExpenseType == "" {
		e.ExpenseType = models.ExpenseMaterial
	}
	e.Description = strings.TrimSpace(e.Description)
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateExpense(ctx, e); err != nil {
		return nil, err
	}
	return s.store.GetExpense(ctx, e.ID)
}

func (s *Service) DeleteExpense(ctx context.Context, actor models.Actor, id string) error {
	e, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return err
	}
	if e == nil {
		return notFound("expense", id)
	}
	if _, err := s.managedProject(ctx, actor, e.ProjectID, "delete expenses"); err != nil {
		return err
	}
	return s.store.DeleteExpense(ctx, id)
}
