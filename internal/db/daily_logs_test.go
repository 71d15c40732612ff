package db

import (
	"context"
	"errors"
	"testing"

	"github.com/ldi/jobsite/pkg/models"
)

func seedForeman(t *testing.T, db *DB) *models.UserProfile {
	t.Helper()
	u := &models.UserProfile{Email: "rosa@example.com", FullName: "Rosa Diaz", Role: models.RoleForeman}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return u
}

func TestChangeOrders(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := seedProject(t, db)
	u := seedForeman(t, db)

	first := &models.ChangeOrder{ProjectID: p.ID, Name: "CO-1 Add skylight", Details: "Owner request", FilePath: p.ID + "/change_orders/a.pdf", CreatedBy: u.ID}
	second := &models.ChangeOrder{ProjectID: p.ID, Name: "CO-2 Upgrade siding", FilePath: p.ID + "/change_orders/b.pdf", CreatedBy: u.ID}
	for _, c := range []*models.ChangeOrder{first, second} {
		if err := db.CreateChangeOrder(ctx, c); err != nil {
			t.Fatalf("Failed to create change order: %v", err)
		}
	}

	got, err := db.GetChangeOrder(ctx, first.ID)
	if err != nil || got == nil {
		t.Fatalf("Failed to get change order: %v", err)
	}
	if got.Details != "Owner request" || got.CreatedBy != u.ID {
		t.Errorf("Unexpected change order %+v", got)
	}

	list, err := db.ListChangeOrders(ctx, p.ID)
	if err != nil {
		t.Fatalf("Failed to list change orders: %v", err)
	}
	if len(list) != 2 || list[0].Name != "CO-1 Add skylight" {
		t.Errorf("Unexpected change orders %+v", list)
	}

	if err := db.DeleteChangeOrder(ctx, first.ID); err != nil {
		t.Fatalf("Failed to delete change order: %v", err)
	}
	if got, _ := db.GetChangeOrder(ctx, first.ID); got != nil {
		t.Error("Expected change order to be gone")
	}
	if err := db.DeleteChangeOrder(ctx, first.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDailyReports(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := seedProject(t, db)
	u := seedForeman(t, db)

	older := &models.DailyReport{ProjectID: p.ID, ForemanID: u.ID, ReportDate: "2026-03-30", StatusNotes: "Footings poured"}
	newer := &models.DailyReport{ProjectID: p.ID, ForemanID: u.ID, ReportDate: "2026-03-31", StatusNotes: "Forms stripped", CloseoutCompleted: true}
	for _, r := range []*models.DailyReport{older, newer} {
		if err := db.CreateDailyReport(ctx, r); err != nil {
			t.Fatalf("Failed to create daily report: %v", err)
		}
	}

	dup := &models.DailyReport{ProjectID: p.ID, ForemanID: u.ID, ReportDate: "2026-03-31", StatusNotes: "Again"}
	if err := db.CreateDailyReport(ctx, dup); err == nil {
		t.Error("Expected a second report for the same date to fail")
	}

	byDate, err := db.GetDailyReportByDate(ctx, p.ID, "2026-03-31")
	if err != nil || byDate == nil {
		t.Fatalf("Failed to get report by date: %v", err)
	}
	if !byDate.CloseoutCompleted || byDate.ForemanName != "Rosa Diaz" {
		t.Errorf("Unexpected report %+v", byDate)
	}
	if missing, err := db.GetDailyReportByDate(ctx, p.ID, "2026-04-01"); err != nil || missing != nil {
		t.Errorf("Expected nil, nil for a date without a report, got %v, %v", missing, err)
	}

	list, err := db.ListDailyReports(ctx, p.ID)
	if err != nil {
		t.Fatalf("Failed to list daily reports: %v", err)
	}
	if len(list) != 2 || list[0].ReportDate != "2026-03-31" {
		t.Errorf("Expected latest report first, got %+v", list)
	}

	if err := db.DeleteDailyReport(ctx, older.ID); err != nil {
		t.Fatalf("Failed to delete daily report: %v", err)
	}
}

func TestHoursAndExpenses(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := seedProject(t, db)
	u := seedForeman(t, db)

	for _, h := range []*models.HoursEntry{
		{ProjectID: p.ID, EmployeeID: u.ID, Date: "2026-03-30", HoursWorked: 8},
		{ProjectID: p.ID, EmployeeID: u.ID, Date: "2026-03-31", HoursWorked: 6.5},
	} {
		if err := db.CreateHours(ctx, h); err != nil {
			t.Fatalf("Failed to log hours: %v", err)
		}
	}
	over := &models.HoursEntry{ProjectID: p.ID, EmployeeID: u.ID, Date: "2026-03-31", HoursWorked: 30}
	if err := db.CreateHours(ctx, over); err == nil {
		t.Error("Expected more than 24 hours in a day to be rejected")
	}

	hours, err := db.ListHours(ctx, p.ID)
	if err != nil {
		t.Fatalf("Failed to list hours: %v", err)
	}
	if len(hours) != 2 || hours[0].HoursWorked != 6.5 || hours[0].EmployeeName != "Rosa Diaz" {
		t.Errorf("Unexpected hours %+v", hours)
	}
	if err := db.DeleteHours(ctx, hours[1].ID); err != nil {
		t.Fatalf("Failed to delete hours: %v", err)
	}

	e := &models.Expense{ProjectID: p.ID, ExpenseType: models.ExpenseSubcontractorBill, Description: "Electrician rough-in", Cost: 1800, DateIncurred: "2026-03-29"}
	if err := db.CreateExpense(ctx, e); err != nil {
		t.Fatalf("Failed to create expense: %v", err)
	}
	got, err := db.GetExpense(ctx, e.ID)
	if err != nil || got == nil {
		t.Fatalf("Failed to get expense: %v", err)
	}
	if got.ExpenseType != models.ExpenseSubcontractorBill || got.Cost != 1800 {
		t.Errorf("Unexpected expense %+v", got)
	}
	if err := db.DeleteExpense(ctx, e.ID); err != nil {
		t.Fatalf("Failed to delete expense: %v", err)
	}
	if list, _ := db.ListExpenses(ctx, p.ID); len(list) != 0 {
		t.Errorf("Expected no expenses, got %d", len(list))
	}
}
