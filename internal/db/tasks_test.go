package db

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ldi/jobsite/pkg/models"
)

func TestTaskCRUD(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := seedProject(t, db)
	s := seedSection(t, db, p.ID, "Rough-in")

	foreman := &models.UserProfile{Email: "rita@example.com", FullName: "Rita Alvarez", Role: models.RoleForeman}
	if err := db.CreateUser(ctx, foreman); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	task := &models.Task{
		ProjectID:       p.ID,
		SectionID:       s.ID,
		Title:           "Run plumbing stack",
		Description:     "3in PVC to roof",
		RequiresPicture: true,
	}
	if err := db.CreateTask(ctx, task); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	if len(task.ID) != 36 || !strings.Contains(task.ID, "-") {
		t.Errorf("Expected UUID id, got %s", task.ID)
	}
	if task.SortOrder != 1 {
		t.Errorf("Expected first task to get sort_order 1, got %d", task.SortOrder)
	}
	if task.Status != models.TaskStatusPending {
		t.Errorf("Expected default status pending, got %s", task.Status)
	}
	if task.CreatedAt.IsZero() || task.UpdatedAt.IsZero() {
		t.Errorf("Expected CreatedAt and UpdatedAt to be set")
	}

	fetched, err := db.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if fetched == nil {
		t.Fatalf("Task not found")
	}
	if fetched.Title != task.Title || !fetched.RequiresPicture || fetched.IsInspection {
		t.Errorf("Unexpected task %+v", fetched)
	}

	if err := db.UpdateTaskAssignee(ctx, task.ID, &foreman.ID); err != nil {
		t.Fatalf("Failed to assign task: %v", err)
	}
	fetched, _ = db.GetTask(ctx, task.ID)
	if fetched.AssignedTo == nil || *fetched.AssignedTo != foreman.ID {
		t.Errorf("Expected assignee %s, got %v", foreman.ID, fetched.AssignedTo)
	}
	if fetched.AssigneeName != "Rita Alvarez" {
		t.Errorf("Expected assignee name Rita Alvarez, got %q", fetched.AssigneeName)
	}

	if err := db.UpdateTaskStatus(ctx, task.ID, models.TaskStatusInProgress); err != nil {
		t.Fatalf("Failed to update status: %v", err)
	}
	fetched, _ = db.GetTask(ctx, task.ID)
	if fetched.Status != models.TaskStatusInProgress {
		t.Errorf("Expected status in_progress, got %s", fetched.Status)
	}

	fetched.Title = "Run plumbing stack and vents"
	fetched.IsInspection = true
	if err := db.UpdateTask(ctx, fetched); err != nil {
		t.Fatalf("Failed to update task: %v", err)
	}
	again, _ := db.GetTask(ctx, task.ID)
	if again.Title != "Run plumbing stack and vents" || !again.IsInspection {
		t.Errorf("Full edit not stored: %+v", again)
	}

	if err := db.UpdateTaskAssignee(ctx, task.ID, nil); err != nil {
		t.Fatalf("Failed to unassign: %v", err)
	}
	again, _ = db.GetTask(ctx, task.ID)
	if again.AssignedTo != nil || again.AssigneeName != "" {
		t.Errorf("Expected task to be unassigned, got %+v", again)
	}

	if err := db.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("Failed to delete task: %v", err)
	}
	fetched, err = db.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("Failed to get task after deletion: %v", err)
	}
	if fetched != nil {
		t.Errorf("Expected task to be deleted, but it still exists")
	}

	if err := db.DeleteTask(ctx, task.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
	}
	if err := db.UpdateTaskStatus(ctx, "missing", models.TaskStatusCompleted); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing task, got %v", err)
	}
}

func TestCreateTaskAtPosition(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := seedProject(t, db)
	s := seedSection(t, db, p.ID, "Framing")
	seedTask(t, db, s, "A")
	seedTask(t, db, s, "B")
	seedTask(t, db, s, "C")

	inserted := &models.Task{ProjectID: p.ID, SectionID: s.ID, Title: "X", SortOrder: 2}
	if err := db.CreateTask(ctx, inserted); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	if inserted.SortOrder != 2 {
		t.Errorf("Expected sort_order 2, got %d", inserted.SortOrder)
	}

	appended := &models.Task{ProjectID: p.ID, SectionID: s.ID, Title: "Z", SortOrder: 99}
	if err := db.CreateTask(ctx, appended); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	if appended.SortOrder != 5 {
		t.Errorf("Expected out-of-range position to append at 5, got %d", appended.SortOrder)
	}

	got := taskTitles(t, db, s.ID)
	want := []string{"A", "X", "B", "C", "Z"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestUpdateTaskMovesWithinSection(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := seedProject(t, db)
	s := seedSection(t, db, p.ID, "Framing")
	seedTask(t, db, s, "A")
	seedTask(t, db, s, "B")
	c := seedTask(t, db, s, "C")
	seedTask(t, db, s, "D")

	c.SortOrder = 1
	if err := db.UpdateTask(ctx, c); err != nil {
		t.Fatalf("Failed to move task up: %v", err)
	}
	if got, want := taskTitles(t, db, s.ID), []string{"C", "A", "B", "D"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	c.SortOrder = 4
	if err := db.UpdateTask(ctx, c); err != nil {
		t.Fatalf("Failed to move task down: %v", err)
	}
	if got, want := taskTitles(t, db, s.ID), []string{"A", "B", "D", "C"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestDeleteTaskClosesGap(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := seedProject(t, db)
	s := seedSection(t, db, p.ID, "Framing")
	seedTask(t, db, s, "A")
	b := seedTask(t, db, s, "B")
	seedTask(t, db, s, "C")

	if err := db.DeleteTask(ctx, b.ID); err != nil {
		t.Fatalf("Failed to delete task: %v", err)
	}
	if got, want := taskTitles(t, db, s.ID), []string{"A", "C"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestBulkUpsertTaskOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := seedProject(t, db)
	s := seedSection(t, db, p.ID, "Framing")
	a := seedTask(t, db, s, "A")
	b := seedTask(t, db, s, "B")
	c := seedTask(t, db, s, "C")

	err := db.BulkUpsertTaskOrder(ctx, []models.OrderUpdate{
		{ID: c.ID, SortOrder: 1},
		{ID: a.ID, SortOrder: 2},
		{ID: b.ID, SortOrder: 3},
	})
	if err != nil {
		t.Fatalf("Failed to bulk update order: %v", err)
	}
	if got, want := taskTitles(t, db, s.ID), []string{"C", "A", "B"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestBulkUpsertTaskOrderIsAllOrNothing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := seedProject(t, db)
	s := seedSection(t, db, p.ID, "Framing")
	a := seedTask(t, db, s, "A")
	b := seedTask(t, db, s, "B")

	err := db.BulkUpsertTaskOrder(ctx, []models.OrderUpdate{
		{ID: b.ID, SortOrder: 1},
		{ID: "deleted-elsewhere", SortOrder: 2},
		{ID: a.ID, SortOrder: 3},
	})
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	if got, want := taskTitles(t, db, s.ID), []string{"A", "B"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected order to be unchanged %v, got %v", want, got)
	}
}

func TestListTasksByProject(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := seedProject(t, db)
	other := seedProject(t, db)
	s1 := seedSection(t, db, p.ID, "One")
	s2 := seedSection(t, db, p.ID, "Two")
	s3 := seedSection(t, db, other.ID, "Elsewhere")
	seedTask(t, db, s1, "A")
	seedTask(t, db, s2, "B")
	seedTask(t, db, s3, "C")

	tasks, err := db.ListTasks(ctx, p.ID)
	if err != nil {
		t.Fatalf("Failed to list tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Errorf("Expected 2 tasks for project, got %d", len(tasks))
	}
	for _, task := range tasks {
		if task.ProjectID != p.ID {
			t.Errorf("Task %s belongs to another project", task.Title)
		}
	}
}
