package checklist

import (
	"errors"
	"strings"
	"testing"

	"github.com/ldi/jobsite/pkg/models"
)

func task(id string, sort int, status models.TaskStatus, inspection bool) *models.Task {
	return &models.Task{
		ID:           id,
		SectionID:    "s1",
		Title:        id,
		SortOrder:    sort,
		Status:       status,
		IsInspection: inspection,
	}
}

func TestIsBlocking(t *testing.T) {
	tests := []struct {
		name string
		task *models.Task
		want bool
	}{
		{"inspection pending", task("a", 1, models.TaskStatusPending, true), true},
		{"inspection in progress", task("a", 1, models.TaskStatusInProgress, true), true},
		{"inspection completed", task("a", 1, models.TaskStatusCompleted, true), false},
		{"status inspection", task("a", 1, models.TaskStatusInspection, false), true},
		{"hold point", task("a", 1, models.TaskStatusHoldPoint, false), false},
		{"plain pending", task("a", 1, models.TaskStatusPending, false), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.IsBlocking(); got != tt.want {
				t.Errorf("IsBlocking() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInspectionGateScenario(t *testing.T) {
	a := task("A", 1, models.TaskStatusPending, true)
	b := task("B", 2, models.TaskStatusPending, false)
	c := task("C", 3, models.TaskStatusPending, false)
	siblings := []*models.Task{a, b, c}

	err := CheckTransition(b, models.TaskStatusCompleted, siblings)
	var blocked *BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("Expected BlockedError, got %v", err)
	}
	if blocked.BlockerID != "A" || !strings.Contains(err.Error(), `"A"`) {
		t.Errorf("Expected refusal to name A, got %q", err.Error())
	}

	if err := CheckTransition(a, models.TaskStatusCompleted, siblings); err != nil {
		t.Fatalf("Expected inspection itself to be completable, got %v", err)
	}
	a.Status = models.TaskStatusCompleted

	if err := CheckTransition(b, models.TaskStatusCompleted, siblings); err != nil {
		t.Errorf("Expected B to be unblocked after A completed, got %v", err)
	}
}

func TestCheckTransition(t *testing.T) {
	inspection := task("insp", 2, models.TaskStatusPending, true)
	before := task("before", 1, models.TaskStatusPending, false)
	after := task("after", 3, models.TaskStatusInProgress, false)
	elsewhere := &models.Task{ID: "other", SectionID: "s2", Title: "other", SortOrder: 5, Status: models.TaskStatusPending}
	siblings := []*models.Task{before, inspection, after, elsewhere}

	tests := []struct {
		name     string
		target   *models.Task
		proposed models.TaskStatus
		blocked  bool
	}{
		{"earlier task is free", before, models.TaskStatusCompleted, false},
		{"later task blocked", after, models.TaskStatusCompleted, true},
		{"later task blocked from hold point", after, models.TaskStatusHoldPoint, true},
		{"later task may return to pending", after, models.TaskStatusPending, false},
		{"other section unaffected", elsewhere, models.TaskStatusCompleted, false},
		{"inspection not blocked by itself", inspection, models.TaskStatusCompleted, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTransition(tt.target, tt.proposed, siblings)
			if tt.blocked && err == nil {
				t.Errorf("Expected transition to be blocked")
			}
			if !tt.blocked && err != nil {
				t.Errorf("Expected transition to be allowed, got %v", err)
			}
		})
	}
}

func TestBlockerPicksEarliest(t *testing.T) {
	first := task("first", 1, models.TaskStatusInspection, false)
	second := task("second", 2, models.TaskStatusPending, true)
	target := task("target", 3, models.TaskStatusPending, false)

	// Order of siblings must not matter.
	b := Blocker(target, []*models.Task{target, second, first})
	if b == nil || b.ID != "first" {
		t.Fatalf("Expected earliest blocker first, got %v", b)
	}

	first.Status = models.TaskStatusCompleted
	b = Blocker(target, []*models.Task{first, second, target})
	if b == nil || b.ID != "second" {
		t.Fatalf("Expected second to block once first completed, got %v", b)
	}
	if !IsBlocked(target, []*models.Task{first, second, target}) {
		t.Errorf("Expected IsBlocked to agree with Blocker")
	}
}

func TestAnnotate(t *testing.T) {
	tasks := []*models.Task{
		task("A", 1, models.TaskStatusCompleted, false),
		task("B", 2, models.TaskStatusPending, true),
		task("C", 3, models.TaskStatusPending, false),
	}
	views := Annotate(tasks)
	if views[0].Blocked || views[1].Blocked {
		t.Errorf("Expected A and B to be free, got %+v", views)
	}
	if !views[2].Blocked || views[2].BlockedBy == nil || views[2].BlockedBy.Title != "B" {
		t.Errorf("Expected C blocked by B, got %+v", views[2])
	}
	if len(views) != len(tasks) {
		t.Errorf("Annotate must not filter tasks")
	}
}
