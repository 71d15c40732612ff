package checklist

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"github.com/ldi/jobsite/pkg/models"
)

func ids(tasks []*models.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func assertDense(t *testing.T, tasks []*models.Task) {
	t.Helper()
	for i, task := range tasks {
		if task.SortOrder != i+1 {
			t.Fatalf("Expected sort_order %d at index %d, got %d", i+1, i, task.SortOrder)
		}
	}
}

func TestMoveToFront(t *testing.T) {
	tasks := []*models.Task{
		task("A", 1, models.TaskStatusPending, false),
		task("B", 2, models.TaskStatusPending, false),
		task("C", 3, models.TaskStatusPending, false),
	}

	moved, err := Move(tasks, 2, 0)
	if err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if got, want := ids(moved), []string{"C", "A", "B"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	assertDense(t, moved)

	if tasks[2].SortOrder != 3 || tasks[0].ID != "A" {
		t.Errorf("Move must not modify its input")
	}
}

func TestMove(t *testing.T) {
	base := func() []*models.Task {
		return []*models.Task{
			task("A", 1, models.TaskStatusPending, false),
			task("B", 2, models.TaskStatusPending, false),
			task("C", 3, models.TaskStatusPending, false),
			task("D", 4, models.TaskStatusPending, false),
		}
	}

	tests := []struct {
		from, to int
		want     []string
	}{
		{0, 3, []string{"B", "C", "D", "A"}},
		{1, 2, []string{"A", "C", "B", "D"}},
		{3, 1, []string{"A", "D", "B", "C"}},
		{2, 2, []string{"A", "B", "C", "D"}},
	}
	for _, tt := range tests {
		moved, err := Move(base(), tt.from, tt.to)
		if err != nil {
			t.Fatalf("Move(%d, %d) failed: %v", tt.from, tt.to, err)
		}
		if got := ids(moved); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Move(%d, %d) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
		assertDense(t, moved)
	}
}

func TestMoveOutOfRange(t *testing.T) {
	tasks := []*models.Task{task("A", 1, models.TaskStatusPending, false)}
	for _, idx := range [][2]int{{-1, 0}, {0, 1}, {1, 0}} {
		if _, err := Move(tasks, idx[0], idx[1]); !errors.Is(err, models.ErrValidation) {
			t.Errorf("Move(%d, %d): expected validation error, got %v", idx[0], idx[1], err)
		}
	}
}

func TestMoveKeepsDensityOverManyMoves(t *testing.T) {
	tasks := make([]*models.Task, 12)
	for i := range tasks {
		tasks[i] = task(string(rune('a'+i)), i+1, models.TaskStatusPending, false)
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		var err error
		tasks, err = Move(tasks, rng.Intn(len(tasks)), rng.Intn(len(tasks)))
		if err != nil {
			t.Fatalf("Move failed: %v", err)
		}
		assertDense(t, tasks)
	}

	seen := make(map[string]bool)
	for _, task := range tasks {
		if seen[task.ID] {
			t.Fatalf("Duplicate task %s after moves", task.ID)
		}
		seen[task.ID] = true
	}
}

func TestApplyOrder(t *testing.T) {
	tasks := []*models.Task{
		task("A", 1, models.TaskStatusPending, false),
		task("B", 2, models.TaskStatusPending, false),
		task("C", 3, models.TaskStatusPending, false),
	}

	ordered, err := ApplyOrder(tasks, []string{"B", "C", "A"})
	if err != nil {
		t.Fatalf("ApplyOrder failed: %v", err)
	}
	if got := ids(ordered); !reflect.DeepEqual(got, []string{"B", "C", "A"}) {
		t.Errorf("Unexpected order %v", got)
	}
	assertDense(t, ordered)

	bad := [][]string{
		{"A", "B"},
		{"A", "B", "X"},
		{"A", "A", "B"},
	}
	for _, ids := range bad {
		if _, err := ApplyOrder(tasks, ids); !errors.Is(err, models.ErrValidation) {
			t.Errorf("ApplyOrder(%v): expected validation error, got %v", ids, err)
		}
	}
}

func TestTaskOrderUpdates(t *testing.T) {
	moved, _ := Move([]*models.Task{
		task("A", 1, models.TaskStatusPending, false),
		task("B", 2, models.TaskStatusPending, false),
	}, 1, 0)
	got := TaskOrderUpdates(moved)
	want := []models.OrderUpdate{{ID: "B", SortOrder: 1}, {ID: "A", SortOrder: 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}
