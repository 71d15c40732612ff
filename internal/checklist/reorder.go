package checklist

import (
	"fmt"

	"github.com/ldi/jobsite/pkg/models"
)

// splice moves the element at from to index to and returns a new slice.
func splice[T any](items []T, from, to int) ([]T, error) {
	if from < 0 || from >= len(items) {
		return nil, fmt.Errorf("%w: source index %d out of range [0,%d)", models.ErrValidation, from, len(items))
	}
	if to < 0 || to >= len(items) {
		return nil, fmt.Errorf("%w: destination index %d out of range [0,%d)", models.ErrValidation, to, len(items))
	}

	out := make([]T, 0, len(items))
	out = append(out, items[:from]...)
	out = append(out, items[from+1:]...)

	moved := items[from]
	out = append(out[:to], append([]T{moved}, out[to:]...)...)
	return out, nil
}

// Move relocates the task at index from to index to and renumbers every task
// to its position plus one. The input tasks are not modified.
func Move(tasks []*models.Task, from, to int) ([]*models.Task, error) {
	moved, err := splice(tasks, from, to)
	if err != nil {
		return nil, err
	}
	return renumberTasks(moved), nil
}

// MoveSections is Move for the sections of one phase.
func MoveSections(sections []*models.Section, from, to int) ([]*models.Section, error) {
	moved, err := splice(sections, from, to)
	if err != nil {
		return nil, err
	}
	return renumberSections(moved), nil
}

// ApplyOrder arranges tasks in the order given by ids. ids must name every
// task exactly once.
func ApplyOrder(tasks []*models.Task, ids []string) ([]*models.Task, error) {
	if len(ids) != len(tasks) {
		return nil, fmt.Errorf("%w: expected %d task ids, got %d", models.ErrValidation, len(tasks), len(ids))
	}

	byID := make(map[string]*models.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	ordered := make([]*models.Task, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: task %s is not in this section", models.ErrValidation, id)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: task %s listed twice", models.ErrValidation, id)
		}
		seen[id] = true
		ordered = append(ordered, t)
	}
	return renumberTasks(ordered), nil
}

func renumberTasks(tasks []*models.Task) []*models.Task {
	out := make([]*models.Task, len(tasks))
	for i, t := range tasks {
		c := *t
		c.SortOrder = i + 1
		out[i] = &c
	}
	return out
}

func renumberSections(sections []*models.Section) []*models.Section {
	out := make([]*models.Section, len(sections))
	for i, s := range sections {
		c := *s
		c.SortOrder = i + 1
		out[i] = &c
	}
	return out
}

// TaskOrderUpdates lists the id and sort_order of every task.
func TaskOrderUpdates(tasks []*models.Task) []models.OrderUpdate {
	updates := make([]models.OrderUpdate, len(tasks))
	for i, t := range tasks {
		updates[i] = models.OrderUpdate{ID: t.ID, SortOrder: t.SortOrder}
	}
	return updates
}

func sectionOrderUpdates(sections []*models.Section) []models.OrderUpdate {
	updates := make([]models.OrderUpdate, len(sections))
	for i, s := range sections {
		updates[i] = models.OrderUpdate{ID: s.ID, SortOrder: s.SortOrder}
	}
	return updates
}
