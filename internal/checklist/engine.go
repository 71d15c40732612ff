// Package checklist holds the project checklist rules: the inspection gate
// that blocks later tasks in a section, dense re-sequencing of sections and
// tasks, and the role-checked service that applies both against a Store.
package checklist

import (
	"fmt"

	"github.com/ldi/jobsite/pkg/models"
)

// BlockedError is returned when a status change is refused because an
// earlier task in the same section is a pending inspection.
type BlockedError struct {
	TaskID       string
	BlockerID    string
	BlockerTitle string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("cannot update task: blocked by pending inspection %q", e.BlockerTitle)
}

// Blocker returns the earliest blocking task that precedes target in its
// section, or nil. siblings may contain tasks from other sections and the
// target itself; both are ignored.
func Blocker(target *models.Task, siblings []*models.Task) *models.Task {
	var found *models.Task
	for _, s := range siblings {
		if s.ID == target.ID || s.SectionID != target.SectionID {
			continue
		}
		if s.SortOrder >= target.SortOrder || !s.IsBlocking() {
			continue
		}
		if found == nil || s.SortOrder < found.SortOrder {
			found = s
		}
	}
	return found
}

// IsBlocked reports whether target sits behind a pending inspection.
func IsBlocked(target *models.Task, siblings []*models.Task) bool {
	return Blocker(target, siblings) != nil
}

// CheckTransition decides whether target may move to the proposed status.
// Moving back to pending is always allowed.
func CheckTransition(target *models.Task, proposed models.TaskStatus, siblings []*models.Task) error {
	if proposed == models.TaskStatusPending {
		return nil
	}
	if b := Blocker(target, siblings); b != nil {
		return &BlockedError{TaskID: target.ID, BlockerID: b.ID, BlockerTitle: b.Title}
	}
	return nil
}
