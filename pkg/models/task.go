package models

import (
	"fmt"
	"strings"
	"time"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusHoldPoint  TaskStatus = "hold_point"
	TaskStatusInspection TaskStatus = "inspection"
)

var TaskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusInProgress,
	TaskStatusCompleted,
	TaskStatusHoldPoint,
	TaskStatusInspection,
}

func (s TaskStatus) Valid() bool {
	for _, v := range TaskStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type Task struct {
	ID              string     `json:"id"`
	ProjectID       string     `json:"project_id"`
	SectionID       string     `json:"section_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	SortOrder       int        `json:"sort_order"`
	Status          TaskStatus `json:"status"`
	AssignedTo      *string    `json:"assigned_to"`
	RequiresPicture bool       `json:"requires_picture"`
	IsInspection    bool       `json:"is_inspection"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// AssigneeName is joined from user_profiles.full_name
	AssigneeName string `json:"assignee_name,omitempty"`
}

// IsBlocking reports whether the task gates later tasks in its section.
func (t *Task) IsBlocking() bool {
	return (t.IsInspection || t.Status == TaskStatusInspection) && t.Status != TaskStatusCompleted
}

// Validate checks the fields required before a task may be persisted.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: task title is required", ErrValidation)
	}
	if t.ProjectID == "" {
		return fmt.Errorf("%w: project_id is required", ErrValidation)
	}
	if t.SectionID == "" {
		return fmt.Errorf("%w: section_id is required", ErrValidation)
	}
	if t.SortOrder < 0 {
		return fmt.Errorf("%w: sort_order must be positive, got %d", ErrValidation, t.SortOrder)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: invalid task status %q", ErrValidation, t.Status)
	}
	return nil
}

// OrderUpdate is the partial record written by bulk re-sequencing.
type OrderUpdate struct {
	ID        string `json:"id"`
	SortOrder int    `json:"sort_order"`
}
