package checklist

import (
	"context"
	"errors"
	"fmt"

	"github.com/ldi/jobsite/pkg/models"
)

// Store is the record store the checklist reads and writes.
// Getters return nil, nil for missing records.
type Store interface {
	GetProject(ctx context.Context, id string) (*models.Project, error)

	GetSection(ctx context.Context, id string) (*models.Section, error)
	ListSections(ctx context.Context, projectID string, phase *models.Phase) ([]*models.Section, error)
	CreateSection(ctx context.Context, s *models.Section) error
	UpdateSection(ctx context.Context, s *models.Section) error
	DeleteSection(ctx context.Context, id string) error
	BulkUpsertSectionOrder(ctx context.Context, updates []models.OrderUpdate) error

	GetTask(ctx context.Context, id string) (*models.Task, error)
	ListTasks(ctx context.Context, projectID string) ([]*models.Task, error)
	ListSectionTasks(ctx context.Context, sectionID string) ([]*models.Task, error)
	CreateTask(ctx context.Context, t *models.Task) error
	UpdateTask(ctx context.Context, t *models.Task) error
	UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) error
	UpdateTaskAssignee(ctx context.Context, id string, userID *string) error
	DeleteTask(ctx context.Context, id string) error
	BulkUpsertTaskOrder(ctx context.Context, updates []models.OrderUpdate) error
}

// Directory resolves user profiles.
type Directory interface {
	GetUser(ctx context.Context, id string) (*models.UserProfile, error)
}

type Service struct {
	store Store
	users Directory
}

func NewService(store Store, users Directory) *Service {
	return &Service{store: store, users: users}
}

func forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", models.ErrForbidden, fmt.Sprintf(format, args...))
}

func requireManager(actor models.Actor, action string) error {
	if !actor.Role.IsManager() {
		return forbidden("role %q may not %s", actor.Role, action)
	}
	return nil
}

func (s *Service) project(ctx context.Context, actor models.Actor, id string) (*models.Project, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil || !actor.CanViewProject(p) {
		return nil, fmt.Errorf("project %s: %w", id, models.ErrNotFound)
	}
	return p, nil
}

// section loads a section the actor may see.
func (s *Service) section(ctx context.Context, actor models.Actor, id string) (*models.Section, error) {
	sec, err := s.store.GetSection(ctx, id)
	if err != nil {
		return nil, err
	}
	if sec == nil {
		return nil, fmt.Errorf("section %s: %w", id, models.ErrNotFound)
	}
	if _, err := s.project(ctx, actor, sec.ProjectID); err != nil {
		return nil, err
	}
	if !sec.Allows(actor.Role) {
		return nil, fmt.Errorf("section %s: %w", id, models.ErrNotFound)
	}
	return sec, nil
}

// task loads a task the actor may see along with its section.
func (s *Service) task(ctx context.Context, actor models.Actor, id string) (*models.Task, *models.Section, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if t == nil {
		return nil, nil, fmt.Errorf("task %s: %w", id, models.ErrNotFound)
	}
	sec, err := s.section(ctx, actor, t.SectionID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil, fmt.Errorf("task %s: %w", id, models.ErrNotFound)
		}
		return nil, nil, err
	}
	return t, sec, nil
}

func (s *Service) reload(ctx context.Context, id string) (*models.Task, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("task %s: %w", id, models.ErrNotFound)
	}
	return t, nil
}

func (s *Service) checkAssignee(ctx context.Context, userID *string) error {
	if userID == nil || *userID == "" {
		return nil
	}
	u, err := s.users.GetUser(ctx, *userID)
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("%w: assignee %s does not exist", models.ErrValidation, *userID)
	}
	return nil
}

// Checklist returns the project's sections visible to the actor with their
// tasks annotated by gate state. A nil phase includes every phase.
func (s *Service) Checklist(ctx context.Context, actor models.Actor, projectID string, phase *models.Phase) (*View, error) {
	if phase != nil && !phase.Valid() {
		return nil, fmt.Errorf("%w: invalid phase %q", models.ErrValidation, *phase)
	}
	p, err := s.project(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}

	sections, err := s.store.ListSections(ctx, projectID, phase)
	if err != nil {
		return nil, err
	}
	visible := sections[:0:0]
	for _, sec := range sections {
		if sec.Allows(actor.Role) {
			visible = append(visible, sec)
		}
	}

	tasks, err := s.store.ListTasks(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return BuildView(p, phase, visible, tasks), nil
}

// CreateSection adds a section at sec.SortOrder, or appends when zero.
func (s *Service) CreateSection(ctx context.Context, actor models.Actor, sec *models.Section) (*models.Section, error) {
	if err := requireManager(actor, "create sections"); err != nil {
		return nil, err
	}
	if len(sec.AllowedRoles) == 0 {
		sec.AllowedRoles = append([]models.Role(nil), models.DefaultSectionRoles...)
	}
	if err := sec.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.project(ctx, actor, sec.ProjectID); err != nil {
		return nil, err
	}
	if err := s.store.CreateSection(ctx, sec); err != nil {
		return nil, err
	}
	return sec, nil
}

// UpdateSection renames a section or changes the roles that see it. Phase
// and position are not edited here.
func (s *Service) UpdateSection(ctx context.Context, actor models.Actor, id, title string, roles []models.Role) (*models.Section, error) {
	if err := requireManager(actor, "edit sections"); err != nil {
		return nil, err
	}
	sec, err := s.section(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if title != "" {
		sec.Title = title
	}
	if roles != nil {
		sec.AllowedRoles = roles
	}
	if err := sec.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateSection(ctx, sec); err != nil {
		return nil, err
	}
	return sec, nil
}

// DeleteSection removes a section and every task in it.
func (s *Service) DeleteSection(ctx context.Context, actor models.Actor, id string) error {
	if err := requireManager(actor, "delete sections"); err != nil {
		return err
	}
	if _, err := s.section(ctx, actor, id); err != nil {
		return err
	}
	return s.store.DeleteSection(ctx, id)
}

// CreateTask adds a task to an existing section. The project is taken from
// the section.
func (s *Service) CreateTask(ctx context.Context, actor models.Actor, t *models.Task) (*models.Task, error) {
	if err := requireManager(actor, "create tasks"); err != nil {
		return nil, err
	}
	sec, err := s.section(ctx, actor, t.SectionID)
	if err != nil {
		return nil, err
	}
	t.ProjectID = sec.ProjectID
	if t.Status == "" {
		t.Status = models.TaskStatusPending
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkAssignee(ctx, t.AssignedTo); err != nil {
		return nil, err
	}
	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, err
	}
	return s.reload(ctx, t.ID)
}

// UpdateTask applies a full edit. A status change in the edit passes the
// same gate as UpdateTaskStatus.
func (s *Service) UpdateTask(ctx context.Context, actor models.Actor, edit *models.Task) (*models.Task, error) {
	if err := requireManager(actor, "edit tasks"); err != nil {
		return nil, err
	}
	current, _, err := s.task(ctx, actor, edit.ID)
	if err != nil {
		return nil, err
	}

	edit.ProjectID = current.ProjectID
	edit.SectionID = current.SectionID
	if edit.SortOrder == 0 {
		edit.SortOrder = current.SortOrder
	}
	if err := edit.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkAssignee(ctx, edit.AssignedTo); err != nil {
		return nil, err
	}

	if edit.Status != current.Status {
		siblings, err := s.store.ListSectionTasks(ctx, current.SectionID)
		if err != nil {
			return nil, err
		}
		if err := CheckTransition(current, edit.Status, siblings); err != nil {
			return nil, err
		}
	}

	if err := s.store.UpdateTask(ctx, edit); err != nil {
		return nil, err
	}
	return s.reload(ctx, edit.ID)
}

// UpdateTaskStatus changes a task's status, subject to the inspection gate.
// Crew roles may progress tasks; only managers may set a hold point.
func (s *Service) UpdateTaskStatus(ctx context.Context, actor models.Actor, id string, status models.TaskStatus) (*models.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid task status %q", models.ErrValidation, status)
	}
	if !actor.Role.IsCrew() {
		return nil, forbidden("role %q may not change task status", actor.Role)
	}
	if status == models.TaskStatusHoldPoint && !actor.Role.IsManager() {
		return nil, forbidden("only managers may set a hold point")
	}

	t, _, err := s.task(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if t.Status == status {
		return t, nil
	}

	siblings, err := s.store.ListSectionTasks(ctx, t.SectionID)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(t, status, siblings); err != nil {
		return nil, err
	}

	if err := s.store.UpdateTaskStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.reload(ctx, id)
}

// AssignTask sets or clears a task's assignee.
func (s *Service) AssignTask(ctx context.Context, actor models.Actor, id string, userID *string) (*models.Task, error) {
	if err := requireManager(actor, "assign tasks"); err != nil {
		return nil, err
	}
	if userID != nil && *userID == "" {
		userID = nil
	}
	if _, _, err := s.task(ctx, actor, id); err != nil {
		return nil, err
	}
	if err := s.checkAssignee(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.store.UpdateTaskAssignee(ctx, id, userID); err != nil {
		return nil, err
	}
	return s.reload(ctx, id)
}

func (s *Service) DeleteTask(ctx context.Context, actor models.Actor, id string) error {
	if err := requireManager(actor, "delete tasks"); err != nil {
		return err
	}
	if _, _, err := s.task(ctx, actor, id); err != nil {
		return err
	}
	return s.store.DeleteTask(ctx, id)
}

// ReorderTasks moves the task at index from to index to within a section and
// stores the renumbered sequence in one write. When from equals to nothing is
// written. On a failed write the stored order is re-read and returned with
// the error so callers can discard their optimistic state.
func (s *Service) ReorderTasks(ctx context.Context, actor models.Actor, sectionID string, from, to int) ([]*models.Task, error) {
	if err := requireManager(actor, "reorder tasks"); err != nil {
		return nil, err
	}
	if _, err := s.section(ctx, actor, sectionID); err != nil {
		return nil, err
	}
	current, err := s.store.ListSectionTasks(ctx, sectionID)
	if err != nil {
		return nil, err
	}

	reordered, err := Move(current, from, to)
	if err != nil {
		return nil, err
	}
	if from == to {
		return current, nil
	}
	return s.persistTaskOrder(ctx, sectionID, reordered)
}

// ApplyTaskOrder stores a complete desired order for a section's tasks.
func (s *Service) ApplyTaskOrder(ctx context.Context, actor models.Actor, sectionID string, ids []string) ([]*models.Task, error) {
	if err := requireManager(actor, "reorder tasks"); err != nil {
		return nil, err
	}
	if _, err := s.section(ctx, actor, sectionID); err != nil {
		return nil, err
	}
	current, err := s.store.ListSectionTasks(ctx, sectionID)
	if err != nil {
		return nil, err
	}

	reordered, err := ApplyOrder(current, ids)
	if err != nil {
		return nil, err
	}
	if sameOrder(current, reordered) {
		return current, nil
	}
	return s.persistTaskOrder(ctx, sectionID, reordered)
}

func sameOrder(current, reordered []*models.Task) bool {
	for i := range current {
		if current[i].ID != reordered[i].ID || current[i].SortOrder != reordered[i].SortOrder {
			return false
		}
	}
	return true
}

func (s *Service) persistTaskOrder(ctx context.Context, sectionID string, reordered []*models.Task) ([]*models.Task, error) {
	if err := s.store.BulkUpsertTaskOrder(ctx, TaskOrderUpdates(reordered)); err != nil {
		stored, rerr := s.store.ListSectionTasks(ctx, sectionID)
		if rerr != nil {
			return nil, fmt.Errorf("failed to save task order: %w", errors.Join(err, rerr))
		}
		return stored, fmt.Errorf("failed to save task order: %w", err)
	}
	return s.store.ListSectionTasks(ctx, sectionID)
}

// ReorderSections moves a section within its phase using the same algorithm
// as ReorderTasks.
func (s *Service) ReorderSections(ctx context.Context, actor models.Actor, projectID string, phase models.Phase, from, to int) ([]*models.Section, error) {
	if err := requireManager(actor, "reorder sections"); err != nil {
		return nil, err
	}
	if !phase.Valid() {
		return nil, fmt.Errorf("%w: invalid phase %q", models.ErrValidation, phase)
	}
	if _, err := s.project(ctx, actor, projectID); err != nil {
		return nil, err
	}
	current, err := s.store.ListSections(ctx, projectID, &phase)
	if err != nil {
		return nil, err
	}

	reordered, err := MoveSections(current, from, to)
	if err != nil {
		return nil, err
	}
	if from == to {
		return current, nil
	}

	if err := s.store.BulkUpsertSectionOrder(ctx, sectionOrderUpdates(reordered)); err != nil {
		stored, rerr := s.store.ListSections(ctx, projectID, &phase)
		if rerr != nil {
			return nil, fmt.Errorf("failed to save section order: %w", errors.Join(err, rerr))
		}
		return stored, fmt.Errorf("failed to save section order: %w", err)
	}
	return s.store.ListSections(ctx, projectID, &phase)
}
