package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ldi/jobsite/pkg/models"
)

const taskSelect = `
	SELECT t.id, t.project_id, t.section_id, t.title, t.description, t.sort_order, t.status,
	       t.assigned_to, t.requires_picture, t.is_inspection, t.created_at, t.updated_at,
	       COALESCE(u.full_name, '') AS assignee_name
	FROM checklist_tasks t
	LEFT JOIN user_profiles u ON t.assigned_to = u.id
`

func scanTask(row interface{ Scan(...any) error }) (*models.Task, error) {
	t := &models.Task{}
	var requiresPicture, isInspection int
	err := row.Scan(
		&t.ID, &t.ProjectID, &t.SectionID, &t.Title, &t.Description, &t.SortOrder, &t.Status,
		&t.AssignedTo, &requiresPicture, &isInspection, &t.CreatedAt, &t.UpdatedAt,
		&t.AssigneeName,
	)
	if err != nil {
		return nil, err
	}
	t.RequiresPicture = requiresPicture == 1
	t.IsInspection = isInspection == 1
	return t, nil
}

// CreateTask inserts a task at t.SortOrder within its section, shifting later
// tasks down. A zero SortOrder appends. If t.ID is empty a UUID is generated.
func (db *DB) CreateTask(ctx context.Context, t *models.Task) error {
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		return db.createTask(ctx, tx, t)
	})
	if err != nil {
		return err
	}

	db.triggerChange(ctx, "checklist_tasks", models.ChangeInsert, t.ProjectID, t.ID)
	return nil
}

func (db *DB) createTask(ctx context.Context, exec executor, t *models.Task) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = models.TaskStatusPending
	}

	pos, err := taskScope(t.SectionID).slotForInsert(ctx, exec, t.SortOrder)
	if err != nil {
		return err
	}
	t.SortOrder = pos

	query := `
		INSERT INTO checklist_tasks (id, project_id, section_id, title, description, sort_order, status,
		                             assigned_to, requires_picture, is_inspection)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING created_at, updated_at
	`
	err = exec.QueryRowContext(ctx, query,
		t.ID, t.ProjectID, t.SectionID, t.Title, t.Description, t.SortOrder, t.Status,
		t.AssignedTo, boolToInt(t.RequiresPicture), boolToInt(t.IsInspection),
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by its ID. It returns nil, nil when absent.
func (db *DB) GetTask(ctx context.Context, id string) (*models.Task, error) {
	return db.getTask(ctx, db.DB, id)
}

func (db *DB) getTask(ctx context.Context, exec executor, id string) (*models.Task, error) {
	t, err := scanTask(exec.QueryRowContext(ctx, taskSelect+` WHERE t.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// ListTasks returns every task of a project ordered by section and sort_order.
func (db *DB) ListTasks(ctx context.Context, projectID string) ([]*models.Task, error) {
	return db.queryTasks(ctx, taskSelect+` WHERE t.project_id = ? ORDER BY t.section_id, t.sort_order ASC`, projectID)
}

// ListSectionTasks returns the tasks of one section ordered by sort_order.
func (db *DB) ListSectionTasks(ctx context.Context, sectionID string) ([]*models.Task, error) {
	return db.queryTasks(ctx, taskSelect+` WHERE t.section_id = ? ORDER BY t.sort_order ASC, t.created_at ASC`, sectionID)
}

func (db *DB) queryTasks(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return tasks, nil
}

// UpdateTask writes every editable field. A changed sort_order moves the task
// within its section and renumbers the tasks in between.
func (db *DB) UpdateTask(ctx context.Context, t *models.Task) error {
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		current, err := db.getTask(ctx, tx, t.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("task %s: %w", t.ID, models.ErrNotFound)
		}

		pos := current.SortOrder
		if t.SortOrder != 0 && t.SortOrder != current.SortOrder {
			pos, err = taskScope(current.SectionID).slotForMove(ctx, tx, current.SortOrder, t.SortOrder)
			if err != nil {
				return err
			}
		}
		t.SortOrder = pos
		t.SectionID = current.SectionID
		t.ProjectID = current.ProjectID

		query := `
			UPDATE checklist_tasks
			SET title = ?, description = ?, sort_order = ?, status = ?, assigned_to = ?,
			    requires_picture = ?, is_inspection = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
			RETURNING created_at, updated_at
		`
		err = tx.QueryRowContext(ctx, query,
			t.Title, t.Description, t.SortOrder, t.Status, t.AssignedTo,
			boolToInt(t.RequiresPicture), boolToInt(t.IsInspection), t.ID,
		).Scan(&t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	db.triggerChange(ctx, "checklist_tasks", models.ChangeUpdate, t.ProjectID, t.ID)
	return nil
}

// UpdateTaskStatus changes only the status of a task.
func (db *DB) UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) error {
	return db.updateTaskField(ctx, id, "status", status)
}

// UpdateTaskAssignee changes only the assignee. A nil userID unassigns.
func (db *DB) UpdateTaskAssignee(ctx context.Context, id string, userID *string) error {
	return db.updateTaskField(ctx, id, "assigned_to", userID)
}

func (db *DB) updateTaskField(ctx context.Context, id, column string, value any) error {
	query := fmt.Sprintf(`
		UPDATE checklist_tasks
		SET %s = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		RETURNING project_id
	`, column)
	var projectID string
	err := db.QueryRowContext(ctx, query, value, id).Scan(&projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("task %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", column, err)
	}

	db.triggerChange(ctx, "checklist_tasks", models.ChangeUpdate, projectID, id)
	return nil
}

// DeleteTask deletes a task and closes the gap it leaves in its section.
func (db *DB) DeleteTask(ctx context.Context, id string) error {
	var projectID string
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		current, err := db.getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("task %s: %w", id, models.ErrNotFound)
		}
		projectID = current.ProjectID

		res, err := tx.ExecContext(ctx, `DELETE FROM checklist_tasks WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("task %s: %w", id, models.ErrNotFound)
		}
		return taskScope(current.SectionID).closeGap(ctx, tx, current.SortOrder)
	})
	if err != nil {
		return err
	}

	db.triggerChange(ctx, "checklist_tasks", models.ChangeDelete, projectID, id)
	return nil
}

// BulkUpsertTaskOrder writes every task's new sort_order in one transaction.
// Either all updates are stored or none are.
func (db *DB) BulkUpsertTaskOrder(ctx context.Context, updates []models.OrderUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	var projectID string
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		first, err := db.getTask(ctx, tx, updates[0].ID)
		if err != nil {
			return err
		}
		if first != nil {
			projectID = first.ProjectID
		}
		return bulkUpdateOrder(ctx, tx, "checklist_tasks", updates)
	})
	if err != nil {
		return err
	}

	db.triggerChange(ctx, "checklist_tasks", models.ChangeUpdate, projectID, "")
	return nil
}
