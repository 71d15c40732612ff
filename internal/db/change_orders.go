package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ldi/jobsite/pkg/models"
)

const changeOrderColumns = `id, project_id, name, details, file_path, created_by, created_at`

func scanChangeOrder(row interface{ Scan(...any) error }) (*models.ChangeOrder, error) {
	c := &models.ChangeOrder{}
	if err := row.Scan(&c.ID, &c.ProjectID, &c.Name, &c.Details, &c.FilePath, &c.CreatedBy, &c.CreatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

func (db *DB) CreateChangeOrder(ctx context.Context, c *models.ChangeOrder) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	query := `
		INSERT INTO project_change_orders (id, project_id, name, details, file_path, created_by)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING created_at
	`
	err := db.QueryRowContext(ctx, query, c.ID, c.ProjectID, c.Name, c.Details, c.FilePath, c.CreatedBy).Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create change order: %w", err)
	}
	db.triggerChange(ctx, "project_change_orders", models.ChangeInsert, c.ProjectID, c.ID)
	return nil
}

func (db *DB) GetChangeOrder(ctx context.Context, id string) (*models.ChangeOrder, error) {
	c, err := scanChangeOrder(db.QueryRowContext(ctx, `SELECT `+changeOrderColumns+` FROM project_change_orders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get change order: %w", err)
	}
	return c, nil
}

// ListChangeOrders returns a project's change orders in the order they were added.
func (db *DB) ListChangeOrders(ctx context.Context, projectID string) ([]*models.ChangeOrder, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+changeOrderColumns+` FROM project_change_orders WHERE project_id = ? ORDER BY created_at ASC, name ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list change orders: %w", err)
	}
	defer rows.Close()

	var items []*models.ChangeOrder
	for rows.Next() {
		c, err := scanChangeOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan change order: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return items, nil
}

func (db *DB) DeleteChangeOrder(ctx context.Context, id string) error {
	return db.deleteRecord(ctx, "project_change_orders", id)
}
