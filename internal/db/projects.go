package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ldi/jobsite/pkg/models"
)

func (db *DB) CreateProject(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = models.ProjectStatusActive
	}

	query := `
		INSERT INTO projects (id, name, address, customer_id, status)
		VALUES (?, ?, ?, ?, ?)
		RETURNING created_at
	`
	err := db.QueryRowContext(ctx, query, p.ID, p.Name, p.Address, p.CustomerID, p.Status).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	db.triggerChange(ctx, "projects", models.ChangeInsert, p.ID, p.ID)
	return nil
}

func (db *DB) GetProject(ctx context.Context, id string) (*models.Project, error) {
	query := `SELECT id, name, address, customer_id, status, created_at FROM projects WHERE id = ?`
	p := &models.Project{}
	err := db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.Address, &p.CustomerID, &p.Status, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// ListProjects returns all projects, or only those owned by customerID when set.
func (db *DB) ListProjects(ctx context.Context, customerID *string) ([]*models.Project, error) {
	query := `SELECT id, name, address, customer_id, status, created_at FROM projects WHERE 1=1`
	args := []any{}
	if customerID != nil {
		query += " AND customer_id = ?"
		args = append(args, *customerID)
	}
	query += " ORDER BY created_at DESC, name ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		p := &models.Project{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Address, &p.CustomerID, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return projects, nil
}
