package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ldi/jobsite/pkg/models"
)

const materialColumns = `id, project_id, material_name, quantity, unit_measure, unit_cost, status, created_at`

func scanMaterial(row interface{ Scan(...any) error }) (*models.Material, error) {
	m := &models.Material{}
	if err := row.Scan(&m.ID, &m.ProjectID, &m.MaterialName, &m.Quantity, &m.UnitMeasure, &m.UnitCost, &m.Status, &m.CreatedAt); err != nil {
		return nil, err
	}
	return m, nil
}

func (db *DB) CreateMaterial(ctx context.Context, m *models.Material) error {
	if err := db.createMaterial(ctx, db.DB, m); err != nil {
		return err
	}
	db.triggerChange(ctx, "materials", models.ChangeInsert, m.ProjectID, m.ID)
	return nil
}

// CreateMaterials inserts a batch of materials in one transaction.
func (db *DB) CreateMaterials(ctx context.Context, items []*models.Material) error {
	if len(items) == 0 {
		return nil
	}
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		for _, m := range items {
			if err := db.createMaterial(ctx, tx, m); err != nil {
				return fmt.Errorf("failed to create material %s: %w", m.MaterialName, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	db.triggerChange(ctx, "materials", models.ChangeInsert, items[0].ProjectID, "")
	return nil
}

func (db *DB) createMaterial(ctx context.Context, exec executor, m *models.Material) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Status == "" {
		m.Status = models.SupplyToBeOrdered
	}
	query := `
		INSERT INTO materials (id, project_id, material_name, quantity, unit_measure, unit_cost, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING created_at
	`
	err := exec.QueryRowContext(ctx, query, m.ID, m.ProjectID, m.MaterialName, m.Quantity, m.UnitMeasure, m.UnitCost, m.Status).
		Scan(&m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create material: %w", err)
	}
	return nil
}

func (db *DB) GetMaterial(ctx context.Context, id string) (*models.Material, error) {
	m, err := scanMaterial(db.QueryRowContext(ctx, `SELECT `+materialColumns+` FROM materials WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get material: %w", err)
	}
	return m, nil
}

func (db *DB) ListMaterials(ctx context.Context, projectID string) ([]*models.Material, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+materialColumns+` FROM materials WHERE project_id = ? ORDER BY created_at ASC, material_name ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}
	defer rows.Close()

	var items []*models.Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan material: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return items, nil
}

func (db *DB) UpdateMaterial(ctx context.Context, m *models.Material) error {
	query := `
		UPDATE materials
		SET material_name = ?, quantity = ?, unit_measure = ?, unit_cost = ?, status = ?
		WHERE id = ?
		RETURNING project_id, created_at
	`
	err := db.QueryRowContext(ctx, query, m.MaterialName, m.Quantity, m.UnitMeasure, m.UnitCost, m.Status, m.ID).
		Scan(&m.ProjectID, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("material %s: %w", m.ID, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update material: %w", err)
	}
	db.triggerChange(ctx, "materials", models.ChangeUpdate, m.ProjectID, m.ID)
	return nil
}

func (db *DB) UpdateMaterialStatus(ctx context.Context, id string, status models.SupplyStatus) error {
	var projectID string
	err := db.QueryRowContext(ctx, `UPDATE materials SET status = ? WHERE id = ? RETURNING project_id`, status, id).Scan(&projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("material %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update material status: %w", err)
	}
	db.triggerChange(ctx, "materials", models.ChangeUpdate, projectID, id)
	return nil
}

func (db *DB) DeleteMaterial(ctx context.Context, id string) error {
	return db.deleteRecord(ctx, "materials", id)
}

// deleteRecord removes a row from a project-scoped table by id.
func (db *DB) deleteRecord(ctx context.Context, table, id string) error {
	var projectID string
	err := db.QueryRowContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ? RETURNING project_id`, table), id).Scan(&projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", table, id, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	db.triggerChange(ctx, table, models.ChangeDelete, projectID, id)
	return nil
}
