package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ldi/jobsite/pkg/models"
)

const equipmentColumns = `id, project_id, equipment_name, duration, duration_unit, unit_cost, status, created_at`

func scanEquipment(row interface{ Scan(...any) error }) (*models.Equipment, error) {
	e := &models.Equipment{}
	if err := row.Scan(&e.ID, &e.ProjectID, &e.EquipmentName, &e.Duration, &e.DurationUnit, &e.UnitCost, &e.Status, &e.CreatedAt); err != nil {
		return nil, err
	}
	return e, nil
}

func (db *DB) CreateEquipment(ctx context.Context, e *models.Equipment) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Status == "" {
		e.Status = models.SupplyToBeOrdered
	}
	if e.DurationUnit == "" {
		e.DurationUnit = "days"
	}
	query := `
		INSERT INTO equipment (id, project_id, equipment_name, duration, duration_unit, unit_cost, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING created_at
	`
	err := db.QueryRowContext(ctx, query, e.ID, e.ProjectID, e.EquipmentName, e.Duration, e.DurationUnit, e.UnitCost, e.Status).
		Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create equipment: %w", err)
	}
	db.triggerChange(ctx, "equipment", models.ChangeInsert, e.ProjectID, e.ID)
	return nil
}

func (db *DB) GetEquipment(ctx context.Context, id string) (*models.Equipment, error) {
	e, err := scanEquipment(db.QueryRowContext(ctx, `SELECT `+equipmentColumns+` FROM equipment WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get equipment: %w", err)
	}
	return e, nil
}

func (db *DB) ListEquipment(ctx context.Context, projectID string) ([]*models.Equipment, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+equipmentColumns+` FROM equipment WHERE project_id = ? ORDER BY created_at ASC, equipment_name ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list equipment: %w", err)
	}
	defer rows.Close()

	var items []*models.Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan equipment: %w", err)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return items, nil
}

func (db *DB) UpdateEquipment(ctx context.Context, e *models.Equipment) error {
	query := `
		UPDATE equipment
		SET equipment_name = ?, duration = ?, duration_unit = ?, unit_cost = ?, status = ?
		WHERE id = ?
		RETURNING project_id, created_at
	`
	err := db.QueryRowContext(ctx, query, e.EquipmentName, e.Duration, e.DurationUnit, e.UnitCost, e.Status, e.ID).
		Scan(&e.ProjectID, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("equipment %s: %w", e.ID, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update equipment: %w", err)
	}
	db.triggerChange(ctx, "equipment", models.ChangeUpdate, e.ProjectID, e.ID)
	return nil
}

func (db *DB) UpdateEquipmentStatus(ctx context.Context, id string, status models.SupplyStatus) error {
	var projectID string
	err := db.QueryRowContext(ctx, `UPDATE equipment SET status = ? WHERE id = ? RETURNING project_id`, status, id).Scan(&projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("equipment %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update equipment status: %w", err)
	}
	db.triggerChange(ctx, "equipment", models.ChangeUpdate, projectID, id)
	return nil
}

func (db *DB) DeleteEquipment(ctx context.Context, id string) error {
	return db.deleteRecord(ctx, "equipment", id)
}
