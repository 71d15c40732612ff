package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ldi/jobsite/pkg/models"
)

const sectionColumns = `id, project_id, phase, title, sort_order, allowed_roles, created_at, updated_at`

func scanSection(row interface{ Scan(...any) error }) (*models.Section, error) {
	s := &models.Section{}
	var roles string
	if err := row.Scan(&s.ID, &s.ProjectID, &s.Phase, &s.Title, &s.SortOrder, &roles, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(roles), &s.AllowedRoles); err != nil {
		return nil, fmt.Errorf("failed to decode allowed_roles of section %s: %w", s.ID, err)
	}
	return s, nil
}

func encodeRoles(roles []models.Role) (string, error) {
	if len(roles) == 0 {
		roles = models.DefaultSectionRoles
	}
	b, err := json.Marshal(roles)
	if err != nil {
		return "", fmt.Errorf("failed to encode allowed_roles: %w", err)
	}
	return string(b), nil
}

// CreateSection inserts a section at s.SortOrder within its phase, shifting
// later sections down. A zero SortOrder appends.
func (db *DB) CreateSection(ctx context.Context, s *models.Section) error {
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		return db.createSection(ctx, tx, s)
	})
	if err != nil {
		return err
	}

	db.triggerChange(ctx, "checklist_sections", models.ChangeInsert, s.ProjectID, s.ID)
	return nil
}

func (db *DB) createSection(ctx context.Context, exec executor, s *models.Section) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if len(s.AllowedRoles) == 0 {
		s.AllowedRoles = append([]models.Role(nil), models.DefaultSectionRoles...)
	}
	roles, err := encodeRoles(s.AllowedRoles)
	if err != nil {
		return err
	}

	pos, err := sectionScope(s.ProjectID, s.Phase).slotForInsert(ctx, exec, s.SortOrder)
	if err != nil {
		return err
	}
	s.SortOrder = pos

	query := `
		INSERT INTO checklist_sections (id, project_id, phase, title, sort_order, allowed_roles)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING created_at, updated_at
	`
	err = exec.QueryRowContext(ctx, query, s.ID, s.ProjectID, s.Phase, s.Title, s.SortOrder, roles).
		Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create section: %w", err)
	}
	return nil
}

func (db *DB) GetSection(ctx context.Context, id string) (*models.Section, error) {
	return db.getSection(ctx, db.DB, id)
}

func (db *DB) getSection(ctx context.Context, exec executor, id string) (*models.Section, error) {
	row := exec.QueryRowContext(ctx, `SELECT `+sectionColumns+` FROM checklist_sections WHERE id = ?`, id)
	s, err := scanSection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get section: %w", err)
	}
	return s, nil
}

func (db *DB) getSectionByTitle(ctx context.Context, exec executor, projectID string, phase models.Phase, title string) (*models.Section, error) {
	query := `SELECT ` + sectionColumns + ` FROM checklist_sections WHERE project_id = ? AND phase = ? AND title = ?
		ORDER BY sort_order LIMIT 1`
	s, err := scanSection(exec.QueryRowContext(ctx, query, projectID, phase, title))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get section by title: %w", err)
	}
	return s, nil
}

// ListSections returns a project's sections ordered by phase then sort_order.
// A nil phase returns every phase.
func (db *DB) ListSections(ctx context.Context, projectID string, phase *models.Phase) ([]*models.Section, error) {
	query := `SELECT ` + sectionColumns + ` FROM checklist_sections WHERE project_id = ?`
	args := []any{projectID}
	if phase != nil {
		query += " AND phase = ?"
		args = append(args, *phase)
	}
	query += ` ORDER BY CASE phase WHEN 'pre_con' THEN 1 WHEN 'kickoff' THEN 2 ELSE 3 END, sort_order ASC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	defer rows.Close()

	var sections []*models.Section
	for rows.Next() {
		s, err := scanSection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		sections = append(sections, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return sections, nil
}

// UpdateSection writes title and allowed roles.
func (db *DB) UpdateSection(ctx context.Context, s *models.Section) error {
	roles, err := encodeRoles(s.AllowedRoles)
	if err != nil {
		return err
	}
	query := `
		UPDATE checklist_sections
		SET title = ?, allowed_roles = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		RETURNING updated_at
	`
	err = db.QueryRowContext(ctx, query, s.Title, roles, s.ID).Scan(&s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("section %s: %w", s.ID, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update section: %w", err)
	}

	db.triggerChange(ctx, "checklist_sections", models.ChangeUpdate, s.ProjectID, s.ID)
	return nil
}

// DeleteSection removes a section with its tasks and closes the gap in its phase.
func (db *DB) DeleteSection(ctx context.Context, id string) error {
	var projectID string
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		s, err := db.getSection(ctx, tx, id)
		if err != nil {
			return err
		}
		if s == nil {
			return fmt.Errorf("section %s: %w", id, models.ErrNotFound)
		}
		projectID = s.ProjectID

		if _, err := tx.ExecContext(ctx, `DELETE FROM checklist_sections WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete section: %w", err)
		}
		return sectionScope(s.ProjectID, s.Phase).closeGap(ctx, tx, s.SortOrder)
	})
	if err != nil {
		return err
	}

	db.triggerChange(ctx, "checklist_sections", models.ChangeDelete, projectID, id)
	return nil
}

// BulkUpsertSectionOrder writes new sort orders for sections in one transaction.
func (db *DB) BulkUpsertSectionOrder(ctx context.Context, updates []models.OrderUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	var projectID string
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		s, err := db.getSection(ctx, tx, updates[0].ID)
		if err != nil {
			return err
		}
		if s != nil {
			projectID = s.ProjectID
		}
		return bulkUpdateOrder(ctx, tx, "checklist_sections", updates)
	})
	if err != nil {
		return err
	}

	db.triggerChange(ctx, "checklist_sections", models.ChangeUpdate, projectID, "")
	return nil
}
