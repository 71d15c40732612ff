package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ldi/jobsite/pkg/models"
)

const photoColumns = `id, project_id, task_id, uploaded_by, file_path, thumb_path, caption, created_at`

func scanPhoto(row interface{ Scan(...any) error }) (*models.Photo, error) {
	p := &models.Photo{}
	if err := row.Scan(&p.ID, &p.ProjectID, &p.TaskID, &p.UploadedBy, &p.FilePath, &p.ThumbPath, &p.Caption, &p.CreatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

func (db *DB) CreatePhoto(ctx context.Context, p *models.Photo) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	query := `
		INSERT INTO photos (id, project_id, task_id, uploaded_by, file_path, thumb_path, caption)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING created_at
	`
	err := db.QueryRowContext(ctx, query, p.ID, p.ProjectID, p.TaskID, p.UploadedBy, p.FilePath, p.ThumbPath, p.Caption).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create photo: %w", err)
	}
	db.triggerChange(ctx, "photos", models.ChangeInsert, p.ProjectID, p.ID)
	return nil
}

func (db *DB) GetPhoto(ctx context.Context, id string) (*models.Photo, error) {
	p, err := scanPhoto(db.QueryRowContext(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	return p, nil
}

// ListPhotos returns a project's photos, optionally only those attached to taskID.
func (db *DB) ListPhotos(ctx context.Context, projectID string, taskID *string) ([]*models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE project_id = ?`
	args := []any{projectID}
	if taskID != nil {
		query += " AND task_id = ?"
		args = append(args, *taskID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	defer rows.Close()

	var photos []*models.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return photos, nil
}

func (db *DB) DeletePhoto(ctx context.Context, id string) error {
	return db.deleteRecord(ctx, "photos", id)
}
