package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ldi/jobsite/pkg/models"
)

const documentSelect = `
	SELECT d.id, d.project_id, d.uploaded_by, d.file_path, d.name, d.description, d.created_at,
	       COALESCE(u.full_name, '')
	FROM documents d
	LEFT JOIN user_profiles u ON d.uploaded_by = u.id
`

func scanDocument(row interface{ Scan(...any) error }) (*models.Document, error) {
	d := &models.Document{}
	if err := row.Scan(&d.ID, &d.ProjectID, &d.UploadedBy, &d.FilePath, &d.Name, &d.Description, &d.CreatedAt, &d.UploaderName); err != nil {
		return nil, err
	}
	return d, nil
}

func (db *DB) CreateDocument(ctx context.Context, d *models.Document) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	query := `
		INSERT INTO documents (id, project_id, uploaded_by, file_path, name, description)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING created_at
	`
	err := db.QueryRowContext(ctx, query, d.ID, d.ProjectID, d.UploadedBy, d.FilePath, d.Name, d.Description).Scan(&d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	db.triggerChange(ctx, "documents", models.ChangeInsert, d.ProjectID, d.ID)
	return nil
}

func (db *DB) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	d, err := scanDocument(db.QueryRowContext(ctx, documentSelect+` WHERE d.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return d, nil
}

// ListDocuments returns a project's documents, newest first.
func (db *DB) ListDocuments(ctx context.Context, projectID string) ([]*models.Document, error) {
	rows, err := db.QueryContext(ctx, documentSelect+` WHERE d.project_id = ? ORDER BY d.created_at DESC, d.name ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return docs, nil
}

func (db *DB) DeleteDocument(ctx context.Context, id string) error {
	return db.deleteRecord(ctx, "documents", id)
}
