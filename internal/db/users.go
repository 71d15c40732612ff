package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ldi/jobsite/pkg/models"
)

const userColumns = `id, email, full_name, role, password_hash, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.UserProfile, error) {
	u := &models.UserProfile{}
	if err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser inserts a profile. If u.ID is empty a UUID is generated.
func (db *DB) CreateUser(ctx context.Context, u *models.UserProfile) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}

	query := `
		INSERT INTO user_profiles (id, email, full_name, role, password_hash)
		VALUES (?, ?, ?, ?, ?)
		RETURNING created_at
	`
	err := db.QueryRowContext(ctx, query, u.ID, u.Email, u.FullName, u.Role, u.PasswordHash).Scan(&u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	db.triggerChange(ctx, "user_profiles", models.ChangeInsert, "", u.ID)
	return nil
}

// GetUser returns nil, nil when no profile has the id.
func (db *DB) GetUser(ctx context.Context, id string) (*models.UserProfile, error) {
	row := db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM user_profiles WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	row := db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM user_profiles WHERE email = ? COLLATE NOCASE`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

// ListUsers returns profiles ordered by name, optionally filtered by role.
func (db *DB) ListUsers(ctx context.Context, role *models.Role) ([]*models.UserProfile, error) {
	query := `SELECT ` + userColumns + ` FROM user_profiles WHERE 1=1`
	args := []any{}
	if role != nil {
		query += " AND role = ?"
		args = append(args, *role)
	}
	query += " ORDER BY full_name ASC, email ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.UserProfile
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return users, nil
}
