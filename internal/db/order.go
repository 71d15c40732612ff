package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ldi/jobsite/pkg/models"
)

// orderScope identifies one densely numbered sequence: the tasks of a
// section or the sections of a project phase.
type orderScope struct {
	table string
	where string
	args  []any
}

func taskScope(sectionID string) orderScope {
	return orderScope{table: "checklist_tasks", where: "section_id = ?", args: []any{sectionID}}
}

func sectionScope(projectID string, phase models.Phase) orderScope {
	return orderScope{table: "checklist_sections", where: "project_id = ? AND phase = ?", args: []any{projectID, phase}}
}

func (s orderScope) count(ctx context.Context, exec executor) (int, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", s.table, s.where)
	if err := exec.QueryRowContext(ctx, query, s.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", s.table, err)
	}
	return n, nil
}

// shift adds delta to every sort_order in [lo, hi].
func (s orderScope) shift(ctx context.Context, exec executor, lo, hi, delta int) error {
	if lo > hi {
		return nil
	}
	query := fmt.Sprintf(
		"UPDATE %s SET sort_order = sort_order + ? WHERE %s AND sort_order BETWEEN ? AND ?",
		s.table, s.where,
	)
	args := append([]any{delta}, s.args...)
	args = append(args, lo, hi)
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to shift %s order: %w", s.table, err)
	}
	return nil
}

// slotForInsert resolves the position of a new record and opens a gap for it.
// Zero or out-of-range positions append.
func (s orderScope) slotForInsert(ctx context.Context, exec executor, want int) (int, error) {
	n, err := s.count(ctx, exec)
	if err != nil {
		return 0, err
	}
	if want < 1 || want > n {
		return n + 1, nil
	}
	if err := s.shift(ctx, exec, want, n, 1); err != nil {
		return 0, err
	}
	return want, nil
}

// slotForMove moves a record from old to want, shifting the records between.
func (s orderScope) slotForMove(ctx context.Context, exec executor, old, want int) (int, error) {
	n, err := s.count(ctx, exec)
	if err != nil {
		return 0, err
	}
	if want < 1 || want > n {
		want = n
	}
	switch {
	case want < old:
		err = s.shift(ctx, exec, want, old-1, 1)
	case want > old:
		err = s.shift(ctx, exec, old+1, want, -1)
	}
	if err != nil {
		return 0, err
	}
	return want, nil
}

// closeGap renumbers the records after a removed position.
func (s orderScope) closeGap(ctx context.Context, exec executor, removed int) error {
	n, err := s.count(ctx, exec)
	if err != nil {
		return err
	}
	return s.shift(ctx, exec, removed+1, n+1, -1)
}

// bulkUpdateOrder writes every update inside tx. A missing id aborts the batch.
func bulkUpdateOrder(ctx context.Context, tx *sql.Tx, table string, updates []models.OrderUpdate) error {
	query := fmt.Sprintf("UPDATE %s SET sort_order = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", table)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare order update: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		res, err := stmt.ExecContext(ctx, u.SortOrder, u.ID)
		if err != nil {
			return fmt.Errorf("failed to update order of %s: %w", u.ID, err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("%s %s: %w", table, u.ID, models.ErrNotFound)
		}
	}
	return nil
}

func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
