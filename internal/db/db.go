package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	embedsql "github.com/ldi/jobsite/embed/sql"
	"github.com/ldi/jobsite/pkg/models"
	_ "modernc.org/sqlite"
)

// ChangeFunc receives every committed write.
type ChangeFunc func(ctx context.Context, change models.Change)

type DB struct {
	*sql.DB
	Staging          *StagingManager
	onChange         ChangeFunc
	onChangeMu       sync.RWMutex
	onChangeDisabled bool
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (db *DB) SetOnChange(fn ChangeFunc) {
	db.onChangeMu.Lock()
	defer db.onChangeMu.Unlock()
	db.onChange = fn
}

func (db *DB) DisableOnChange() {
	db.onChangeMu.Lock()
	defer db.onChangeMu.Unlock()
	db.onChangeDisabled = true
}

func (db *DB) EnableOnChange() {
	db.onChangeMu.Lock()
	defer db.onChangeMu.Unlock()
	db.onChangeDisabled = false
}

func (db *DB) triggerChange(ctx context.Context, collection string, op models.ChangeOp, projectID, recordID string) {
	db.onChangeMu.RLock()
	fn := db.onChange
	disabled := db.onChangeDisabled
	db.onChangeMu.RUnlock()

	if fn != nil && !disabled {
		fn(ctx, models.Change{
			Collection: collection,
			Op:         op,
			ProjectID:  projectID,
			RecordID:   recordID,
			At:         time.Now().UTC(),
		})
	}
}

// Open opens a SQLite database at the given path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)

	return &DB{
		DB:      db,
		Staging: NewStagingManager(),
	}, nil
}

func (db *DB) Migrate(ctx context.Context, schema string) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func (db *DB) Init(ctx context.Context) error {
	return db.Migrate(ctx, embedsql.Schema)
}

// Stats holds row counts per collection.
type Stats struct {
	Users     int `json:"users"`
	Projects  int `json:"projects"`
	Sections  int `json:"sections"`
	Tasks     int `json:"tasks"`
	Blocking  int `json:"blocking"`
	Completed int `json:"completed"`
}

func (db *DB) Stats(ctx context.Context) (*Stats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM user_profiles),
			(SELECT COUNT(*) FROM projects),
			(SELECT COUNT(*) FROM checklist_sections),
			(SELECT COUNT(*) FROM checklist_tasks),
			(SELECT COUNT(*) FROM checklist_tasks
			  WHERE (is_inspection = 1 OR status = 'inspection') AND status != 'completed'),
			(SELECT COUNT(*) FROM checklist_tasks WHERE status = 'completed')
	`
	s := &Stats{}
	err := db.QueryRowContext(ctx, query).Scan(&s.Users, &s.Projects, &s.Sections, &s.Tasks, &s.Blocking, &s.Completed)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return s, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
