package db

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ldi/jobsite/pkg/models"
)

const snapshotVersion = 1

type snapshotMeta struct {
	RecordType string    `json:"record_type"`
	Version    int       `json:"version"`
	ProjectID  string    `json:"project_id"`
	ExportedAt time.Time `json:"exported_at"`
}

type snapshotSection struct {
	ID           string        `json:"id"`
	Phase        models.Phase  `json:"phase"`
	Title        string        `json:"title"`
	SortOrder    int           `json:"sort_order"`
	AllowedRoles []models.Role `json:"allowed_roles"`
	CreatedAt    string        `json:"created_at"`
	UpdatedAt    string        `json:"updated_at"`
}

type snapshotTask struct {
	ID              string            `json:"id"`
	SectionID       string            `json:"section_id"`
	SectionPhase    models.Phase      `json:"section_phase"`
	SectionTitle    string            `json:"section_title"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	SortOrder       int               `json:"sort_order"`
	Status          models.TaskStatus `json:"status"`
	AssignedTo      *string           `json:"assigned_to"`
	RequiresPicture bool              `json:"requires_picture"`
	IsInspection    bool              `json:"is_inspection"`
	CreatedAt       string            `json:"created_at"`
	UpdatedAt       string            `json:"updated_at"`
}

// SnapshotPath is where automatic snapshots of a project are written under dir.
func SnapshotPath(dir, projectID string) string {
	return filepath.Join(dir, projectID+".jsonl")
}

// SnapshotHook returns a change listener that re-exports the affected
// project's checklist to dir after every checklist write.
func (db *DB) SnapshotHook(dir string) ChangeFunc {
	return func(ctx context.Context, c models.Change) {
		if c.ProjectID == "" {
			return
		}
		switch c.Collection {
		case "checklist_sections", "checklist_tasks":
		default:
			return
		}
		// Hooks are best-effort; the write already committed.
		_ = db.ExportSnapshot(ctx, c.ProjectID, SnapshotPath(dir, c.ProjectID))
	}
}

// ExportSnapshot writes a project's sections and tasks as JSONL to path
// atomically using a temporary file.
func (db *DB) ExportSnapshot(ctx context.Context, projectID, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, "snapshot-*.jsonl")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempFile.Name())
		}
	}()

	meta, err := json.Marshal(snapshotMeta{
		RecordType: "meta",
		Version:    snapshotVersion,
		ProjectID:  projectID,
		ExportedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot meta: %w", err)
	}
	if _, err := tempFile.Write(append(meta, '\n')); err != nil {
		return fmt.Errorf("failed to write snapshot meta: %w", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT json_line
		FROM v_checklist_snapshot_lines
		WHERE project_id = ?
		ORDER BY record_order, sort_primary, sort_secondary
	`, projectID)
	if err != nil {
		return fmt.Errorf("failed to query snapshot lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return fmt.Errorf("failed to scan snapshot line: %w", err)
		}
		if _, err := tempFile.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("failed to write snapshot line: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	filename := tempFile.Name()
	tempFile = nil // Prevent defer from removing it

	if err := os.Rename(filename, path); err != nil {
		os.Remove(filename)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// ImportSnapshot replaces a project's checklist with the contents of a JSONL
// snapshot. Records get fresh ids so a snapshot can seed another project.
// Assignees that do not exist locally are dropped. Sections are renumbered
// 1..N within each phase and tasks 1..N within each section, keeping the
// exported order.
func (db *DB) ImportSnapshot(ctx context.Context, projectID, path string) error {
	sections, tasks, err := readSnapshot(path)
	if err != nil {
		return err
	}

	err = db.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE id = ?`, projectID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check project: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("project %s: %w", projectID, models.ErrNotFound)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM checklist_sections WHERE project_id = ?`, projectID); err != nil {
			return fmt.Errorf("failed to clear checklist: %w", err)
		}

		byID := make(map[string]string, len(sections))
		byTitle := make(map[string]string, len(sections))
		perPhase := make(map[models.Phase]int)
		for _, s := range sections {
			roles, err := encodeRoles(s.AllowedRoles)
			if err != nil {
				return err
			}
			perPhase[s.Phase]++
			localID := uuid.New().String()
			_, err = tx.ExecContext(ctx, `
				INSERT INTO checklist_sections (id, project_id, phase, title, sort_order, allowed_roles, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, COALESCE(NULLIF(?, ''), CURRENT_TIMESTAMP), COALESCE(NULLIF(?, ''), CURRENT_TIMESTAMP))`,
				localID, projectID, s.Phase, s.Title, perPhase[s.Phase], roles, s.CreatedAt, s.UpdatedAt)
			if err != nil {
				return fmt.Errorf("failed to import section %s: %w", s.Title, err)
			}
			if s.ID != "" {
				byID[s.ID] = localID
			}
			// Files without section ids resolve by title; the first section wins.
			key := stagedKey(projectID, s.Phase, s.Title)
			if _, ok := byTitle[key]; !ok {
				byTitle[key] = localID
			}
		}

		perSection := make(map[string]int)
		for _, t := range tasks {
			sectionID, ok := byID[t.SectionID]
			if t.SectionID == "" {
				sectionID, ok = byTitle[stagedKey(projectID, t.SectionPhase, t.SectionTitle)]
			}
			if !ok {
				return fmt.Errorf("%w: section not found for task %s", models.ErrValidation, t.Title)
			}
			if t.AssignedTo != nil {
				var n int
				if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_profiles WHERE id = ?`, *t.AssignedTo).Scan(&n); err != nil {
					return fmt.Errorf("failed to check assignee: %w", err)
				}
				if n == 0 {
					t.AssignedTo = nil
				}
			}
			perSection[sectionID]++
			_, err := tx.ExecContext(ctx, `
				INSERT INTO checklist_tasks (
					id, project_id, section_id, title, description, sort_order, status,
					assigned_to, requires_picture, is_inspection, created_at, updated_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
					COALESCE(NULLIF(?, ''), CURRENT_TIMESTAMP), COALESCE(NULLIF(?, ''), CURRENT_TIMESTAMP))`,
				uuid.New().String(), projectID, sectionID, t.Title, t.Description, perSection[sectionID], t.Status,
				t.AssignedTo, boolToInt(t.RequiresPicture), boolToInt(t.IsInspection), t.CreatedAt, t.UpdatedAt)
			if err != nil {
				return fmt.Errorf("failed to import task %s: %w", t.Title, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	db.triggerChange(ctx, "checklist_sections", models.ChangeInsert, projectID, "")
	return nil
}

// readSnapshot parses a snapshot file. Sections come back ordered by phase
// and sort_order, tasks grouped by section and ordered by sort_order.
func readSnapshot(path string) ([]snapshotSection, []snapshotTask, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer file.Close()

	var sections []snapshotSection
	var tasks []snapshotTask

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var base struct {
			RecordType string `json:"record_type"`
		}
		if err := json.Unmarshal(line, &base); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal base record: %w", err)
		}

		switch base.RecordType {
		case "meta":
			var m snapshotMeta
			if err := json.Unmarshal(line, &m); err != nil {
				return nil, nil, fmt.Errorf("failed to unmarshal meta: %w", err)
			}
			if m.Version > snapshotVersion {
				return nil, nil, fmt.Errorf("unsupported snapshot version %d", m.Version)
			}
		case "section":
			var s snapshotSection
			if err := json.Unmarshal(line, &s); err != nil {
				return nil, nil, fmt.Errorf("failed to unmarshal section: %w", err)
			}
			if !s.Phase.Valid() {
				return nil, nil, fmt.Errorf("%w: section %s has invalid phase %q", models.ErrValidation, s.Title, s.Phase)
			}
			sections = append(sections, s)
		case "task":
			var t snapshotTask
			if err := json.Unmarshal(line, &t); err != nil {
				return nil, nil, fmt.Errorf("failed to unmarshal task: %w", err)
			}
			tasks = append(tasks, t)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scanner error: %w", err)
	}

	phaseRank := make(map[models.Phase]int, len(models.Phases))
	for i, p := range models.Phases {
		phaseRank[p] = i
	}
	sort.SliceStable(sections, func(i, j int) bool {
		if sections[i].Phase != sections[j].Phase {
			return phaseRank[sections[i].Phase] < phaseRank[sections[j].Phase]
		}
		return sections[i].SortOrder < sections[j].SortOrder
	})

	sort.SliceStable(tasks, func(i, j int) bool {
		ki, kj := sectionKey(tasks[i]), sectionKey(tasks[j])
		if ki != kj {
			return ki < kj
		}
		return tasks[i].SortOrder < tasks[j].SortOrder
	})
	return sections, tasks, nil
}

func sectionKey(t snapshotTask) string {
	if t.SectionID != "" {
		return t.SectionID
	}
	return string(t.SectionPhase) + "/" + t.SectionTitle
}
