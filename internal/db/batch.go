package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ldi/jobsite/pkg/models"
)

func stagedKey(projectID string, phase models.Phase, title string) string {
	return fmt.Sprintf("%s:%s:%s", projectID, phase, title)
}

// CommitBatch writes everything staged for the session in one transaction.
// Sections are created first so tasks can refer to them by title.
func (db *DB) CommitBatch(ctx context.Context, sessionID string) (*StagedItems, error) {
	items := db.Staging.GetAndClear(sessionID)
	if len(items.Sections) == 0 && len(items.Tasks) == 0 {
		return items, nil
	}

	projects := make(map[string]bool)
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		sectionIDs := make(map[string]string)

		for _, s := range items.Sections {
			if err := db.createSection(ctx, tx, s); err != nil {
				return fmt.Errorf("failed to create staged section %s: %w", s.Title, err)
			}
			sectionIDs[stagedKey(s.ProjectID, s.Phase, s.Title)] = s.ID
			projects[s.ProjectID] = true
		}

		for _, st := range items.Tasks {
			t := st.Task
			if t.SectionID == "" {
				key := stagedKey(t.ProjectID, st.Phase, st.SectionTitle)
				if id, ok := sectionIDs[key]; ok {
					t.SectionID = id
				} else {
					s, err := db.getSectionByTitle(ctx, tx, t.ProjectID, st.Phase, st.SectionTitle)
					if err != nil {
						return fmt.Errorf("failed to resolve section %s for task %s: %w", st.SectionTitle, t.Title, err)
					}
					if s == nil {
						return fmt.Errorf("section %s not found for task %s: %w", st.SectionTitle, t.Title, models.ErrNotFound)
					}
					t.SectionID = s.ID
				}
			}

			if err := db.createTask(ctx, tx, t); err != nil {
				return fmt.Errorf("failed to create staged task %s: %w", t.Title, err)
			}
			projects[t.ProjectID] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for projectID := range projects {
		db.triggerChange(ctx, "checklist_sections", models.ChangeInsert, projectID, "")
	}
	return items, nil
}
