package db

import (
	"context"
	"testing"

	"github.com/ldi/jobsite/pkg/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Init(context.Background()); err != nil {
		t.Fatalf("Failed to init database: %v", err)
	}
	return db
}

func seedProject(t *testing.T, db *DB) *models.Project {
	t.Helper()
	p := &models.Project{Name: "Harbor Street Duplex", Address: "12 Harbor St"}
	if err := db.CreateProject(context.Background(), p); err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}
	return p
}

func seedSection(t *testing.T, db *DB, projectID, title string) *models.Section {
	t.Helper()
	s := &models.Section{ProjectID: projectID, Phase: models.PhaseKickoff, Title: title}
	if err := db.CreateSection(context.Background(), s); err != nil {
		t.Fatalf("Failed to create section: %v", err)
	}
	return s
}

func seedTask(t *testing.T, db *DB, s *models.Section, title string) *models.Task {
	t.Helper()
	task := &models.Task{ProjectID: s.ProjectID, SectionID: s.ID, Title: title}
	if err := db.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("Failed to create task %s: %v", title, err)
	}
	return task
}

func taskTitles(t *testing.T, db *DB, sectionID string) []string {
	t.Helper()
	tasks, err := db.ListSectionTasks(context.Background(), sectionID)
	if err != nil {
		t.Fatalf("Failed to list tasks: %v", err)
	}
	titles := make([]string, len(tasks))
	for i, task := range tasks {
		if task.SortOrder != i+1 {
			t.Errorf("Expected dense sort_order %d for %s, got %d", i+1, task.Title, task.SortOrder)
		}
		titles[i] = task.Title
	}
	return titles
}
