package db

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ldi/jobsite/pkg/models"
)

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open snapshot file: %v", err)
	}
	defer file.Close()

	var records []map[string]any
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("Failed to unmarshal line %q: %v", scanner.Text(), err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("Scanner error: %v", err)
	}
	return records
}

func TestExportSnapshot(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := seedProject(t, db)
	s := seedSection(t, db, p.ID, "Foundation")
	seedTask(t, db, s, "Pour footings")
	inspection := &models.Task{ProjectID: p.ID, SectionID: s.ID, Title: "Footing inspection", IsInspection: true}
	if err := db.CreateTask(ctx, inspection); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	snapshotPath := filepath.Join(t.TempDir(), "snapshot.jsonl")
	if err := db.ExportSnapshot(ctx, p.ID, snapshotPath); err != nil {
		t.Fatalf("Failed to export snapshot: %v", err)
	}

	records := readLines(t, snapshotPath)
	if len(records) != 4 {
		t.Fatalf("Expected meta, section and 2 tasks, got %d lines", len(records))
	}
	if records[0]["record_type"] != "meta" || records[0]["project_id"] != p.ID {
		t.Errorf("Expected meta line first, got %v", records[0])
	}
	if records[1]["record_type"] != "section" || records[1]["title"] != "Foundation" {
		t.Errorf("Expected section line, got %v", records[1])
	}
	if records[2]["title"] != "Pour footings" || records[3]["title"] != "Footing inspection" {
		t.Errorf("Expected tasks in sort order, got %v, %v", records[2], records[3])
	}
	if records[3]["is_inspection"] != true || records[3]["section_title"] != "Foundation" {
		t.Errorf("Unexpected task line %v", records[3])
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	src := seedProject(t, db)
	s := &models.Section{
		ProjectID:    src.ID,
		Phase:        models.PhasePostProject,
		Title:        "Closeout",
		AllowedRoles: []models.Role{models.RoleAdmin, models.RoleCustomer},
	}
	if err := db.CreateSection(ctx, s); err != nil {
		t.Fatalf("Failed to create section: %v", err)
	}
	seedTask(t, db, s, "Punch list")
	final := seedTask(t, db, s, "Final inspection")
	if err := db.UpdateTaskStatus(ctx, final.ID, models.TaskStatusInspection); err != nil {
		t.Fatalf("Failed to update status: %v", err)
	}

	path := filepath.Join(t.TempDir(), "closeout.jsonl")
	if err := db.ExportSnapshot(ctx, src.ID, path); err != nil {
		t.Fatalf("Failed to export snapshot: %v", err)
	}

	dst := seedProject(t, db)
	seedSection(t, db, dst.ID, "Replaced")
	if err := db.ImportSnapshot(ctx, dst.ID, path); err != nil {
		t.Fatalf("Failed to import snapshot: %v", err)
	}

	sections, err := db.ListSections(ctx, dst.ID, nil)
	if err != nil {
		t.Fatalf("Failed to list sections: %v", err)
	}
	if len(sections) != 1 || sections[0].Title != "Closeout" {
		t.Fatalf("Expected imported checklist to replace existing one, got %+v", sections)
	}
	if sections[0].ID == s.ID {
		t.Errorf("Expected imported section to get a fresh id")
	}
	if !reflect.DeepEqual(sections[0].AllowedRoles, s.AllowedRoles) {
		t.Errorf("Expected roles %v, got %v", s.AllowedRoles, sections[0].AllowedRoles)
	}

	tasks, _ := db.ListSectionTasks(ctx, sections[0].ID)
	if len(tasks) != 2 || tasks[1].Title != "Final inspection" || tasks[1].Status != models.TaskStatusInspection {
		t.Errorf("Unexpected imported tasks %+v", tasks)
	}

	srcTasks, _ := db.ListTasks(ctx, src.ID)
	if len(srcTasks) != 2 {
		t.Errorf("Expected source project untouched, got %d tasks", len(srcTasks))
	}
}

func TestImportSnapshotUnknownProject(t *testing.T) {
	db := newTestDB(t)
	path := filepath.Join(t.TempDir(), "empty.jsonl")
	if err := os.WriteFile(path, []byte("{\"record_type\":\"meta\",\"version\":1}\n"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if err := db.ImportSnapshot(context.Background(), "nope", path); err == nil {
		t.Errorf("Expected error importing into a missing project")
	}
}

func TestSnapshotRoundTripDuplicateSectionTitles(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	src := seedProject(t, db)
	first := seedSection(t, db, src.ID, "Framing")
	second := seedSection(t, db, src.ID, "Framing")
	seedTask(t, db, first, "A1")
	seedTask(t, db, first, "A2")
	seedTask(t, db, second, "B1")

	path := filepath.Join(t.TempDir(), "framing.jsonl")
	if err := db.ExportSnapshot(ctx, src.ID, path); err != nil {
		t.Fatalf("Failed to export snapshot: %v", err)
	}

	dst := seedProject(t, db)
	if err := db.ImportSnapshot(ctx, dst.ID, path); err != nil {
		t.Fatalf("Failed to import snapshot: %v", err)
	}

	sections, err := db.ListSections(ctx, dst.ID, nil)
	if err != nil {
		t.Fatalf("Failed to list sections: %v", err)
	}
	if len(sections) != 2 {
		t.Fatalf("Expected 2 sections, got %d", len(sections))
	}
	for i, s := range sections {
		if s.SortOrder != i+1 {
			t.Errorf("Expected section sort_order %d, got %d", i+1, s.SortOrder)
		}
	}
	if got := taskTitles(t, db, sections[0].ID); !reflect.DeepEqual(got, []string{"A1", "A2"}) {
		t.Errorf("Expected first Framing to keep [A1 A2], got %v", got)
	}
	if got := taskTitles(t, db, sections[1].ID); !reflect.DeepEqual(got, []string{"B1"}) {
		t.Errorf("Expected second Framing to keep [B1], got %v", got)
	}
}

func TestImportSnapshotRenumbersDensely(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := seedProject(t, db)

	content := `{"record_type":"meta","version":1}
{"record_type":"section","id":"s-old","phase":"kickoff","title":"Roofing","sort_order":7,"allowed_roles":["admin"]}
{"record_type":"task","section_id":"s-old","title":"Tear off","sort_order":9,"status":"pending"}
{"record_type":"task","section_id":"s-old","title":"Underlayment","sort_order":9,"status":"pending"}
{"record_type":"task","section_id":"s-old","title":"Dry-in inspection","sort_order":4,"status":"pending","is_inspection":true}
`
	path := filepath.Join(t.TempDir(), "roofing.jsonl")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if err := db.ImportSnapshot(ctx, p.ID, path); err != nil {
		t.Fatalf("Failed to import snapshot: %v", err)
	}

	sections, _ := db.ListSections(ctx, p.ID, nil)
	if len(sections) != 1 || sections[0].SortOrder != 1 {
		t.Fatalf("Expected one section at sort_order 1, got %+v", sections)
	}
	want := []string{"Dry-in inspection", "Tear off", "Underlayment"}
	if got := taskTitles(t, db, sections[0].ID); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestImportSnapshotUnknownSection(t *testing.T) {
	db := newTestDB(t)
	p := seedProject(t, db)
	content := `{"record_type":"task","section_id":"missing","title":"Orphan","sort_order":1,"status":"pending"}
`
	path := filepath.Join(t.TempDir(), "orphan.jsonl")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if err := db.ImportSnapshot(context.Background(), p.ID, path); err == nil {
		t.Errorf("Expected error for a task whose section is not in the file")
	}
}
