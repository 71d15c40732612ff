package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ldi/jobsite/pkg/models"
)

func TestAutoSnapshot(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	dir := t.TempDir()
	db.SetOnChange(db.SnapshotHook(dir))

	p := seedProject(t, db)
	snapshotPath := SnapshotPath(dir, p.ID)

	if _, err := os.Stat(snapshotPath); !os.IsNotExist(err) {
		t.Fatalf("Project writes should not produce a checklist snapshot")
	}

	s := seedSection(t, db, p.ID, "Framing")
	if _, err := os.Stat(snapshotPath); os.IsNotExist(err) {
		t.Fatalf("Snapshot file was not created after CreateSection")
	}

	getModTime := func(path string) time.Time {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("Failed to stat snapshot: %v", err)
		}
		return info.ModTime()
	}
	modTime1 := getModTime(snapshotPath)

	time.Sleep(10 * time.Millisecond)
	task := seedTask(t, db, s, "Stand walls")
	modTime2 := getModTime(snapshotPath)
	if !modTime2.After(modTime1) {
		t.Errorf("Snapshot file was not updated after CreateTask")
	}

	time.Sleep(10 * time.Millisecond)
	if err := db.UpdateTaskStatus(ctx, task.ID, models.TaskStatusInProgress); err != nil {
		t.Fatalf("Failed to update task status: %v", err)
	}
	modTime3 := getModTime(snapshotPath)
	if !modTime3.After(modTime2) {
		t.Errorf("Snapshot file was not updated after UpdateTaskStatus")
	}

	records := readLines(t, snapshotPath)
	if len(records) != 3 || records[2]["status"] != string(models.TaskStatusInProgress) {
		t.Errorf("Unexpected snapshot contents %v", records)
	}
}
