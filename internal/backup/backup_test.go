package backup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

const sampleDB = `{
  "version": "1.0",
  "mappings": {
    "c:/vms/data.vhdx": {
      "uuid": "a1b2c3d4-0000-0000-0000-000000000001",
      "dev_name": "sdd",
      "mount_points": "/mnt/wsl/data",
      "last_attached": "2026-03-14T09:26:53Z"
    }
  },
  "detach_history": []
}`

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "tracking.json")
	if err := os.WriteFile(dbPath, []byte(sampleDB), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return New(dbPath, filepath.Join(dir, "backups")), dbPath
}

func TestCreateAndList(t *testing.T) {
	m, _ := newTestManager(t)

	id, err := m.Create("pre-delete")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if len(id) != 8 {
		t.Errorf("Create() id = %q, want 8 characters", id)
	}

	snapshots, err := m.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("List() returned %d snapshots, want 1", len(snapshots))
	}
	if snapshots[0].ID != id {
		t.Errorf("snapshot ID = %q, want %q", snapshots[0].ID, id)
	}
	if snapshots[0].Reason != "pre-delete" {
		t.Errorf("snapshot Reason = %q, want %q", snapshots[0].Reason, "pre-delete")
	}
}

func TestCreate_MissingDatabase(t *testing.T) {
	dir := t.TempDir()
	m := New(filepath.Join(dir, "absent.json"), filepath.Join(dir, "backups"))

	if _, err := m.Create("pre-delete"); err == nil {
		t.Error("Create() with missing database should fail")
	}
}

func TestCreate_RefusesCorruptDatabase(t *testing.T) {
	m, dbPath := newTestManager(t)
	if err := os.WriteFile(dbPath, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := m.Create("pre-delete"); err == nil {
		t.Error("Create() with corrupt database should fail")
	}
}

func TestRestore(t *testing.T) {
	m, dbPath := newTestManager(t)

	id, err := m.Create("pre-delete")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	// Wreck the live database, then restore it.
	if err := os.WriteFile(dbPath, []byte(`{"version":"1.0","mappings":{},"detach_history":[]}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := m.Restore(id); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}

	raw, err := os.ReadFile(dbPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var db struct {
		Mappings map[string]json.RawMessage `json:"mappings"`
	}
	if err := json.Unmarshal(raw, &db); err != nil {
		t.Fatalf("restored database does not parse: %v", err)
	}
	if _, ok := db.Mappings["c:/vms/data.vhdx"]; !ok {
		t.Error("restored database is missing the original mapping")
	}
}

func TestRestore_UnknownID(t *testing.T) {
	m, _ := newTestManager(t)
	if err := m.Restore("deadbeef"); err == nil {
		t.Error("Restore() with unknown id should fail")
	}
}

func TestList_EmptyDir(t *testing.T) {
	m, _ := newTestManager(t)
	snapshots, err := m.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(snapshots) != 0 {
		t.Errorf("List() on missing dir returned %d snapshots, want 0", len(snapshots))
	}
}

func TestList_SkipsGarbageFiles(t *testing.T) {
	m, _ := newTestManager(t)
	if _, err := m.Create("pre-sync"); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(m.snapshotDir, "junk.json"), []byte("not a snapshot"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	snapshots, err := m.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(snapshots) != 1 {
		t.Errorf("List() returned %d snapshots, want 1 (garbage skipped)", len(snapshots))
	}
}

func TestPrune(t *testing.T) {
	m, _ := newTestManager(t)

	for i := 0; i < 5; i++ {
		if _, err := m.Create("pre-sync"); err != nil {
			t.Fatalf("Create() error: %v", err)
		}
	}

	deleted, err := m.Prune(2)
	if err != nil {
		t.Fatalf("Prune() error: %v", err)
	}
	if deleted != 3 {
		t.Errorf("Prune(2) deleted %d, want 3", deleted)
	}

	snapshots, err := m.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(snapshots) != 2 {
		t.Errorf("List() after prune returned %d, want 2", len(snapshots))
	}
}

func TestPrune_NothingToDo(t *testing.T) {
	m, _ := newTestManager(t)
	if _, err := m.Create("pre-sync"); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	deleted, err := m.Prune(10)
	if err != nil {
		t.Fatalf("Prune() error: %v", err)
	}
	if deleted != 0 {
		t.Errorf("Prune(10) deleted %d, want 0", deleted)
	}
}
