package journal

import (
	"fmt"
	"path/filepath"
	"testing"
)

// newTestJournal creates an in-memory journal for testing.
func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndRecent(t *testing.T) {
	j := newTestJournal(t)

	if err := j.Record(OpAttach, `C:\VMs\a.vhdx`, "uuid-a", "sdd", ""); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	if err := j.Record(OpMount, `C:\VMs\a.vhdx`, "uuid-a", "sdd", "/mnt/wsl/a"); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}

	entries, err := j.Recent(10)
	if err != nil {
		t.Fatalf("Recent() failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Recent() returned %d entries, want 2", len(entries))
	}

	// Newest first.
	if entries[0].Op != OpMount {
		t.Errorf("entries[0].Op = %q, want %q", entries[0].Op, OpMount)
	}
	if entries[0].Detail != "/mnt/wsl/a" {
		t.Errorf("entries[0].Detail = %q, want the mount point", entries[0].Detail)
	}
	if entries[1].Op != OpAttach {
		t.Errorf("entries[1].Op = %q, want %q", entries[1].Op, OpAttach)
	}
	if entries[0].Path != "c:/vms/a.vhdx" {
		t.Errorf("entries[0].Path = %q, want the normalized path", entries[0].Path)
	}
	if entries[0].Timestamp.IsZero() {
		t.Error("entry timestamp should be set")
	}
}

func TestForPath_NormalizesLookup(t *testing.T) {
	j := newTestJournal(t)

	if err := j.Record(OpDetach, `C:\VMs\A.vhdx`, "uuid-a", "sdd", ""); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	if err := j.Record(OpDetach, `C:\VMs\b.vhdx`, "uuid-b", "sde", ""); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}

	entries, err := j.ForPath("c:/vms/a.vhdx", 10)
	if err != nil {
		t.Fatalf("ForPath() failed: %v", err)
	}
	if len(entries) != 1 || entries[0].UUID != "uuid-a" {
		t.Errorf("ForPath() = %+v, want the single entry for a.vhdx", entries)
	}

	// Mixed-case query resolves to the same path.
	entries, err = j.ForPath(`C:\VMS\A.VHDX`, 10)
	if err != nil {
		t.Fatalf("ForPath(mixed case) failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("ForPath(mixed case) returned %d entries, want 1", len(entries))
	}
}

func TestRecent_RespectsLimit(t *testing.T) {
	j := newTestJournal(t)

	for i := 0; i < 5; i++ {
		if err := j.Record(OpAttach, fmt.Sprintf(`C:\VMs\d%d.vhdx`, i), "", "", ""); err != nil {
			t.Fatalf("Record() failed: %v", err)
		}
	}

	entries, err := j.Recent(3)
	if err != nil {
		t.Fatalf("Recent(3) failed: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("Recent(3) returned %d entries, want 3", len(entries))
	}
}

func TestCountAndFirstEntryTime(t *testing.T) {
	j := newTestJournal(t)

	count, err := j.Count()
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Count() on empty journal = %d, want 0", count)
	}

	first, err := j.FirstEntryTime()
	if err != nil {
		t.Fatalf("FirstEntryTime() failed: %v", err)
	}
	if !first.IsZero() {
		t.Errorf("FirstEntryTime() on empty journal = %v, want zero time", first)
	}

	if err := j.Record(OpCreate, `C:\VMs\a.vhdx`, "", "", "10G"); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}

	count, err = j.Count()
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}

	first, err = j.FirstEntryTime()
	if err != nil {
		t.Fatalf("FirstEntryTime() failed: %v", err)
	}
	if first.IsZero() {
		t.Error("FirstEntryTime() should be set after a record")
	}
}

func TestOpen_CreatesFileBackedJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open(%s) failed: %v", path, err)
	}
	if err := j.Record(OpAttach, `C:\VMs\a.vhdx`, "", "", ""); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	// Reopen and confirm the entry survived.
	j, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer j.Close()

	count, err := j.Count()
	if err != nil {
		t.Fatalf("Count() after reopen failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Count() after reopen = %d, want 1", count)
	}
}
