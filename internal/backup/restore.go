package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// List returns the snapshots on disk, newest first. Files that do not
// parse as snapshots are skipped.
func (m *Manager) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(m.snapshotDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	var snapshots []Snapshot
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(m.snapshotDir, entry.Name())
		data, err := loadSnapshotFile(path)
		if err != nil {
			continue
		}
		snapshots = append(snapshots, Snapshot{
			ID:        data.ID,
			CreatedAt: data.CreatedAt,
			Reason:    data.Reason,
			Path:      path,
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
	})
	return snapshots, nil
}

// Restore writes the database payload of the snapshot with the given ID
// back over the tracking database. The write is atomic: payload goes to a
// temp file in the database directory first, then renames into place.
func (m *Manager) Restore(id string) error {
	snapshots, err := m.List()
	if err != nil {
		return err
	}

	var target *Snapshot
	for i := range snapshots {
		if snapshots[i].ID == id {
			target = &snapshots[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("no snapshot with id %s", id)
	}

	data, err := loadSnapshotFile(target.Path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(m.dbPath)
	tmp, err := os.CreateTemp(dir, ".vhdm-restore-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data.Database); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write restored database: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync restored database: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close restored database: %w", err)
	}
	if err := os.Rename(tmpName, m.dbPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace tracking database: %w", err)
	}

	return nil
}

// loadSnapshotFile reads and parses a snapshot JSON file.
func loadSnapshotFile(path string) (*SnapshotData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var data SnapshotData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot JSON: %w", err)
	}
	if data.ID == "" || len(data.Database) == 0 {
		return nil, fmt.Errorf("snapshot file %s is incomplete", path)
	}

	return &data, nil
}
