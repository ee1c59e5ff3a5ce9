package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

// DefaultKeep is how many snapshots Prune retains.
const DefaultKeep = 10

// Create snapshots the current tracking database and returns the snapshot
// ID. The database file must exist and parse as JSON; snapshotting a
// corrupt database would only preserve the corruption.
func (m *Manager) Create(reason string) (string, error) {
	if err := os.MkdirAll(m.snapshotDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	raw, err := os.ReadFile(m.dbPath)
	if err != nil {
		return "", fmt.Errorf("failed to read tracking database: %w", err)
	}
	if !json.Valid(raw) {
		return "", fmt.Errorf("tracking database %s is not valid JSON; refusing to snapshot it", m.dbPath)
	}

	id := uuid.NewString()[:8]
	data := &SnapshotData{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		Reason:    reason,
		Database:  json.RawMessage(raw),
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot data: %w", err)
	}

	// Filename sorts chronologically; the ID disambiguates snapshots
	// taken within the same second.
	filename := fmt.Sprintf("%s-%s.json", data.CreatedAt.Format("2006-01-02-150405"), id)
	path := filepath.Join(m.snapshotDir, filename)

	if err := os.WriteFile(path, jsonData, 0o644); err != nil {
		return "", fmt.Errorf("failed to write snapshot file: %w", err)
	}

	return id, nil
}

// Prune deletes the oldest snapshots beyond keep. A keep below 1 falls
// back to DefaultKeep.
func (m *Manager) Prune(keep int) (int, error) {
	if keep < 1 {
		keep = DefaultKeep
	}

	snapshots, err := m.List()
	if err != nil {
		return 0, err
	}
	if len(snapshots) <= keep {
		return 0, nil
	}

	// List is newest-first; everything past keep goes.
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
	})

	deleted := 0
	for _, s := range snapshots[keep:] {
		if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
			return deleted, fmt.Errorf("failed to delete snapshot %s: %w", s.ID, err)
		}
		deleted++
	}
	return deleted, nil
}
