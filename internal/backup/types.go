// Package backup snapshots the tracking database before destructive
// operations so a bad delete or an over-eager sync can be undone. Each
// snapshot is a self-contained JSON file holding the full database payload
// plus metadata about when and why it was taken.
package backup

import (
	"encoding/json"
	"time"
)

// SnapshotData is the JSON structure stored in snapshot files.
type SnapshotData struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Reason    string          `json:"reason"`
	Database  json.RawMessage `json:"database"`
}

// Snapshot is the metadata of one snapshot file on disk.
type Snapshot struct {
	ID        string
	CreatedAt time.Time
	Reason    string
	Path      string
}

// Manager creates, lists, restores, and prunes snapshots.
type Manager struct {
	dbPath      string
	snapshotDir string
}

// New creates a snapshot Manager for the tracking database at dbPath.
// Snapshot files go into snapshotDir.
func New(dbPath, snapshotDir string) *Manager {
	return &Manager{
		dbPath:      dbPath,
		snapshotDir: snapshotDir,
	}
}
