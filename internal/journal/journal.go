package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/wsltools/vhdm/internal/vhdpath"
)

// Operation names recorded in the journal.
const (
	OpCreate  = "create"
	OpAttach  = "attach"
	OpFormat  = "format"
	OpMount   = "mount"
	OpUnmount = "unmount"
	OpDetach  = "detach"
	OpResize  = "resize"
	OpDelete  = "delete"
	OpPrune   = "prune"
)

// Entry is one journaled operation.
type Entry struct {
	ID         int64
	Op         string
	Path       string
	UUID       string
	DeviceName string
	Detail     string
	Timestamp  time.Time
}

// Record appends an operation to the journal. The path is normalized so
// journal queries line up with tracking database keys.
func (j *Journal) Record(op, path, uuid, deviceName, detail string) error {
	query := `
		INSERT INTO operations (op, path, uuid, dev_name, detail, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := j.db.Exec(query,
		op,
		vhdpath.Normalize(path),
		uuid,
		deviceName,
		detail,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record %s for %s: %w", op, path, err)
	}
	return nil
}

// Recent returns the most recent limit entries, newest first.
func (j *Journal) Recent(limit int) ([]*Entry, error) {
	query := `
		SELECT id, op, path, uuid, dev_name, detail, timestamp
		FROM operations
		ORDER BY id DESC
		LIMIT ?
	`
	return j.queryEntries(query, limit)
}

// ForPath returns the most recent limit entries for a path, newest first.
func (j *Journal) ForPath(path string, limit int) ([]*Entry, error) {
	query := `
		SELECT id, op, path, uuid, dev_name, detail, timestamp
		FROM operations
		WHERE path = ?
		ORDER BY id DESC
		LIMIT ?
	`
	return j.queryEntries(query, vhdpath.Normalize(path), limit)
}

func (j *Journal) queryEntries(query string, args ...any) ([]*Entry, error) {
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		var timestamp string

		err := rows.Scan(&e.ID, &e.Op, &e.Path, &e.UUID, &e.DeviceName, &e.Detail, &timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}

		e.Timestamp, err = time.Parse(time.RFC3339, timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp for entry %d: %w", e.ID, err)
		}

		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal entries: %w", err)
	}
	return entries, nil
}

// Count returns the total number of journaled operations.
func (j *Journal) Count() (int, error) {
	var count int
	err := j.db.QueryRow("SELECT COUNT(*) FROM operations").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count journal entries: %w", err)
	}
	return count, nil
}

// FirstEntryTime returns the timestamp of the oldest journaled operation.
// Returns zero time if the journal is empty.
func (j *Journal) FirstEntryTime() (time.Time, error) {
	var timestamp sql.NullString
	err := j.db.QueryRow("SELECT MIN(timestamp) FROM operations").Scan(&timestamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get first journal entry time: %w", err)
	}
	if !timestamp.Valid || timestamp.String == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(time.RFC3339, timestamp.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp: %w", err)
	}
	return t, nil
}
