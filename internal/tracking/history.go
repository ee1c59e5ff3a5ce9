package tracking

import (
	"fmt"
	"time"
)

// Detach history operations
//
// History is an independent collection from the mappings: removing a
// mapping leaves its detach events in place (and vice versa). Both are
// keyed by the same normalized path.

// SaveDetachHistory prepends a detach event for path with the current
// timestamp and truncates the log to the retention cap, oldest first.
func (s *Store) SaveDetachHistory(path, uuid, deviceName string) error {
	event := DetachEvent{
		Path:       normalize(path),
		UUID:       uuid,
		DeviceName: deviceName,
		Timestamp:  nowFunc().UTC().Truncate(time.Second),
	}
	return s.mutate(func(db *database) error {
		db.DetachHistory = append([]DetachEvent{event}, db.DetachHistory...)
		if len(db.DetachHistory) > s.maxHistory {
			db.DetachHistory = db.DetachHistory[:s.maxHistory]
		}
		return nil
	})
}

// RemoveDetachHistory deletes every history entry for path. Used on
// re-attach, when old detach events stop being relevant. Removing history
// for a path with no entries is not an error.
func (s *Store) RemoveDetachHistory(path string) error {
	key := normalize(path)
	return s.mutate(func(db *database) error {
		kept := db.DetachHistory[:0]
		for _, e := range db.DetachHistory {
			if e.Path != key {
				kept = append(kept, e)
			}
		}
		if len(kept) == len(db.DetachHistory) {
			return errSkipWrite
		}
		db.DetachHistory = kept
		return nil
	})
}

// GetDetachHistory returns the most recent limit entries, newest first.
// limit values < 1 or above the retention cap are clamped to the cap.
func (s *Store) GetDetachHistory(limit int) ([]DetachEvent, error) {
	if limit < 1 || limit > s.maxHistory {
		limit = s.maxHistory
	}

	db := s.loadForRead()
	if len(db.DetachHistory) < limit {
		limit = len(db.DetachHistory)
	}

	events := make([]DetachEvent, limit)
	copy(events, db.DetachHistory[:limit])
	return events, nil
}

// GetLastDetachForPath returns the most recent detach event for path, or
// ErrNotFound.
func (s *Store) GetLastDetachForPath(path string) (*DetachEvent, error) {
	key := normalize(path)
	db := s.loadForRead()
	for _, e := range db.DetachHistory {
		if e.Path == key {
			event := e
			return &event, nil
		}
	}
	return nil, fmt.Errorf("no detach history for %s: %w", key, ErrNotFound)
}

// HistoryPaths returns the distinct normalized paths referenced by detach
// history, newest first.
func (s *Store) HistoryPaths() ([]string, error) {
	db := s.loadForRead()
	seen := make(map[string]bool)
	var paths []string
	for _, e := range db.DetachHistory {
		if !seen[e.Path] {
			seen[e.Path] = true
			paths = append(paths, e.Path)
		}
	}
	return paths, nil
}
