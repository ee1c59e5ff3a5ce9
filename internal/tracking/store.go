// Package tracking persists the mapping between VHD file paths and the
// kernel-assigned identifiers (filesystem UUID, device name, mount points)
// they were last observed with, plus a bounded history of detach events.
//
// The backing file is a single JSON document owned exclusively by this
// package. Every mutating operation is a full read-modify-write-replace
// cycle: the database is read, transformed in memory, serialized to a unique
// temporary file in the same directory, and renamed over the original. An
// advisory lock on a sidecar file serializes concurrent writers on the same
// host for the duration of the cycle.
package tracking

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/wsltools/vhdm/internal/vhdpath"
)

// SchemaVersion is written to new database files and checked on load.
const SchemaVersion = "1.0"

// DefaultMaxHistory is the detach history retention cap used when the
// caller does not configure one.
const DefaultMaxHistory = 50

var (
	// ErrNotFound indicates a lookup matched no mapping or history entry.
	// Always non-fatal; callers branch on it.
	ErrNotFound = errors.New("tracking: not found")

	// ErrAmbiguous indicates a reverse lookup (by UUID or device name)
	// matched more than one tracked path and cannot pick one.
	ErrAmbiguous = errors.New("tracking: ambiguous match")

	// ErrCorrupt indicates the database file exists but cannot be parsed.
	// Mutating operations refuse to proceed rather than overwrite it.
	ErrCorrupt = errors.New("tracking: database file is corrupt")
)

// nowFunc returns the current time. Package-level so tests can pin it.
var nowFunc = time.Now

// Mapping is one tracked VHD. The normalized file path is the key and is
// not repeated inside the record on disk.
type Mapping struct {
	// UUID is the filesystem UUID, empty while the VHD is unformatted.
	UUID string `json:"uuid"`
	// DeviceName is the last-known OS device name (e.g. "sdd"). Advisory
	// only: device names are not stable across reattachment and are never
	// used as a lookup key.
	DeviceName string `json:"dev_name"`
	// MountPoints is the comma-separated set of current mount points,
	// empty when attached-but-unmounted or detached-but-remembered.
	MountPoints string `json:"mount_points"`
	// LastAttached is the most recent successful attach/mount observation.
	LastAttached time.Time `json:"last_attached"`
}

// MountPointList returns the mount points as a slice, nil when empty.
func (m *Mapping) MountPointList() []string {
	if m.MountPoints == "" {
		return nil
	}
	return strings.Split(m.MountPoints, ",")
}

// JoinMountPoints converts a mount point slice to the persisted
// comma-separated form.
func JoinMountPoints(mountPoints []string) string {
	return strings.Join(mountPoints, ",")
}

// DetachEvent records one intentional detach of a VHD.
type DetachEvent struct {
	Path       string    `json:"path"`
	UUID       string    `json:"uuid"`
	DeviceName string    `json:"dev_name"`
	Timestamp  time.Time `json:"timestamp"`
}

// database is the durable root object.
type database struct {
	Version       string             `json:"version"`
	Mappings      map[string]Mapping `json:"mappings"`
	DetachHistory []DetachEvent      `json:"detach_history"`
}

func newDatabase() *database {
	return &database{
		Version:  SchemaVersion,
		Mappings: make(map[string]Mapping),
	}
}

// Store provides CRUD over the tracking database file.
type Store struct {
	path       string
	maxHistory int
}

// New creates a Store backed by the database file at dbPath. maxHistory is
// the detach history retention cap; values < 1 fall back to
// DefaultMaxHistory.
func New(dbPath string, maxHistory int) *Store {
	if maxHistory < 1 {
		maxHistory = DefaultMaxHistory
	}
	return &Store{path: dbPath, maxHistory: maxHistory}
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Init ensures the database file and its parent directory exist, creating
// an empty database with the current schema version if absent. Safe to call
// on every invocation.
func (s *Store) Init() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat database file: %w", err)
	}

	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	// Re-check under the lock: another invocation may have won the race.
	if _, err := os.Stat(s.path); err == nil {
		return nil
	}

	return s.write(newDatabase())
}

// lock acquires the exclusive advisory lock serializing writers. The
// returned function releases it.
func (s *Store) lock() (func(), error) {
	fl := flock.New(s.path + ".lock")
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("failed to lock database: %w", err)
	}
	return func() {
		_ = fl.Unlock()
	}, nil
}

// load reads and parses the database file. A missing file yields an empty
// database; an unparseable file yields ErrCorrupt.
func (s *Store) load() (*database, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return newDatabase(), nil
		}
		return nil, fmt.Errorf("failed to read database file: %w", err)
	}

	var db database
	if err := json.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	if db.Mappings == nil {
		db.Mappings = make(map[string]Mapping)
	}
	return &db, nil
}

// loadForRead is load with lookup semantics: a corrupt file reads as empty
// so point lookups report not-found instead of failing. Mutating operations
// use load directly and fail loudly instead.
func (s *Store) loadForRead() *database {
	db, err := s.load()
	if err != nil {
		return newDatabase()
	}
	return db
}

// write serializes db to a unique temporary file in the database directory
// and atomically renames it over the database file. On failure the
// temporary file is removed and the original is left untouched.
func (s *Store) write(db *database) error {
	data, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal database: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".vhdm-db-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary database file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary database file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temporary database file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary database file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace database file: %w", err)
	}
	return nil
}

// mutate runs fn inside a locked read-modify-write-replace cycle. fn may
// return errSkipWrite to abort without touching the file.
func (s *Store) mutate(fn func(db *database) error) error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	db, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(db); err != nil {
		if errors.Is(err, errSkipWrite) {
			return nil
		}
		return err
	}
	return s.write(db)
}

// errSkipWrite signals that a mutation turned out to be a no-op and the
// file should not be rewritten.
var errSkipWrite = errors.New("tracking: no change")

// normalize is a local alias to keep call sites short.
func normalize(path string) string {
	return vhdpath.Normalize(path)
}
