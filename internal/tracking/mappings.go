package tracking

import (
	"fmt"
	"time"
)

// Mapping operations

// SaveMapping upserts the mapping for path, keyed by its normalized form.
// The record written is exactly what the caller supplies; call sites that
// want to change some fields and keep others read the existing record first
// and pass the merged result.
func (s *Store) SaveMapping(path, uuid string, mountPoints []string, deviceName string) error {
	key := normalize(path)
	return s.mutate(func(db *database) error {
		db.Mappings[key] = Mapping{
			UUID:         uuid,
			DeviceName:   deviceName,
			MountPoints:  JoinMountPoints(mountPoints),
			LastAttached: nowFunc().UTC().Truncate(time.Second),
		}
		return nil
	})
}

// GetMapping returns the mapping for path, or ErrNotFound.
func (s *Store) GetMapping(path string) (*Mapping, error) {
	db := s.loadForRead()
	m, ok := db.Mappings[normalize(path)]
	if !ok {
		return nil, fmt.Errorf("no mapping for %s: %w", normalize(path), ErrNotFound)
	}
	return &m, nil
}

// LookupUUIDByPath returns the filesystem UUID recorded for path. The UUID
// may be empty when the VHD is tracked but unformatted; ErrNotFound means
// the path is not tracked at all.
func (s *Store) LookupUUIDByPath(path string) (string, error) {
	m, err := s.GetMapping(path)
	if err != nil {
		return "", err
	}
	return m.UUID, nil
}

// LookupPathByUUID returns the normalized path whose mapping carries uuid.
// Returns ErrAmbiguous when more than one tracked path has the same UUID
// (possible when a formatted VHD file has been copied).
func (s *Store) LookupPathByUUID(uuid string) (string, error) {
	if uuid == "" {
		return "", fmt.Errorf("empty uuid: %w", ErrNotFound)
	}

	db := s.loadForRead()
	var found []string
	for path, m := range db.Mappings {
		if m.UUID == uuid {
			found = append(found, path)
		}
	}

	switch len(found) {
	case 0:
		return "", fmt.Errorf("no mapping with uuid %s: %w", uuid, ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("uuid %s matches %d tracked paths: %w", uuid, len(found), ErrAmbiguous)
	}
}

// LookupPathByDeviceName returns the normalized path whose mapping last saw
// deviceName. Device names are reused by the kernel across reattachments, so
// this is a display/debug convenience only — never identity.
func (s *Store) LookupPathByDeviceName(deviceName string) (string, error) {
	if deviceName == "" {
		return "", fmt.Errorf("empty device name: %w", ErrNotFound)
	}

	db := s.loadForRead()
	var found []string
	for path, m := range db.Mappings {
		if m.DeviceName == deviceName {
			found = append(found, path)
		}
	}

	switch len(found) {
	case 0:
		return "", fmt.Errorf("no mapping with device %s: %w", deviceName, ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("device %s matches %d tracked paths: %w", deviceName, len(found), ErrAmbiguous)
	}
}

// UpdateMountPoints replaces the mount point set for an existing mapping.
// Unlike SaveMapping it never creates a record: updating mount points for an
// unknown path returns ErrNotFound.
func (s *Store) UpdateMountPoints(path string, mountPoints []string) error {
	key := normalize(path)
	return s.mutate(func(db *database) error {
		m, ok := db.Mappings[key]
		if !ok {
			return fmt.Errorf("no mapping for %s: %w", key, ErrNotFound)
		}
		m.MountPoints = JoinMountPoints(mountPoints)
		db.Mappings[key] = m
		return nil
	})
}

// RemoveMapping deletes the mapping for path. Removing an absent path is
// not an error.
func (s *Store) RemoveMapping(path string) error {
	key := normalize(path)
	return s.mutate(func(db *database) error {
		if _, ok := db.Mappings[key]; !ok {
			return errSkipWrite
		}
		delete(db.Mappings, key)
		return nil
	})
}

// GetAllPaths returns every tracked mapping key.
func (s *Store) GetAllPaths() ([]string, error) {
	db := s.loadForRead()
	paths := make([]string, 0, len(db.Mappings))
	for path := range db.Mappings {
		paths = append(paths, path)
	}
	return paths, nil
}
