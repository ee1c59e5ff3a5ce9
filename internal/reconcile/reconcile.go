// Package reconcile brings the tracking database back into agreement with
// observable reality. Tracked mappings go stale in ways this program never
// sees: a reboot detaches every VHD, someone runs wsl.exe --unmount by
// hand, or the file is deleted from the Windows side. Reconciliation walks
// the database and prunes entries whose disk is provably gone.
package reconcile

import (
	"errors"
	"fmt"

	"github.com/wsltools/vhdm/internal/blockdev"
	"github.com/wsltools/vhdm/internal/tracking"
	"github.com/wsltools/vhdm/internal/wsl"
)

// Removal reasons reported in Result.
const (
	ReasonNotAttached  = "not attached"
	ReasonFileNotFound = "file not found"
)

// Removal is one pruned (or prunable, in dry-run mode) entry.
type Removal struct {
	Path   string
	Reason string
}

// Result reports what a reconciliation pass removed, or would remove.
// Per-entry failures are accumulated in Errors; they never abort the pass.
type Result struct {
	RemovedMappings []Removal
	RemovedHistory  []Removal
	Errors          []error
}

// Reconciler compares tracking state against the device table and the
// filesystem.
type Reconciler struct {
	store    *tracking.Store
	observer blockdev.Observer

	// fileExists checks whether the VHD file behind a tracked path still
	// exists. Overridable in tests.
	fileExists func(path string) (bool, error)
}

// New creates a Reconciler over the given store and device observer.
func New(store *tracking.Store, observer blockdev.Observer) *Reconciler {
	return &Reconciler{
		store:      store,
		observer:   observer,
		fileExists: wsl.FileExists,
	}
}

// Reconcile runs one pass. With dryRun the result reports what would be
// removed and the database is left untouched.
//
// A mapping with a known UUID is checked for liveness against the device
// table; an unformatted mapping has no UUID to check, so its backing file
// is checked for existence instead. History entries only reference files,
// so they always use the existence check.
func (r *Reconciler) Reconcile(dryRun bool) (*Result, error) {
	result := &Result{}

	paths, err := r.store.GetAllPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate tracked paths: %w", err)
	}

	for _, path := range paths {
		mapping, err := r.store.GetMapping(path)
		if err != nil {
			if errors.Is(err, tracking.ErrNotFound) {
				continue
			}
			result.Errors = append(result.Errors, fmt.Errorf("mapping %s: %w", path, err))
			continue
		}

		if mapping.UUID != "" {
			attached, err := r.observer.IsAttached(mapping.UUID)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("mapping %s: %w", path, err))
				continue
			}
			if !attached {
				result.RemovedMappings = append(result.RemovedMappings, Removal{Path: path, Reason: ReasonNotAttached})
			}
			continue
		}

		exists, err := r.fileExists(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("mapping %s: %w", path, err))
			continue
		}
		if !exists {
			result.RemovedMappings = append(result.RemovedMappings, Removal{Path: path, Reason: ReasonFileNotFound})
		}
	}

	historyPaths, err := r.store.HistoryPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate history paths: %w", err)
	}

	for _, path := range historyPaths {
		exists, err := r.fileExists(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("history %s: %w", path, err))
			continue
		}
		if !exists {
			result.RemovedHistory = append(result.RemovedHistory, Removal{Path: path, Reason: ReasonFileNotFound})
		}
	}

	if dryRun {
		return result, nil
	}

	for _, rm := range result.RemovedMappings {
		if err := r.store.RemoveMapping(rm.Path); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("remove mapping %s: %w", rm.Path, err))
		}
	}
	for _, rm := range result.RemovedHistory {
		if err := r.store.RemoveDetachHistory(rm.Path); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("remove history %s: %w", rm.Path, err))
		}
	}

	return result, nil
}
