// Package blockdev observes the live OS block-device table: which devices
// exist, which filesystem UUIDs are attached, and where they are mounted.
// It only ever reads system state; changing it (attach, mount, format) is
// the wsl package's job.
package blockdev

import "errors"

var (
	// ErrNotFound indicates no device/UUID/mount point matched the query.
	ErrNotFound = errors.New("blockdev: not found")

	// ErrAmbiguous indicates a query matched more than one device and
	// cannot be resolved without the caller disambiguating.
	ErrAmbiguous = errors.New("blockdev: ambiguous match")
)

// Observer is the read-only view of the block-device table the rest of the
// program depends on. The exec-backed implementation shells out to lsblk
// and findmnt; tests substitute a fake.
type Observer interface {
	// ListBlockDevices returns the names of all disk-type block devices
	// currently present (e.g. "sda", "sdd").
	ListBlockDevices() ([]string, error)

	// IsAttached reports whether a device with the given filesystem UUID
	// is currently present in the device table.
	IsAttached(uuid string) (bool, error)

	// IsMounted reports whether the device with the given filesystem UUID
	// is mounted somewhere.
	IsMounted(uuid string) (bool, error)

	// GetUUIDForDevice returns the filesystem UUID of a device name, or
	// ErrNotFound when the device is absent or unformatted.
	GetUUIDForDevice(deviceName string) (string, error)

	// GetDeviceForUUID returns the device name currently carrying uuid.
	GetDeviceForUUID(uuid string) (string, error)

	// GetMountPoint returns the first mount point of the device carrying
	// uuid, or ErrNotFound when it is not mounted.
	GetMountPoint(uuid string) (string, error)

	// FindUUIDByMountPoint returns the filesystem UUID mounted at path.
	// Returns ErrAmbiguous when more than one tracked device matches.
	FindUUIDByMountPoint(path string) (string, error)

	// DetectNewDevice diffs the current device table against a snapshot
	// taken before an attach and returns the one device that appeared.
	// Inherently racy when another attach happens concurrently on the
	// host; a concurrent attach surfaces as ErrAmbiguous.
	DetectNewDevice(before []string) (string, error)
}
