package blockdev

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/wsltools/vhdm/internal/vhdpath"
)

// runCommand executes a system command and returns its stdout. It is a
// package-level variable so tests can replace it with a stub.
var runCommand = func(name string, args ...string) ([]byte, error) {
	output, err := exec.Command(name, args...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("%s failed: %w (stderr: %s)", name, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}
	return output, nil
}

// lsblkOutput represents the structure of `lsblk --json` output.
type lsblkOutput struct {
	BlockDevices []lsblkDevice `json:"blockdevices"`
}

// lsblkDevice is one node of the lsblk device tree. UUID and mount points
// can live either on the disk itself (whole-disk filesystem, the common
// case for WSL VHDs) or on child partitions.
type lsblkDevice struct {
	Name        string        `json:"name"`
	Type        string        `json:"type"`
	UUID        string        `json:"uuid"`
	MountPoints []string      `json:"mountpoints"`
	Children    []lsblkDevice `json:"children,omitempty"`
}

// ExecObserver is the Observer implementation backed by lsblk/findmnt.
type ExecObserver struct{}

// NewExecObserver returns an Observer that queries the live system.
func NewExecObserver() *ExecObserver {
	return &ExecObserver{}
}

// listDevices runs lsblk and flattens the device tree.
func (o *ExecObserver) listDevices() ([]lsblkDevice, error) {
	output, err := runCommand("lsblk", "--json", "--output", "NAME,TYPE,UUID,MOUNTPOINTS")
	if err != nil {
		return nil, err
	}

	var parsed lsblkOutput
	if err := json.Unmarshal(output, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse lsblk output: %w", err)
	}

	var flat []lsblkDevice
	var walk func(devs []lsblkDevice)
	walk = func(devs []lsblkDevice) {
		for _, d := range devs {
			flat = append(flat, d)
			walk(d.Children)
		}
	}
	walk(parsed.BlockDevices)
	return flat, nil
}

// mountPoints filters the lsblk mountpoints array, which pads unmounted
// devices with null entries.
func (d *lsblkDevice) mountPoints() []string {
	var points []string
	for _, p := range d.MountPoints {
		if p != "" {
			points = append(points, p)
		}
	}
	return points
}

// ListBlockDevices returns the names of all disk-type devices.
func (o *ExecObserver) ListBlockDevices() ([]string, error) {
	devices, err := o.listDevices()
	if err != nil {
		return nil, err
	}

	var names []string
	for _, d := range devices {
		if d.Type == "disk" {
			names = append(names, d.Name)
		}
	}
	return names, nil
}

// findByUUID returns the device node carrying uuid, or nil.
func (o *ExecObserver) findByUUID(uuid string) (*lsblkDevice, error) {
	if uuid == "" {
		return nil, nil
	}
	devices, err := o.listDevices()
	if err != nil {
		return nil, err
	}
	for i := range devices {
		if devices[i].UUID == uuid {
			return &devices[i], nil
		}
	}
	return nil, nil
}

// IsAttached reports whether any device carries uuid.
func (o *ExecObserver) IsAttached(uuid string) (bool, error) {
	dev, err := o.findByUUID(uuid)
	if err != nil {
		return false, err
	}
	return dev != nil, nil
}

// IsMounted reports whether the device carrying uuid has a mount point.
func (o *ExecObserver) IsMounted(uuid string) (bool, error) {
	dev, err := o.findByUUID(uuid)
	if err != nil {
		return false, err
	}
	return dev != nil && len(dev.mountPoints()) > 0, nil
}

// GetUUIDForDevice returns the filesystem UUID of deviceName.
func (o *ExecObserver) GetUUIDForDevice(deviceName string) (string, error) {
	name := vhdpath.DeviceBaseName(deviceName)
	devices, err := o.listDevices()
	if err != nil {
		return "", err
	}
	for _, d := range devices {
		if d.Name == name {
			if d.UUID == "" {
				return "", fmt.Errorf("device %s has no filesystem uuid: %w", name, ErrNotFound)
			}
			return d.UUID, nil
		}
	}
	return "", fmt.Errorf("no device named %s: %w", name, ErrNotFound)
}

// GetDeviceForUUID returns the device name currently carrying uuid.
func (o *ExecObserver) GetDeviceForUUID(uuid string) (string, error) {
	dev, err := o.findByUUID(uuid)
	if err != nil {
		return "", err
	}
	if dev == nil {
		return "", fmt.Errorf("no device with uuid %s: %w", uuid, ErrNotFound)
	}
	return dev.Name, nil
}

// GetMountPoint returns the first mount point of the device carrying uuid.
func (o *ExecObserver) GetMountPoint(uuid string) (string, error) {
	dev, err := o.findByUUID(uuid)
	if err != nil {
		return "", err
	}
	if dev == nil {
		return "", fmt.Errorf("no device with uuid %s: %w", uuid, ErrNotFound)
	}
	points := dev.mountPoints()
	if len(points) == 0 {
		return "", fmt.Errorf("device with uuid %s is not mounted: %w", uuid, ErrNotFound)
	}
	return points[0], nil
}

// FindUUIDByMountPoint returns the filesystem UUID mounted at path.
func (o *ExecObserver) FindUUIDByMountPoint(path string) (string, error) {
	devices, err := o.listDevices()
	if err != nil {
		return "", err
	}

	var found []string
	for _, d := range devices {
		for _, p := range d.mountPoints() {
			if p == path && d.UUID != "" {
				found = append(found, d.UUID)
			}
		}
	}

	switch len(found) {
	case 0:
		return "", fmt.Errorf("nothing mounted at %s: %w", path, ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("%d devices mounted at %s: %w", len(found), path, ErrAmbiguous)
	}
}

// DetectNewDevice diffs the current disk list against the before snapshot.
// Devices with names outside the sd* grammar are ignored; WSL exposes
// attached VHDs as SCSI disks.
func (o *ExecObserver) DetectNewDevice(before []string) (string, error) {
	after, err := o.ListBlockDevices()
	if err != nil {
		return "", err
	}

	known := make(map[string]bool, len(before))
	for _, name := range before {
		known[name] = true
	}

	var appeared []string
	for _, name := range after {
		if !known[name] && vhdpath.ValidDeviceName(name) {
			appeared = append(appeared, name)
		}
	}

	switch len(appeared) {
	case 0:
		return "", fmt.Errorf("no new block device appeared: %w", ErrNotFound)
	case 1:
		return appeared[0], nil
	default:
		return "", fmt.Errorf("%d new block devices appeared (concurrent attach?): %w", len(appeared), ErrAmbiguous)
	}
}
