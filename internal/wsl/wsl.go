// Package wsl wraps the external commands that change system state: wsl.exe
// for attaching and detaching VHDs, qemu-img for creating and resizing
// them, and the usual Linux mount tooling. vhdm runs inside a WSL
// distribution, where Windows executables are callable directly and the
// Windows drives are visible under /mnt.
package wsl

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/wsltools/vhdm/internal/vhdpath"
)

// runCommand executes a system command and returns its combined stdout. It
// is a package-level variable so tests can replace it with a stub.
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

// ToWSLPath translates a (normalized) Windows drive path into the
// corresponding path inside the distribution, e.g. "c:/vms/disk.vhdx" to
// "/mnt/c/vms/disk.vhdx". drvfs mounts are case-insensitive, so the
// lower-cased normalized form resolves to the same file. UNC and relative
// paths are not translatable.
func ToWSLPath(path string) (string, error) {
	p := vhdpath.Normalize(path)
	if len(p) < 2 || p[1] != ':' || p[0] < 'a' || p[0] > 'z' {
		return "", fmt.Errorf("path %q has no drive letter, cannot translate to a WSL path", path)
	}
	return "/mnt/" + string(p[0]) + p[2:], nil
}

// ToWindowsPath converts a normalized path back to the backslash form
// wsl.exe expects.
func ToWindowsPath(path string) string {
	return strings.ReplaceAll(vhdpath.Normalize(path), "/", `\`)
}

// FileExists reports whether the VHD file at the given Windows path exists,
// checked through its drvfs translation. Untranslatable paths report false
// with the translation error.
func FileExists(path string) (bool, error) {
	wslPath, err := ToWSLPath(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(wslPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", wslPath, err)
	}
	return true, nil
}

// AttachVHD exposes the VHD file as a block device in the distribution.
// bare skips the automatic mount so the device can be formatted first.
func AttachVHD(path string, bare bool) error {
	args := []string{"--mount", ToWindowsPath(path), "--vhd"}
	if bare {
		args = append(args, "--bare")
	}
	if _, err := runCommand("wsl.exe", args...); err != nil {
		return fmt.Errorf("failed to attach %s: %w", path, err)
	}
	return nil
}

// DetachVHD removes the VHD's block device from the distribution.
func DetachVHD(path string) error {
	if _, err := runCommand("wsl.exe", "--unmount", ToWindowsPath(path)); err != nil {
		return fmt.Errorf("failed to detach %s: %w", path, err)
	}
	return nil
}

// CreateVHD creates a new dynamically-sized VHDX file. size uses qemu-img
// suffixes ("10G", "512M").
func CreateVHD(path, size string) error {
	wslPath, err := ToWSLPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(wslPath); err == nil {
		return fmt.Errorf("file already exists: %s", path)
	}
	if _, err := runCommand("qemu-img", "create", "-f", "vhdx", "-o", "subformat=dynamic", wslPath, size); err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	return nil
}

// ResizeVHD grows (or with a "-" prefix shrinks) the VHD file. The VHD must
// be detached; qemu-img refuses locked images but the caller is expected to
// have checked first.
func ResizeVHD(path, size string) error {
	wslPath, err := ToWSLPath(path)
	if err != nil {
		return err
	}
	if _, err := runCommand("qemu-img", "resize", wslPath, size); err != nil {
		return fmt.Errorf("failed to resize %s: %w", path, err)
	}
	return nil
}

// VHDSize returns the virtual size of the VHD in bytes, read from
// qemu-img info.
func VHDSize(path string) (int64, error) {
	wslPath, err := ToWSLPath(path)
	if err != nil {
		return 0, err
	}
	output, err := runCommand("qemu-img", "info", "--output=json", wslPath)
	if err != nil {
		return 0, fmt.Errorf("failed to read info for %s: %w", path, err)
	}

	var info struct {
		VirtualSize int64 `json:"virtual-size"`
	}
	if err := json.Unmarshal(output, &info); err != nil {
		return 0, fmt.Errorf("failed to parse qemu-img info for %s: %w", path, err)
	}
	return info.VirtualSize, nil
}

// DeleteVHD removes the VHD file itself.
func DeleteVHD(path string) error {
	wslPath, err := ToWSLPath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(wslPath); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

// FormatDevice creates a filesystem on an attached device.
func FormatDevice(deviceName, fsType string) error {
	if !vhdpath.ValidDeviceName(deviceName) {
		return fmt.Errorf("refusing to format %q: not a valid device name", deviceName)
	}
	if _, err := runCommand("mkfs."+fsType, "/dev/"+vhdpath.DeviceBaseName(deviceName)); err != nil {
		return fmt.Errorf("failed to format %s as %s: %w", deviceName, fsType, err)
	}
	return nil
}

// MountByUUID mounts the filesystem with the given UUID at target, creating
// the target directory if needed.
func MountByUUID(uuid, target string) error {
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("failed to create mount point %s: %w", target, err)
	}
	if _, err := runCommand("mount", "-U", uuid, target); err != nil {
		return fmt.Errorf("failed to mount %s at %s: %w", uuid, target, err)
	}
	return nil
}

// Unmount unmounts the filesystem at target.
func Unmount(target string) error {
	if _, err := runCommand("umount", target); err != nil {
		return fmt.Errorf("failed to unmount %s: %w", target, err)
	}
	return nil
}

// Available reports whether wsl.exe is reachable from this distribution.
func Available() bool {
	_, err := exec.LookPath("wsl.exe")
	return err == nil
}
