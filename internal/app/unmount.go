package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wsltools/vhdm/internal/journal"
	"github.com/wsltools/vhdm/internal/tracking"
	"github.com/wsltools/vhdm/internal/wsl"
)

var unmountCmd = &cobra.Command{
	Use:   "unmount <path|mount-point>",
	Short: "Unmount a VHD's filesystem",
	Long: `Unmounts every recorded mount point of a tracked VHD. The disk stays
attached; use 'vhdm detach' to release it back to Windows.

The argument can be the VHD path, an alias, or a mount point:

  vhdm unmount C:\VMs\data.vhdx
  vhdm unmount /mnt/wsl/data`,
	Args: cobra.ExactArgs(1),
	RunE: runUnmount,
}

func init() {
	RootCmd.AddCommand(unmountCmd)
}

func runUnmount(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()

	path := e.resolvePath(args[0])

	m, err := e.store.GetMapping(path)
	if errors.Is(err, tracking.ErrNotFound) && strings.HasPrefix(args[0], "/") {
		// Not a tracked path; maybe the user gave a mount point.
		path, m, err = mappingForMountPoint(e, args[0])
	}
	if err != nil {
		return fmt.Errorf("%s is not tracked", args[0])
	}

	mounts := m.MountPointList()
	if len(mounts) == 0 {
		fmt.Printf("%s has no recorded mount points\n", path)
		return nil
	}

	for _, target := range mounts {
		if err := wsl.Unmount(target); err != nil {
			return fmt.Errorf("unmount %s: %w", target, err)
		}
	}

	if err := e.store.UpdateMountPoints(path, nil); err != nil {
		return err
	}

	e.record(journal.OpUnmount, path, m.UUID, m.DeviceName, "")
	fmt.Printf("Unmounted %s (%d mount point(s))\n", path, len(mounts))
	return nil
}

// mappingForMountPoint resolves a live mount point back to its tracked VHD:
// the filesystem UUID mounted there leads to the path that recorded it.
func mappingForMountPoint(e *env, mountPoint string) (string, *tracking.Mapping, error) {
	uuid, err := e.observer.FindUUIDByMountPoint(mountPoint)
	if err != nil {
		return "", nil, err
	}
	path, err := e.store.LookupPathByUUID(uuid)
	if err != nil {
		return "", nil, err
	}
	m, err := e.store.GetMapping(path)
	if err != nil {
		return "", nil, err
	}
	return path, m, nil
}
