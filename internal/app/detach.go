package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wsltools/vhdm/internal/journal"
	"github.com/wsltools/vhdm/internal/tracking"
	"github.com/wsltools/vhdm/internal/vhdpath"
	"github.com/wsltools/vhdm/internal/wsl"
)

var detachCmd = &cobra.Command{
	Use:   "detach <path|device>",
	Short: "Detach a VHD from WSL",
	Long: `Unmounts any recorded mount points, detaches the VHD, and records a
detach history entry so the next attach can be verified against the
last known identity.

The argument can be the VHD path, an alias, or the device name the disk
was last seen as:

  vhdm detach C:\VMs\data.vhdx
  vhdm detach /dev/sdd`,
	Args: cobra.ExactArgs(1),
	RunE: runDetach,
}

func init() {
	RootCmd.AddCommand(detachCmd)
}

func runDetach(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()

	path := e.resolvePath(args[0])
	if vhdpath.ValidDeviceName(args[0]) {
		p, err := e.store.LookupPathByDeviceName(vhdpath.DeviceBaseName(args[0]))
		if err != nil {
			return fmt.Errorf("no tracked VHD was last seen as %s", args[0])
		}
		path = p
	}

	m, err := e.store.GetMapping(path)
	tracked := err == nil
	if err != nil && !errors.Is(err, tracking.ErrNotFound) {
		return err
	}

	if tracked {
		for _, target := range m.MountPointList() {
			if err := wsl.Unmount(target); err != nil {
				return fmt.Errorf("unmount %s before detach: %w", target, err)
			}
		}
	}

	if err := wsl.DetachVHD(path); err != nil {
		return err
	}

	if tracked {
		if err := e.store.UpdateMountPoints(path, nil); err != nil {
			return err
		}
		if err := e.store.SaveDetachHistory(path, m.UUID, m.DeviceName); err != nil {
			return err
		}
		e.record(journal.OpDetach, path, m.UUID, m.DeviceName, "")
	} else {
		e.record(journal.OpDetach, path, "", "", "untracked")
	}

	fmt.Printf("Detached %s\n", path)
	return nil
}
