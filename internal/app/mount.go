package app

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wsltools/vhdm/internal/journal"
	"github.com/wsltools/vhdm/internal/vhdpath"
	"github.com/wsltools/vhdm/internal/wsl"
)

var mountAt string

var mountCmd = &cobra.Command{
	Use:   "mount <path>",
	Short: "Mount an attached VHD's filesystem",
	Long: `Mounts the filesystem of an attached, formatted VHD by UUID and records
the mount point. Without --at the mount point is derived from the VHD
file name under the configured mount root.`,
	Args: cobra.ExactArgs(1),
	RunE: runMount,
}

func init() {
	mountCmd.Flags().StringVar(&mountAt, "at", "", "mount point (default: <mount-root>/<vhd-name>)")
	RootCmd.AddCommand(mountCmd)
}

// defaultMountTarget derives a mount point from the VHD file name:
// c:/disks/data.vhdx -> <root>/data.
func defaultMountTarget(root, path string) string {
	base := filepath.Base(vhdpath.Normalize(path))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return root + "/" + base
}

func runMount(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()

	path := e.resolvePath(args[0])

	m, err := e.store.GetMapping(path)
	if err != nil {
		return fmt.Errorf("%s is not tracked; attach it first", path)
	}
	if m.UUID == "" {
		return fmt.Errorf("%s has no filesystem; run 'vhdm format %s' first", path, path)
	}

	target := mountAt
	if target == "" {
		target = defaultMountTarget(e.settings.MountRoot, path)
	}

	if err := wsl.MountByUUID(m.UUID, target); err != nil {
		return err
	}

	mounts := dedupe(append(m.MountPointList(), target))
	if err := e.store.SaveMapping(path, m.UUID, mounts, m.DeviceName); err != nil {
		return err
	}

	e.record(journal.OpMount, path, m.UUID, m.DeviceName, target)
	fmt.Printf("Mounted %s at %s\n", path, target)
	return nil
}
