package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wsltools/vhdm/internal/output"
	"github.com/wsltools/vhdm/internal/wsl"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked VHDs and their live status",
	Long: `Lists every tracked VHD with its last known identity and a status
derived from live block-device state:

  mounted   attached with at least one active mount
  attached  visible as a block device, not mounted
  detached  file exists but no matching device
  missing   the VHD file itself is gone (run 'vhdm sync')`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	RootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()

	paths, err := e.store.GetAllPaths()
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Println("No tracked VHDs. Use 'vhdm attach <path>' to start tracking one.")
		return nil
	}

	rows := make([]output.MappingRow, 0, len(paths))
	for _, p := range paths {
		m, err := e.store.GetMapping(p)
		if err != nil {
			continue
		}
		// Size is best-effort; qemu-img cannot read an attached image.
		size, err := wsl.VHDSize(p)
		if err != nil {
			size = 0
		}
		rows = append(rows, output.MappingRow{
			Path:         p,
			UUID:         m.UUID,
			DeviceName:   m.DeviceName,
			MountPoints:  m.MountPoints,
			SizeBytes:    size,
			LastAttached: m.LastAttached,
			Status:       liveStatus(e, m.UUID, p),
		})
	}

	fmt.Print(output.RenderMappingsTable(rows))
	return nil
}

func liveStatus(e *env, uuid, path string) string {
	if uuid != "" {
		if mounted, err := e.observer.IsMounted(uuid); err == nil && mounted {
			return output.StatusMounted
		}
		if attached, err := e.observer.IsAttached(uuid); err == nil && attached {
			return output.StatusAttached
		}
	}
	exists, err := wsl.FileExists(path)
	if err != nil || !exists {
		return output.StatusMissing
	}
	return output.StatusDetached
}
