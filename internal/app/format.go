package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wsltools/vhdm/internal/journal"
	"github.com/wsltools/vhdm/internal/output"
	"github.com/wsltools/vhdm/internal/wsl"
)

var formatFS string

var formatCmd = &cobra.Command{
	Use:   "format <path>",
	Short: "Create a filesystem on an attached VHD",
	Long: `Formats the block device behind an attached VHD and records the new
filesystem UUID. Reformatting assigns a fresh UUID; the tracking database
keys disks by file path exactly so this operation cannot orphan a record.

The VHD must be attached and unmounted.`,
	Args: cobra.ExactArgs(1),
	RunE: runFormat,
}

func init() {
	formatCmd.Flags().StringVar(&formatFS, "fs", "ext4", "filesystem type (passed to mkfs.<type>)")
	RootCmd.AddCommand(formatCmd)
}

func runFormat(cmd *cobra.Command, args []string) error {
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

	// Resolve the device from live state when possible; the recorded name
	// is only a hint.
	deviceName := m.DeviceName
	if m.UUID != "" {
		if dev, err := e.observer.GetDeviceForUUID(m.UUID); err == nil {
			deviceName = dev
		}
	}
	if deviceName == "" {
		return fmt.Errorf("no known device for %s; re-attach it first", path)
	}

	if m.MountPoints != "" {
		return fmt.Errorf("%s is mounted at %s; unmount it before formatting", path, m.MountPoints)
	}
	if m.UUID != "" {
		mounted, err := e.observer.IsMounted(m.UUID)
		if err != nil {
			return err
		}
		if mounted {
			return fmt.Errorf("%s is mounted; unmount it before formatting", path)
		}
	}

	spinner := output.NewSpinner(fmt.Sprintf("Formatting /dev/%s as %s", deviceName, formatFS))
	spinner.Start()
	err = wsl.FormatDevice(deviceName, formatFS)
	spinner.Stop()
	if err != nil {
		return err
	}

	uuid, err := e.observer.GetUUIDForDevice(deviceName)
	if err != nil {
		return fmt.Errorf("formatted but failed to read the new uuid: %w", err)
	}

	if err := e.store.SaveMapping(path, uuid, nil, deviceName); err != nil {
		return err
	}

	e.record(journal.OpFormat, path, uuid, deviceName, formatFS)
	fmt.Printf("Formatted /dev/%s as %s (uuid %s)\n", deviceName, formatFS, uuid)
	return nil
}
