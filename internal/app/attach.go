package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wsltools/vhdm/internal/blockdev"
	"github.com/wsltools/vhdm/internal/journal"
	"github.com/wsltools/vhdm/internal/wsl"
)

var attachCmd = &cobra.Command{
	Use:   "attach <path>",
	Short: "Attach a VHD file as a WSL block device",
	Long: `Attaches the VHD file as a bare block device (no automatic mount) and
records the new device name and filesystem UUID in the tracking database.

Detection of the new device is snapshot-based: the device list is taken
before the attach and diffed afterward. If another disk is attached on the
host at the same moment the result is ambiguous and the mapping is saved
without a device name; 'vhdm sync' or a re-attach repairs it.

An unformatted VHD attaches with no filesystem UUID; run 'vhdm format'
before mounting it.`,
	Args: cobra.ExactArgs(1),
	RunE: runAttach,
}

func init() {
	RootCmd.AddCommand(attachCmd)
}

func runAttach(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()

	path := e.resolvePath(args[0])

	exists, err := wsl.FileExists(path)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("no such file: %s", path)
	}

	before, err := e.observer.ListBlockDevices()
	if err != nil {
		return fmt.Errorf("failed to snapshot block devices: %w", err)
	}

	if err := wsl.AttachVHD(path, true); err != nil {
		return err
	}

	deviceName := ""
	uuid := ""
	dev, err := e.observer.DetectNewDevice(before)
	switch {
	case err == nil:
		deviceName = dev
		uuid, err = e.observer.GetUUIDForDevice(dev)
		if err != nil && !errors.Is(err, blockdev.ErrNotFound) {
			return err
		}
	case errors.Is(err, blockdev.ErrNotFound), errors.Is(err, blockdev.ErrAmbiguous):
		fmt.Printf("warning: could not identify the new device (%v)\n", err)
	default:
		return err
	}

	// A fresh attach has no mounts, and any detach history for this path
	// describes a previous life of the disk.
	if err := e.store.SaveMapping(path, uuid, nil, deviceName); err != nil {
		return err
	}
	if err := e.store.RemoveDetachHistory(path); err != nil {
		return err
	}

	e.record(journal.OpAttach, path, uuid, deviceName, "")

	switch {
	case deviceName == "":
		fmt.Printf("Attached %s\n", path)
	case uuid == "":
		fmt.Printf("Attached %s as /dev/%s (unformatted)\n", path, deviceName)
		fmt.Println("Run 'vhdm format' to create a filesystem.")
	default:
		fmt.Printf("Attached %s as /dev/%s (uuid %s)\n", path, deviceName, uuid)
	}
	return nil
}
