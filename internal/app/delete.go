package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wsltools/vhdm/internal/journal"
	"github.com/wsltools/vhdm/internal/tracking"
	"github.com/wsltools/vhdm/internal/wsl"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <path>",
	Short: "Delete a VHD file and its tracking record",
	Long: `Deletes a VHD file from disk and removes its mapping. The disk must be
detached first. Detach history is kept for forensics; 'vhdm sync'
prunes it once the file is gone.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "skip confirmation")
	RootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()

	path := e.resolvePath(args[0])

	uuid, err := e.store.LookupUUIDByPath(path)
	if err != nil && !errors.Is(err, tracking.ErrNotFound) {
		return err
	}
	if err == nil && uuid != "" {
		attached, err := e.observer.IsAttached(uuid)
		if err != nil {
			return err
		}
		if attached {
			return fmt.Errorf("%s is attached; detach it before deleting", path)
		}
	}

	if !deleteForce {
		if !confirm(fmt.Sprintf("Permanently delete %s?", path)) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	e.snapshotBeforeMutation("pre-delete")

	if err := wsl.DeleteVHD(path); err != nil {
		return err
	}

	if err := e.store.RemoveMapping(path); err != nil {
		return err
	}

	e.record(journal.OpDelete, path, "", "", "")
	fmt.Printf("Deleted %s\n", path)
	return nil
}
