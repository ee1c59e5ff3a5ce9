package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

var restoreList bool

var restoreCmd = &cobra.Command{
	Use:   "restore [snapshot-id]",
	Short: "Restore the tracking database from a snapshot",
	Long: `Restores the tracking database from a snapshot taken before a delete or
sync. Use --list to see available snapshots, then restore one by ID:

  vhdm restore --list
  vhdm restore 3f9a1c2e

Restoring only rewrites the database; it does not re-attach disks.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().BoolVar(&restoreList, "list", false, "list available snapshots")
	RootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()

	m, err := e.backupManager()
	if err != nil {
		return err
	}

	if restoreList || len(args) == 0 {
		snapshots, err := m.List()
		if err != nil {
			return err
		}
		if len(snapshots) == 0 {
			fmt.Println("No snapshots. They are taken automatically before 'delete' and 'sync'.")
			return nil
		}
		fmt.Printf("%-10s %-22s %s\n", "ID", "Created", "Reason")
		for _, s := range snapshots {
			fmt.Printf("%-10s %-22s %s\n", s.ID, s.CreatedAt.Format("2006-01-02 15:04:05"), s.Reason)
		}
		if len(args) == 0 && !restoreList {
			fmt.Println()
			fmt.Println("Run 'vhdm restore <id>' to restore one.")
		}
		return nil
	}

	id := args[0]
	if !confirm(fmt.Sprintf("Overwrite the tracking database with snapshot %s?", id)) {
		fmt.Println("Aborted.")
		return nil
	}

	if err := m.Restore(id); err != nil {
		return err
	}

	fmt.Printf("Restored tracking database from snapshot %s\n", id)
	fmt.Println("Run 'vhdm sync --dry-run' to check it against live state.")
	return nil
}
