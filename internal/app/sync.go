package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wsltools/vhdm/internal/journal"
	"github.com/wsltools/vhdm/internal/output"
	"github.com/wsltools/vhdm/internal/reconcile"
)

var syncDryRun bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the tracking database against live state",
	Long: `Compares every tracked mapping and detach-history entry against actual
block devices and VHD files, removing records whose disk is no longer
attached or whose file no longer exists. The database goes stale after
reboots, crashes, and detaches done outside vhdm; sync brings it back.

Use --dry-run to see what would be removed without changing anything.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "report stale records without removing them")
	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()

	if !syncDryRun {
		e.snapshotBeforeMutation("pre-sync")
	}

	r := reconcile.New(e.store, e.observer)
	result, err := r.Reconcile(syncDryRun)
	if err != nil {
		return err
	}

	if !syncDryRun {
		for _, rm := range result.RemovedMappings {
			e.record(journal.OpPrune, rm.Path, "", "", rm.Reason)
		}
	}

	fmt.Print(output.RenderReconcileResult(result, syncDryRun))
	return nil
}
