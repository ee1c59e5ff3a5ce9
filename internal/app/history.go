package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wsltools/vhdm/internal/journal"
	"github.com/wsltools/vhdm/internal/output"
	"github.com/wsltools/vhdm/internal/tracking"
)

var (
	historyLimit   int
	historyPath    string
	historyJournal bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show detach history",
	Long: `Shows recent detach events, newest first. With --path, only events for
that VHD. With --journal, shows the full operation journal instead of
just detaches.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "maximum entries to show (default from config)")
	historyCmd.Flags().StringVar(&historyPath, "path", "", "only show entries for this VHD")
	historyCmd.Flags().BoolVar(&historyJournal, "journal", false, "show the full operation journal")
	RootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()

	limit := historyLimit
	if limit < 1 {
		limit = e.settings.HistoryListDefault
	}

	if historyPath != "" {
		historyPath = e.resolvePath(historyPath)
	}

	if historyJournal {
		return showJournal(e, limit)
	}

	if historyPath != "" {
		ev, err := e.store.GetLastDetachForPath(historyPath)
		if errors.Is(err, tracking.ErrNotFound) {
			fmt.Printf("No detach history for %s\n", historyPath)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Print(output.RenderHistoryTable([]tracking.DetachEvent{*ev}))
		return nil
	}

	events, err := e.store.GetDetachHistory(limit)
	if err != nil {
		return err
	}
	fmt.Print(output.RenderHistoryTable(events))
	return nil
}

func showJournal(e *env, limit int) error {
	if e.journal == nil {
		return fmt.Errorf("operation journal is unavailable")
	}

	var (
		entries []*journal.Entry
		err     error
	)
	if historyPath != "" {
		entries, err = e.journal.ForPath(historyPath, limit)
	} else {
		entries, err = e.journal.Recent(limit)
	}
	if err != nil {
		return err
	}

	fmt.Print(output.RenderJournalTable(entries))
	return nil
}
