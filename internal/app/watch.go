package app

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wsltools/vhdm/internal/reconcile"
	"github.com/wsltools/vhdm/internal/watcher"
)

var (
	watchDaemon      bool
	watchDaemonChild bool
	watchStop        bool
	watchStatus      bool
	watchInterval    time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch VHD files and reconcile automatically",
	Long: `Watches the directories of tracked VHD files and runs a reconciliation
pass whenever one disappears, plus periodically on a timer. Runs in the
foreground by default; use --daemon to background it.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "run in the background")
	watchCmd.Flags().BoolVar(&watchDaemonChild, "daemon-child", false, "internal flag for daemon child process")
	watchCmd.Flags().MarkHidden("daemon-child")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop a running daemon")
	watchCmd.Flags().BoolVar(&watchStatus, "status", false, "report whether the daemon is running")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", watcher.DefaultInterval, "periodic reconcile interval")
	RootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	pidFile, err := getDefaultPIDFile()
	if err != nil {
		return err
	}

	switch {
	case watchStop:
		if err := watcher.StopDaemon(pidFile); err != nil {
			return err
		}
		fmt.Println("Watch daemon stopped.")
		return nil

	case watchStatus:
		running, err := watcher.IsDaemonRunning(pidFile)
		if err != nil {
			return err
		}
		if running {
			fmt.Println("Watch daemon is running.")
		} else {
			fmt.Println("Watch daemon is not running.")
		}
		return nil

	case watchDaemon:
		logFile, err := getDefaultLogFile()
		if err != nil {
			return err
		}
		if err := watcher.StartDaemon(pidFile, logFile); err != nil {
			return err
		}
		fmt.Printf("Watch daemon started (log: %s)\n", logFile)
		return nil

	case watchDaemonChild:
		return runWatchDaemonChild(pidFile)

	default:
		return runWatchForeground()
	}
}

// runWatchForeground blocks in the terminal until interrupted.
func runWatchForeground() error {
	w, err := buildWatcher(zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger())
	if err != nil {
		return err
	}

	fmt.Println("Watching tracked VHDs (Ctrl-C to stop)...")
	pidFile, err := getDefaultPIDFile()
	if err != nil {
		return err
	}
	return w.RunDaemon(pidFile)
}

// runWatchDaemonChild is the backgrounded process started by --daemon.
// Stdout/stderr already point at the log file; log as JSON lines.
func runWatchDaemonChild(pidFile string) error {
	w, err := buildWatcher(zerolog.New(os.Stderr).With().Timestamp().Logger())
	if err != nil {
		return err
	}
	return w.RunDaemon(pidFile)
}

func buildWatcher(logger zerolog.Logger) (*watcher.Watcher, error) {
	e, err := newEnv()
	if err != nil {
		return nil, err
	}
	r := reconcile.New(e.store, e.observer)
	return watcher.New(e.store, r, logger, watchInterval)
}
