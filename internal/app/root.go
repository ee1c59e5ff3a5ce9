package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wsltools/vhdm/internal/config"
)

var (
	dbPath  string
	verbose bool

	// RootCmd is the root command for vhdm
	RootCmd = &cobra.Command{
		Use:   "vhdm",
		Short: "Manage VHD/VHDX files as WSL block devices",
		Long: `vhdm attaches, formats, mounts and tracks VHD/VHDX files as WSL block
devices. Every disk it touches is recorded in a local tracking database so
the filesystem UUID, device name and mount points survive across sessions,
and a bounded detach history answers "where did my disk go".

The tracking database can go stale when disks are detached outside vhdm
(reboot, wsl.exe --unmount by hand) or deleted from the Windows side; run
'vhdm sync' to prune dead entries, or keep 'vhdm watch --daemon' running
to do it automatically.

Quick Start:
  1. vhdm create C:\VMs\data.vhdx --size 10G
  2. vhdm attach C:\VMs\data.vhdx
  3. vhdm format C:\VMs\data.vhdx
  4. vhdm mount C:\VMs\data.vhdx

Examples:
  # Show everything vhdm knows about
  vhdm list

  # Detach a disk (records a detach history entry)
  vhdm detach C:\VMs\data.vhdx

  # Show the most recent detaches
  vhdm history

  # Preview what a cleanup pass would remove
  vhdm sync --dry-run`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("vhdm: WSL virtual disk lifecycle manager")
			fmt.Println()
			fmt.Println("Run 'vhdm list' to see tracked disks.")
			fmt.Println("Run 'vhdm --help' for the full reference.")
			return nil
		},
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "tracking database path (default: ~/.vhdm/tracking.json)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// setupLogging configures the global zerolog logger for interactive use:
// terse console output, warnings only unless --verbose.
func setupLogging() {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// getDefaultPIDFile returns the watch daemon PID file path.
func getDefaultPIDFile() (string, error) {
	dir, err := config.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "watch.pid"), nil
}

// getDefaultLogFile returns the watch daemon log file path.
func getDefaultLogFile() (string, error) {
	dir, err := config.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "watch.log"), nil
}
