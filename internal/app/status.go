package app

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wsltools/vhdm/internal/config"
	"github.com/wsltools/vhdm/internal/journal"
	"github.com/wsltools/vhdm/internal/tracking"
	"github.com/wsltools/vhdm/internal/watcher"
	"github.com/wsltools/vhdm/internal/wsl"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Diagnose common issues and check system health",
	Long: `Runs diagnostic checks on the vhdm installation.

Checks:
  • Tracking database exists and parses
  • wsl.exe and lsblk are reachable
  • Watch daemon is running
  • Operation journal is accessible`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	RootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("Running vhdm diagnostics...")
	fmt.Println()

	// Critical issues break lifecycle commands; warnings mean degraded
	// convenience features. Warnings-only exits 2 so scripts can tell
	// the difference.
	criticalIssues := 0
	warningIssues := 0

	// Check 1: tracking database exists and parses
	settings, err := config.Load()
	if err != nil {
		fmt.Println("✗ Config error:", err)
		criticalIssues++
		settings = config.Defaults()
	}
	resolvedDBPath, err := settings.ResolveDatabasePath(dbPath)
	if err != nil {
		fmt.Println("✗ Database path error:", err)
		criticalIssues++
	} else if _, err := os.Stat(resolvedDBPath); os.IsNotExist(err) {
		fmt.Println("⚠ Tracking database not created yet:", resolvedDBPath)
		fmt.Println("  This is normal before the first attach")
		warningIssues++
	} else {
		st := tracking.New(resolvedDBPath, settings.DetachHistoryMax)
		paths, err := st.GetAllPaths()
		if err != nil {
			fmt.Println("✗ Cannot read tracking database:", err)
			criticalIssues++
		} else {
			fmt.Printf("✓ Tracking database OK (%d tracked VHDs): %s\n", len(paths), resolvedDBPath)
		}
	}

	// Check 2: wsl.exe reachable — critical, nothing works without it
	if wsl.Available() {
		fmt.Println("✓ wsl.exe is reachable")
	} else {
		fmt.Println("✗ wsl.exe not found in PATH")
		fmt.Println("  Action: run vhdm inside a WSL distro with Windows interop enabled")
		criticalIssues++
	}

	// Check 3: lsblk reachable — critical for device observation
	if _, err := exec.LookPath("lsblk"); err != nil {
		fmt.Println("✗ lsblk not found in PATH")
		fmt.Println("  Action: install util-linux")
		criticalIssues++
	} else {
		fmt.Println("✓ lsblk is reachable")
	}

	// Check 4: qemu-img reachable — warning, only create/resize need it
	if _, err := exec.LookPath("qemu-img"); err != nil {
		fmt.Println("⚠ qemu-img not found — 'create' and 'resize' unavailable")
		fmt.Println("  Action: install qemu-utils")
		warningIssues++
	} else {
		fmt.Println("✓ qemu-img is reachable")
	}

	// Check 5: watch daemon running — warning only
	pidFile, err := getDefaultPIDFile()
	if err != nil {
		fmt.Println("⚠ Failed to get PID file path:", err)
		warningIssues++
	} else if _, err := os.Stat(pidFile); os.IsNotExist(err) {
		fmt.Println("⚠ Watch daemon not running (no PID file)")
		fmt.Println("  Action: Run 'vhdm watch --daemon'")
		warningIssues++
	} else {
		running, err := watcher.IsDaemonRunning(pidFile)
		if err != nil {
			fmt.Println("⚠ Failed to check daemon status:", err)
			warningIssues++
		} else if !running {
			fmt.Println("⚠ Watch daemon not running (stale PID file)")
			fmt.Println("  Action: Run 'vhdm watch --daemon'")
			warningIssues++
		} else {
			pidData, err := os.ReadFile(pidFile)
			if err == nil {
				pidStr := strings.TrimSpace(string(pidData))
				pid, _ := strconv.Atoi(pidStr)
				fmt.Printf("✓ Watch daemon running (PID %d)\n", pid)
			} else {
				fmt.Println("✓ Watch daemon running")
			}
		}
	}

	// Check 6: operation journal — warning only, lifecycle works without it
	journalPath, err := settings.ResolveJournalPath()
	if err != nil {
		fmt.Println("⚠ Journal path error:", err)
		warningIssues++
	} else if j, err := journal.Open(journalPath); err != nil {
		fmt.Println("⚠ Cannot open operation journal:", err)
		warningIssues++
	} else {
		defer j.Close()
		count, err := j.Count()
		if err != nil {
			fmt.Println("⚠ Cannot read operation journal:", err)
			warningIssues++
		} else if count == 0 {
			fmt.Println("✓ Operation journal OK (empty)")
		} else {
			first, err := j.FirstEntryTime()
			if err == nil && !first.IsZero() {
				fmt.Printf("✓ Operation journal OK (%d operations since %s)\n",
					count, first.Format("2006-01-02"))
			} else {
				fmt.Printf("✓ Operation journal OK (%d operations)\n", count)
			}
		}
	}

	fmt.Println()
	if criticalIssues == 0 && warningIssues == 0 {
		fmt.Println("✓ All checks passed!")
		return nil
	}

	if criticalIssues > 0 {
		fmt.Printf("Found %d critical issue(s) and %d warning(s).\n", criticalIssues, warningIssues)
		return fmt.Errorf("diagnostics failed")
	}

	// Warning-only path exits 2 directly so main's error handler does not
	// print a second message.
	fmt.Printf("Found %d warning(s). System is functional but not fully configured.\n", warningIssues)
	os.Exit(2)
	return nil // unreachable; satisfies compiler
}
