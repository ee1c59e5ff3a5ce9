// Package output provides terminal output utilities for vhdm.
//
// This package includes:
//   - Table rendering for tracked mappings, detach history, the operation
//     journal, and reconciliation reports
//   - Human-readable formatting for sizes and timestamps
//
// All table rendering uses ASCII characters and ANSI color codes gated on
// TTY detection and the NO_COLOR convention.
package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/wsltools/vhdm/internal/journal"
	"github.com/wsltools/vhdm/internal/reconcile"
	"github.com/wsltools/vhdm/internal/tracking"
)

// ANSI color codes for status display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// Disk status labels shown in the mappings table.
const (
	StatusMounted  = "mounted"
	StatusAttached = "attached"
	StatusDetached = "detached"
	StatusMissing  = "missing"
)

// MappingRow is one tracked VHD merged with its live state.
type MappingRow struct {
	Path         string
	UUID         string
	DeviceName   string
	MountPoints  string
	SizeBytes    int64 // 0 when unknown
	LastAttached time.Time
	Status       string
}

// RenderMappingsTable renders the tracked VHDs with their last-known
// identifiers and live status.
func RenderMappingsTable(rows []MappingRow) string {
	if len(rows) == 0 {
		return "No tracked VHDs.\n"
	}

	// Sort by path for consistent output
	sorted := make([]MappingRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Path < sorted[j].Path
	})

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-36s %-38s %-6s %-9s %-22s %-13s %s\n",
		"Path", "UUID", "Dev", "Size", "Mount Points", "Last Attached", "Status"))
	sb.WriteString(strings.Repeat("─", 140))
	sb.WriteString("\n")

	for _, row := range sorted {
		uuid := row.UUID
		if uuid == "" {
			uuid = "(unformatted)"
		}
		dev := row.DeviceName
		if dev == "" {
			dev = "—"
		}
		size := "—"
		if row.SizeBytes > 0 {
			size = FormatSize(row.SizeBytes)
		}
		mounts := row.MountPoints
		if mounts == "" {
			mounts = "—"
		}

		sb.WriteString(fmt.Sprintf("%-36s %-38s %-6s %-9s %-22s %-13s %s\n",
			truncate(row.Path, 36),
			uuid,
			dev,
			size,
			truncate(mounts, 22),
			formatRelativeTime(row.LastAttached),
			colorize(statusColor(row.Status), row.Status)))
	}

	return sb.String()
}

// statusColor returns the ANSI color code for a disk status.
func statusColor(status string) string {
	switch status {
	case StatusMounted:
		return colorGreen
	case StatusAttached:
		return colorYellow
	case StatusMissing:
		return colorRed
	default:
		return colorGray
	}
}

// RenderHistoryTable renders detach history entries, newest first.
func RenderHistoryTable(events []tracking.DetachEvent) string {
	if len(events) == 0 {
		return "No detach history.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-36s %-38s %-6s %s\n",
		"Path", "UUID", "Dev", "Detached"))
	sb.WriteString(strings.Repeat("─", 100))
	sb.WriteString("\n")

	for _, e := range events {
		uuid := e.UUID
		if uuid == "" {
			uuid = "—"
		}
		dev := e.DeviceName
		if dev == "" {
			dev = "—"
		}

		sb.WriteString(fmt.Sprintf("%-36s %-38s %-6s %s\n",
			truncate(e.Path, 36),
			uuid,
			dev,
			formatRelativeTime(e.Timestamp)))
	}

	return sb.String()
}

// RenderJournalTable renders operation journal entries, newest first.
func RenderJournalTable(entries []*journal.Entry) string {
	if len(entries) == 0 {
		return "No journaled operations.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-9s %-36s %-6s %-20s %s\n",
		"Op", "Path", "Dev", "Detail", "When"))
	sb.WriteString(strings.Repeat("─", 95))
	sb.WriteString("\n")

	for _, e := range entries {
		dev := e.DeviceName
		if dev == "" {
			dev = "—"
		}
		detail := e.Detail
		if detail == "" {
			detail = "—"
		}

		sb.WriteString(fmt.Sprintf("%-9s %-36s %-6s %-20s %s\n",
			e.Op,
			truncate(e.Path, 36),
			dev,
			truncate(detail, 20),
			formatRelativeTime(e.Timestamp)))
	}

	return sb.String()
}

// RenderReconcileResult renders what a reconciliation pass removed, or
// would remove in dry-run mode.
func RenderReconcileResult(result *reconcile.Result, dryRun bool) string {
	var sb strings.Builder

	verb := "Removed"
	if dryRun {
		verb = "Would remove"
	}

	if len(result.RemovedMappings) == 0 && len(result.RemovedHistory) == 0 {
		sb.WriteString("Tracking database is in sync; nothing to remove.\n")
	}

	for _, rm := range result.RemovedMappings {
		sb.WriteString(fmt.Sprintf("%s mapping %s (%s)\n", verb, rm.Path, rm.Reason))
	}
	for _, rm := range result.RemovedHistory {
		sb.WriteString(fmt.Sprintf("%s detach history for %s (%s)\n", verb, rm.Path, rm.Reason))
	}

	for _, err := range result.Errors {
		sb.WriteString(colorize(colorYellow, fmt.Sprintf("warning: %v\n", err)))
	}

	return sb.String()
}

// FormatSize converts bytes to human-readable size.
func FormatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.0f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.0f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	now := time.Now()
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	case diff < 30*24*time.Hour:
		weeks := int(diff.Hours() / 24 / 7)
		if weeks == 1 {
			return "1 week ago"
		}
		return fmt.Sprintf("%d weeks ago", weeks)
	case diff < 365*24*time.Hour:
		months := int(diff.Hours() / 24 / 30)
		if months == 1 {
			return "1 month ago"
		}
		return fmt.Sprintf("%d months ago", months)
	default:
		years := int(diff.Hours() / 24 / 365)
		if years == 1 {
			return "1 year ago"
		}
		return fmt.Sprintf("%d years ago", years)
	}
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
