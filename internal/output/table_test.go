package output

import (
	"strings"
	"testing"
	"time"

	"github.com/wsltools/vhdm/internal/journal"
	"github.com/wsltools/vhdm/internal/reconcile"
	"github.com/wsltools/vhdm/internal/tracking"
)

func TestRenderMappingsTable_Empty(t *testing.T) {
	got := RenderMappingsTable(nil)
	if !strings.Contains(got, "No tracked VHDs") {
		t.Errorf("empty table output = %q", got)
	}
}

func TestRenderMappingsTable(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	rows := []MappingRow{
		{
			Path:         "c:/vms/b.vhdx",
			UUID:         "22222222-2222-2222-2222-222222222222",
			DeviceName:   "sde",
			MountPoints:  "/mnt/wsl/b",
			SizeBytes:    10 * 1024 * 1024 * 1024,
			LastAttached: time.Now().Add(-2 * time.Hour),
			Status:       StatusMounted,
		},
		{
			Path:   "c:/vms/a.vhdx",
			UUID:   "",
			Status: StatusDetached,
		},
	}

	got := RenderMappingsTable(rows)

	if !strings.Contains(got, "c:/vms/b.vhdx") || !strings.Contains(got, "/mnt/wsl/b") {
		t.Errorf("table missing mapping data:\n%s", got)
	}
	if !strings.Contains(got, "(unformatted)") {
		t.Errorf("table should mark UUID-less disks as unformatted:\n%s", got)
	}
	if !strings.Contains(got, "2 hours ago") {
		t.Errorf("table should render relative attach time:\n%s", got)
	}
	if !strings.Contains(got, "10.0 GB") {
		t.Errorf("table should render disk size:\n%s", got)
	}

	// Sorted by path: a.vhdx before b.vhdx.
	aIdx := strings.Index(got, "c:/vms/a.vhdx")
	bIdx := strings.Index(got, "c:/vms/b.vhdx")
	if aIdx == -1 || bIdx == -1 || aIdx > bIdx {
		t.Errorf("rows not sorted by path:\n%s", got)
	}
}

func TestRenderHistoryTable(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	events := []tracking.DetachEvent{
		{
			Path:       "c:/vms/a.vhdx",
			UUID:       "uuid-a",
			DeviceName: "sdd",
			Timestamp:  time.Now().Add(-3 * 24 * time.Hour),
		},
	}

	got := RenderHistoryTable(events)
	if !strings.Contains(got, "c:/vms/a.vhdx") || !strings.Contains(got, "3 days ago") {
		t.Errorf("history table output wrong:\n%s", got)
	}

	if got := RenderHistoryTable(nil); !strings.Contains(got, "No detach history") {
		t.Errorf("empty history output = %q", got)
	}
}

func TestRenderJournalTable(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	entries := []*journal.Entry{
		{Op: "attach", Path: "c:/vms/a.vhdx", DeviceName: "sdd", Timestamp: time.Now()},
		{Op: "mount", Path: "c:/vms/a.vhdx", Detail: "/mnt/wsl/a", Timestamp: time.Now()},
	}

	got := RenderJournalTable(entries)
	if !strings.Contains(got, "attach") || !strings.Contains(got, "/mnt/wsl/a") {
		t.Errorf("journal table output wrong:\n%s", got)
	}
}

func TestRenderReconcileResult(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	result := &reconcile.Result{
		RemovedMappings: []reconcile.Removal{{Path: "c:/vms/a.vhdx", Reason: reconcile.ReasonNotAttached}},
		RemovedHistory:  []reconcile.Removal{{Path: "c:/vms/b.vhdx", Reason: reconcile.ReasonFileNotFound}},
	}

	got := RenderReconcileResult(result, false)
	if !strings.Contains(got, "Removed mapping c:/vms/a.vhdx (not attached)") {
		t.Errorf("missing mapping removal line:\n%s", got)
	}
	if !strings.Contains(got, "Removed detach history for c:/vms/b.vhdx (file not found)") {
		t.Errorf("missing history removal line:\n%s", got)
	}

	got = RenderReconcileResult(result, true)
	if !strings.Contains(got, "Would remove mapping") {
		t.Errorf("dry run should use conditional phrasing:\n%s", got)
	}

	got = RenderReconcileResult(&reconcile.Result{}, false)
	if !strings.Contains(got, "in sync") {
		t.Errorf("empty result output = %q", got)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{512, "512 B"},
		{2048, "2 KB"},
		{5 * 1024 * 1024, "5 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.bytes); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestFormatRelativeTime(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero", time.Time{}, "never"},
		{"seconds", time.Now().Add(-30 * time.Second), "just now"},
		{"one minute", time.Now().Add(-90 * time.Second), "1 minute ago"},
		{"hours", time.Now().Add(-5 * time.Hour), "5 hours ago"},
		{"weeks", time.Now().Add(-15 * 24 * time.Hour), "2 weeks ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatRelativeTime(tt.t); got != tt.want {
				t.Errorf("formatRelativeTime() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate("averylongpathname", 10); got != "averylo..." {
		t.Errorf("truncate(long) = %q", got)
	}
}
