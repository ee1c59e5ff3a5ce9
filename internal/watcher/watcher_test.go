package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/wsltools/vhdm/internal/reconcile"
	"github.com/wsltools/vhdm/internal/tracking"
)

// stubObserver reports every UUID as detached so reconcile passes always
// have work to do.
type stubObserver struct{}

func (stubObserver) IsAttached(string) (bool, error)             { return false, nil }
func (stubObserver) ListBlockDevices() ([]string, error)         { return nil, nil }
func (stubObserver) IsMounted(string) (bool, error)              { return false, nil }
func (stubObserver) GetUUIDForDevice(string) (string, error)     { return "", nil }
func (stubObserver) GetDeviceForUUID(string) (string, error)     { return "", nil }
func (stubObserver) GetMountPoint(string) (string, error)        { return "", nil }
func (stubObserver) FindUUIDByMountPoint(string) (string, error) { return "", nil }
func (stubObserver) DetectNewDevice([]string) (string, error)    { return "", nil }

func newTestWatcher(t *testing.T) (*Watcher, *tracking.Store) {
	t.Helper()
	store := tracking.New(filepath.Join(t.TempDir(), "tracking.json"), 0)
	if err := store.Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	w, err := New(store, reconcile.New(store, stubObserver{}), zerolog.Nop(), time.Hour)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return w, store
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(nil, nil, zerolog.Nop(), 0); err == nil {
		t.Error("New(nil, nil) should fail")
	}
}

// TestStartupPassPrunes verifies the immediate pass on Start removes
// mappings whose device is gone.
func TestStartupPassPrunes(t *testing.T) {
	w, store := newTestWatcher(t)

	if err := store.SaveMapping(`C:\VMs\stale.vhdx`, "uuid-stale", nil, "sdd"); err != nil {
		t.Fatalf("SaveMapping() failed: %v", err)
	}

	if err := w.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer w.Stop()

	paths, err := store.GetAllPaths()
	if err != nil {
		t.Fatalf("GetAllPaths() failed: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("startup pass did not prune stale mapping: %v", paths)
	}
}

func TestStop_Idempotent(t *testing.T) {
	w, _ := newTestWatcher(t)

	if err := w.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
}

func TestParentDir(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/mnt/c/vms/disk.vhdx", "/mnt/c/vms"},
		{"/mnt/c/disk.vhdx", "/mnt/c"},
		{"/disk.vhdx", "/"},
		{"noslash", "noslash"},
	}
	for _, tt := range tests {
		if got := parentDir(tt.in); got != tt.want {
			t.Errorf("parentDir(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsDaemonRunning(t *testing.T) {
	dir := t.TempDir()
	pidFile := filepath.Join(dir, "watch.pid")

	// No PID file: not running.
	running, err := IsDaemonRunning(pidFile)
	if err != nil {
		t.Fatalf("IsDaemonRunning() failed: %v", err)
	}
	if running {
		t.Error("IsDaemonRunning() = true with no PID file")
	}

	// Garbage PID file: not running, no error.
	if err := os.WriteFile(pidFile, []byte("not-a-pid\n"), 0o644); err != nil {
		t.Fatalf("failed to write PID file: %v", err)
	}
	running, err = IsDaemonRunning(pidFile)
	if err != nil || running {
		t.Errorf("IsDaemonRunning(garbage) = %v, %v; want false, nil", running, err)
	}

	// Our own PID: running.
	if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644); err != nil {
		t.Fatalf("failed to write PID file: %v", err)
	}
	running, err = IsDaemonRunning(pidFile)
	if err != nil {
		t.Fatalf("IsDaemonRunning() failed: %v", err)
	}
	if !running {
		t.Error("IsDaemonRunning() = false for a live process")
	}
}

// TestIsDaemonRunning_StalePIDCleanup verifies a PID file pointing at a
// dead process is removed.
func TestIsDaemonRunning_StalePIDCleanup(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "watch.pid")

	// PID 1 is init and not ours, but guaranteed alive; use an absurdly
	// high PID instead, which cannot be a live process on default kernels.
	if err := os.WriteFile(pidFile, []byte("4194399\n"), 0o644); err != nil {
		t.Fatalf("failed to write PID file: %v", err)
	}

	running, err := IsDaemonRunning(pidFile)
	if err != nil {
		t.Fatalf("IsDaemonRunning() failed: %v", err)
	}
	if running {
		t.Error("IsDaemonRunning() = true for a dead PID")
	}
	if _, err := os.Stat(pidFile); !os.IsNotExist(err) {
		t.Error("stale PID file was not removed")
	}
}

func TestStopDaemon_NoPIDFile(t *testing.T) {
	err := StopDaemon(filepath.Join(t.TempDir(), "watch.pid"))
	if err == nil || !strings.Contains(err.Error(), "not running") {
		t.Errorf("StopDaemon() with no PID file error = %v, want 'not running'", err)
	}
}
