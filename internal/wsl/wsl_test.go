package wsl

import "testing"

func TestToWSLPath(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"windows path", `C:\VMs\disk.vhdx`, "/mnt/c/vms/disk.vhdx", false},
		{"already normalized", "d:/data/disk.vhdx", "/mnt/d/data/disk.vhdx", false},
		{"bare drive", `C:\`, "/mnt/c/", false},
		{"unc path", `\\server\share\disk.vhdx`, "", true},
		{"relative path", "disk.vhdx", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToWSLPath(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ToWSLPath(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ToWSLPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestToWindowsPath(t *testing.T) {
	if got := ToWindowsPath("c:/vms/disk.vhdx"); got != `c:\vms\disk.vhdx` {
		t.Errorf("ToWindowsPath() = %q", got)
	}
	// Round trip from unnormalized input.
	if got := ToWindowsPath(`C:\VMs\Disk.vhdx`); got != `c:\vms\disk.vhdx` {
		t.Errorf("ToWindowsPath() = %q", got)
	}
}

// stubCommands records invoked commands and returns canned output.
func stubCommands(t *testing.T) *[][]string {
	t.Helper()
	var calls [][]string
	orig := runCommand
	runCommand = func(name string, args ...string) ([]byte, error) {
		calls = append(calls, append([]string{name}, args...))
		return nil, nil
	}
	t.Cleanup(func() { runCommand = orig })
	return &calls
}

func TestAttachDetachCommandLines(t *testing.T) {
	calls := stubCommands(t)

	if err := AttachVHD(`C:\VMs\disk.vhdx`, true); err != nil {
		t.Fatalf("AttachVHD() failed: %v", err)
	}
	if err := DetachVHD(`C:\VMs\disk.vhdx`); err != nil {
		t.Fatalf("DetachVHD() failed: %v", err)
	}

	if len(*calls) != 2 {
		t.Fatalf("expected 2 commands, got %v", *calls)
	}
	attach := (*calls)[0]
	if attach[0] != "wsl.exe" || attach[1] != "--mount" || attach[2] != `c:\vms\disk.vhdx` {
		t.Errorf("attach command = %v", attach)
	}
	if attach[len(attach)-1] != "--bare" {
		t.Errorf("attach with bare should pass --bare, got %v", attach)
	}
	detach := (*calls)[1]
	if detach[0] != "wsl.exe" || detach[1] != "--unmount" {
		t.Errorf("detach command = %v", detach)
	}
}

func TestFormatDevice_RejectsInvalidName(t *testing.T) {
	stubCommands(t)

	if err := FormatDevice("sda1; rm -rf /", "ext4"); err == nil {
		t.Error("FormatDevice() should reject names outside the device grammar")
	}
	if err := FormatDevice("nvme0n1", "ext4"); err == nil {
		t.Error("FormatDevice() should reject non-sd device names")
	}
	if err := FormatDevice("/dev/sdaa", "ext4"); err != nil {
		t.Errorf("FormatDevice(/dev/sdaa) should accept multi-letter suffixes: %v", err)
	}
}

func TestFileExists_Untranslatable(t *testing.T) {
	if _, err := FileExists(`\\server\share\disk.vhdx`); err == nil {
		t.Error("FileExists() on a UNC path should report the translation error")
	}
}

// TestFileExists uses a real file under a fake /mnt layout by pointing at a
// path that cannot exist, then checks the negative result is clean.
func TestFileExists_Missing(t *testing.T) {
	exists, err := FileExists(`C:\vhdm-test-definitely-missing\nope.vhdx`)
	if err != nil {
		t.Fatalf("FileExists() failed: %v", err)
	}
	if exists {
		t.Error("FileExists() = true for a missing file")
	}
}

func TestCreateVHD_UntranslatablePath(t *testing.T) {
	stubCommands(t)

	if err := CreateVHD("relative.vhdx", "1G"); err == nil {
		t.Error("CreateVHD() should fail for untranslatable paths")
	}
}

func TestVHDSize(t *testing.T) {
	orig := runCommand
	runCommand = func(name string, args ...string) ([]byte, error) {
		if name != "qemu-img" || args[0] != "info" {
			t.Errorf("unexpected command %s %v", name, args)
		}
		return []byte(`{"virtual-size": 10737418240, "format": "vhdx"}`), nil
	}
	t.Cleanup(func() { runCommand = orig })

	size, err := VHDSize(`C:\VMs\disk.vhdx`)
	if err != nil {
		t.Fatalf("VHDSize() failed: %v", err)
	}
	if size != 10737418240 {
		t.Errorf("VHDSize() = %d, want 10737418240", size)
	}
}

func TestVHDSize_BadOutput(t *testing.T) {
	orig := runCommand
	runCommand = func(name string, args ...string) ([]byte, error) {
		return []byte("not json"), nil
	}
	t.Cleanup(func() { runCommand = orig })

	if _, err := VHDSize(`C:\VMs\disk.vhdx`); err == nil {
		t.Error("VHDSize() should fail on unparseable qemu-img output")
	}
}
