// Package vhdpath provides canonical forms for the identifiers vhdm tracks:
// Windows-style VHD file paths and Linux block device names.
//
// A VHD file path is the stable identity of a disk across attach/detach
// cycles (the filesystem UUID changes on reformat, device names change on
// reattach), so every lookup into the tracking database must go through
// Normalize first. The host filesystem is case-insensitive and accepts both
// separator styles, which means "C:\VMs\data.vhdx" and "c:/vms/data.vhdx"
// name the same file and must map to the same record.
package vhdpath

import (
	"regexp"
	"strings"
)

// Normalize returns the canonical form of a VHD file path: all backslashes
// converted to forward slashes and the whole string lower-cased. It is total
// (never fails) and idempotent.
func Normalize(raw string) string {
	return strings.ToLower(strings.ReplaceAll(raw, `\`, "/"))
}

// Equal reports whether two raw paths name the same VHD file once normalized.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// deviceNameRe is the canonical device name grammar: "sd" followed by one or
// more lowercase letters. Multi-letter suffixes (sdaa, sdab, ...) are valid;
// the kernel hands those out once sdz is exhausted.
var deviceNameRe = regexp.MustCompile(`^sd[a-z]+$`)

// ValidDeviceName reports whether name is a plausible SCSI disk device name.
// An optional "/dev/" prefix is accepted and stripped before matching.
func ValidDeviceName(name string) bool {
	return deviceNameRe.MatchString(strings.TrimPrefix(name, "/dev/"))
}

// DeviceBaseName strips a "/dev/" prefix from a device name, if present.
func DeviceBaseName(name string) string {
	return strings.TrimPrefix(name, "/dev/")
}
