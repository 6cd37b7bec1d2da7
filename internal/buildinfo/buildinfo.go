// Package buildinfo carries the firmware identity stamped in at link time.
package buildinfo

// Version is set at build time via -ldflags.
var Version = "dev"

// Commit is set at build time via -ldflags.
var Commit = "unknown"

// Date is set at build time via -ldflags.
var Date = "unknown"

// Short returns a compact build identifier for the boot line and the LCD.
func Short() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if Commit != "" && Commit != "unknown" {
		return Commit
	}
	return "dev"
}

// String returns the full identity, e.g. "v1.2.0 (abc1234, 2026-01-02)".
func String() string {
	s := Short()
	var extra string
	if Commit != "" && Commit != "unknown" && Commit != s {
		extra = Commit
	}
	if Date != "" && Date != "unknown" {
		if extra != "" {
			extra += ", "
		}
		extra += Date
	}
	if extra == "" {
		return s
	}
	return s + " (" + extra + ")"
}
