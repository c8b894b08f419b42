package platform

import (
	"fmt"
	"runtime"
)

// Platform describes the host the bootstrap runs on, expressed in the names
// aqtinstall and CMake expect. It is resolved once at start-up and handed to
// every component that needs it.
type Platform struct {
	GOOS string
	// Host is the aqtinstall host name: linux, mac or windows.
	Host string
	// Arch is the aqtinstall architecture directory, e.g. gcc_64.
	Arch string
	// ListSeparator splits PATH-like environment values.
	ListSeparator string
}

var hosts = map[string]Platform{
	"linux":   {GOOS: "linux", Host: "linux", Arch: "gcc_64", ListSeparator: ":"},
	"darwin":  {GOOS: "darwin", Host: "mac", Arch: "clang_64", ListSeparator: ":"},
	"windows": {GOOS: "windows", Host: "windows", Arch: "win64_msvc2019_64", ListSeparator: ";"},
}

// Current returns the platform for the running process.
func Current() (Platform, error) {
	return ForGOOS(runtime.GOOS)
}

// ForGOOS returns the platform description for goos.
func ForGOOS(goos string) (Platform, error) {
	p, ok := hosts[goos]
	if !ok {
		return Platform{}, fmt.Errorf("unsupported host platform %q", goos)
	}
	return p, nil
}

// IsWindows reports whether the platform is Windows.
func (p Platform) IsWindows() bool {
	return p.GOOS == "windows"
}

// IsMac reports whether the platform is macOS.
func (p Platform) IsMac() bool {
	return p.GOOS == "darwin"
}

// Executable appends the platform executable suffix to base.
func (p Platform) Executable(base string) string {
	if p.IsWindows() {
		return base + ".exe"
	}
	return base
}

// DefaultPython returns the interpreter name used when the config does not
// name one.
func (p Platform) DefaultPython() string {
	if p.IsWindows() {
		return "python"
	}
	return "python3"
}
