package version

import "runtime/debug"

// Build-time variable (set via ldflags)
var Version = "dev"

// GetVersion returns the ldflags version, falling back to the module
// version recorded by go install.
func GetVersion() string {
	if Version != "dev" {
		return Version
	}

	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}
