// Package version reports the steward release.
package version

import (
	_ "embed"
	"runtime/debug"
	"strings"
)

//go:embed VERSION
var versionContent string

// Get returns the embedded release version. When the file is empty it falls
// back to the module version recorded by the go tool, then "dev".
func Get() string {
	if v := strings.TrimSpace(versionContent); v != "" {
		return v
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return strings.TrimPrefix(info.Main.Version, "v")
	}
	return "dev"
}
