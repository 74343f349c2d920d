package version

import (
	"fmt"
	"runtime/debug"
)

// Set at build time with -ldflags "-X github.com/jonny/engagebot/pkg/version.Version=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, revision())
}

// revision falls back to the VCS data embedded by the Go toolchain when the
// build time was not injected.
func revision() string {
	if BuildTime != "unknown" {
		return BuildTime
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return BuildTime
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.time" && s.Value != "" {
			return s.Value
		}
	}
	return BuildTime
}
