// Package version exposes build information for the tdlimport binary.
package version

import (
	"runtime"
	"runtime/debug"
)

const unknown = "unknown"

// Build variables to be set via ldflags during compilation
// -X 'github.com/compozy/tdlimport/pkg/version.Version=v1.0.0'
// -X 'github.com/compozy/tdlimport/pkg/version.CommitHash=abc123'
// -X 'github.com/compozy/tdlimport/pkg/version.BuildDate=2024-01-01T00:00:00Z'
var (
	Version    = unknown
	CommitHash = unknown
	BuildDate  = unknown
)

// Info is the resolved build information.
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildDate  string `json:"build_date"`
	GoVersion  string `json:"go_version"`
}

// Get returns build information. Values not set through ldflags fall back to
// the module and VCS data embedded by the toolchain.
func Get() Info {
	info := Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildDate:  BuildDate,
		GoVersion:  runtime.Version(),
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if info.Version == unknown && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.CommitHash == unknown {
				info.CommitHash = s.Value
			}
		case "vcs.time":
			if info.BuildDate == unknown {
				info.BuildDate = s.Value
			}
		}
	}
	return info
}
