package audiounlock

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the semantic version of audiounlock.
const Version = "0.3.0"

// Variables populated at build time via -ldflags, e.g.
//
//	-X github.com/simonhull/audiounlock.gitCommit=$(git rev-parse --short HEAD)
var (
	gitCommit = "unknown"
	buildTime = "unknown"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
}

// GetBuildInfo returns version details. When the commit was not set via
// -ldflags it falls back to the VCS revision recorded by the Go toolchain.
func GetBuildInfo() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		GitCommit: gitCommit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}
	if info.GitCommit != "unknown" {
		return info
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				info.GitCommit = s.Value
			case "vcs.time":
				if info.BuildTime == "unknown" {
					info.BuildTime = s.Value
				}
			}
		}
	}
	return info
}

// String formats the info on one line.
func (b BuildInfo) String() string {
	return fmt.Sprintf("audiounlock %s (commit %s, built %s, %s)", b.Version, b.GitCommit, b.BuildTime, b.GoVersion)
}
