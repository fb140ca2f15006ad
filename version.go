package reqflow

import (
	"fmt"
	"runtime"
)

// Build metadata. Version carries the release tag; GitCommit and
// BuildDate are meant to be overridden with -ldflags, e.g.
//
//	-ldflags "-X github.com/ambiyansyah-risyal/reqflow.GitCommit=$(git rev-parse --short HEAD)"
var (
	Version   = "v0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = runtime.Version()
)

// GetVersion returns a single-line version string for logs and banners.
func GetVersion() string {
	return fmt.Sprintf("Reqflow %s (commit: %s, built: %s, go: %s)",
		Version, GitCommit, BuildDate, GoVersion)
}

// GetVersionInfo returns the build metadata as key/value pairs.
func GetVersionInfo() map[string]string {
	return map[string]string{
		"version":    Version,
		"commit":     GitCommit,
		"build_date": BuildDate,
		"go_version": GoVersion,
	}
}
