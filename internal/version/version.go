// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"

	"trkeys/internal/catalog"
)

// Build metadata injected via -ldflags at release time
var (
	// Version is the current trkeys release
	Version = "0.0.0-development"

	// GitCommit is the git commit hash
	GitCommit = "unknown"

	// BuildDate is when the binary was built
	BuildDate = "unknown"

	// GoVersion is the version of Go used to build
	GoVersion = runtime.Version()

	// Platform is the OS/Arch combination
	Platform = fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
)

// Info returns formatted version information, including which compiled
// message table format this build reads and writes.
func Info() string {
	return fmt.Sprintf("trkeys %s (commit: %s, built: %s, go: %s, platform: %s, table format: v%d)",
		Version, GitCommit, BuildDate, GoVersion, Platform, catalog.HashedTableVersion)
}

// Short returns just the version number
func Short() string {
	return Version
}

// Full returns detailed version information
func Full() map[string]string {
	return map[string]string{
		"version":     Version,
		"commit":      GitCommit,
		"buildDate":   BuildDate,
		"goVersion":   GoVersion,
		"platform":    Platform,
		"tableFormat": fmt.Sprintf("v%d", catalog.HashedTableVersion),
	}
}
