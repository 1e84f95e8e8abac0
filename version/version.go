// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package version

import (
	"fmt"
	"strings"
)

var (
	// The git commit that was compiled. These will be filled in by the
	// compiler.
	GitCommit string

	// The main version number that is being run at the moment.
	Version = "0.1.0"

	// A pre-release marker for the version. If this is "" (empty string)
	// then it means that it is a final release. Otherwise, this is a pre-release
	// such as "dev" (in development), "beta", "rc1", etc.
	VersionPrerelease = "dev"

	// BuildDate is the time of the git commit used to build the binary,
	// in ISO 8601 format. Filled in by the compiler.
	BuildDate = "1970-01-01T00:00:01Z"
)

// GetHumanVersion composes the parts of the version in a way that's suitable
// for displaying to humans.
func GetHumanVersion() string {
	version := Version
	release := VersionPrerelease

	if release != "" {
		suffix := "-" + release
		if !strings.HasSuffix(version, suffix) {
			// if we tagged a prerelease version then the release is in the version already
			version += suffix
		}
	}

	// Strip off any single quotes added by the git information.
	return "v" + strings.ReplaceAll(version, "'", "")
}

// GetFullVersion adds the git commit, when known, to the human version.
func GetFullVersion() string {
	v := GetHumanVersion()
	if GitCommit != "" {
		v = fmt.Sprintf("%s (%s)", v, GitCommit)
	}
	return v
}
