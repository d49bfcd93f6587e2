/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version exposes build metadata.
package version

import "fmt"

// Version is the current release. It is set at build time via ldflags:
//
//	-X github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/version.Version=X.Y.Z
var Version = "0.9.0"

// Commit is the VCS revision the binary was built from.
var Commit = "unknown"

// String formats version and commit for display.
func String() string {
	return fmt.Sprintf("trendycart %s (%s)", Version, Commit)
}
