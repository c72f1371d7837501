// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

package scanner

import "strings"

// startMarker and endMarker bracket an embedded descriptor block. They are
// assembled from fragments at init time so the scanner binary itself never
// contains the literal marker strings - matching the original format's
// intent that a scanner shouldn't accidentally match its own metadata.
var (
	startMarker = join("EXTENSION_SYSTEM_", "METADATA_DESCRIPTION_", "START")
	endMarker   = join("EXTENSION_SYSTEM_", "METADATA_DESCRIPTION_", "END")
)

func join(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p)
	}
	return b.String()
}

// upxMarker and upxExclaim are the ASCII substrings the optional
// UPX-compression heuristic looks for, in order.
var (
	upxMarker  = join("UP", "X")
	upxExclaim = join("UP", "X", "!")
)
