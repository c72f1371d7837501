// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

// Package scannertest builds synthetic library bytes containing embedded
// metadata descriptors, for exercising the scanner and its downstream
// consumers without a real compiled shared object.
package scannertest

import "strconv"

// Marker fragments duplicated from internal/scanner so this package doesn't
// need to export scanner's internal constants just for testing.
const (
	startFragment = "EXTENSION_SYSTEM_METADATA_DESCRIPTION_START"
	endFragment   = "EXTENSION_SYSTEM_METADATA_DESCRIPTION_END"
)

// Block builds one well-formed descriptor block: the literal start marker
// as the first key (value apiVersion), followed by pairs, followed by the
// end marker.
func Block(apiVersion string, pairs ...string) []byte {
	b := []byte(startFragment + "=" + apiVersion)
	for _, p := range pairs {
		b = append(b, 0)
		b = append(b, []byte(p)...)
	}
	b = append(b, 0)
	b = append(b, []byte(endFragment)...)
	return b
}

// Wrap concatenates descriptor blocks with non-metadata filler bytes around
// and between them, simulating a real binary's surrounding sections.
func Wrap(blocks ...[]byte) []byte {
	var out []byte
	out = append(out, []byte("\x7fELF not a real header\x00")...)
	for _, block := range blocks {
		out = append(out, block...)
		out = append(out, []byte("\x00filler between blocks\x00")...)
	}
	return out
}

// DescriptorPairs is a ready-made set of mandatory fields plus a compiler
// fingerprint, for tests that don't care about the specific values.
func DescriptorPairs(name, interfaceName, entryPoint string, version int) []string {
	return []string{
		"compiler=clang",
		"compiler_version=17",
		"build_type=release",
		"name=" + name,
		"interface_name=" + interfaceName,
		"entry_point=" + entryPoint,
		"version=" + strconv.Itoa(version),
	}
}
