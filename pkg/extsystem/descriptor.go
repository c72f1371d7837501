// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

// Package extsystem is an in-process extension registry: it scans shared
// objects for embedded metadata descriptors, resolves factory symbols
// lazily on demand, and hands callers strongly-typed, reference-counted
// extension instances.
package extsystem

import (
	"maps"

	"github.com/glyphix/extsystem/internal/scanner"
)

// Descriptor is the immutable, parsed form of one embedded metadata block.
// Every Descriptor carries at least name, interface_name, entry_point,
// version, and library_filename; any additional author-supplied keys are
// reachable through Get and Data.
type Descriptor struct {
	data    map[string]string
	version uint64
}

func fromScanned(d scanner.Descriptor) Descriptor {
	return Descriptor{data: d.Data, version: d.Version}
}

// Get returns the raw value for key, or "" if the descriptor doesn't carry
// it.
func (d Descriptor) Get(key string) string { return d.data[key] }

// Data returns a copy of every key/value pair in the descriptor. Mutating
// the returned map does not affect the registry.
func (d Descriptor) Data() map[string]string {
	return maps.Clone(d.data)
}

// Name is the extension's registered name within its interface.
func (d Descriptor) Name() string { return d.data["name"] }

// InterfaceName is the Go interface type this extension implements, by
// name, as declared by the plugin author.
func (d Descriptor) InterfaceName() string { return d.data["interface_name"] }

// EntryPoint is the C-callable symbol the registry resolves to construct
// an instance.
func (d Descriptor) EntryPoint() string { return d.data["entry_point"] }

// LibraryFilename is the canonical path of the file this descriptor was
// found in.
func (d Descriptor) LibraryFilename() string { return d.data["library_filename"] }

// Version is the extension's declared version. Zero never appears: the
// scanner rejects descriptors with a missing or zero version.
func (d Descriptor) Version() uint64 { return d.version }

// Filter selects descriptors by metadata key/value. Within a single key,
// multiple candidate values are OR'd together; across different keys,
// filters are AND'd. An empty Filter matches everything.
type Filter map[string][]string

func (f Filter) matches(d Descriptor) bool {
	for key, values := range f {
		got, ok := d.data[key]
		if !ok {
			return false
		}
		matched := false
		for _, v := range values {
			if got == v {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}
