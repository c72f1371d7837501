// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

package extsystem

import "github.com/ebitengine/purego"

// factoryFunc is the C ABI every extension's entry point - and every
// additional accessor a plugin exports for an ExtensionBinder to call -
// implements: fn(existing, out_metadata) -> token. existing is always 0
// for entry_point itself (the registry never asks a plugin to re-parent
// an existing instance); out_metadata is reserved for a plugin to hand
// back a second token of supplementary data and may be left untouched.
// Neither value is ever a Go-runtime-specific handle the host
// dereferences directly - a plugin loaded via dlopen is its own,
// separately-compiled Go runtime (or may not be Go at all), so every
// token only has meaning when passed back into a function the owning
// plugin itself exports. See pkg/extsdk and Resolver.
type factoryFunc func(existing uintptr, outMetadata *uintptr) uintptr

// entryPointBinder turns a resolved symbol address into a callable Go
// function. The production binder requires a real executable address
// (purego.RegisterFunc dereferences it), so tests substitute a binder
// backed by an in-memory fake symbol table instead. Resolver reuses this
// same binder for every additional symbol an ExtensionBinder resolves.
type entryPointBinder func(addr uintptr) factoryFunc

func puregoBinder(addr uintptr) factoryFunc {
	var fn factoryFunc
	purego.RegisterFunc(&fn, addr)
	return fn
}
