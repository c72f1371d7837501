// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

package extsystem

import "github.com/glyphix/extsystem/internal/dynlib"

// Resolver lets an ExtensionBinder reach additional exported functions on
// the library that produced a construction token, using the same symbol
// binding the registry itself uses for entry_point. A binder must turn
// token into a T entirely through functions the library exports by name;
// it must never treat token as a dereferenceable Go value (a pointer, a
// cgo.Handle, ...). A plugin loaded with purego/dlopen is a separate,
// independently-compiled Go runtime instance - or may not be Go at all -
// sharing nothing with the host but process address space, so a value
// minted inside it has no meaning translated into the host's own memory.
type Resolver struct {
	handle dynlib.Handle
	bind   entryPointBinder
}

// Symbol resolves name against the owning library and adapts it to the
// uniform fn(existing, outMetadata) uintptr shape every exported
// accessor in this system follows, the same shape entry_point itself
// uses. ok is false when the library exports no such symbol.
func (r Resolver) Symbol(name string) (fn func(token uintptr, out *uintptr) uintptr, ok bool) {
	addr, ok := r.handle.Symbol(name)
	if !ok {
		return nil, false
	}
	return r.bind(addr), true
}

// ExtensionBinder turns a construction token into a typed value by
// resolving whatever additional exported symbols it needs through
// resolver - never by interpreting token as a Go value directly. release,
// if non-nil, runs when the owning Instance is closed so the plugin can
// forget the token (typically by calling a `*_release` export resolved
// the same way); a binder that doesn't need explicit teardown may return
// a nil release.
type ExtensionBinder[T any] func(token uintptr, resolver Resolver) (value T, release func(), err error)
