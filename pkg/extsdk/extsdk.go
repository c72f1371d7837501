// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

// Package extsdk is the authoring-side counterpart to pkg/extsystem: a
// plugin built with -buildmode=c-shared uses it to keep track of the Go
// values it hands out through its C-callable factory entry points.
//
// A token minted by Construct is only ever meaningful inside calls back
// into this same plugin binary. The host loads a plugin with
// purego/dlopen, which gives it a separate, independently-compiled Go
// runtime sharing nothing but process address space - not a goroutine
// scheduler, not a GC heap, not a runtime/cgo handle table. The host must
// never try to interpret a token as a Go value (a pointer, a cgo.Handle,
// anything runtime-specific); it may only pass the token back into
// additional C-ABI functions the plugin itself exports, the same way it
// resolves entry_point in the first place.
//
// A Go-authored plugin looks like:
//
//	package main
//
//	import "C"
//	import "github.com/glyphix/extsystem/pkg/extsdk"
//
//	//export create_alpha
//	func create_alpha(existing C.uintptr_t, outMetadata *C.uintptr_t) C.uintptr_t {
//	    return C.uintptr_t(extsdk.Construct(&alphaWidget{}))
//	}
//
//	//export alpha_invoke
//	func alpha_invoke(token C.uintptr_t, outResult *C.uintptr_t) C.uintptr_t {
//	    value, ok := extsdk.Lookup(uintptr(token))
//	    if !ok {
//	        return 0
//	    }
//	    *outResult = C.uintptr_t(value.(*alphaWidget).invoke())
//	    return 1
//	}
//
//	//export alpha_release
//	func alpha_release(token C.uintptr_t, _ *C.uintptr_t) C.uintptr_t {
//	    extsdk.Release(uintptr(token))
//	    return 1
//	}
//
// The host's ExtensionBinder resolves alpha_invoke/alpha_release by name
// through the Resolver it is handed and calls them the same way the
// registry calls entry_point, never dereferencing the token itself.
//
// This package cannot be meaningfully unit tested without a real
// -buildmode=c-shared build, since its whole purpose is the boundary
// between a Go plugin and its host process.
package extsdk

import "sync"

var (
	mu      sync.Mutex
	objects = make(map[uintptr]any)
	next    uintptr
)

// Construct registers value in this plugin's own process-local object
// table and returns an opaque, monotonically increasing token identifying
// it. The token carries no meaning outside calls to Lookup/Release made
// from this same binary - see the package doc for why.
func Construct(value any) uintptr {
	mu.Lock()
	defer mu.Unlock()

	next++
	token := next
	objects[token] = value
	return token
}

// Lookup resolves a token minted by Construct, for use only inside
// functions this plugin itself exports (an //export'd invoke/accessor
// function). Host code must never call this directly - it has no
// ability to anyway, since Lookup only has meaning within the plugin's
// own compiled binary.
func Lookup(token uintptr) (any, bool) {
	mu.Lock()
	defer mu.Unlock()

	value, ok := objects[token]
	return value, ok
}

// Release forgets token, letting the underlying value be garbage
// collected. Call this from the plugin's own exported release/destroy
// function; a token that's already gone is a silent no-op.
func Release(token uintptr) {
	mu.Lock()
	defer mu.Unlock()

	delete(objects, token)
}
