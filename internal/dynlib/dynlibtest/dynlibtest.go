// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

// Package dynlibtest provides an in-memory dynlib.Opener for exercising the
// registry and instance factory without a real shared object on disk.
package dynlibtest

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/glyphix/extsystem/internal/dynlib"
)

// Symbol is a fake exported function modelling the entry_point(existing,
// out_metadata) ABI at the uintptr level used by the factory. Calls are
// not recorded.
type Symbol func(existing uintptr, outMetadata *uintptr) uintptr

// Opener is a dynlib.Opener backed by an in-memory table of path -> symbols.
// Safe for concurrent use.
type Opener struct {
	mu       sync.Mutex
	libs     map[string]map[string]uintptr
	fns      map[uintptr]Symbol
	nextAddr uint64
	OpenErr  map[string]error // optional: path -> error to return from Open
	OpenN    atomic.Int64     // number of successful Open calls, for retry assertions
}

// New creates an empty fake opener.
func New() *Opener {
	return &Opener{
		libs: make(map[string]map[string]uintptr),
		fns:  make(map[uintptr]Symbol),
	}
}

// Register adds a named symbol to a library path, returning the synthetic
// address it was assigned.
func (o *Opener) Register(path, name string, fn Symbol) uintptr {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.nextAddr++
	addr := o.nextAddr
	if o.libs[path] == nil {
		o.libs[path] = make(map[string]uintptr)
	}
	o.libs[path][name] = uintptr(addr)
	o.fns[uintptr(addr)] = fn
	return uintptr(addr)
}

// Open implements dynlib.Opener.
func (o *Opener) Open(path string) (dynlib.Handle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err, ok := o.OpenErr[path]; ok && err != nil {
		return nil, err
	}
	syms, ok := o.libs[path]
	if !ok {
		return nil, fmt.Errorf("dynlibtest: no such fake library %s", path)
	}
	o.OpenN.Add(1)
	return &fakeHandle{opener: o, path: path, symbols: syms}, nil
}

// Call invokes the fake symbol at addr with the factory ABI, for tests that
// want to exercise construction/destruction directly.
func (o *Opener) Call(addr uintptr, existing uintptr, outMetadata *uintptr) uintptr {
	o.mu.Lock()
	fn := o.fns[addr]
	o.mu.Unlock()
	if fn == nil {
		return 0
	}
	return fn(existing, outMetadata)
}

// Bind returns a Go function bound to the fake symbol at addr, matching the
// shape extsystem's entryPointBinder expects in place of purego.RegisterFunc.
func (o *Opener) Bind(addr uintptr) func(uintptr, *uintptr) uintptr {
	return func(existing uintptr, outMetadata *uintptr) uintptr {
		return o.Call(addr, existing, outMetadata)
	}
}

type fakeHandle struct {
	opener  *Opener
	path    string
	symbols map[string]uintptr
	closed  bool
}

func (h *fakeHandle) Path() string { return h.path }

func (h *fakeHandle) Symbol(name string) (uintptr, bool) {
	addr, ok := h.symbols[name]
	return addr, ok
}

func (h *fakeHandle) Close() error {
	h.closed = true
	return nil
}
