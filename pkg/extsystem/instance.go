// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

package extsystem

import (
	"context"
	"io"
	"runtime"
	"sync"

	"github.com/glyphix/extsystem/internal/diagnostics"
	"github.com/glyphix/extsystem/internal/scanner"
)

// Instance is a live, strongly-typed extension value obtained from
// CreateExtension. It holds a strong reference to its owning library: the
// library stays mapped into the process for as long as at least one
// Instance obtained from it remains open. Close it when done.
type Instance[T any] struct {
	value   T
	token   uintptr
	release func()
	slot    *librarySlot

	closeOnce sync.Once
}

// Value returns the extension's implementation of T.
func (i *Instance[T]) Value() T { return i.value }

// Close releases the instance. If T implements io.Closer its Close method
// is called first, then the binder's release callback (if any), then the
// owning library's refcount is dropped. Close is idempotent and safe to
// call more than once.
func (i *Instance[T]) Close() error {
	var err error
	i.closeOnce.Do(func() {
		if closer, ok := any(i.value).(io.Closer); ok {
			err = closer.Close()
		}
		if i.release != nil {
			i.release()
		}
		if releaseErr := i.slot.release(); releaseErr != nil && err == nil {
			err = releaseErr
		}
	})
	return err
}

// CreateExtension resolves the named extension's factory entry point,
// invokes it, and hands the resulting token to bind so it can produce a
// strongly-typed Instance. The library backing the descriptor is opened
// lazily on first use of any extension from it and stays mapped until
// every Instance obtained from it is closed.
//
// bind is responsible for turning the raw construction token into a T: it
// must do so entirely by resolving and calling additional exported
// symbols on the owning library through the Resolver it is handed, never
// by treating token as a Go value itself - see ExtensionBinder and
// pkg/extsdk for why a plugin loaded via dlopen cannot hand the host a
// directly-dereferenceable value.
//
// version selects an exact version; omitted, the highest known version of
// (interfaceName, name) is used. CreateExtension is a free function rather
// than a method because Go methods cannot carry their own type parameters.
func CreateExtension[T any](ctx context.Context, r *Registry, interfaceName, name string, bind ExtensionBinder[T], version ...uint64) (*Instance[T], error) {
	descriptor, ok := r.FindDescription(interfaceName, name, version...)
	if !ok {
		return nil, taggedError(diagnostics.CodeNotFound, "", ErrDescriptionNotFound, nil)
	}

	if !scanner.ValidEntryPointName(descriptor.EntryPoint()) {
		return nil, taggedError(diagnostics.CodeInvalidEntryPoint, descriptor.LibraryFilename(), ErrInvalidEntryPoint, nil)
	}

	record, ok := r.recordFor(descriptor.LibraryFilename())
	if !ok {
		return nil, taggedError(diagnostics.CodeNotFound, descriptor.LibraryFilename(), ErrLibraryNotFound, nil)
	}

	libHandle, err := record.slot.acquire(ctx)
	if err != nil {
		return nil, err
	}

	addr, ok := libHandle.Symbol(descriptor.EntryPoint())
	if !ok {
		_ = record.slot.release()
		return nil, taggedError(diagnostics.CodeSymbolNotFound, descriptor.LibraryFilename(), ErrSymbolNotFound, nil)
	}

	construct := r.binder(addr)
	var outMetadata uintptr
	token := construct(0, &outMetadata)
	if token == 0 {
		_ = record.slot.release()
		return nil, taggedError(diagnostics.CodeConstructionFailed, descriptor.LibraryFilename(), ErrConstructionFailed, nil)
	}

	resolver := Resolver{handle: libHandle, bind: r.binder}
	value, release, err := bind(token, resolver)
	if err != nil {
		_ = record.slot.release()
		return nil, taggedError(diagnostics.CodeConstructionFailed, descriptor.LibraryFilename(), ErrConstructionFailed, err)
	}

	instance := &Instance[T]{value: value, token: token, release: release, slot: record.slot}
	runtime.SetFinalizer(instance, func(i *Instance[T]) {
		_ = i.Close()
	})
	return instance, nil
}
