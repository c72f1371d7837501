// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

// Package dynlib wraps the platform dynamic-library loader behind a thin,
// OS-polymorphic handle: open a file, resolve named symbols, close on drop.
// It never executes or interprets library code beyond what the OS loader
// itself does on open and symbol resolution.
package dynlib

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned when a symbol lookup fails. It is not fatal to the
// handle; callers treat a missing symbol as a recoverable condition.
var ErrNotFound = errors.New("dynlib: symbol not found")

// Opener abstracts library acquisition so the registry and factory can be
// tested against a fake loader instead of the real OS one.
type Opener interface {
	// Open loads the library at path and returns a handle or the
	// OS-provided diagnostic wrapped as an error.
	Open(path string) (Handle, error)
}

// Handle is a non-copyable, movable-by-reference holder for an opened
// library. Close is idempotent and safe to call multiple times.
type Handle interface {
	// Path returns the canonical path the handle was opened from.
	Path() string

	// Symbol resolves a named export. A nil/zero result with ok=false is
	// not an error condition by itself.
	Symbol(name string) (addr uintptr, ok bool)

	// Close releases the OS loader handle. Safe to call more than once.
	Close() error
}

// DefaultOpener is the production Opener, backed by the platform loader.
var DefaultOpener Opener = platformOpener{}

type platformOpener struct{}

func (platformOpener) Open(path string) (Handle, error) {
	return openPlatform(path)
}

// FileExtension returns the platform's native shared-library suffix:
// ".so" on Linux and most Unix, ".dylib" on Darwin, ".dll" on Windows.
func FileExtension() string {
	return fileExtension
}

// baseHandle centralizes the close-once bookkeeping shared by every
// platform implementation; platform files provide symbolFunc/closeFunc.
type baseHandle struct {
	path       string
	raw        uintptr
	closeOnce  sync.Once
	closeErr   error
	symbolFunc func(raw uintptr, name string) (uintptr, bool)
	closeFunc  func(raw uintptr) error
}

func (h *baseHandle) Path() string { return h.path }

func (h *baseHandle) Symbol(name string) (uintptr, bool) {
	return h.symbolFunc(h.raw, name)
}

func (h *baseHandle) Close() error {
	h.closeOnce.Do(func() {
		h.closeErr = h.closeFunc(h.raw)
	})
	return h.closeErr
}

func openError(path string, cause error) error {
	return fmt.Errorf("dynlib: open %s: %w", path, cause)
}
