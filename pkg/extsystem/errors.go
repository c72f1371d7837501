// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

package extsystem

import (
	"errors"

	"github.com/glyphix/extsystem/internal/diagnostics"
)

// Sentinel errors callers can compare against with errors.Is. Every one of
// these except ErrWrongInterface is also produced by this package with a
// diagnostics code, reachable via oops.AsOops(err).Code() for callers that
// want the structured form. ErrWrongInterface is for ExtensionBinders to
// wrap; CreateExtension reports a binder error under ErrConstructionFailed
// with the binder's error joined in.
var (
	ErrLibraryNotFound     = errors.New("extsystem: library not registered")
	ErrNoDescriptors       = errors.New("extsystem: no descriptors found in library")
	ErrDescriptionNotFound = errors.New("extsystem: no matching descriptor")
	ErrSymbolNotFound      = errors.New("extsystem: entry point symbol not found in library")
	ErrConstructionFailed  = errors.New("extsystem: factory entry point returned a null instance")
	ErrWrongInterface      = errors.New("extsystem: constructed instance does not implement the requested interface")
	ErrInvalidEntryPoint   = errors.New("extsystem: entry point symbol name failed advisory validation")
)

// taggedError joins sentinel into the error chain (so errors.Is keeps
// working) while attaching an oops code and the library path as
// structured context for callers that want it.
func taggedError(code, path string, sentinel error, cause error) error {
	joined := sentinel
	if cause != nil {
		joined = errors.Join(sentinel, cause)
	}
	return diagnostics.WithPath(code, path).Wrap(joined)
}
