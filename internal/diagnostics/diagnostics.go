// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

// Package diagnostics centralizes the error taxonomy and message-handler
// plumbing shared by the scanner and registry: every user-facing error
// carries a stable Code() a caller can switch on, and every scan run is
// tagged with a session ID so diagnostics from the same AddDynamicLibrary
// or SearchDirectory call can be correlated after the fact.
package diagnostics

import (
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Error codes, surfaced via oops' Code() accessor.
const (
	CodeNotFound           = "not_found"
	CodeIOFailure          = "io_failure"
	CodeMalformedMetadata  = "malformed_metadata"
	CodeCompilerMismatch   = "compiler_mismatch"
	CodeNoDescriptors      = "no_descriptors"
	CodeSymbolNotFound     = "symbol_not_found"
	CodeConstructionFailed = "construction_failed"
	CodeOpenFailed         = "open_failed"
	CodeInvalidEntryPoint  = "invalid_entry_point"
)

// Builder returns a fresh oops.OopsErrorBuilder tagged with the given code.
// Use WithPath to also attach the library path the error concerns.
func Builder(code string) oops.OopsErrorBuilder {
	return oops.Code(code)
}

// WithPath is a small convenience wrapper since nearly every diagnostic in
// this package concerns a specific library file.
func WithPath(code, path string) oops.OopsErrorBuilder {
	return oops.Code(code).With("library_path", path)
}

// MessageHandler receives human-readable diagnostic text as the registry
// scans libraries - the Go analogue of the original's debug-output
// callback. A nil MessageHandler silently discards messages.
type MessageHandler func(sessionID ScanSession, message string)

// ScanSession tags every diagnostic produced by a single AddDynamicLibrary
// or SearchDirectory call so a MessageHandler can group them even when
// several scans run concurrently.
type ScanSession string

// NewScanSession mints a time-sortable, unique session identifier.
func NewScanSession() ScanSession {
	return ScanSession(ulid.Make().String())
}

// Emit calls handler if non-nil, swallowing a nil handler so call sites
// never need a guard.
func Emit(handler MessageHandler, session ScanSession, message string) {
	if handler == nil {
		return
	}
	handler(session, message)
}
