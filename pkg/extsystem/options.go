// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

package extsystem

import (
	"log/slog"

	"github.com/c2h5oh/datasize"
	"github.com/spf13/afero"

	"github.com/glyphix/extsystem/internal/diagnostics"
	"github.com/glyphix/extsystem/internal/dynlib"
	"github.com/glyphix/extsystem/internal/scanner"
	"github.com/glyphix/extsystem/internal/telemetry"
)

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithFilesystem overrides the filesystem the registry reads library files
// and walks directories through. Tests typically pass afero.NewMemMapFs().
func WithFilesystem(fs afero.Fs) Option {
	return func(r *Registry) { r.fs = fs }
}

// WithOpener overrides how the registry opens shared objects. Tests pass a
// dynlibtest.Opener in place of the real OS loader.
func WithOpener(opener dynlib.Opener) Option {
	return func(r *Registry) { r.opener = opener }
}

// WithVerifyCompiler enables compiler/build-type compatibility checking
// against host, rejecting descriptors built with an incompatible toolchain.
func WithVerifyCompiler(host scanner.CompilerInfo) Option {
	return func(r *Registry) {
		r.scanOpts.VerifyCompiler = true
		r.scanOpts.Host = host
	}
}

// WithUPXDetection enables the advisory UPX-compression heuristic.
func WithUPXDetection() Option {
	return func(r *Registry) { r.scanOpts.CheckUPXCompression = true }
}

// WithEnableDebugOutput turns on verbose per-scan logging, the Go analogue
// of the original's setDebugMessages(true): every scan, skip, and
// diagnostic is logged at debug level through the registry's logger,
// tagged with the scan session that produced it.
func WithEnableDebugOutput() Option {
	return func(r *Registry) { r.debugOutput = true }
}

// WithLogger overrides the logger used for debug output. The default is
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithMaxFileSize bounds how large a candidate file the scanner will read.
func WithMaxFileSize(size datasize.ByteSize) Option {
	return func(r *Registry) { r.scanOpts.MaxFileSize = size }
}

// WithMessageHandler registers a callback invoked with human-readable
// diagnostic text for every scan. A nil handler (the default) discards
// messages.
func WithMessageHandler(handler diagnostics.MessageHandler) Option {
	return func(r *Registry) { r.messageHandler = handler }
}

// WithMetrics attaches a telemetry.Metrics instance the registry keeps
// current across mutations.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithTracer attaches an OTel tracer the registry uses to span its public
// operations.
func WithTracer(t *telemetry.Tracer) Option {
	return func(r *Registry) { r.tracer = t }
}

// withEntryPointBinder overrides how a resolved symbol address is turned
// into a callable factory function. Unexported: only tests within this
// package need to substitute purego.RegisterFunc for a fake.
func withEntryPointBinder(binder entryPointBinder) Option {
	return func(r *Registry) { r.binder = binder }
}
