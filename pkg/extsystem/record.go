// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

package extsystem

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/glyphix/extsystem/internal/diagnostics"
	"github.com/glyphix/extsystem/internal/dynlib"
)

// librarySlot is the shared, refcounted mapping state for one library file.
// A LibraryRecord holds a slot weakly (it never increments refCount); every
// live Instance holds it strongly. The underlying dynlib.Handle is opened
// lazily on first acquire and closed when the last strong reference drops.
type librarySlot struct {
	mu       sync.Mutex
	path     string
	opener   dynlib.Opener
	handle   dynlib.Handle
	refCount int

	// registryAlive is the Registry's own liveness flag, held but never
	// owned. A slot outlives its Registry's bookkeeping maps whenever an
	// Instance is still open; release touches only the slot's own fields,
	// never the Registry, so it does not read this flag.
	registryAlive *atomic.Bool
}

func newLibrarySlot(path string, opener dynlib.Opener, alive *atomic.Bool) *librarySlot {
	return &librarySlot{path: path, opener: opener, registryAlive: alive}
}

// acquire upgrades the weak slot to a strong reference, opening the
// underlying library on first use. Every open failure is retried up to 3
// times with jittered backoff; failures are not classified, so a missing
// file or a bad format is retried the same way as a transient error.
func (s *librarySlot) acquire(ctx context.Context) (dynlib.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refCount == 0 {
		backoff := retry.NewExponential(25 * time.Millisecond)
		backoff = retry.WithMaxRetries(3, backoff)
		backoff = retry.WithJitterPercent(20, backoff)

		var handle dynlib.Handle
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			h, err := s.opener.Open(s.path)
			if err != nil {
				return retry.RetryableError(err)
			}
			handle = h
			return nil
		})
		if err != nil {
			return nil, taggedError(diagnostics.CodeOpenFailed, s.path, ErrLibraryNotFound, err)
		}
		s.handle = handle
	}
	s.refCount++
	return s.handle, nil
}

// release drops one strong reference, closing the underlying library once
// the count reaches zero.
func (s *librarySlot) release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refCount == 0 {
		return nil
	}
	s.refCount--
	if s.refCount == 0 && s.handle != nil {
		err := s.handle.Close()
		s.handle = nil
		return err
	}
	return nil
}

func (s *librarySlot) loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refCount > 0
}

// LibraryRecord describes one library file the registry knows about: its
// canonical path, every descriptor found inside it, and a weak handle to
// the underlying mapping. Holding a LibraryRecord never keeps the library
// mapped into the process - only an Instance does that.
type LibraryRecord struct {
	Path        string
	Descriptors []Descriptor

	// ContentHash is the blake2b-256 sum of the file's contents as of the
	// last successful scan, letting AddDynamicLibrary short-circuit a
	// rescan of a file that hasn't changed on disk.
	ContentHash [32]byte

	// ScanSession is the session ID that last populated this record,
	// correlating it with the diagnostics and debug-output log lines its
	// scan produced.
	ScanSession diagnostics.ScanSession

	slot *librarySlot
}

// Loaded reports whether the underlying library is currently mapped into
// the process (i.e. at least one Instance is open against it).
func (r *LibraryRecord) Loaded() bool {
	return r.slot.loaded()
}
