// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

package extsystem

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gobwas/glob"
	"github.com/spf13/afero"
	"golang.org/x/crypto/blake2b"

	"github.com/glyphix/extsystem/internal/diagnostics"
	"github.com/glyphix/extsystem/internal/dynlib"
	"github.com/glyphix/extsystem/internal/logging"
	"github.com/glyphix/extsystem/internal/scanner"
	"github.com/glyphix/extsystem/internal/telemetry"
)

// Registry is the in-process directory of known extension libraries and
// the descriptors found inside them. It is safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	fs       afero.Fs
	opener   dynlib.Opener
	scanOpts scanner.Options
	binder   entryPointBinder

	messageHandler diagnostics.MessageHandler
	metrics        *telemetry.Metrics
	tracer         *telemetry.Tracer

	logger      *slog.Logger
	debugOutput bool

	libraries map[string]*LibraryRecord // canonical path -> record
	order     []string                  // canonical paths, insertion order
	lastTriple map[tripleKey]string     // (interface,name,version) -> canonical path

	alive *atomic.Bool
}

type tripleKey struct {
	interfaceName string
	name          string
	version       uint64
}

// New builds an empty Registry. The default filesystem is the real OS
// filesystem and the default opener is the platform dynamic-library loader;
// both are overridable via options, primarily for tests.
func New(opts ...Option) *Registry {
	alive := &atomic.Bool{}
	alive.Store(true)

	r := &Registry{
		fs:         afero.NewOsFs(),
		opener:     dynlib.DefaultOpener,
		binder:     puregoBinder,
		logger:     slog.Default(),
		libraries:  make(map[string]*LibraryRecord),
		lastTriple: make(map[tripleKey]string),
		alive:      alive,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Close marks the registry as no longer alive. Libraries with outstanding
// Instances keep running: Close only clears the registry's own bookkeeping
// and flips the liveness flag those instances weakly observe.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.alive.Store(false)
	r.libraries = make(map[string]*LibraryRecord)
	r.order = nil
	r.lastTriple = make(map[tripleKey]string)
	r.setGaugesLocked()
}

// canonicalize resolves path to the absolute, symlink-resolved form used as
// every bookkeeping key. It mirrors the original's getRealFilename: try the
// path as given; if it doesn't exist, retry with the platform's dynamic
// library extension appended before giving up.
func (r *Registry) canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	candidate := filepath.Clean(abs)

	exists, _ := afero.Exists(r.fs, candidate)
	if !exists {
		withExt := candidate + dynlib.FileExtension()
		if extExists, _ := afero.Exists(r.fs, withExt); extExists {
			candidate = withExt
		} else {
			return "", fmt.Errorf("neither %s nor %s exist", candidate, withExt)
		}
	}

	if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
		candidate = resolved
	}
	return candidate, nil
}

// AddDynamicLibrary scans path for embedded descriptors and registers it.
// Non-fatal scan diagnostics are routed to the configured MessageHandler
// and counted in metrics but do not fail the call; AddDynamicLibrary only
// returns an error when the file can't be read or contains zero usable
// descriptors.
//
// If canonical is already known and its weak library handle is currently
// live (at least one Instance open against it), AddDynamicLibrary is a
// no-op: it returns the existing record without touching the file or
// invalidating the descriptors already registered. It is also a no-op,
// without needing a live handle, when the file's content hash matches the
// last successful scan - there is nothing to redo.
func (r *Registry) AddDynamicLibrary(ctx context.Context, path string) (*LibraryRecord, error) {
	_, end := r.tracer.Start(ctx, "extsystem.AddDynamicLibrary")
	defer end()

	canonical, err := r.canonicalize(path)
	if err != nil {
		return nil, taggedError(diagnostics.CodeIOFailure, path, ErrLibraryNotFound, err)
	}

	if existing, ok := r.recordFor(canonical); ok && existing.slot.loaded() {
		return existing, nil
	}

	data, err := afero.ReadFile(r.fs, canonical)
	if err != nil {
		return nil, taggedError(diagnostics.CodeIOFailure, canonical, ErrLibraryNotFound, err)
	}
	hash := blake2b.Sum256(data)

	session := diagnostics.NewScanSession()
	logCtx := logging.ContextWithScanSession(ctx, string(session))

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.libraries[canonical]; ok {
		if existing.slot.loaded() || existing.ContentHash == hash {
			return existing, nil
		}
	}

	if r.debugOutput {
		r.logger.DebugContext(logCtx, "scanning library", "path", canonical, "scan_session", string(session))
	}

	descs, diags := scanner.New(r.scanOpts).Scan(data, canonical)
	if diags != nil {
		for _, diagErr := range diags.Errors {
			diagnostics.Emit(r.messageHandler, session, diagErr.Error())
			if r.debugOutput {
				r.logger.DebugContext(logCtx, diagErr.Error(), "path", canonical)
			}
		}
		r.metrics.AddDiagnostics(len(diags.Errors))
	}
	if len(descs) == 0 {
		return nil, taggedError(diagnostics.CodeNoDescriptors, canonical, ErrNoDescriptors, nil)
	}

	descriptors := make([]Descriptor, len(descs))
	for i, d := range descs {
		descriptors[i] = fromScanned(d)
	}

	record := &LibraryRecord{
		Path:        canonical,
		Descriptors: descriptors,
		ContentHash: hash,
		ScanSession: session,
		slot:        newLibrarySlot(canonical, r.opener, r.alive),
	}
	if _, exists := r.libraries[canonical]; !exists {
		r.order = append(r.order, canonical)
	}
	r.libraries[canonical] = record

	for _, d := range descriptors {
		key := tripleKey{interfaceName: d.InterfaceName(), name: d.Name(), version: d.Version()}
		r.lastTriple[key] = canonical
	}

	r.setGaugesLocked()
	return record, nil
}

// RemoveDynamicLibrary unregisters the library at path. Any Instance
// already created against it keeps working until it is Closed; only new
// lookups are affected.
func (r *Registry) RemoveDynamicLibrary(path string) error {
	canonical, err := r.canonicalize(path)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.libraries[canonical]; !ok {
		return taggedError(diagnostics.CodeNotFound, canonical, ErrLibraryNotFound, nil)
	}
	delete(r.libraries, canonical)
	for i, p := range r.order {
		if p == canonical {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	r.recomputeLastTripleLocked()
	r.setGaugesLocked()
	return nil
}

// recomputeLastTripleLocked rebuilds the (interface,name,version) -> path
// index from scratch in insertion order, so the most recently added
// surviving library wins each triple - the same rule AddDynamicLibrary
// applies incrementally.
func (r *Registry) recomputeLastTripleLocked() {
	r.lastTriple = make(map[tripleKey]string)
	for _, path := range r.order {
		record := r.libraries[path]
		for _, d := range record.Descriptors {
			key := tripleKey{interfaceName: d.InterfaceName(), name: d.Name(), version: d.Version()}
			r.lastTriple[key] = path
		}
	}
}

func (r *Registry) setGaugesLocked() {
	descriptorCount := 0
	loaded := 0
	for _, record := range r.libraries {
		descriptorCount += len(record.Descriptors)
		if record.slot.loaded() {
			loaded++
		}
	}
	r.metrics.SetGauges(len(r.libraries), descriptorCount, loaded)
}

// SearchDirectory walks root looking for files with the platform's
// dynamic-library extension, registering every one that yields at least
// one descriptor. When pattern is non-empty it further restricts which
// files are considered, in addition to the extension check: a pattern
// containing glob metacharacters (*, ?, [) is compiled as a glob and
// matched against the file's base name; any other pattern is a plain
// prefix the base name must start with.
func (r *Registry) SearchDirectory(ctx context.Context, root string, recursive bool, pattern string) ([]*LibraryRecord, error) {
	ctx, end := r.tracer.Start(ctx, "extsystem.SearchDirectory")
	defer end()

	var matcher glob.Glob
	var prefix string
	if strings.ContainsAny(pattern, "*?[") {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		matcher = g
	} else {
		prefix = pattern
	}

	ext := dynlib.FileExtension()
	var paths []string
	consider := func(path string, isDir bool) {
		if isDir {
			return
		}
		if filepath.Ext(path) != ext {
			return
		}
		if matcher != nil && !matcher.Match(filepath.Base(path)) {
			return
		}
		if !strings.HasPrefix(filepath.Base(path), prefix) {
			return
		}
		paths = append(paths, path)
	}

	if recursive {
		err := afero.Walk(r.fs, root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			consider(path, info.IsDir())
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		entries, err := afero.ReadDir(r.fs, root)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			consider(filepath.Join(root, entry.Name()), entry.IsDir())
		}
	}

	sort.Strings(paths)

	var records []*LibraryRecord
	for _, path := range paths {
		record, err := r.AddDynamicLibrary(ctx, path)
		if err != nil {
			diagnostics.Emit(r.messageHandler, diagnostics.NewScanSession(), err.Error())
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// Extensions returns every descriptor currently known to the registry that
// matches filter. A nil or empty filter matches everything.
func (r *Registry) Extensions(filter Filter) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Descriptor
	for _, path := range r.order {
		for _, d := range r.libraries[path].Descriptors {
			if filter.matches(d) {
				out = append(out, d)
			}
		}
	}
	return out
}

// FindDescription looks up a single descriptor by interface and name. With
// no version given it resolves to the highest known version; with one
// version given it requires an exact match. Only the descriptor that won
// the (interface,name,version) triple via last-added-wins is reachable
// here - see Extensions for every descriptor the registry has ever seen.
func (r *Registry) FindDescription(interfaceName, name string, version ...uint64) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(version) > 0 {
		key := tripleKey{interfaceName: interfaceName, name: name, version: version[0]}
		path, ok := r.lastTriple[key]
		if !ok {
			return Descriptor{}, false
		}
		return r.descriptorAt(path, key), true
	}

	var best Descriptor
	found := false
	for key, path := range r.lastTriple {
		if key.interfaceName != interfaceName || key.name != name {
			continue
		}
		if !found || key.version > best.version {
			best = r.descriptorAt(path, key)
			found = true
		}
	}
	return best, found
}

func (r *Registry) descriptorAt(path string, key tripleKey) Descriptor {
	for _, d := range r.libraries[path].Descriptors {
		if d.InterfaceName() == key.interfaceName && d.Name() == key.name && d.Version() == key.version {
			return d
		}
	}
	return Descriptor{}
}

func (r *Registry) recordFor(path string) (*LibraryRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.libraries[path]
	return record, ok
}
