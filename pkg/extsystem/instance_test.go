// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

package extsystem

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"unsafe"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/glyphix/extsystem/internal/dynlib/dynlibtest"
	"github.com/glyphix/extsystem/internal/scanner/scannertest"
	"github.com/glyphix/extsystem/pkg/extsdk"
)

type widget interface {
	Name() string
}

type testWidget struct {
	name   string
	closed bool
}

func (w *testWidget) Name() string { return w.name }
func (w *testWidget) Close() error { w.closed = true; return nil }

// remoteWidget is the host-side proxy CreateExtension hands back: it never
// touches the constructing plugin's memory directly, only the
// widget_name/widget_release functions the plugin exports, resolved
// through Resolver the same way entry_point itself is resolved.
type remoteWidget struct {
	token  uintptr
	nameFn func(uintptr, *uintptr) uintptr
}

func (w *remoteWidget) Name() string {
	var out uintptr
	ptr := w.nameFn(w.token, &out)
	if ptr == 0 {
		return ""
	}
	return unsafe.String((*byte)(unsafe.Pointer(ptr)), int(out))
}

// bindRemoteWidget is an ExtensionBinder for the "widget" interface: it
// resolves widget_name/widget_release on the owning library and wraps the
// token in remoteWidget, then asserts the result implements the caller's
// requested T.
func bindRemoteWidget[T any](token uintptr, r Resolver) (T, func(), error) {
	var zero T

	nameFn, ok := r.Symbol("widget_name")
	if !ok {
		return zero, nil, fmt.Errorf("widget: library does not export widget_name")
	}
	releaseFn, _ := r.Symbol("widget_release")

	rw := &remoteWidget{token: token, nameFn: nameFn}
	value, ok := any(rw).(T)
	if !ok {
		return zero, nil, fmt.Errorf("widget: constructed value does not implement requested interface: %w", ErrWrongInterface)
	}

	release := func() {
		if releaseFn != nil {
			releaseFn(token, nil)
		}
	}
	return value, release, nil
}

// registerWidget wires up path's fake symbol table the way a real Go
// plugin authored with pkg/extsdk would: entryPoint constructs w and
// stashes it in the plugin's own object table, while widget_name/
// widget_release are the plugin's exported accessors that dereference the
// token on the plugin's own side. Host-side code (bindRemoteWidget) never
// calls extsdk itself.
func registerWidget(opener *dynlibtest.Opener, path, entryPoint string, w *testWidget) {
	opener.Register(path, entryPoint, func(existing uintptr, outMetadata *uintptr) uintptr {
		return extsdk.Construct(w)
	})
	opener.Register(path, "widget_name", func(token uintptr, out *uintptr) uintptr {
		value, ok := extsdk.Lookup(token)
		if !ok {
			return 0
		}
		name := value.(*testWidget).Name()
		if len(name) == 0 {
			*out = 0
			return 0
		}
		*out = uintptr(len(name))
		return uintptr(unsafe.Pointer(unsafe.StringData(name)))
	})
	opener.Register(path, "widget_release", func(token uintptr, _ *uintptr) uintptr {
		if value, ok := extsdk.Lookup(token); ok {
			_ = value.(*testWidget).Close()
		}
		extsdk.Release(token)
		return 1
	})
}

func TestCreateExtensionConstructsTypedInstance(t *testing.T) {
	fs := afero.NewMemMapFs()
	opener := dynlibtest.New()
	r := newTestRegistry(fs, opener)

	block := scannertest.Block("1", scannertest.DescriptorPairs("alpha", "widget", "create_alpha", 1)...)
	writeLibrary(t, fs, "/plugins/alpha.so", block)
	_, err := r.AddDynamicLibrary(context.Background(), "/plugins/alpha.so")
	require.NoError(t, err)

	w := &testWidget{name: "alpha"}
	registerWidget(opener, "/plugins/alpha.so", "create_alpha", w)

	instance, err := CreateExtension[widget](context.Background(), r, "widget", "alpha", bindRemoteWidget[widget])
	require.NoError(t, err)
	require.Equal(t, "alpha", instance.Value().Name())

	record, ok := r.recordFor("/plugins/alpha.so")
	require.True(t, ok)
	require.True(t, record.Loaded())

	require.NoError(t, instance.Close())
	require.True(t, w.closed, "Close should run the plugin's widget_release export")
	require.False(t, record.Loaded(), "library should unload once the last instance closes")

	// Close is idempotent.
	require.NoError(t, instance.Close())
}

func TestCreateExtensionRefcountsAcrossInstances(t *testing.T) {
	fs := afero.NewMemMapFs()
	opener := dynlibtest.New()
	r := newTestRegistry(fs, opener)

	block := scannertest.Block("1", scannertest.DescriptorPairs("alpha", "widget", "create_alpha", 1)...)
	writeLibrary(t, fs, "/plugins/alpha.so", block)
	_, err := r.AddDynamicLibrary(context.Background(), "/plugins/alpha.so")
	require.NoError(t, err)

	registerWidget(opener, "/plugins/alpha.so", "create_alpha", &testWidget{name: "one"})
	create := func() *Instance[widget] {
		inst, err := CreateExtension[widget](context.Background(), r, "widget", "alpha", bindRemoteWidget[widget])
		require.NoError(t, err)
		return inst
	}

	first := create()
	second := create()

	record, _ := r.recordFor("/plugins/alpha.so")
	require.True(t, record.Loaded())

	require.NoError(t, first.Close())
	require.True(t, record.Loaded(), "second instance still open")

	require.NoError(t, second.Close())
	require.False(t, record.Loaded())
}

func TestCreateExtensionSymbolNotFound(t *testing.T) {
	fs := afero.NewMemMapFs()
	opener := dynlibtest.New()
	r := newTestRegistry(fs, opener)

	block := scannertest.Block("1", scannertest.DescriptorPairs("alpha", "widget", "create_missing", 1)...)
	writeLibrary(t, fs, "/plugins/alpha.so", block)
	_, err := r.AddDynamicLibrary(context.Background(), "/plugins/alpha.so")
	require.NoError(t, err)
	// No symbol registered for create_missing.
	opener.Register("/plugins/alpha.so", "unrelated", func(uintptr, *uintptr) uintptr { return 0 })

	_, err = CreateExtension[widget](context.Background(), r, "widget", "alpha", bindRemoteWidget[widget])
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrSymbolNotFound))
}

func TestCreateExtensionConstructionFailed(t *testing.T) {
	fs := afero.NewMemMapFs()
	opener := dynlibtest.New()
	r := newTestRegistry(fs, opener)

	block := scannertest.Block("1", scannertest.DescriptorPairs("alpha", "widget", "create_alpha", 1)...)
	writeLibrary(t, fs, "/plugins/alpha.so", block)
	_, err := r.AddDynamicLibrary(context.Background(), "/plugins/alpha.so")
	require.NoError(t, err)

	opener.Register("/plugins/alpha.so", "create_alpha", func(uintptr, *uintptr) uintptr { return 0 })

	_, err = CreateExtension[widget](context.Background(), r, "widget", "alpha", bindRemoteWidget[widget])
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrConstructionFailed))
}

func TestCreateExtensionWrongInterface(t *testing.T) {
	fs := afero.NewMemMapFs()
	opener := dynlibtest.New()
	r := newTestRegistry(fs, opener)

	block := scannertest.Block("1", scannertest.DescriptorPairs("alpha", "widget", "create_alpha", 1)...)
	writeLibrary(t, fs, "/plugins/alpha.so", block)
	_, err := r.AddDynamicLibrary(context.Background(), "/plugins/alpha.so")
	require.NoError(t, err)

	registerWidget(opener, "/plugins/alpha.so", "create_alpha", &testWidget{name: "alpha"})

	type gadget interface {
		Flavor() string
	}
	_, err = CreateExtension[gadget](context.Background(), r, "widget", "alpha", bindRemoteWidget[gadget])
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrWrongInterface))
}

func TestCreateExtensionInvalidEntryPointName(t *testing.T) {
	fs := afero.NewMemMapFs()
	opener := dynlibtest.New()
	r := newTestRegistry(fs, opener)

	block := scannertest.Block("1", scannertest.DescriptorPairs("alpha", "widget", "9bad-symbol", 1)...)
	writeLibrary(t, fs, "/plugins/alpha.so", block)
	_, err := r.AddDynamicLibrary(context.Background(), "/plugins/alpha.so")
	require.NoError(t, err)

	_, err = CreateExtension[widget](context.Background(), r, "widget", "alpha", bindRemoteWidget[widget])
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidEntryPoint))
}
