// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

//go:build linux || darwin || freebsd

package dynlib

import (
	"runtime"

	"github.com/ebitengine/purego"
)

var fileExtension = func() string {
	if runtime.GOOS == "darwin" {
		return ".dylib"
	}
	return ".so"
}()

// rtldNoDelete mirrors RTLD_NODELETE so a library that outlives an explicit
// removeDynamicLibrary still keeps a valid code mapping for live instances.
// Not all POSIX dlopen implementations define it; 0 is a harmless no-op flag.
var rtldNoDelete = map[string]int{
	"linux":   0x01000,
	"freebsd": 0x01000,
	"darwin":  0x00080,
}[runtime.GOOS]

func openPlatform(path string) (Handle, error) {
	mode := purego.RTLD_LAZY | purego.RTLD_GLOBAL | rtldNoDelete
	raw, err := purego.Dlopen(path, mode)
	if err != nil {
		return nil, openError(path, err)
	}

	return &baseHandle{
		path: path,
		raw:  raw,
		symbolFunc: func(raw uintptr, name string) (uintptr, bool) {
			addr, err := purego.Dlsym(raw, name)
			if err != nil || addr == 0 {
				return 0, false
			}
			return addr, true
		},
		closeFunc: func(raw uintptr) error {
			return purego.Dlclose(raw)
		},
	}, nil
}
