// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

//go:build windows

package dynlib

import (
	"fmt"

	"golang.org/x/sys/windows"
)

const fileExtension = ".dll"

func openPlatform(path string) (Handle, error) {
	raw, err := windows.LoadLibraryEx(path, 0, windows.LOAD_WITH_ALTERED_SEARCH_PATH)
	if err != nil {
		return nil, openError(path, fmt.Errorf("GetLastError=%d: %w", windows.GetLastError(), err))
	}

	return &baseHandle{
		path: path,
		raw:  uintptr(raw),
		symbolFunc: func(raw uintptr, name string) (uintptr, bool) {
			addr, err := windows.GetProcAddress(windows.Handle(raw), name)
			if err != nil || addr == 0 {
				return 0, false
			}
			return addr, true
		},
		closeFunc: func(raw uintptr) error {
			return windows.FreeLibrary(windows.Handle(raw))
		},
	}, nil
}
