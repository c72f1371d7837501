// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

package dynlib_test

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/glyphix/extsystem/internal/dynlib"
)

func TestFileExtension(t *testing.T) {
	want := map[string]string{
		"linux":   ".so",
		"freebsd": ".so",
		"darwin":  ".dylib",
		"windows": ".dll",
	}[runtime.GOOS]
	if want == "" {
		t.Skipf("no expectation configured for GOOS=%s", runtime.GOOS)
	}
	assert.Equal(t, want, dynlib.FileExtension())
}
