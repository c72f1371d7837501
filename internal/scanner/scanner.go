// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

// Package scanner locates and parses extension-system metadata descriptors
// embedded as NUL-delimited key/value blocks inside compiled shared objects.
// It never executes or interprets the surrounding library code - it only
// reads bytes.
package scanner

import (
	"bytes"
	"fmt"

	"github.com/c2h5oh/datasize"
	"github.com/hashicorp/go-multierror"
)

// Descriptor is a single parsed metadata block, plus its resolved numeric
// version (parsed from Data["version"]).
type Descriptor struct {
	Data    map[string]string
	Version uint64
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s/%s v%d", d.Data["interface_name"], d.Data["name"], d.Version)
}

// DefaultMaxFileSize bounds how much of a candidate file the scanner will
// read into memory before giving up. 512 MiB comfortably covers any
// legitimate shared object; anything larger is almost certainly the wrong
// file or an attempt to exhaust memory.
const DefaultMaxFileSize = 512 * datasize.MB // datasize.MB is 1<<20 bytes, so this is 512 MiB

// Options configures a Scanner.
type Options struct {
	// VerifyCompiler enables the compiler/build-type compatibility check
	// against Host. When false, every well-formed descriptor is accepted
	// regardless of how it was built.
	VerifyCompiler bool
	Host           CompilerInfo

	// CheckUPXCompression, when true, makes Scan report (but not reject) a
	// descriptor found inside data that looks UPX-compressed: the raw
	// string "UPX" appearing before any "UPX!" stub signature usually means
	// the embedded metadata is compressed and unreadable without unpacking.
	CheckUPXCompression bool

	// MaxFileSize bounds the number of bytes Scan will search. Zero selects
	// DefaultMaxFileSize.
	MaxFileSize datasize.ByteSize
}

// CompilerInfo identifies the toolchain a registry (or a descriptor) claims
// to have been built with.
type CompilerInfo struct {
	APIVersion      string
	Compiler        string
	CompilerVersion string
	BuildType       string
}

// compilerFamily groups compilers the original format treats as mutually
// ABI-compatible for the purposes of descriptor verification.
var compilerFamily = map[string]bool{
	"clang": true,
	"g++":   true,
}

// Scanner extracts descriptors from library file contents.
type Scanner struct {
	opts Options
}

// New builds a Scanner. A zero Options is valid and disables compiler
// verification and the UPX heuristic; the MaxFileSize default and the
// advisory entry_point name check still apply.
func New(opts Options) *Scanner {
	if opts.MaxFileSize == 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	return &Scanner{opts: opts}
}

// Diagnostic is a single non-fatal observation made while scanning - a
// malformed block that was skipped, a UPX hint, an advisory symbol-name
// complaint. Diagnostics never stop the scan; they accumulate into the
// returned *multierror.Error so a caller can log or surface all of them.
type Diagnostic struct {
	Offset  int
	Message string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("offset %d: %s", d.Offset, d.Message)
}

// Scan searches data for every well-formed descriptor block, injecting
// library_filename into each one's Data. canonicalPath is recorded verbatim
// as library_filename; callers are expected to have already resolved it.
//
// Scan never stops on malformed content - a malformed block is skipped and
// reported as a diagnostic in the returned *multierror.Error, mirroring a
// scanner that must keep going across a whole directory of mixed-quality
// plugins. If data exceeds MaxFileSize, nothing is searched and the
// returned error holds that single diagnostic.
func (s *Scanner) Scan(data []byte, canonicalPath string) ([]Descriptor, *multierror.Error) {
	var diags *multierror.Error

	limit := int(s.opts.MaxFileSize.Bytes())
	if limit > 0 && len(data) > limit {
		diags = multierror.Append(diags, fmt.Errorf("file exceeds configured max size (%d > %d bytes)", len(data), limit))
		return nil, diags
	}

	if s.opts.CheckUPXCompression {
		if upxIdx := bytes.Index(data, []byte(upxMarker)); upxIdx >= 0 {
			if excl := bytes.Index(data, []byte(upxExclaim)); excl < 0 || excl > upxIdx {
				diags = multierror.Append(diags, Diagnostic{Offset: upxIdx, Message: "file appears UPX-compressed; embedded metadata may be unreadable"})
			}
		}
	}

	var descriptors []Descriptor
	cursor := 0
	startBytes := []byte(startMarker)
	endBytes := []byte(endMarker)

	for {
		relStart := bytes.Index(data[cursor:], startBytes)
		if relStart < 0 {
			break
		}
		start := cursor + relStart

		relEnd := bytes.Index(data[start+len(startBytes):], endBytes)
		if relEnd < 0 {
			diags = multierror.Append(diags, Diagnostic{Offset: start, Message: "START marker with no matching END marker"})
			break
		}
		end := start + len(startBytes) + relEnd

		// Detect another START appearing before this block's END: the
		// author's markers are interleaved and the block can't be trusted.
		if relNextStart := bytes.Index(data[start+len(startBytes):end], startBytes); relNextStart >= 0 {
			nextStart := start + len(startBytes) + relNextStart
			diags = multierror.Append(diags, Diagnostic{Offset: start, Message: "START marker before previous block's END marker; skipping"})
			cursor = nextStart
			continue
		}

		if end-1 <= start {
			diags = multierror.Append(diags, Diagnostic{Offset: start, Message: "empty descriptor block"})
			cursor = end
			continue
		}
		raw := data[start : end-1]

		desc, err := parseBlock(raw)
		if err != nil {
			diags = multierror.Append(diags, fmt.Errorf("offset %d: %w", start, err))
			cursor = end
			continue
		}

		desc.Data["library_filename"] = canonicalPath

		if verr := validateFields(desc); verr != nil {
			diags = multierror.Append(diags, fmt.Errorf("offset %d: %w", start, verr))
			cursor = end
			continue
		}

		if s.opts.VerifyCompiler {
			if verr := verifyCompiler(s.opts.Host, desc); verr != nil {
				diags = multierror.Append(diags, fmt.Errorf("offset %d: %w", start, verr))
				cursor = end
				continue
			}
		}

		if msg := adviseEntryPoint(desc); msg != "" {
			diags = multierror.Append(diags, Diagnostic{Offset: start, Message: msg})
		}

		descriptors = append(descriptors, desc)
		cursor = end
	}

	return descriptors, diags
}
