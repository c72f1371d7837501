// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

package scanner

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/asaskevich/govalidator"
)

// parseBlock splits a raw descriptor block on NUL bytes into key=value
// pairs. The first pair's key is the literal start marker and its value is
// the descriptor's API version; parseBlock rewrites that one pair to the
// "api_version" key so downstream code never has to special-case it.
func parseBlock(raw []byte) (Descriptor, error) {
	fields := bytes.Split(raw, []byte{0})

	data := make(map[string]string, len(fields))
	first := true
	for _, field := range fields {
		if len(field) == 0 {
			continue
		}
		kv := strings.SplitN(string(field), "=", 2)
		if len(kv) != 2 || kv[0] == "" {
			return Descriptor{}, fmt.Errorf("malformed key=value pair %q", string(field))
		}
		key, value := kv[0], kv[1]

		if first {
			if key != startMarker {
				return Descriptor{}, fmt.Errorf("first pair key %q does not match start marker", key)
			}
			key = "api_version"
			first = false
		}

		if _, dup := data[key]; dup {
			return Descriptor{}, fmt.Errorf("duplicate key %q", key)
		}
		data[key] = value
	}

	if len(data) == 0 || first {
		return Descriptor{}, errors.New("empty descriptor block")
	}

	version, err := strconv.ParseUint(data["version"], 10, 64)
	if err != nil || version == 0 {
		return Descriptor{}, fmt.Errorf("invalid or zero version %q", data["version"])
	}

	return Descriptor{Data: data, Version: version}, nil
}

// mandatoryFields lists the fields every descriptor must carry, checked in
// this order so the first missing field is always the one reported.
var mandatoryFields = []string{"name", "interface_name", "entry_point"}

func validateFields(d Descriptor) error {
	for _, key := range mandatoryFields {
		if strings.TrimSpace(d.Data[key]) == "" {
			return fmt.Errorf("missing mandatory field %q", key)
		}
	}
	// version>0 was already enforced while parsing, but a caller that hands
	// us a Descriptor built by hand (tests) gets the same guarantee here.
	if d.Version == 0 {
		return errors.New("version must be greater than zero")
	}
	return nil
}

// verifyCompiler rejects a descriptor whose build environment doesn't match
// host's, with clang and g++ treated as mutually compatible for the
// compiler field specifically.
func verifyCompiler(host CompilerInfo, d Descriptor) error {
	if d.Data["api_version"] != host.APIVersion {
		return fmt.Errorf("api_version mismatch: descriptor=%s host=%s", d.Data["api_version"], host.APIVersion)
	}

	compiler := d.Data["compiler"]
	if compiler != host.Compiler {
		if !(compilerFamily[compiler] && compilerFamily[host.Compiler]) {
			return fmt.Errorf("compiler mismatch: descriptor=%s host=%s", compiler, host.Compiler)
		}
	}

	if d.Data["compiler_version"] != host.CompilerVersion {
		return fmt.Errorf("compiler_version mismatch: descriptor=%s host=%s", d.Data["compiler_version"], host.CompilerVersion)
	}
	if d.Data["build_type"] != host.BuildType {
		return fmt.Errorf("build_type mismatch: descriptor=%s host=%s", d.Data["build_type"], host.BuildType)
	}
	return nil
}

// ValidEntryPointName reports whether name looks like a plausible C symbol:
// a leading letter or underscore followed by letters, digits, or
// underscores. adviseEntryPoint uses it to produce a non-fatal scan
// diagnostic; pkg/extsystem uses it again at CreateExtension time to
// refuse to hand a clearly-malformed name to the dynamic loader.
func ValidEntryPointName(name string) bool {
	return govalidator.Matches(name, `^[A-Za-z_][A-Za-z0-9_]*$`)
}

// adviseEntryPoint runs a non-rejecting sanity check on the entry_point
// symbol name. A descriptor that fails this still gets registered; only
// CreateExtension-time resolution treats it specially (see
// pkg/extsystem.ErrInvalidEntryPoint).
func adviseEntryPoint(d Descriptor) string {
	name := d.Data["entry_point"]
	if !ValidEntryPointName(name) {
		return fmt.Sprintf("entry_point %q does not look like a valid C symbol name", name)
	}
	return ""
}
