// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

package extsystem

import (
	"context"
	"strconv"
	"testing"

	"github.com/spf13/afero"
	"pgregory.net/rapid"

	"github.com/glyphix/extsystem/internal/dynlib/dynlibtest"
	"github.com/glyphix/extsystem/internal/scanner/scannertest"
)

func genDescriptor(t *rapid.T) Descriptor {
	name := rapid.SampledFrom([]string{"alpha", "beta", "gamma"}).Draw(t, "name")
	iface := rapid.SampledFrom([]string{"IWidget", "IGadget"}).Draw(t, "interface_name")
	version := rapid.Uint64Range(1, 5).Draw(t, "version")
	return Descriptor{
		data: map[string]string{
			"name":           name,
			"interface_name": iface,
		},
		version: version,
	}
}

// TestFilterLawOrWithinAndAcrossKeys checks Filter's documented algebra
// directly against randomly generated descriptors and filters: a
// descriptor matches iff every key in the filter has at least one of its
// values equal to the descriptor's value for that key.
func TestFilterLawOrWithinAndAcrossKeys(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d := genDescriptor(t)

		nameValues := rapid.SliceOfDistinct(rapid.SampledFrom([]string{"alpha", "beta", "gamma", "delta"}), func(s string) string { return s }).Draw(t, "name_values")
		ifaceValues := rapid.SliceOfDistinct(rapid.SampledFrom([]string{"IWidget", "IGadget", "IOther"}), func(s string) string { return s }).Draw(t, "iface_values")

		filter := Filter{}
		if rapid.Bool().Draw(t, "use_name") {
			filter["name"] = nameValues
		}
		if rapid.Bool().Draw(t, "use_iface") {
			filter["interface_name"] = ifaceValues
		}

		want := true
		for key, values := range filter {
			keyMatches := false
			for _, v := range values {
				if d.data[key] == v {
					keyMatches = true
					break
				}
			}
			if !keyMatches {
				want = false
			}
		}

		if got := filter.matches(d); got != want {
			t.Fatalf("filter.matches(%+v) with filter %+v = %v, want %v", d, filter, got, want)
		}
	})
}

// TestFilterLawEmptyMatchesEverything checks the documented base case: a
// nil or empty filter matches every descriptor.
func TestFilterLawEmptyMatchesEverything(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d := genDescriptor(t)
		if !(Filter(nil)).matches(d) {
			t.Fatal("nil filter should match everything")
		}
		if !(Filter{}).matches(d) {
			t.Fatal("empty filter should match everything")
		}
	})
}

// TestHighestVersionLaw checks that FindDescription without an explicit
// version always resolves to the maximum version registered for that
// (interface, name) pair.
func TestHighestVersionLaw(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		fs := afero.NewMemMapFs()
		opener := dynlibtest.New()
		r := New(WithFilesystem(fs), WithOpener(opener))

		versions := rapid.SliceOfNDistinct(rapid.IntRange(1, 20), 1, 6, func(v int) int { return v }).Draw(t, "versions")

		var blocks [][]byte
		max := 0
		for i, v := range versions {
			if v > max {
				max = v
			}
			pairs := scannertest.DescriptorPairs("alpha", "IWidget", "create_v"+strconv.Itoa(i), v)
			blocks = append(blocks, scannertest.Block("1", pairs...))
		}
		data := scannertest.Wrap(blocks...)
		if err := afero.WriteFile(fs, "/plugins/lib.so", data, 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}

		_, err := r.AddDynamicLibrary(context.Background(), "/plugins/lib.so")
		if err != nil {
			t.Fatalf("AddDynamicLibrary: %v", err)
		}

		d, ok := r.FindDescription("IWidget", "alpha")
		if !ok {
			t.Fatal("expected a match")
		}
		if d.Version() != uint64(max) {
			t.Fatalf("FindDescription resolved version %d, want max %d", d.Version(), max)
		}
	})
}
