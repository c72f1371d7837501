// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

package main

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// scanRoot is one "root" block from a batch-scan HCL config: a directory to
// search, whether to recurse, and an optional glob pattern restricting
// which files within it are considered.
type scanRoot struct {
	Label     string
	Path      string
	Recursive bool
	Pattern   string
}

var rootBlockSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "root", LabelNames: []string{"name"}},
	},
}

var rootAttrSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "path", Required: true},
		{Name: "recursive", Required: false},
		{Name: "pattern", Required: false},
	},
}

// loadBatchConfig parses an HCL file listing one or more "root" blocks to
// scan in sequence. Attribute expressions are evaluated with no variables
// in scope - a batch config is data, not a program.
func loadBatchConfig(path string) ([]scanRoot, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, diags
	}

	content, diags := file.Body.Content(rootBlockSchema)
	if diags.HasErrors() {
		return nil, diags
	}

	var roots []scanRoot
	for _, block := range content.Blocks {
		attrs, diags := block.Body.Content(rootAttrSchema)
		if diags.HasErrors() {
			return nil, diags
		}

		root := scanRoot{Label: block.Labels[0], Recursive: true}

		pathVal, diags := attrs.Attributes["path"].Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		if err := gocty.FromCtyValue(pathVal, &root.Path); err != nil {
			return nil, fmt.Errorf("root %q: path: %w", root.Label, err)
		}

		if attr, ok := attrs.Attributes["recursive"]; ok {
			val, diags := attr.Expr.Value(nil)
			if diags.HasErrors() {
				return nil, diags
			}
			if val.Type() != cty.Bool {
				return nil, fmt.Errorf("root %q: recursive must be a bool", root.Label)
			}
			if err := gocty.FromCtyValue(val, &root.Recursive); err != nil {
				return nil, fmt.Errorf("root %q: recursive: %w", root.Label, err)
			}
		}

		if attr, ok := attrs.Attributes["pattern"]; ok {
			val, diags := attr.Expr.Value(nil)
			if diags.HasErrors() {
				return nil, diags
			}
			if err := gocty.FromCtyValue(val, &root.Pattern); err != nil {
				return nil, fmt.Errorf("root %q: pattern: %w", root.Label, err)
			}
		}

		roots = append(roots, root)
	}
	return roots, nil
}
