// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

package main

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/glyphix/extsystem/pkg/extsystem"
)

// queryLexer tokenizes filter expressions like:
//
//	interface_name=IWidget and name=alpha,beta
//
// Identifiers allow ':' and '.' so C++-namespaced interface names like
// "extension_system::IExt2" parse as a single token.
var queryLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_:.\-]*`},
	{Name: "Equals", Pattern: `=`},
	{Name: "Comma", Pattern: `,`},
	{Name: "Whitespace", Pattern: `\s+`},
})

type queryAST struct {
	Clauses []*queryClause `parser:"@@ (\"and\" @@)*"`
}

type queryClause struct {
	Key    string   `parser:"@Ident Equals"`
	Values []string `parser:"@Ident (Comma @Ident)*"`
}

var queryParser = participle.MustBuild[queryAST](
	participle.Lexer(queryLexer),
	participle.Elide("Whitespace"),
)

// parseFilter compiles a filter-query expression into an extsystem.Filter.
// Clauses are AND'd together; values within a clause are OR'd, matching
// Filter's own semantics exactly.
func parseFilter(expr string) (extsystem.Filter, error) {
	if expr == "" {
		return nil, nil
	}
	ast, err := queryParser.ParseString("", expr)
	if err != nil {
		return nil, err
	}
	filter := make(extsystem.Filter, len(ast.Clauses))
	for _, clause := range ast.Clauses {
		filter[clause.Key] = append(filter[clause.Key], clause.Values...)
	}
	return filter, nil
}
