package main

import (
	"go/ast"
	"regexp"
	"strings"
)

// queryMethodKinds maps recognized query-builder method names (lowercased) to
// the operation kind they imply.
var queryMethodKinds = map[string]OperationKind{
	"select":    OpSelect,
	"from":      OpSelect,
	"insert":    OpInsert,
	"update":    OpUpdate,
	"delete":    OpDelete,
	"where":     OpWhere,
	"orderby":   OpOrderBy,
	"join":      OpJoin,
	"leftjoin":  OpJoin,
	"rightjoin": OpJoin,
	"innerjoin": OpJoin,
}

// highConfidenceMethods are the call methods whose receiver or argument
// position marks a usage as high confidence.
var highConfidenceMethods = map[string]bool{
	"select": true, "insert": true, "update": true, "delete": true, "from": true,
}

// classifyOperation determines the operation kind for a matched node from its
// materialized ancestor path (innermost first). The nearest ancestor call with
// a recognized property-access method wins; with no such ancestor the kind is
// reference, or import when the match sits inside an import declaration.
func classifyOperation(path []ast.Node) OperationKind {
	for _, n := range path {
		switch anc := n.(type) {
		case *ast.CallExpr:
			if sel, ok := anc.Fun.(*ast.SelectorExpr); ok {
				if kind, ok := queryMethodKinds[strings.ToLower(sel.Sel.Name)]; ok {
					return kind
				}
			}
		case *ast.ImportSpec:
			return OpImport
		}
	}
	return OpReference
}

// classifyConfidence applies the three-level deterministic tier rule, top-down,
// first match wins:
//  1. high   — the match is the receiver or an argument of a call whose method
//     is select/insert/update/delete/from
//  2. medium — the match is a property-access target, or sits inside a
//     variable declaration or binary expression
//  3. low    — otherwise
func classifyConfidence(path []ast.Node) Confidence {
	for i := 1; i < len(path); i++ {
		call, ok := path[i].(*ast.CallExpr)
		if !ok {
			continue
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok || !highConfidenceMethods[strings.ToLower(sel.Sel.Name)] {
			continue
		}
		// Receiver position: the previous path entry is the call's selector
		// (the match lives inside sel.X).
		if path[i-1] == ast.Node(sel) {
			return ConfidenceHigh
		}
		// Argument position: the previous path entry is one of the call args.
		for _, arg := range call.Args {
			if path[i-1] == ast.Node(arg) {
				return ConfidenceHigh
			}
		}
	}

	// Property access covers both directions: an identifier inside a selector,
	// and a compound table.column match that is itself the selector node.
	if len(path) > 1 {
		if _, ok := path[1].(*ast.SelectorExpr); ok {
			return ConfidenceMedium
		}
	}
	if len(path) > 0 {
		if _, ok := path[0].(*ast.SelectorExpr); ok {
			return ConfidenceMedium
		}
	}
	for _, n := range path {
		switch n.(type) {
		case *ast.ValueSpec, *ast.AssignStmt, *ast.BinaryExpr:
			return ConfidenceMedium
		}
	}
	return ConfidenceLow
}

// chainHops counts the chained-call sequence enclosing the matched node:
// consecutive property-access call nodes walking outward, stopping at the
// first ancestor that breaks the chain.
func chainHops(path []ast.Node) int {
	hops := 0
	for _, n := range path {
		switch anc := n.(type) {
		case *ast.SelectorExpr, *ast.Ident, *ast.BasicLit:
			_ = anc
		case *ast.CallExpr:
			if _, ok := anc.Fun.(*ast.SelectorExpr); ok {
				hops++
			}
		default:
			return hops
		}
	}
	return hops
}

// classifyComplexity buckets a hop count: <=2 simple, <=5 medium, else complex.
func classifyComplexity(hops int) Complexity {
	switch {
	case hops <= 2:
		return ComplexitySimple
	case hops <= 5:
		return ComplexityMedium
	}
	return ComplexityComplex
}

// placeholderRe matches positional query placeholders ("?", "$1", ":name").
var placeholderRe = regexp.MustCompile(`\?|\$\d+|:\w+\b`)

// isDynamicText flags a usage as dynamic when its surrounding text shows a
// template-interpolation marker, a string-concatenation call, or a placeholder
// token. Heuristic over raw text, intentionally conservative: may over-flag.
func isDynamicText(text string) bool {
	if text == "" {
		return false
	}
	if strings.Contains(text, "${") ||
		strings.Contains(text, "Sprintf(") ||
		strings.Contains(text, "sprintf(") ||
		strings.Contains(text, "Concat(") ||
		strings.Contains(text, `" + `) ||
		strings.Contains(text, ` + "`) {
		return true
	}
	return placeholderRe.MatchString(text)
}
