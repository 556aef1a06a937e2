package main

import (
	"fmt"
	"go/ast"
	"go/token"
	"sort"
	"strings"
)

// nameIndex resolves matchable text (element names, declared binding aliases,
// table.column compounds) to element keys, and keys back to elements.
type nameIndex struct {
	byKey map[string]*SchemaElement
	names map[string][]string // match text -> sorted element keys
}

// buildNameIndex flattens a schema map into the lookup tables the usage pass
// matches against. Bare column names resolve to every column sharing that name
// — the documented false-positive side of exact lexical matching.
func buildNameIndex(m *SchemaMap) *nameIndex {
	idx := &nameIndex{
		byKey: make(map[string]*SchemaElement),
		names: make(map[string][]string),
	}
	add := func(text string, e *SchemaElement) {
		if text == "" {
			return
		}
		idx.names[text] = appendUnique(idx.names[text], e.Key())
	}
	for name, e := range m.Tables {
		idx.byKey[e.Key()] = e
		add(name, e)
	}
	for name, e := range m.Enums {
		idx.byKey[e.Key()] = e
		add(name, e)
	}
	for name, e := range m.Indexes {
		idx.byKey[e.Key()] = e
		add(name, e)
	}
	for compound, e := range m.Columns {
		idx.byKey[e.Key()] = e
		add(compound, e) // table.column
		if _, col, found := strings.Cut(compound, "."); found {
			add(col, e) // bare column name
		}
	}
	for alias, keys := range m.aliases {
		for _, key := range keys {
			if e := idx.byKey[key]; e != nil {
				add(alias, e)
			}
		}
	}
	for text := range idx.names {
		sort.Strings(idx.names[text])
	}
	return idx
}

// usageHit is one matched reference produced by a per-file scan. File scans
// return hits; a single-threaded reducer owns all element mutation.
type usageHit struct {
	key        string
	info       UsageInfo
	complexity Complexity
	dynamic    bool
}

// CorrelateUsage re-walks the general source corpus, matches every identifier,
// property access, and string literal against known element names, and
// classifies each match. Element usage lists are appended in a single
// reduction after all files are scanned, sorted by position so output is
// deterministic regardless of scan order.
func CorrelateUsage(m *SchemaMap, corpus *Corpus, prog *Progress) (*UsageReport, error) {
	prog.Log("Correlating usage across %d source files...", len(corpus.Sources))

	idx := buildNameIndex(m)
	report := &UsageReport{
		Patterns: []UsagePattern{},
		Queries:  []QueryAnalysis{},
		literals: make(map[string]bool),
	}

	var hits []usageHit
	for _, sf := range corpus.Sources {
		hits = append(hits, scanFileUsage(sf, idx, report.literals)...)
	}

	// Reduction step: downstream logic does not depend on cross-file ordering,
	// but serialized output must be byte-stable.
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.info.File != b.info.File {
			return a.info.File < b.info.File
		}
		if a.info.Line != b.info.Line {
			return a.info.Line < b.info.Line
		}
		if a.info.Col != b.info.Col {
			return a.info.Col < b.info.Col
		}
		return a.key < b.key
	})

	for _, h := range hits {
		elem := idx.byKey[h.key]
		if elem == nil {
			// Broken cross-reference contract between phases: fail fast.
			return nil, fmt.Errorf("usage hit references unknown element key %q", h.key)
		}
		elem.Usage = append(elem.Usage, h.info)
		report.Patterns = append(report.Patterns, UsagePattern{
			Element:     h.key,
			ElementType: elem.Type,
			File:        h.info.File,
			Line:        h.info.Line,
			Col:         h.info.Col,
			Kind:        h.info.Kind,
			Confidence:  h.info.Confidence,
			Complexity:  h.complexity,
			Dynamic:     h.dynamic,
			Context:     h.info.Context,
		})
	}

	report.Queries = AnalyzeQueryText(corpus)

	report.Summary = UsageSummary{
		Patterns:     len(report.Patterns),
		Queries:      len(report.Queries),
		FilesScanned: len(corpus.Sources),
		FilesSkipped: corpus.Skipped,
	}
	for _, p := range report.Patterns {
		if p.Dynamic {
			report.Summary.DynamicUsage++
		}
		if p.Confidence == ConfidenceHigh {
			report.Summary.HighConfidence++
		}
	}

	prog.Log("Matched %d usage sites, %d literal queries", len(report.Patterns), len(report.Queries))
	return report, nil
}

// scanFileUsage walks one source file and returns every matched reference.
// Literal values seen along the way are collected for enum drift detection.
func scanFileUsage(sf *SourceFile, idx *nameIndex, literals map[string]bool) []usageHit {
	var hits []usageHit

	record := func(n ast.Node, keys []string) {
		line, col := sf.Pos(n.Pos())
		if line == 0 {
			return
		}
		path := sf.AncestorPath(n.Pos(), n.End())
		kind := classifyOperation(path)
		conf := classifyConfidence(path)
		context := sf.enclosingContext(path, 150)
		dynamic := isDynamicText(enclosingStmtText(sf, path))
		complexity := classifyComplexity(chainHops(path))
		for _, key := range keys {
			hits = append(hits, usageHit{
				key: key,
				info: UsageInfo{
					File:       sf.Path,
					Line:       line,
					Col:        col,
					Kind:       kind,
					Context:    context,
					Confidence: conf,
				},
				complexity: complexity,
				dynamic:    dynamic,
			})
		}
	}

	ast.Inspect(sf.AST, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.SelectorExpr:
			// Compound match first: orders.status resolves the column exactly
			// and suppresses the ambiguous bare-name match underneath.
			if x, ok := node.X.(*ast.Ident); ok {
				compound := x.Name + "." + node.Sel.Name
				if keys := idx.names[compound]; len(keys) > 0 {
					record(node, keys)
					return false
				}
			}
		case *ast.Ident:
			if keys := idx.names[node.Name]; len(keys) > 0 {
				record(node, keys)
			}
		case *ast.BasicLit:
			if node.Kind != token.STRING {
				return true
			}
			v := unquote(node.Value)
			if v != "" && len(v) <= 64 {
				literals[v] = true
			}
			if keys := idx.names[v]; len(keys) > 0 {
				record(node, keys)
			}
		}
		return true
	})

	return hits
}

// enclosingStmtText returns the source text of the nearest enclosing statement,
// bounded, for the dynamism heuristic.
func enclosingStmtText(sf *SourceFile, path []ast.Node) string {
	for _, n := range path {
		if _, ok := n.(ast.Stmt); ok {
			return sf.Snippet(n.Pos(), n.End(), 300)
		}
	}
	if len(path) > 0 {
		return sf.Snippet(path[0].Pos(), path[0].End(), 300)
	}
	return ""
}
