package main

import (
	"go/ast"
	"sort"
	"strings"
)

// Constructor names recognized as schema declarations, matched case-insensitively
// on the base call of a declaration chain.
var (
	tableCtors = map[string]bool{"table": true, "pgtable": true, "mysqltable": true, "sqlitetable": true, "newtable": true}
	enumCtors  = map[string]bool{"enum": true, "pgenum": true, "newenum": true}
	indexCtors = map[string]bool{"index": true, "uniqueindex": true, "newindex": true}
)

// BuildSchemaMap walks every schema-declaration file looking for top-level
// bound identifiers whose initializer is a recognized table, enum, or index
// constructor, and extracts typed SchemaElement records. A schema file with
// zero extractable declarations is not an error.
func BuildSchemaMap(corpus *Corpus, prog *Progress) *SchemaMap {
	prog.Log("Mapping schema declarations (%d files)...", len(corpus.Schema))

	m := NewSchemaMap()
	for _, sf := range corpus.Schema {
		extractFile(sf, m)
	}

	// Enum-backed columns depend on the enum declaration. Resolved after
	// extraction so declaration order within a file does not matter.
	for _, col := range m.Columns {
		if _, ok := m.Enums[col.Metadata.DataType]; ok {
			col.Dependencies = appendUnique(col.Dependencies, col.Metadata.DataType)
		}
	}

	// Column foreign keys referencing tables roll up into table-level
	// dependencies so blast radius can be judged per table.
	for _, col := range m.Columns {
		if !col.Metadata.IsForeignKey {
			continue
		}
		owner := m.Tables[col.Metadata.Table]
		if owner == nil {
			continue
		}
		for _, dep := range col.Dependencies {
			refTable := strings.SplitN(dep, ".", 2)[0]
			if refTable != "" && refTable != owner.Name {
				owner.Dependencies = appendUnique(owner.Dependencies, refTable)
			}
		}
	}
	for _, t := range m.Tables {
		sort.Strings(t.Dependencies)
	}

	prog.Log("Extracted %d tables, %d columns, %d indexes, %d enums",
		len(m.Tables), len(m.Columns), len(m.Indexes), len(m.Enums))
	return m
}

// extractFile pulls every declaration-shaped node out of one schema file.
func extractFile(sf *SourceFile, m *SchemaMap) {
	for _, decl := range sf.AST.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok {
			continue
		}
		for _, spec := range gd.Specs {
			vs, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}
			for i, name := range vs.Names {
				if i >= len(vs.Values) {
					break
				}
				call, ok := vs.Values[i].(*ast.CallExpr)
				if !ok {
					continue
				}
				base := baseCall(call)
				if base == nil {
					continue
				}
				ctor := strings.ToLower(calleeBaseName(base))
				switch {
				case tableCtors[ctor]:
					extractTable(sf, m, name.Name, call, base)
				case enumCtors[ctor]:
					extractEnum(sf, m, name.Name, call, base)
				case indexCtors[ctor]:
					extractIndex(sf, m, name.Name, call, base, ctor)
				}
			}
		}
	}
}

// baseCall descends a chained-call expression (c().a().b()) to the innermost
// call, the one whose callee is a plain or package-qualified identifier.
// Returns nil when the expression is not a recognizable chain.
func baseCall(call *ast.CallExpr) *ast.CallExpr {
	for {
		switch fun := call.Fun.(type) {
		case *ast.Ident:
			return call
		case *ast.SelectorExpr:
			if inner, ok := fun.X.(*ast.CallExpr); ok {
				call = inner // suffixed method call, keep descending
				continue
			}
			return call // package-qualified constructor: pkg.Table(...)
		default:
			return nil
		}
	}
}

// calleeBaseName returns the identifier a call dispatches on, ignoring any
// package qualifier.
func calleeBaseName(call *ast.CallExpr) string {
	switch fun := call.Fun.(type) {
	case *ast.Ident:
		return fun.Name
	case *ast.SelectorExpr:
		return fun.Sel.Name
	}
	return ""
}

// chainMethods lists the suffixed method calls of a declaration chain from the
// base outward, pairing each lowercased method name with its call.
func chainMethods(outer *ast.CallExpr) []chainLink {
	var links []chainLink
	call := outer
	for {
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			break
		}
		inner, ok := sel.X.(*ast.CallExpr)
		if !ok {
			break
		}
		links = append(links, chainLink{method: strings.ToLower(sel.Sel.Name), call: call})
		call = inner
	}
	// reverse to base-first order
	for i, j := 0, len(links)-1; i < j; i, j = i+1, j-1 {
		links[i], links[j] = links[j], links[i]
	}
	return links
}

type chainLink struct {
	method string
	call   *ast.CallExpr
}

// extractTable records a table element and recurses into the constructor's
// field-map argument for its columns.
func extractTable(sf *SourceFile, m *SchemaMap, bound string, outer, base *ast.CallExpr) {
	tableName := stringArg(base, 0)
	if tableName == "" {
		tableName = bound
	}
	line, _ := sf.Pos(outer.Pos())
	table := &SchemaElement{
		Name:           tableName,
		Type:           ElementTable,
		File:           sf.Path,
		Line:           line,
		DefinitionText: sf.Snippet(outer.Pos(), outer.End(), 300),
		Usage:          []UsageInfo{},
	}
	m.Tables[tableName] = table
	m.aliases[bound] = append(m.aliases[bound], table.Key())

	// Column extraction: the field-map argument of the table constructor.
	for _, arg := range base.Args {
		lit, ok := arg.(*ast.CompositeLit)
		if !ok {
			continue
		}
		for _, elt := range lit.Elts {
			kv, ok := elt.(*ast.KeyValueExpr)
			if !ok {
				continue
			}
			colName := keyName(kv.Key)
			if colName == "" {
				continue
			}
			extractColumn(sf, m, tableName, colName, kv.Value)
		}
	}
}

// keyName resolves a composite-literal key to a column name.
func keyName(key ast.Expr) string {
	switch k := key.(type) {
	case *ast.Ident:
		return k.Name
	case *ast.BasicLit:
		return unquote(k.Value)
	}
	return ""
}

// extractColumn walks a column initializer's constraint chain — a sequence of
// zero or more suffixed method calls over a type constructor — to determine
// nullability, key roles, and default presence. The walk handles arbitrary
// chain depth and terminates when the base constructor is reached.
func extractColumn(sf *SourceFile, m *SchemaMap, tableName, colName string, value ast.Expr) {
	line, _ := sf.Pos(value.Pos())
	col := &SchemaElement{
		Name:           ColumnKey(tableName, colName),
		Type:           ElementColumn,
		File:           sf.Path,
		Line:           line,
		DefinitionText: sf.Snippet(value.Pos(), value.End(), 300),
		Metadata:       ElementMetadata{Nullable: true, Table: tableName},
		Usage:          []UsageInfo{},
	}

	if call, ok := value.(*ast.CallExpr); ok {
		base := baseCall(call)
		if base != nil {
			col.Metadata.DataType = strings.ToLower(calleeBaseName(base))
		}
		for _, link := range chainMethods(call) {
			switch link.method {
			case "notnull":
				col.Metadata.Nullable = false
			case "primarykey", "pk":
				col.Metadata.IsPrimaryKey = true
				col.Metadata.Nullable = false
			case "references", "foreignkey":
				col.Metadata.IsForeignKey = true
				if ref := refTarget(link.call); ref != "" {
					col.Dependencies = appendUnique(col.Dependencies, ref)
				}
			case "default", "defaultvalue", "defaultnow":
				col.Metadata.HasDefault = true
			case "unique":
				col.Metadata.Unique = true
			}
		}
	}
	m.Columns[col.Name] = col
}

// refTarget extracts the referenced element from a References(...) call:
// either a "table" / "table.column" string literal or an identifier chain.
func refTarget(call *ast.CallExpr) string {
	if len(call.Args) == 0 {
		return ""
	}
	switch arg := call.Args[0].(type) {
	case *ast.BasicLit:
		return unquote(arg.Value)
	case *ast.Ident:
		return arg.Name
	case *ast.SelectorExpr:
		if x, ok := arg.X.(*ast.Ident); ok {
			return x.Name + "." + arg.Sel.Name
		}
		return arg.Sel.Name
	}
	return ""
}

// extractEnum records an enumeration with its ordered value list. Values come
// from string literal arguments, flattened through one composite-literal level.
func extractEnum(sf *SourceFile, m *SchemaMap, bound string, outer, base *ast.CallExpr) {
	enumName := stringArg(base, 0)
	if enumName == "" {
		enumName = bound
	}
	var values []string
	for _, arg := range base.Args[min(1, len(base.Args)):] {
		switch a := arg.(type) {
		case *ast.BasicLit:
			if v := unquote(a.Value); v != "" {
				values = append(values, v)
			}
		case *ast.CompositeLit:
			for _, elt := range a.Elts {
				if lit, ok := elt.(*ast.BasicLit); ok {
					if v := unquote(lit.Value); v != "" {
						values = append(values, v)
					}
				}
			}
		}
	}
	line, _ := sf.Pos(outer.Pos())
	enum := &SchemaElement{
		Name:           enumName,
		Type:           ElementEnum,
		File:           sf.Path,
		Line:           line,
		DefinitionText: sf.Snippet(outer.Pos(), outer.End(), 300),
		Metadata:       ElementMetadata{Values: values},
		Usage:          []UsageInfo{},
	}
	m.Enums[enumName] = enum
	m.aliases[bound] = append(m.aliases[bound], enum.Key())
}

// extractIndex records an index element. Both the flat constructor form
// Index("idx", "orders", "status") and the chained form
// Index("idx").On(Orders, "status").Unique() are supported.
func extractIndex(sf *SourceFile, m *SchemaMap, bound string, outer, base *ast.CallExpr, ctor string) {
	idxName := stringArg(base, 0)
	if idxName == "" {
		idxName = bound
	}
	idx := &SchemaElement{
		Name:           idxName,
		Type:           ElementIndex,
		File:           sf.Path,
		DefinitionText: sf.Snippet(outer.Pos(), outer.End(), 300),
		Metadata:       ElementMetadata{Unique: strings.Contains(ctor, "unique")},
		Usage:          []UsageInfo{},
	}
	idx.Line, _ = sf.Pos(outer.Pos())

	// Flat form: remaining constructor args are table then columns.
	if len(base.Args) > 1 {
		idx.Metadata.Table = stringArg(base, 1)
		for i := 2; i < len(base.Args); i++ {
			if col := stringArg(base, i); col != "" {
				idx.Metadata.Columns = append(idx.Metadata.Columns, col)
			}
		}
	}

	for _, link := range chainMethods(outer) {
		switch link.method {
		case "on":
			for i, arg := range link.call.Args {
				target := indexTarget(arg)
				if target == "" {
					continue
				}
				if i == 0 && !strings.Contains(target, ".") && idx.Metadata.Table == "" {
					idx.Metadata.Table = target
					continue
				}
				if tbl, col, found := strings.Cut(target, "."); found {
					if idx.Metadata.Table == "" {
						idx.Metadata.Table = tbl
					}
					idx.Metadata.Columns = append(idx.Metadata.Columns, col)
				} else {
					idx.Metadata.Columns = append(idx.Metadata.Columns, target)
				}
			}
		case "unique":
			idx.Metadata.Unique = true
		}
	}

	if idx.Metadata.Table != "" {
		idx.Dependencies = append(idx.Dependencies, idx.Metadata.Table)
	}
	m.Indexes[idxName] = idx
	m.aliases[bound] = append(m.aliases[bound], idx.Key())
}

// indexTarget resolves one On(...) argument to a table, column, or
// table.column reference.
func indexTarget(arg ast.Expr) string {
	switch a := arg.(type) {
	case *ast.BasicLit:
		return unquote(a.Value)
	case *ast.Ident:
		return a.Name
	case *ast.SelectorExpr:
		if x, ok := a.X.(*ast.Ident); ok {
			return x.Name + "." + a.Sel.Name
		}
		return a.Sel.Name
	}
	return ""
}

// stringArg returns the unquoted string literal at position i of a call's
// arguments, or "".
func stringArg(call *ast.CallExpr, i int) string {
	if i >= len(call.Args) {
		return ""
	}
	lit, ok := call.Args[i].(*ast.BasicLit)
	if !ok {
		return ""
	}
	return unquote(lit.Value)
}

// unquote strips the surrounding quotes from a string literal token.
func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '`') {
		return s[1 : len(s)-1]
	}
	return s
}

// appendUnique appends s to list if not already present.
func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
