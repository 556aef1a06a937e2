package main

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"

	"golang.org/x/tools/go/ast/astutil"
)

// SourceFile is one parsed source file: the traversable syntax tree plus the
// raw content needed for snippet extraction. Tree nodes never leave a phase —
// every phase output resolves them into plain location/text data first.
type SourceFile struct {
	Path    string // relative to corpus root, forward slashes
	Content string
	AST     *ast.File
	Fset    *token.FileSet
}

// ParseSource parses one file into a SourceFile. Malformed source returns an
// error so the caller can skip the file and continue.
func ParseSource(fset *token.FileSet, rel, content string) (*SourceFile, error) {
	f, err := parser.ParseFile(fset, rel, content, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return &SourceFile{Path: rel, Content: content, AST: f, Fset: fset}, nil
}

// Pos resolves a token position to 1-based line and column.
func (sf *SourceFile) Pos(p token.Pos) (line, col int) {
	if !p.IsValid() {
		return 0, 0
	}
	pos := sf.Fset.Position(p)
	return pos.Line, pos.Column
}

// Snippet extracts source text for a position range, truncated to maxLen chars.
func (sf *SourceFile) Snippet(start, end token.Pos, maxLen int) string {
	if sf.Content == "" || !start.IsValid() || !end.IsValid() {
		return ""
	}
	f := sf.Fset.File(start)
	if f == nil {
		return ""
	}
	startOff := f.Offset(start)
	endOff := f.Offset(end)
	if startOff < 0 || endOff <= startOff || endOff > len(sf.Content) {
		return ""
	}
	snippet := sf.Content[startOff:endOff]
	if len(snippet) > maxLen {
		snippet = snippet[:maxLen] + "..."
	}
	return snippet
}

// AncestorPath materializes the ancestor chain enclosing [start, end), ordered
// innermost first (path[0] is the node itself, the last entry is the file).
// Classification works over this slice instead of a live tree walk.
func (sf *SourceFile) AncestorPath(start, end token.Pos) []ast.Node {
	path, _ := astutil.PathEnclosingInterval(sf.AST, start, end)
	return path
}

// enclosingContext returns the snippet of the nearest enclosing call or
// function literal around the node at path[0], falling back to the node's own
// text. Bounded to maxLen characters.
func (sf *SourceFile) enclosingContext(path []ast.Node, maxLen int) string {
	for _, n := range path {
		switch enc := n.(type) {
		case *ast.CallExpr:
			if s := sf.Snippet(enc.Pos(), enc.End(), maxLen); s != "" {
				return s
			}
		case *ast.FuncLit:
			if s := sf.Snippet(enc.Pos(), enc.Type.End(), maxLen); s != "" {
				return s
			}
		}
	}
	if len(path) > 0 {
		if s := sf.Snippet(path[0].Pos(), path[0].End(), maxLen); s != "" {
			return s
		}
	}
	return ""
}
