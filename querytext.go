package main

import (
	"go/ast"
	"go/token"
	"regexp"
	"sort"
	"strings"
)

// Regular expressions for the best-effort SQL text signal. Keyword adjacency,
// not parsing: FROM/JOIN pull table names, the SELECT...FROM fragment pulls
// column names.
var (
	sqlVerbRe    = regexp.MustCompile(`(?i)\b(select|insert|update|delete)\b`)
	sqlTableRe   = regexp.MustCompile(`(?i)\b(?:from|join|into|update)\s+([a-zA-Z_][a-zA-Z0-9_]*)`)
	sqlColumnsRe = regexp.MustCompile(`(?i)\bselect\s+(.*?)\s+from\b`)
)

// AnalyzeQueryText scans literal string content for SQL-like statements.
// This is a secondary, lower-trust signal kept strictly separate from the
// structural usage analysis so consumers can weight the two differently.
func AnalyzeQueryText(corpus *Corpus) []QueryAnalysis {
	var queries []QueryAnalysis
	for _, sf := range corpus.Sources {
		queries = append(queries, scanFileQueries(sf)...)
	}
	sort.SliceStable(queries, func(i, j int) bool {
		if queries[i].File != queries[j].File {
			return queries[i].File < queries[j].File
		}
		return queries[i].Line < queries[j].Line
	})
	if queries == nil {
		queries = []QueryAnalysis{}
	}
	return queries
}

// scanFileQueries extracts one QueryAnalysis per SQL-looking string literal.
func scanFileQueries(sf *SourceFile) []QueryAnalysis {
	var out []QueryAnalysis
	ast.Inspect(sf.AST, func(n ast.Node) bool {
		lit, ok := n.(*ast.BasicLit)
		if !ok || lit.Kind != token.STRING {
			return true
		}
		text := unquote(lit.Value)
		if len(text) < 12 {
			return true
		}
		verb := sqlVerbRe.FindString(text)
		if verb == "" {
			return true
		}
		line, _ := sf.Pos(lit.Pos())
		qa := QueryAnalysis{
			File:    sf.Path,
			Line:    line,
			Snippet: truncate(text, 150),
			Kind:    strings.ToLower(verb),
			Tables:  extractQueryTables(text),
			Columns: extractQueryColumns(text),
			Dynamic: isDynamicText(text) || strings.Contains(text, "%s") || strings.Contains(text, "%d"),
		}
		out = append(out, qa)
		return true
	})
	return out
}

// extractQueryTables pulls table names via FROM/JOIN keyword adjacency.
func extractQueryTables(text string) []string {
	var tables []string
	for _, match := range sqlTableRe.FindAllStringSubmatch(text, -1) {
		tables = appendUnique(tables, strings.ToLower(match[1]))
	}
	sort.Strings(tables)
	return tables
}

// extractQueryColumns pulls column names from the SELECT...FROM fragment.
// Skipped entirely for SELECT *.
func extractQueryColumns(text string) []string {
	match := sqlColumnsRe.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	fragment := strings.TrimSpace(match[1])
	if fragment == "*" || fragment == "" {
		return nil
	}
	var cols []string
	for _, part := range strings.Split(fragment, ",") {
		col := strings.TrimSpace(part)
		if col == "" || strings.Contains(col, "(") {
			continue // skip function expressions
		}
		// Strip qualifier and alias: "o.status AS s" -> "status".
		if fields := strings.Fields(col); len(fields) > 0 {
			col = fields[0]
		}
		if idx := strings.LastIndex(col, "."); idx >= 0 {
			col = col[idx+1:]
		}
		if col != "" && col != "*" {
			cols = appendUnique(cols, strings.ToLower(col))
		}
	}
	sort.Strings(cols)
	return cols
}

// truncate bounds s to max characters, marking elision the way snippets do.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
