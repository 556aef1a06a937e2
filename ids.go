package main

import "strings"

// ElementKey builds the type-qualified identity used to reference a schema
// element across phase outputs.
func ElementKey(t ElementType, name string) string {
	return string(t) + ":" + name
}

// SplitElementKey is the inverse of ElementKey. The second result is the bare
// element name (table.column compound for columns).
func SplitElementKey(key string) (ElementType, string) {
	idx := strings.Index(key, ":")
	if idx < 0 {
		return "", key
	}
	return ElementType(key[:idx]), key[idx+1:]
}

// ColumnKey builds the compound key a column is registered under.
func ColumnKey(table, column string) string {
	return table + "." + column
}

// BaseName extracts the filename without directory from a path.
func BaseName(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}
