package main

import (
	"fmt"
	"go/token"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Corpus holds every successfully parsed source file, partitioned into schema
// declaration files and the general source corpus. A file that matches both
// pattern sets is treated as a schema file and excluded from the usage corpus
// so declarations do not count as their own usage sites.
type Corpus struct {
	Root    string
	Fset    *token.FileSet
	Schema  []*SourceFile
	Sources []*SourceFile
	Skipped int
}

// CollectCorpus walks root, classifies .go files against the configured glob
// patterns, reads and parses them. Unreadable or unparsable files are skipped
// with a warning; the run continues (partial-failure tolerant).
func CollectCorpus(root string, schemaGlobs, sourceGlobs []string, skipTests bool, prog *Progress) (*Corpus, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", root)
	}

	c := &Corpus{Root: root, Fset: token.NewFileSet()}

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			prog.Warn("walk %s: %v", p, err)
			return nil
		}
		if d.IsDir() {
			base := d.Name()
			if p != root && (base == "vendor" || base == "node_modules" || strings.HasPrefix(base, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".go") {
			return nil
		}
		if skipTests && strings.HasSuffix(d.Name(), "_test.go") {
			c.Skipped++
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		isSchema := matchesAny(schemaGlobs, rel)
		isSource := isSchema || matchesAny(sourceGlobs, rel)
		if !isSource {
			return nil
		}

		content, err := os.ReadFile(p)
		if err != nil {
			prog.Warn("read %s: %v", rel, err)
			c.Skipped++
			return nil
		}
		sf, err := ParseSource(c.Fset, rel, string(content))
		if err != nil {
			prog.Warn("parse %s: %v", rel, err)
			c.Skipped++
			return nil
		}
		if isSchema {
			c.Schema = append(c.Schema, sf)
		} else {
			c.Sources = append(c.Sources, sf)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk root: %w", err)
	}

	prog.Log("Collected %d schema files, %d source files (%d skipped)",
		len(c.Schema), len(c.Sources), c.Skipped)
	return c, nil
}

// matchesAny reports whether rel matches at least one pattern. Each pattern is
// tried against the full relative path, the base name, and — for patterns with
// a "**/" prefix — every path suffix, so "db/schema*.go", "*_schema.go" and
// "**/migrations/*.go" all behave as expected.
func matchesAny(patterns []string, rel string) bool {
	base := BaseName(rel)
	for _, pat := range patterns {
		if pat == "" {
			continue
		}
		if ok, _ := path.Match(pat, rel); ok {
			return true
		}
		if !strings.Contains(pat, "/") {
			if ok, _ := path.Match(pat, base); ok {
				return true
			}
		}
		if tail, found := strings.CutPrefix(pat, "**/"); found {
			parts := strings.Split(rel, "/")
			for i := range parts {
				if ok, _ := path.Match(tail, strings.Join(parts[i:], "/")); ok {
					return true
				}
			}
		}
	}
	return false
}

// SchemaPaths returns the schema file paths in walk order.
func (c *Corpus) SchemaPaths() []string {
	paths := make([]string, len(c.Schema))
	for i, sf := range c.Schema {
		paths[i] = sf.Path
	}
	return paths
}

// isAuxiliaryFile reports whether a usage site in this file is an auxiliary
// signal (migrations, tests) rather than live application usage. The unused
// analyzer weighs these separately when judging removal safety.
func isAuxiliaryFile(rel string) bool {
	if strings.HasSuffix(rel, "_test.go") {
		return true
	}
	for _, part := range strings.Split(path.Dir(rel), "/") {
		if part == "migrations" || part == "migration" {
			return true
		}
	}
	return false
}
