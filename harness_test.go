package main

import (
	"go/token"
	"sort"
	"testing"
)

// buildFixture parses in-memory schema and source files into a corpus, keyed
// by relative path. Fixtures never touch the filesystem.
func buildFixture(t *testing.T, schema, sources map[string]string) *Corpus {
	t.Helper()
	c := &Corpus{Root: "testroot", Fset: token.NewFileSet()}
	for _, path := range sortedKeys(schema) {
		sf, err := ParseSource(c.Fset, path, schema[path])
		if err != nil {
			t.Fatalf("parse schema fixture %s: %v", path, err)
		}
		c.Schema = append(c.Schema, sf)
	}
	for _, path := range sortedKeys(sources) {
		sf, err := ParseSource(c.Fset, path, sources[path])
		if err != nil {
			t.Fatalf("parse source fixture %s: %v", path, err)
		}
		c.Sources = append(c.Sources, sf)
	}
	return c
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// runPipeline executes every analysis phase over a fixture corpus.
func runPipeline(t *testing.T, c *Corpus) *Report {
	t.Helper()
	prog := NewProgress(false)
	m := BuildSchemaMap(c, prog)
	usage, err := CorrelateUsage(m, c, prog)
	if err != nil {
		t.Fatalf("correlate usage: %v", err)
	}
	unused := FindUnusedElements(m, usage, prog)
	drift := AnalyzeDrift(m, usage, unused, prog)
	perf := AssessPerformance(unused, drift, prog)
	r := BuildReport(c, m, usage, unused, drift, perf, prog)
	if err := validateReport(r); err != nil {
		t.Fatalf("report validation: %v", err)
	}
	return r
}

// fixtureSchema is the shared shop schema: a used users table, a dead orders
// table with a dead index, and an enum.
const fixtureSchema = `package schema

var Users = Table("users", Columns{
	"id":    Serial().PrimaryKey(),
	"email": Varchar(255).NotNull().Unique(),
	"role":  RoleEnum(),
})

var Orders = Table("orders", Columns{
	"id":     Serial().PrimaryKey(),
	"status": Varchar(32),
})

var RoleEnum = Enum("roleenum", "admin", "member")

var StatusIdx = Index("idx_status", "orders", "status")
`

// fixtureSource exercises users.email and the users table but nothing in the
// orders family.
const fixtureSource = `package app

func listEmails(db *DB) {
	q := db.Builder().Select(users.email).From(users)
	q.Where(users.email)
	grant("admin")
}
`
