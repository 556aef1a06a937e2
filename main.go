package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the real entry point. Using a separate function ensures all defers
// execute even on error paths, unlike os.Exit which skips deferred calls.
func run() error {
	schemaGlob := flag.String("schema-glob", "schema/*.go,**/schema.go", "Comma-separated glob patterns identifying schema declaration files")
	sourceGlob := flag.String("source-glob", "**/*.go", "Comma-separated glob patterns for usage source files")
	skipTests := flag.Bool("skip-tests", false, "Exclude _test.go files from the scan entirely (by default they are scanned but count only as auxiliary usage)")
	verbose := flag.Bool("verbose", false, "Print detailed progress")
	dbPath := flag.String("db", "", "Also write the report to a SQLite database at this path")
	validate := flag.Bool("validate", false, "Run validation queries after the SQLite write")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: schemadrift [flags] <root-dir> <output.json>\n\n")
		fmt.Fprintf(os.Stderr, "Cross-references declared schema elements against their usage sites and\n")
		fmt.Fprintf(os.Stderr, "reports unused elements, drift findings, and optimization opportunities.\n")
		fmt.Fprintf(os.Stderr, "Pass \"-\" as the output path to write JSON to stdout.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		return fmt.Errorf("expected 2 arguments, got %d", flag.NArg())
	}

	root, err := filepath.Abs(flag.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid root dir: %w", err)
	}
	outputPath := flag.Arg(1)

	prog := NewProgress(*verbose)

	schemaGlobs := splitGlobs(*schemaGlob)
	sourceGlobs := splitGlobs(*sourceGlob)
	if len(schemaGlobs) == 0 {
		return fmt.Errorf("at least one -schema-glob pattern is required")
	}

	// Phase 1: collect and parse the corpus
	corpus, err := CollectCorpus(root, schemaGlobs, sourceGlobs, *skipTests, prog)
	if err != nil {
		return err
	}

	// Phase 2: extract the declared schema
	m := BuildSchemaMap(corpus, prog)
	if m.Len() == 0 {
		prog.Warn("no schema elements found under %s (check -schema-glob)", root)
	}

	// Phase 3: correlate usage sites against the schema
	usage, err := CorrelateUsage(m, corpus, prog)
	if err != nil {
		return err
	}

	// Phase 4: derive unused-element candidates and the migration plan
	unused := FindUnusedElements(m, usage, prog)

	// Phase 5: drift findings, redundant indexes, health score
	drift := AnalyzeDrift(m, usage, unused, prog)

	// Phase 6: ranked optimization opportunities
	perf := AssessPerformance(unused, drift, prog)

	report := BuildReport(corpus, m, usage, unused, drift, perf, prog)
	if err := validateReport(report); err != nil {
		return fmt.Errorf("internal consistency check: %w", err)
	}

	if err := writeOutput(outputPath, report, prog); err != nil {
		return err
	}

	if *dbPath != "" {
		if err := WriteDB(*dbPath, report, *validate, prog); err != nil {
			return err
		}
	}

	prog.Log("Done: %d elements, %d usage sites, health %d/100",
		m.Len(), len(usage.Patterns), drift.SchemaHealth)
	return nil
}

func splitGlobs(s string) []string {
	var globs []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			globs = append(globs, p)
		}
	}
	return globs
}

func writeOutput(path string, r *Report, prog *Progress) error {
	if path == "-" {
		return WriteJSON(os.Stdout, r)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := WriteJSON(f, r); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	prog.Log("Wrote JSON to %s", path)
	return nil
}
