package main

import (
	"fmt"
	"io"
)

// BuildReport assembles the per-phase outputs into the single serializable
// result a run always emits, even on partial failure.
func BuildReport(corpus *Corpus, m *SchemaMap, usage *UsageReport, unused *UnusedReport,
	drift *DriftReport, perf *PerformanceReport, prog *Progress) *Report {
	r := &Report{
		Root:        corpus.Root,
		SchemaFiles: corpus.SchemaPaths(),
		Schema:      m,
		Usage:       usage,
		Unused:      unused,
		Drift:       drift,
		Performance: perf,
		Warnings:    prog.Warnings(),
	}
	if r.SchemaFiles == nil {
		r.SchemaFiles = []string{}
	}
	return r
}

// WriteJSON serializes the report as indented JSON. Output is byte-identical
// across runs on an unchanged corpus: map keys sort during marshaling and
// every slice is populated in deterministic order.
func WriteJSON(w io.Writer, r *Report) error {
	data, err := r.MarshalIndent()
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	_, err = w.Write([]byte("\n"))
	return err
}

// validateReport checks the cross-phase summary contract: every summary count
// must exactly match its detail array length. Violations are programmer
// errors and abort the run.
func validateReport(r *Report) error {
	if got, want := r.Usage.Summary.Patterns, len(r.Usage.Patterns); got != want {
		return fmt.Errorf("usage summary patterns %d != detail length %d", got, want)
	}
	if got, want := r.Usage.Summary.Queries, len(r.Usage.Queries); got != want {
		return fmt.Errorf("usage summary queries %d != detail length %d", got, want)
	}
	if got, want := r.Unused.Summary.Candidates, len(r.Unused.Candidates); got != want {
		return fmt.Errorf("unused summary candidates %d != detail length %d", got, want)
	}
	if got, want := r.Drift.Summary.Findings, len(r.Drift.Findings); got != want {
		return fmt.Errorf("drift summary findings %d != detail length %d", got, want)
	}
	if got, want := r.Performance.Summary.Opportunities, len(r.Performance.Opportunities); got != want {
		return fmt.Errorf("performance summary opportunities %d != detail length %d", got, want)
	}
	phases := len(r.Unused.Plan.Phase1) + len(r.Unused.Plan.Phase2) + len(r.Unused.Plan.Phase3)
	if phases != len(r.Unused.Candidates) {
		return fmt.Errorf("migration phases hold %d entries, want %d", phases, len(r.Unused.Candidates))
	}
	return nil
}
