package main

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// confidenceValue converts a tier to the numeric confidence carried on findings.
func confidenceValue(c Confidence) float64 {
	switch c {
	case ConfidenceHigh:
		return 0.9
	case ConfidenceMedium:
		return 0.6
	}
	return 0.3
}

// AnalyzeDrift aggregates misalignment signals into severity-ranked findings
// and a 0-100 schema health score. Findings are regenerated wholesale on every
// run; nothing here mutates the inputs.
func AnalyzeDrift(m *SchemaMap, usage *UsageReport, unused *UnusedReport, prog *Progress) *DriftReport {
	prog.Log("Analyzing schema drift...")

	report := &DriftReport{Findings: []DriftFinding{}}

	// Structural contradictions first: a foreign key referencing a table that
	// does not exist. The only source of critical findings.
	report.Findings = append(report.Findings, structuralFindings(m)...)

	// Declared-but-unused elements, severity mapped straight from the
	// analyzer confidence that produced the candidate.
	for i := range unused.Candidates {
		c := &unused.Candidates[i]
		report.Findings = append(report.Findings, DriftFinding{
			ElementName: c.ElementName,
			ElementType: c.ElementType,
			DriftType:   DriftUnused,
			Severity:    severityForConfidence(c.Confidence),
			Confidence:  confidenceValue(c.Confidence),
			Detail:      fmt.Sprintf("declared but unused (%s confidence removal)", c.Confidence),
		})
	}

	// Over-indexed: redundant indexes whose column set is covered by another
	// index on the same table.
	report.RedundantIndexes = findRedundantIndexes(m)
	for _, name := range report.RedundantIndexes {
		report.Findings = append(report.Findings, DriftFinding{
			ElementName: name,
			ElementType: ElementIndex,
			DriftType:   DriftMisaligned,
			Severity:    SeverityMinor,
			Confidence:  confidenceValue(ConfidenceMedium),
			Detail:      "redundant: covered by another index on the same table",
		})
	}

	// Under-indexed: foreign key columns with no index leading on them.
	report.Findings = append(report.Findings, underIndexedFindings(m)...)

	// Enum value drift: declared values never observed anywhere in the corpus,
	// for enums that are otherwise in use.
	report.Findings = append(report.Findings, enumDriftFindings(m, usage, unused)...)

	// Fixed severity order, most severe first; ties keep insertion order.
	sort.SliceStable(report.Findings, func(i, j int) bool {
		return report.Findings[i].Severity.rank() < report.Findings[j].Severity.rank()
	})

	report.Summary = summarizeDrift(report)
	report.IndexUtilization = indexUtilization(m)
	report.SchemaHealth = healthScore(report, unused)

	prog.Log("Found %d drift findings, schema health %d/100",
		len(report.Findings), report.SchemaHealth)
	return report
}

// structuralFindings detects foreign keys whose referenced table is absent
// from the schema map.
func structuralFindings(m *SchemaMap) []DriftFinding {
	var findings []DriftFinding
	var colNames []string
	for name := range m.Columns {
		colNames = append(colNames, name)
	}
	sort.Strings(colNames)
	for _, name := range colNames {
		col := m.Columns[name]
		if !col.Metadata.IsForeignKey {
			continue
		}
		for _, ref := range col.Dependencies {
			refTable := strings.SplitN(ref, ".", 2)[0]
			if refTable == "" || m.resolvesToTable(refTable) {
				continue
			}
			findings = append(findings, DriftFinding{
				ElementName: col.Name,
				ElementType: ElementColumn,
				DriftType:   DriftMisaligned,
				Severity:    SeverityCritical,
				Confidence:  0.95,
				Detail:      fmt.Sprintf("foreign key references nonexistent table %q", refTable),
			})
		}
	}
	return findings
}

// resolvesToTable reports whether name identifies a declared table, either
// directly or through a declaration binding alias.
func (m *SchemaMap) resolvesToTable(name string) bool {
	if _, ok := m.Tables[name]; ok {
		return true
	}
	for _, key := range m.aliases[name] {
		if t, _ := SplitElementKey(key); t == ElementTable {
			return true
		}
	}
	return false
}

// findRedundantIndexes returns names of indexes whose leading column set is a
// prefix of (or identical to) another index on the same table. Unique indexes
// are never flagged: they enforce a constraint beyond lookup speed.
func findRedundantIndexes(m *SchemaMap) []string {
	var names []string
	for name := range m.Indexes {
		names = append(names, name)
	}
	sort.Strings(names)

	var redundant []string
	for _, a := range names {
		ia := m.Indexes[a]
		if ia.Metadata.Unique || len(ia.Metadata.Columns) == 0 {
			continue
		}
		for _, b := range names {
			if a == b {
				continue
			}
			ib := m.Indexes[b]
			if ia.Metadata.Table != ib.Metadata.Table {
				continue
			}
			if !isColumnPrefix(ia.Metadata.Columns, ib.Metadata.Columns) {
				continue
			}
			// Identical column lists: keep the lexicographically first.
			if len(ia.Metadata.Columns) == len(ib.Metadata.Columns) && a < b {
				continue
			}
			redundant = appendUnique(redundant, a)
			break
		}
	}
	return redundant
}

// isColumnPrefix reports whether a is a leading prefix of b.
func isColumnPrefix(a, b []string) bool {
	if len(a) > len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// underIndexedFindings flags foreign key columns not covered by any index.
func underIndexedFindings(m *SchemaMap) []DriftFinding {
	var colNames []string
	for name := range m.Columns {
		colNames = append(colNames, name)
	}
	sort.Strings(colNames)

	var findings []DriftFinding
	for _, name := range colNames {
		col := m.Columns[name]
		if !col.Metadata.IsForeignKey {
			continue
		}
		_, bare, _ := strings.Cut(name, ".")
		covered := false
		for _, idx := range m.Indexes {
			if idx.Metadata.Table == col.Metadata.Table &&
				len(idx.Metadata.Columns) > 0 && idx.Metadata.Columns[0] == bare {
				covered = true
				break
			}
		}
		if !covered {
			findings = append(findings, DriftFinding{
				ElementName: col.Name,
				ElementType: ElementColumn,
				DriftType:   DriftMisaligned,
				Severity:    SeverityMinor,
				Confidence:  confidenceValue(ConfidenceMedium),
				Detail:      "foreign key column has no covering index",
			})
		}
	}
	return findings
}

// enumDriftFindings flags declared enum values never observed as literals in
// the corpus. Enums already reported unused are skipped: the unused finding
// covers them.
func enumDriftFindings(m *SchemaMap, usage *UsageReport, unused *UnusedReport) []DriftFinding {
	unusedKeys := make(map[string]bool, len(unused.Candidates))
	for i := range unused.Candidates {
		unusedKeys[unused.Candidates[i].Key()] = true
	}

	var enumNames []string
	for name := range m.Enums {
		enumNames = append(enumNames, name)
	}
	sort.Strings(enumNames)

	var findings []DriftFinding
	for _, name := range enumNames {
		enum := m.Enums[name]
		if unusedKeys[enum.Key()] {
			continue
		}
		var missing []string
		for _, v := range enum.Metadata.Values {
			if !usage.literals[v] {
				missing = append(missing, v)
			}
		}
		if len(missing) == 0 {
			continue
		}
		findings = append(findings, DriftFinding{
			ElementName: name,
			ElementType: ElementEnum,
			DriftType:   DriftModified,
			Severity:    SeverityMinor,
			Confidence:  confidenceValue(ConfidenceMedium),
			Detail:      fmt.Sprintf("enum values never referenced: %s", strings.Join(missing, ", ")),
		})
	}
	return findings
}

// severityForConfidence is the fixed confidence-to-severity mapping. Critical
// is never assigned here: it is reserved for structural contradictions.
func severityForConfidence(c Confidence) Severity {
	switch c {
	case ConfidenceHigh:
		return SeverityMajor
	case ConfidenceMedium:
		return SeverityMinor
	}
	return SeverityInfo
}

// indexUtilization is used ÷ total declared indexes; 0 when none are declared.
func indexUtilization(m *SchemaMap) float64 {
	if len(m.Indexes) == 0 {
		return 0
	}
	used := 0
	for _, idx := range m.Indexes {
		if len(idx.Usage) > 0 {
			used++
		}
	}
	return float64(used) / float64(len(m.Indexes))
}

// healthScore starts at 100, is penalized per finding severity plus continuous
// penalties for unused elements and redundant indexes, gains a bonus when
// index utilization exceeds 0.8, and is clamped to [0, 100].
func healthScore(report *DriftReport, unused *UnusedReport) int {
	score := 100.0
	score -= 20 * float64(report.Summary.Critical)
	score -= 10 * float64(report.Summary.Major)
	score -= 5 * float64(report.Summary.Minor)
	score -= 1 * float64(report.Summary.Info)
	score -= 0.5 * float64(len(unused.Candidates))
	score -= 1 * float64(len(report.RedundantIndexes))
	if report.IndexUtilization > 0.8 {
		score += 5
	}
	score = math.Max(0, math.Min(100, score))
	return int(math.Round(score))
}

// summarizeDrift fills the severity counts consumed by the rendering layer.
func summarizeDrift(report *DriftReport) DriftSummary {
	s := DriftSummary{
		Findings:         len(report.Findings),
		RedundantIndexes: len(report.RedundantIndexes),
	}
	for i := range report.Findings {
		switch report.Findings[i].Severity {
		case SeverityCritical:
			s.Critical++
		case SeverityMajor:
			s.Major++
		case SeverityMinor:
			s.Minor++
		case SeverityInfo:
			s.Info++
		}
	}
	return s
}
