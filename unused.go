package main

import (
	"fmt"
	"sort"
)

// typeOrder fixes the iteration order of element types for deterministic output.
var typeOrder = map[ElementType]int{
	ElementTable:  0,
	ElementColumn: 1,
	ElementIndex:  2,
	ElementEnum:   3,
}

// FindUnusedElements cross-references the schema map against the usage report
// and produces one removal candidate per element with zero live usage.
// Auxiliary references (migrations, tests) do not count as live usage but do
// soften the removal confidence.
func FindUnusedElements(m *SchemaMap, usage *UsageReport, prog *Progress) *UnusedReport {
	prog.Log("Analyzing unused elements...")

	deps := buildDependentCounts(m)

	var elements []*SchemaElement
	for _, bucket := range []map[string]*SchemaElement{m.Tables, m.Columns, m.Indexes, m.Enums} {
		for _, e := range bucket {
			elements = append(elements, e)
		}
	}
	sort.Slice(elements, func(i, j int) bool {
		if typeOrder[elements[i].Type] != typeOrder[elements[j].Type] {
			return typeOrder[elements[i].Type] < typeOrder[elements[j].Type]
		}
		return elements[i].Name < elements[j].Name
	})

	report := &UnusedReport{Candidates: []UnusedElementCandidate{}}
	for _, e := range elements {
		live, aux := splitUsage(e)
		if live > 0 {
			continue
		}
		report.Candidates = append(report.Candidates, buildCandidate(e, deps[e.Key()], aux))
	}

	report.Plan = buildMigrationPlan(report.Candidates)
	report.Summary = summarizeUnused(report.Candidates)

	prog.Log("Found %d unused candidates (%d safe to remove)",
		report.Summary.Candidates, report.Summary.RemoveActions)
	return report
}

// splitUsage counts an element's live vs auxiliary usage sites.
func splitUsage(e *SchemaElement) (live, aux int) {
	for _, u := range e.Usage {
		if isAuxiliaryFile(u.File) {
			aux++
		} else {
			live++
		}
	}
	return live, aux
}

// buildDependentCounts counts, per element key, how many other elements depend
// on it: tables referenced by foreign keys, enums backing column types, and
// columns covered by indexes.
func buildDependentCounts(m *SchemaMap) map[string]int {
	deps := make(map[string]int)
	for _, t := range m.Tables {
		for _, ref := range t.Dependencies {
			if target, ok := m.Tables[ref]; ok && target != t {
				deps[target.Key()]++
			}
		}
	}
	for _, c := range m.Columns {
		if enum, ok := m.Enums[c.Metadata.DataType]; ok {
			deps[enum.Key()]++
		}
		// A foreign key targeting table.column makes that column a dependent
		// target. Indexes never count: index removal does not cascade.
		for _, ref := range c.Dependencies {
			if target, ok := m.Columns[ref]; ok && target != c {
				deps[target.Key()]++
			}
		}
	}
	return deps
}

// buildCandidate derives the removal recommendation for one unused element.
// Confidence combines independent signals with a most-restrictive-wins rule;
// indexes are low-risk by policy and never cascade to dependents.
func buildCandidate(e *SchemaElement, dependents, auxRefs int) UnusedElementCandidate {
	meta := e.Metadata
	var reasons []string
	reasons = append(reasons, "no usage sites found in source corpus")

	var conf Confidence
	switch {
	case e.Type == ElementIndex:
		conf = ConfidenceHigh
		reasons = append(reasons, "index removal never cascades to dependents")
	case meta.IsPrimaryKey:
		conf = ConfidenceLow
		reasons = append(reasons, "primary key role")
	case meta.IsForeignKey:
		conf = ConfidenceLow
		reasons = append(reasons, "foreign key dependency")
	case dependents > 0:
		conf = ConfidenceLow
		reasons = append(reasons, fmt.Sprintf("%d dependent element(s)", dependents))
	case meta.Nullable && e.Type == ElementColumn:
		conf = ConfidenceHigh
		reasons = append(reasons, "nullable column with no dependents")
	case dependents == 0:
		conf = ConfidenceHigh
		reasons = append(reasons, "no dependent elements")
	default:
		conf = ConfidenceMedium
	}
	if auxRefs > 0 && conf == ConfidenceHigh && e.Type != ElementIndex {
		conf = ConfidenceMedium
		reasons = append(reasons, fmt.Sprintf("%d reference(s) in migration or test files", auxRefs))
	}

	action := ActionInvestigate
	switch {
	case e.Type != ElementIndex && dependents > 0:
		action = ActionKeep
	case conf == ConfidenceHigh:
		action = ActionRemove
	}

	complexity := migrationComplexity(e, dependents)
	impact := potentialImpact(e, dependents)

	priority := PriorityMedium
	switch {
	case e.Type == ElementIndex:
		priority = PriorityHigh
	case conf == ConfidenceHigh && impact != ImpactHigh:
		priority = PriorityHigh
	case conf == ConfidenceLow:
		priority = PriorityLow
	}

	return UnusedElementCandidate{
		ElementName:         e.Name,
		ElementType:         e.Type,
		Confidence:          conf,
		Reasons:             reasons,
		RecommendedAction:   action,
		Priority:            priority,
		MigrationComplexity: complexity,
		PotentialImpact:     impact,
		RollbackPlan:        rollbackPlan(e.Type),
	}
}

// migrationComplexity buckets how hard the element is to remove safely.
func migrationComplexity(e *SchemaElement, dependents int) Complexity {
	switch e.Type {
	case ElementIndex:
		return ComplexitySimple
	case ElementColumn:
		switch {
		case e.Metadata.IsPrimaryKey:
			return ComplexityComplex
		case e.Metadata.Nullable && !e.Metadata.IsForeignKey:
			return ComplexitySimple
		}
		return ComplexityMedium
	case ElementTable:
		total := len(e.Dependencies) + dependents
		switch {
		case total == 0:
			return ComplexitySimple
		case total <= 2:
			return ComplexityMedium
		}
		return ComplexityComplex
	case ElementEnum:
		if dependents == 0 {
			return ComplexitySimple
		}
		return ComplexityMedium
	}
	return ComplexityMedium
}

// potentialImpact estimates blast radius if the removal goes wrong.
func potentialImpact(e *SchemaElement, dependents int) Impact {
	switch {
	case e.Metadata.IsPrimaryKey, dependents > 0:
		return ImpactHigh
	case e.Metadata.IsForeignKey, e.Type == ElementTable:
		return ImpactMedium
	}
	return ImpactLow
}

// rollbackPlan is the fixed per-type recovery recipe attached to candidates.
func rollbackPlan(t ElementType) string {
	switch t {
	case ElementIndex:
		return "recreate the index from its recorded definition"
	case ElementColumn:
		return "re-add the column from the recorded definition and backfill from backup"
	case ElementTable:
		return "restore the table from a pre-removal backup snapshot"
	case ElementEnum:
		return "recreate the enum type with its recorded value list"
	}
	return ""
}

// buildMigrationPlan assigns each candidate to exactly one of three fixed
// phases, evaluated in order: simple removals first, then medium-complexity
// removals excluding low confidence, then everything remaining. The phases
// are pairwise disjoint and their union is the full candidate set.
func buildMigrationPlan(candidates []UnusedElementCandidate) MigrationPlan {
	plan := MigrationPlan{Phase1: []string{}, Phase2: []string{}, Phase3: []string{}}
	for i := range candidates {
		c := &candidates[i]
		switch {
		case c.MigrationComplexity == ComplexitySimple:
			plan.Phase1 = append(plan.Phase1, c.Key())
		case c.MigrationComplexity == ComplexityMedium && c.Confidence != ConfidenceLow:
			plan.Phase2 = append(plan.Phase2, c.Key())
		default:
			plan.Phase3 = append(plan.Phase3, c.Key())
		}
	}
	return plan
}

// summarizeUnused fills the summary counts the rendering layer consumes.
func summarizeUnused(candidates []UnusedElementCandidate) UnusedSummary {
	s := UnusedSummary{Candidates: len(candidates)}
	for i := range candidates {
		c := &candidates[i]
		switch c.RecommendedAction {
		case ActionRemove:
			s.RemoveActions++
		case ActionKeep:
			s.KeepActions++
		}
		switch c.ElementType {
		case ElementTable:
			s.UnusedTables++
		case ElementColumn:
			s.UnusedColumns++
		case ElementIndex:
			s.UnusedIndexes++
		case ElementEnum:
			s.UnusedEnums++
		}
		if c.Confidence == ConfidenceHigh {
			s.HighConfidence++
		}
	}
	return s
}
