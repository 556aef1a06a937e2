package main

import (
	"fmt"
	"math"
	"sort"
)

// AssessPerformance converts drift and usage signals into ranked optimization
// opportunities with staged projections. Ranking divides combined impact by
// effort so low-effort, high-impact items surface first regardless of absolute
// magnitude.
func AssessPerformance(unused *UnusedReport, drift *DriftReport, prog *Progress) *PerformanceReport {
	prog.Log("Assessing optimization opportunities...")

	report := &PerformanceReport{Opportunities: []OptimizationOpportunity{}}

	for i := range unused.Candidates {
		c := &unused.Candidates[i]
		if op, ok := opportunityForCandidate(c); ok {
			report.Opportunities = append(report.Opportunities, op)
		}
	}
	for _, name := range drift.RedundantIndexes {
		report.Opportunities = append(report.Opportunities, OptimizationOpportunity{
			Type:              "drop_redundant_index",
			ElementName:       name,
			ElementType:       ElementIndex,
			Description:       fmt.Sprintf("drop index %s: covered by another index on the same table", name),
			StorageImpact:     ImpactMedium,
			SpeedImpact:       ImpactLow,
			MaintenanceImpact: ImpactMedium,
			Effort:            ImpactLow,
			Risk:              ImpactLow,
			Reversible:        true,
		})
	}
	for i := range drift.Findings {
		f := &drift.Findings[i]
		if f.DriftType != DriftMisaligned || f.ElementType != ElementColumn || f.Severity != SeverityMinor {
			continue
		}
		report.Opportunities = append(report.Opportunities, OptimizationOpportunity{
			Type:              "add_covering_index",
			ElementName:       f.ElementName,
			ElementType:       ElementColumn,
			Description:       fmt.Sprintf("add an index covering foreign key column %s", f.ElementName),
			StorageImpact:     ImpactLow,
			SpeedImpact:       ImpactHigh,
			MaintenanceImpact: ImpactLow,
			Effort:            ImpactLow,
			Risk:              ImpactLow,
			Reversible:        true,
		})
	}

	for i := range report.Opportunities {
		op := &report.Opportunities[i]
		op.Score = op.impactSum() / op.Effort.points()
	}
	sort.SliceStable(report.Opportunities, func(i, j int) bool {
		a, b := &report.Opportunities[i], &report.Opportunities[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.ElementName < b.ElementName
	})

	report.Plan = buildActionPlan(report.Opportunities)
	report.Projections = buildProjections(report.Opportunities)
	report.Summary = PerformanceSummary{
		Opportunities: len(report.Opportunities),
		QuickWins:     len(report.Plan.QuickWins),
		TotalImpact:   totalImpact(report.Opportunities),
	}

	prog.Log("Ranked %d opportunities (%d quick wins)",
		report.Summary.Opportunities, report.Summary.QuickWins)
	return report
}

// opportunityForCandidate maps an unused-element candidate to an optimization
// opportunity. Candidates recommended for keeping produce none.
func opportunityForCandidate(c *UnusedElementCandidate) (OptimizationOpportunity, bool) {
	if c.RecommendedAction == ActionKeep {
		return OptimizationOpportunity{}, false
	}
	op := OptimizationOpportunity{
		ElementName: c.ElementName,
		ElementType: c.ElementType,
	}
	switch c.ElementType {
	case ElementIndex:
		op.Type = "drop_unused_index"
		op.Description = fmt.Sprintf("drop unused index %s", c.ElementName)
		op.StorageImpact = ImpactMedium
		op.SpeedImpact = ImpactMedium // removes write amplification
		op.MaintenanceImpact = ImpactLow
		op.Effort = ImpactLow
		op.Risk = ImpactLow
		op.Reversible = true
	case ElementColumn:
		op.Type = "drop_unused_column"
		op.Description = fmt.Sprintf("drop unused column %s", c.ElementName)
		op.StorageImpact = ImpactMedium
		op.SpeedImpact = ImpactLow
		op.MaintenanceImpact = ImpactMedium
		op.Effort = ImpactMedium
		op.Risk = riskForConfidence(c.Confidence)
		op.Reversible = false
	case ElementTable:
		op.Type = "drop_unused_table"
		op.Description = fmt.Sprintf("drop unused table %s", c.ElementName)
		op.StorageImpact = ImpactHigh
		op.SpeedImpact = ImpactLow
		op.MaintenanceImpact = ImpactHigh
		op.Effort = ImpactMedium
		op.Risk = riskForConfidence(c.Confidence)
		op.Reversible = false
	case ElementEnum:
		op.Type = "remove_unused_enum"
		op.Description = fmt.Sprintf("remove unused enum %s", c.ElementName)
		op.StorageImpact = ImpactLow
		op.SpeedImpact = ImpactLow
		op.MaintenanceImpact = ImpactMedium
		op.Effort = ImpactLow
		op.Risk = ImpactLow
		op.Reversible = true
	default:
		return OptimizationOpportunity{}, false
	}
	return op, true
}

// riskForConfidence inverts removal confidence into risk.
func riskForConfidence(c Confidence) Impact {
	switch c {
	case ConfidenceHigh:
		return ImpactLow
	case ConfidenceMedium:
		return ImpactMedium
	}
	return ImpactHigh
}

// buildActionPlan buckets opportunities; an opportunity may match several
// predicates but lands only in the first matching bucket, evaluated in order.
func buildActionPlan(ops []OptimizationOpportunity) ActionPlan {
	plan := ActionPlan{QuickWins: []string{}, MediumTerm: []string{}, LongTerm: []string{}}
	for i := range ops {
		op := &ops[i]
		key := op.Type + ":" + op.ElementName
		switch {
		case op.Effort == ImpactLow && op.Risk == ImpactLow:
			plan.QuickWins = append(plan.QuickWins, key)
		case op.Effort == ImpactMedium || op.Risk == ImpactMedium:
			plan.MediumTerm = append(plan.MediumTerm, key)
		default:
			plan.LongTerm = append(plan.LongTerm, key)
		}
	}
	return plan
}

// buildProjections emits the three fixed-horizon outcome estimates.
func buildProjections(ops []OptimizationOpportunity) []Projection {
	total := totalImpact(ops)
	fractions := []struct {
		label    string
		fraction float64
	}{
		{"optimistic", 1.0},
		{"realistic", 0.7},
		{"pessimistic", 0.3},
	}
	projections := make([]Projection, 0, len(fractions))
	for _, f := range fractions {
		projections = append(projections, Projection{
			Label:                 f.label,
			Fraction:              f.fraction,
			OpportunitiesRealized: int(math.Round(float64(len(ops)) * f.fraction)),
			ProjectedImpact:       math.Round(total*f.fraction*100) / 100,
		})
	}
	return projections
}

// totalImpact sums combined impact weights across all opportunities.
func totalImpact(ops []OptimizationOpportunity) float64 {
	total := 0.0
	for i := range ops {
		total += ops[i].impactSum()
	}
	return total
}
