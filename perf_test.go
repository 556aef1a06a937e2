package main

import (
	"math"
	"testing"
)

func pipelinePerf(t *testing.T, schema, sources map[string]string) *PerformanceReport {
	t.Helper()
	c := buildFixture(t, schema, sources)
	prog := NewProgress(false)
	m := BuildSchemaMap(c, prog)
	usage, err := CorrelateUsage(m, c, prog)
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	unused := FindUnusedElements(m, usage, prog)
	drift := AnalyzeDrift(m, usage, unused, prog)
	return AssessPerformance(unused, drift, prog)
}

func opportunityFor(r *PerformanceReport, opType, name string) *OptimizationOpportunity {
	for i := range r.Opportunities {
		if r.Opportunities[i].Type == opType && r.Opportunities[i].ElementName == name {
			return &r.Opportunities[i]
		}
	}
	return nil
}

func TestAssessPerformance_OpportunityTypes(t *testing.T) {
	r := pipelinePerf(t,
		map[string]string{"schema.go": fixtureSchema},
		map[string]string{"app.go": fixtureSource},
	)

	idx := opportunityFor(r, "drop_unused_index", "idx_status")
	if idx == nil {
		t.Fatal("missing drop_unused_index opportunity")
	}
	if !idx.Reversible || idx.Risk != ImpactLow || idx.Effort != ImpactLow {
		t.Errorf("index drop: want reversible low/low, got %+v", idx)
	}

	table := opportunityFor(r, "drop_unused_table", "orders")
	if table == nil {
		t.Fatal("missing drop_unused_table opportunity")
	}
	if table.Reversible {
		t.Error("table drop must not be marked reversible")
	}
	if table.StorageImpact != ImpactHigh {
		t.Errorf("table drop storage impact: want high, got %s", table.StorageImpact)
	}

	col := opportunityFor(r, "drop_unused_column", "orders.status")
	if col == nil {
		t.Fatal("missing drop_unused_column opportunity")
	}
	if col.Risk != ImpactLow {
		t.Errorf("high-confidence column drop risk: want low, got %s", col.Risk)
	}

	// Kept candidates (the enum has dependents) produce no opportunity.
	if op := opportunityFor(r, "remove_unused_enum", "roleenum"); op != nil {
		t.Errorf("keep-recommended enum must not become an opportunity: %+v", op)
	}
}

func TestAssessPerformance_CoveringIndexFromDrift(t *testing.T) {
	r := pipelinePerf(t, map[string]string{"schema.go": `package schema

var Teams = Table("teams", Columns{
	"id": Serial().PrimaryKey(),
})

var Users = Table("users", Columns{
	"team_id": Integer().References("teams.id"),
})
`}, nil)
	op := opportunityFor(r, "add_covering_index", "users.team_id")
	if op == nil {
		t.Fatal("uncovered foreign key should yield an add_covering_index opportunity")
	}
	if op.SpeedImpact != ImpactHigh || op.Effort != ImpactLow {
		t.Errorf("covering index: want high speed / low effort, got %+v", op)
	}
}

func TestAssessPerformance_RedundantIndexOpportunity(t *testing.T) {
	r := pipelinePerf(t, map[string]string{"schema.go": `package schema

var A = Index("idx_narrow", "orders", "status")
var B = Index("idx_wide", "orders", "status", "created")
`}, nil)
	if op := opportunityFor(r, "drop_redundant_index", "idx_narrow"); op == nil {
		t.Error("redundant index should yield a drop_redundant_index opportunity")
	}
}

func TestAssessPerformance_ScoreAndRanking(t *testing.T) {
	r := pipelinePerf(t,
		map[string]string{"schema.go": fixtureSchema},
		map[string]string{"app.go": fixtureSource},
	)
	if len(r.Opportunities) < 2 {
		t.Fatalf("want multiple opportunities, got %d", len(r.Opportunities))
	}
	for i := range r.Opportunities {
		op := &r.Opportunities[i]
		want := op.impactSum() / op.Effort.points()
		if op.Score != want {
			t.Errorf("%s %s: score %v != impact/effort %v", op.Type, op.ElementName, op.Score, want)
		}
		if i > 0 && r.Opportunities[i-1].Score < op.Score {
			t.Errorf("opportunities not sorted by score at %d", i)
		}
	}
}

func TestAssessPerformance_ActionPlanBuckets(t *testing.T) {
	r := pipelinePerf(t,
		map[string]string{"schema.go": fixtureSchema},
		map[string]string{"app.go": fixtureSource},
	)
	total := len(r.Plan.QuickWins) + len(r.Plan.MediumTerm) + len(r.Plan.LongTerm)
	if total != len(r.Opportunities) {
		t.Fatalf("plan buckets hold %d, want %d", total, len(r.Opportunities))
	}

	contains := func(keys []string, key string) bool {
		for _, k := range keys {
			if k == key {
				return true
			}
		}
		return false
	}
	if !contains(r.Plan.QuickWins, "drop_unused_index:idx_status") {
		t.Error("low-effort low-risk index drop belongs in quick wins")
	}
	if !contains(r.Plan.MediumTerm, "drop_unused_table:orders") {
		t.Error("medium-effort table drop belongs in medium term")
	}
}

func TestAssessPerformance_Projections(t *testing.T) {
	r := pipelinePerf(t,
		map[string]string{"schema.go": fixtureSchema},
		map[string]string{"app.go": fixtureSource},
	)
	if len(r.Projections) != 3 {
		t.Fatalf("want 3 projections, got %d", len(r.Projections))
	}
	labels := []string{"optimistic", "realistic", "pessimistic"}
	fractions := []float64{1.0, 0.7, 0.3}
	total := totalImpact(r.Opportunities)
	for i, p := range r.Projections {
		if p.Label != labels[i] || p.Fraction != fractions[i] {
			t.Errorf("projection %d: want %s/%v, got %s/%v", i, labels[i], fractions[i], p.Label, p.Fraction)
		}
		wantImpact := math.Round(total*fractions[i]*100) / 100
		if p.ProjectedImpact != wantImpact {
			t.Errorf("projection %s impact: want %v, got %v", p.Label, wantImpact, p.ProjectedImpact)
		}
		if p.OpportunitiesRealized > len(r.Opportunities) {
			t.Errorf("projection %s realizes more opportunities than exist", p.Label)
		}
	}
	if r.Projections[0].OpportunitiesRealized != len(r.Opportunities) {
		t.Error("optimistic projection should realize every opportunity")
	}
}

func TestAssessPerformance_EmptyInputs(t *testing.T) {
	prog := NewProgress(false)
	r := AssessPerformance(
		&UnusedReport{Candidates: []UnusedElementCandidate{}},
		&DriftReport{Findings: []DriftFinding{}},
		prog,
	)
	if len(r.Opportunities) != 0 {
		t.Errorf("want no opportunities, got %d", len(r.Opportunities))
	}
	if r.Summary.TotalImpact != 0 {
		t.Errorf("want zero total impact, got %v", r.Summary.TotalImpact)
	}
	if len(r.Projections) != 3 {
		t.Errorf("projections emitted even when empty: want 3, got %d", len(r.Projections))
	}
}
