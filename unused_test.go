package main

import (
	"testing"
)

// pipelineUnused runs schema extraction and usage correlation over a fixture
// and returns the unused report plus the schema map.
func pipelineUnused(t *testing.T, schema, sources map[string]string) (*SchemaMap, *UnusedReport) {
	t.Helper()
	c := buildFixture(t, schema, sources)
	prog := NewProgress(false)
	m := BuildSchemaMap(c, prog)
	usage, err := CorrelateUsage(m, c, prog)
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	return m, FindUnusedElements(m, usage, prog)
}

func candidateByKey(r *UnusedReport, key string) *UnusedElementCandidate {
	for i := range r.Candidates {
		if r.Candidates[i].Key() == key {
			return &r.Candidates[i]
		}
	}
	return nil
}

func TestFindUnused_DeadOrdersFamily(t *testing.T) {
	_, r := pipelineUnused(t,
		map[string]string{"schema.go": fixtureSchema},
		map[string]string{"app.go": fixtureSource},
	)

	// Used elements never become candidates.
	for _, key := range []string{"table:users", "column:users.email"} {
		if candidateByKey(r, key) != nil {
			t.Errorf("%s is used and must not be a candidate", key)
		}
	}

	table := candidateByKey(r, "table:orders")
	if table == nil {
		t.Fatal("table:orders missing from candidates")
	}
	if table.Confidence != ConfidenceHigh || table.RecommendedAction != ActionRemove {
		t.Errorf("orders: want high/remove, got %s/%s", table.Confidence, table.RecommendedAction)
	}
	if table.MigrationComplexity != ComplexitySimple {
		t.Errorf("orders complexity: want simple, got %s", table.MigrationComplexity)
	}

	status := candidateByKey(r, "column:orders.status")
	if status == nil {
		t.Fatal("column:orders.status missing from candidates")
	}
	if status.Confidence != ConfidenceHigh {
		t.Errorf("orders.status: nullable column with no dependents wants high, got %s", status.Confidence)
	}
	if status.MigrationComplexity != ComplexitySimple || status.PotentialImpact != ImpactLow {
		t.Errorf("orders.status: want simple/low, got %s/%s",
			status.MigrationComplexity, status.PotentialImpact)
	}

	idx := candidateByKey(r, "index:idx_status")
	if idx == nil {
		t.Fatal("index:idx_status missing from candidates")
	}
	if idx.Confidence != ConfidenceHigh || idx.RecommendedAction != ActionRemove || idx.Priority != PriorityHigh {
		t.Errorf("idx_status: want high/remove/high, got %s/%s/%s",
			idx.Confidence, idx.RecommendedAction, idx.Priority)
	}

	pk := candidateByKey(r, "column:orders.id")
	if pk == nil {
		t.Fatal("column:orders.id missing from candidates")
	}
	if pk.Confidence != ConfidenceLow || pk.RecommendedAction != ActionInvestigate {
		t.Errorf("orders.id: primary key wants low/investigate, got %s/%s",
			pk.Confidence, pk.RecommendedAction)
	}
	if pk.MigrationComplexity != ComplexityComplex || pk.PotentialImpact != ImpactHigh {
		t.Errorf("orders.id: want complex/high, got %s/%s",
			pk.MigrationComplexity, pk.PotentialImpact)
	}
}

func TestFindUnused_EnumWithDependentsKept(t *testing.T) {
	_, r := pipelineUnused(t,
		map[string]string{"schema.go": fixtureSchema},
		map[string]string{"app.go": fixtureSource},
	)
	enum := candidateByKey(r, "enum:roleenum")
	if enum == nil {
		t.Fatal("enum:roleenum missing from candidates")
	}
	// users.role is typed by the enum, so removal would cascade.
	if enum.Confidence != ConfidenceLow || enum.RecommendedAction != ActionKeep {
		t.Errorf("roleenum: want low/keep, got %s/%s", enum.Confidence, enum.RecommendedAction)
	}
}

func TestFindUnused_AuxiliaryReferencesSoftenConfidence(t *testing.T) {
	c := buildFixture(t,
		map[string]string{"schema.go": fixtureSchema},
		map[string]string{
			"app.go":                fixtureSource,
			"migrations/000_init.go": `package migrations

func up(db *DB) { db.From(orders) }
`,
		},
	)
	prog := NewProgress(false)
	m := BuildSchemaMap(c, prog)
	usage, err := CorrelateUsage(m, c, prog)
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	r := FindUnusedElements(m, usage, prog)

	table := candidateByKey(r, "table:orders")
	if table == nil {
		t.Fatal("migration-only reference must still leave orders unused")
	}
	if table.Confidence != ConfidenceMedium {
		t.Errorf("orders with migration reference: want medium, got %s", table.Confidence)
	}
	if table.RecommendedAction == ActionRemove {
		t.Error("softened candidate must not be an unconditional removal")
	}
}

func TestFindUnused_TestOnlyReferenceSoftensConfidence(t *testing.T) {
	c := buildFixture(t,
		map[string]string{"schema.go": fixtureSchema},
		map[string]string{
			"app.go": fixtureSource,
			"orders_test.go": `package app

func checkOrders(db *DB) { db.From(orders) }
`,
		},
	)
	prog := NewProgress(false)
	m := BuildSchemaMap(c, prog)
	usage, err := CorrelateUsage(m, c, prog)
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	r := FindUnusedElements(m, usage, prog)

	table := candidateByKey(r, "table:orders")
	if table == nil {
		t.Fatal("test-only reference must still leave orders unused")
	}
	if table.Confidence != ConfidenceMedium {
		t.Errorf("orders with test reference: want medium, got %s", table.Confidence)
	}
	if table.RecommendedAction == ActionRemove {
		t.Error("softened candidate must not be an unconditional removal")
	}
}

func TestFindUnused_FKTargetColumnGainsDependent(t *testing.T) {
	schema := `package schema

var Teams = Table("teams", Columns{
	"id": Serial(),
})

var Users = Table("users", Columns{
	"team_id": Integer().References("teams.id"),
})
`
	_, r := pipelineUnused(t, map[string]string{"schema.go": schema}, nil)

	target := candidateByKey(r, "column:teams.id")
	if target == nil {
		t.Fatal("column:teams.id missing from candidates")
	}
	if target.Confidence != ConfidenceLow || target.RecommendedAction != ActionKeep {
		t.Errorf("FK target column: want low/keep, got %s/%s",
			target.Confidence, target.RecommendedAction)
	}

	fk := candidateByKey(r, "column:users.team_id")
	if fk == nil {
		t.Fatal("column:users.team_id missing from candidates")
	}
	if fk.Confidence != ConfidenceLow {
		t.Errorf("FK column: want low, got %s", fk.Confidence)
	}
}

func TestFindUnused_MigrationPlanPartition(t *testing.T) {
	_, r := pipelineUnused(t,
		map[string]string{"schema.go": fixtureSchema},
		map[string]string{"app.go": fixtureSource},
	)

	total := len(r.Plan.Phase1) + len(r.Plan.Phase2) + len(r.Plan.Phase3)
	if total != len(r.Candidates) {
		t.Fatalf("phase union %d != candidate count %d", total, len(r.Candidates))
	}
	seen := make(map[string]bool)
	for _, phase := range [][]string{r.Plan.Phase1, r.Plan.Phase2, r.Plan.Phase3} {
		for _, key := range phase {
			if seen[key] {
				t.Errorf("key %s appears in more than one phase", key)
			}
			seen[key] = true
		}
	}

	inPhase := func(keys []string, key string) bool {
		for _, k := range keys {
			if k == key {
				return true
			}
		}
		return false
	}
	if !inPhase(r.Plan.Phase1, "index:idx_status") {
		t.Error("simple index removal belongs in phase 1")
	}
	if !inPhase(r.Plan.Phase1, "column:orders.status") {
		t.Error("nullable column removal belongs in phase 1")
	}
	if !inPhase(r.Plan.Phase3, "column:orders.id") {
		t.Error("primary key removal belongs in phase 3")
	}
}

func TestFindUnused_SummaryCounts(t *testing.T) {
	_, r := pipelineUnused(t,
		map[string]string{"schema.go": fixtureSchema},
		map[string]string{"app.go": fixtureSource},
	)
	s := r.Summary
	if s.Candidates != len(r.Candidates) {
		t.Errorf("summary candidates %d != %d", s.Candidates, len(r.Candidates))
	}
	if got := s.UnusedTables + s.UnusedColumns + s.UnusedIndexes + s.UnusedEnums; got != s.Candidates {
		t.Errorf("per-type counts sum %d != candidates %d", got, s.Candidates)
	}
	if s.UnusedTables != 1 || s.UnusedIndexes != 1 || s.UnusedEnums != 1 {
		t.Errorf("want 1 table / 1 index / 1 enum, got %d/%d/%d",
			s.UnusedTables, s.UnusedIndexes, s.UnusedEnums)
	}
}
