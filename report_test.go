package main

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestBuildReport_FullPipeline(t *testing.T) {
	c := buildFixture(t,
		map[string]string{"schema.go": fixtureSchema},
		map[string]string{"app.go": fixtureSource},
	)
	r := runPipeline(t, c)

	if r.Root != "testroot" {
		t.Errorf("root: want testroot, got %q", r.Root)
	}
	if len(r.SchemaFiles) != 1 || r.SchemaFiles[0] != "schema.go" {
		t.Errorf("schema files: want [schema.go], got %v", r.SchemaFiles)
	}
	if r.Schema.Len() == 0 {
		t.Error("report carries no schema elements")
	}
	if r.Drift.SchemaHealth < 0 || r.Drift.SchemaHealth > 100 {
		t.Errorf("health out of range: %d", r.Drift.SchemaHealth)
	}
}

func TestWriteJSON_RoundTrip(t *testing.T) {
	c := buildFixture(t,
		map[string]string{"schema.go": fixtureSchema},
		map[string]string{"app.go": fixtureSource},
	)
	r := runPipeline(t, c)

	var buf bytes.Buffer
	if err := WriteJSON(&buf, r); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
		t.Error("output must end with a newline")
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	for _, key := range []string{"root", "schema", "usage", "unused", "drift", "performance"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing top-level key %q", key)
		}
	}
}

func TestValidateReport_CountMismatch(t *testing.T) {
	c := buildFixture(t,
		map[string]string{"schema.go": fixtureSchema},
		map[string]string{"app.go": fixtureSource},
	)
	r := runPipeline(t, c)

	r.Usage.Summary.Patterns++
	if err := validateReport(r); err == nil {
		t.Error("summary/detail mismatch must fail validation")
	}
	r.Usage.Summary.Patterns--

	r.Unused.Plan.Phase1 = append(r.Unused.Plan.Phase1, "column:ghost")
	if err := validateReport(r); err == nil {
		t.Error("phase/candidate mismatch must fail validation")
	}
}

func TestReport_WarningsCarried(t *testing.T) {
	prog := NewProgress(false)
	prog.Warn("parse %s: bad input", "broken.go")

	c := buildFixture(t, map[string]string{"schema.go": fixtureSchema}, nil)
	m := BuildSchemaMap(c, prog)
	usage, err := CorrelateUsage(m, c, prog)
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	unused := FindUnusedElements(m, usage, prog)
	drift := AnalyzeDrift(m, usage, unused, prog)
	perf := AssessPerformance(unused, drift, prog)
	r := BuildReport(c, m, usage, unused, drift, perf, prog)

	if len(r.Warnings) != 1 || r.Warnings[0] != "parse broken.go: bad input" {
		t.Errorf("warnings: want the recorded parse warning, got %v", r.Warnings)
	}
}

func TestElementKeys(t *testing.T) {
	key := ElementKey(ElementColumn, "orders.status")
	if key != "column:orders.status" {
		t.Errorf("key: got %q", key)
	}
	typ, name := SplitElementKey(key)
	if typ != ElementColumn || name != "orders.status" {
		t.Errorf("split: got %s %q", typ, name)
	}
	if _, name := SplitElementKey("bare"); name != "bare" {
		t.Errorf("split without separator: got %q", name)
	}
	if got := ColumnKey("orders", "status"); got != "orders.status" {
		t.Errorf("column key: got %q", got)
	}
}

func TestBestConfidence(t *testing.T) {
	e := &SchemaElement{}
	if got := e.BestConfidence(); got != "" {
		t.Errorf("no usage: want empty, got %q", got)
	}
	e.Usage = []UsageInfo{
		{Confidence: ConfidenceLow},
		{Confidence: ConfidenceHigh},
		{Confidence: ConfidenceMedium},
	}
	if got := e.BestConfidence(); got != ConfidenceHigh {
		t.Errorf("want high, got %s", got)
	}
}
