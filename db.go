package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// WriteDB writes the full report to a SQLite database file, replacing any
// existing file at path. When validate is set, count invariants are re-checked
// against the stored rows after the write.
func WriteDB(path string, r *Report, validate bool, prog *Progress) error {
	prog.Log("Writing SQLite to %s ...", path)

	_ = os.Remove(path) // ignore if doesn't exist

	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate, sqlite.OpenReadWrite, sqlite.OpenWAL)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// Performance pragmas
	for _, pragma := range []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA cache_size = -64000",
		"PRAGMA journal_mode = WAL",
	} {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return err
		}
	}

	if err := createTables(conn); err != nil {
		return err
	}

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := insertElements(conn, r.Schema); err != nil {
		endFn(&err)
		return err
	}
	if err := insertUsage(conn, r.Usage); err != nil {
		endFn(&err)
		return err
	}
	if err := insertUnused(conn, r.Unused); err != nil {
		endFn(&err)
		return err
	}
	if err := insertDrift(conn, r.Drift); err != nil {
		endFn(&err)
		return err
	}
	if err := insertOpportunities(conn, r.Performance); err != nil {
		endFn(&err)
		return err
	}
	if err := insertSummaryStats(conn, r); err != nil {
		endFn(&err)
		return err
	}

	endFn(&err)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	// Create indexes after all inserts
	if err := createIndexes(conn); err != nil {
		return err
	}

	if validate {
		if err := validateDB(conn, r, prog); err != nil {
			return err
		}
	}

	prog.Log("Wrote %d elements, %d usage sites, %d findings",
		r.Schema.Len(), len(r.Usage.Patterns), len(r.Drift.Findings))
	return nil
}

func createTables(conn *sqlite.Conn) error {
	stmts := []string{
		`CREATE TABLE schema_elements (
			key TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			file TEXT,
			line INTEGER,
			data_type TEXT,
			nullable INTEGER,
			has_default INTEGER,
			is_primary_key INTEGER,
			is_foreign_key INTEGER,
			owner_table TEXT,
			is_unique INTEGER,
			dependencies TEXT,
			enum_values TEXT,
			usage_count INTEGER,
			definition TEXT
		)`,
		`CREATE TABLE usage_patterns (
			element TEXT NOT NULL,
			element_type TEXT NOT NULL,
			file TEXT,
			line INTEGER,
			col INTEGER,
			kind TEXT,
			confidence TEXT,
			complexity TEXT,
			dynamic INTEGER,
			context TEXT
		)`,
		`CREATE TABLE query_analyses (
			file TEXT,
			line INTEGER,
			kind TEXT,
			tables_ref TEXT,
			columns_ref TEXT,
			dynamic INTEGER,
			snippet TEXT
		)`,
		`CREATE TABLE unused_candidates (
			key TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			confidence TEXT,
			action TEXT,
			priority TEXT,
			complexity TEXT,
			impact TEXT,
			reasons TEXT,
			rollback_plan TEXT,
			phase INTEGER
		)`,
		`CREATE TABLE drift_findings (
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			drift_type TEXT,
			severity TEXT,
			confidence REAL,
			detail TEXT
		)`,
		`CREATE TABLE opportunities (
			type TEXT NOT NULL,
			name TEXT NOT NULL,
			element_type TEXT,
			description TEXT,
			storage_impact TEXT,
			speed_impact TEXT,
			maintenance_impact TEXT,
			effort TEXT,
			risk TEXT,
			reversible INTEGER,
			score REAL
		)`,
		`CREATE TABLE summary_stats (
			stat TEXT PRIMARY KEY,
			value REAL
		)`,
	}
	for _, stmt := range stmts {
		if err := sqlitex.ExecuteTransient(conn, stmt, nil); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

func createIndexes(conn *sqlite.Conn) error {
	stmts := []string{
		`CREATE INDEX idx_elements_type ON schema_elements(type)`,
		`CREATE INDEX idx_usage_element ON usage_patterns(element)`,
		`CREATE INDEX idx_usage_file ON usage_patterns(file, line)`,
		`CREATE INDEX idx_findings_severity ON drift_findings(severity)`,
	}
	for _, stmt := range stmts {
		if err := sqlitex.ExecuteTransient(conn, stmt, nil); err != nil {
			return fmt.Errorf("create indexes: %w", err)
		}
	}
	return nil
}

func insertElements(conn *sqlite.Conn, m *SchemaMap) error {
	stmt := `INSERT INTO schema_elements
		(key, name, type, file, line, data_type, nullable, has_default,
		 is_primary_key, is_foreign_key, owner_table, is_unique, dependencies,
		 enum_values, usage_count, definition)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	// Row order must be as deterministic as the JSON output: type then name.
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
	for _, e := range elements {
		err := sqlitex.Execute(conn, stmt, &sqlitex.ExecOptions{
			Args: []any{
				e.Key(), e.Name, string(e.Type), e.File, e.Line,
				e.Metadata.DataType, boolInt(e.Metadata.Nullable), boolInt(e.Metadata.HasDefault),
				boolInt(e.Metadata.IsPrimaryKey), boolInt(e.Metadata.IsForeignKey),
				e.Metadata.Table, boolInt(e.Metadata.Unique),
				strings.Join(e.Dependencies, ","), strings.Join(e.Metadata.Values, ","),
				len(e.Usage), e.DefinitionText,
			},
		})
		if err != nil {
			return fmt.Errorf("insert element %s: %w", e.Key(), err)
		}
	}
	return nil
}

func insertUsage(conn *sqlite.Conn, usage *UsageReport) error {
	for i := range usage.Patterns {
		p := &usage.Patterns[i]
		err := sqlitex.Execute(conn,
			`INSERT INTO usage_patterns (element, element_type, file, line, col, kind, confidence, complexity, dynamic, context)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{
				p.Element, string(p.ElementType), p.File, p.Line, p.Col,
				string(p.Kind), string(p.Confidence), string(p.Complexity),
				boolInt(p.Dynamic), p.Context,
			}})
		if err != nil {
			return fmt.Errorf("insert usage pattern: %w", err)
		}
	}
	for i := range usage.Queries {
		q := &usage.Queries[i]
		err := sqlitex.Execute(conn,
			`INSERT INTO query_analyses (file, line, kind, tables_ref, columns_ref, dynamic, snippet)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{
				q.File, q.Line, q.Kind, strings.Join(q.Tables, ","),
				strings.Join(q.Columns, ","), boolInt(q.Dynamic), q.Snippet,
			}})
		if err != nil {
			return fmt.Errorf("insert query analysis: %w", err)
		}
	}
	return nil
}

func insertUnused(conn *sqlite.Conn, unused *UnusedReport) error {
	phase := make(map[string]int)
	for _, key := range unused.Plan.Phase1 {
		phase[key] = 1
	}
	for _, key := range unused.Plan.Phase2 {
		phase[key] = 2
	}
	for _, key := range unused.Plan.Phase3 {
		phase[key] = 3
	}
	for i := range unused.Candidates {
		c := &unused.Candidates[i]
		err := sqlitex.Execute(conn,
			`INSERT INTO unused_candidates (key, name, type, confidence, action, priority, complexity, impact, reasons, rollback_plan, phase)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{
				c.Key(), c.ElementName, string(c.ElementType), string(c.Confidence),
				string(c.RecommendedAction), string(c.Priority), string(c.MigrationComplexity),
				string(c.PotentialImpact), strings.Join(c.Reasons, "; "), c.RollbackPlan,
				phase[c.Key()],
			}})
		if err != nil {
			return fmt.Errorf("insert candidate %s: %w", c.Key(), err)
		}
	}
	return nil
}

func insertDrift(conn *sqlite.Conn, drift *DriftReport) error {
	for i := range drift.Findings {
		f := &drift.Findings[i]
		err := sqlitex.Execute(conn,
			`INSERT INTO drift_findings (name, type, drift_type, severity, confidence, detail)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{
				f.ElementName, string(f.ElementType), string(f.DriftType),
				string(f.Severity), f.Confidence, f.Detail,
			}})
		if err != nil {
			return fmt.Errorf("insert finding: %w", err)
		}
	}
	return nil
}

func insertOpportunities(conn *sqlite.Conn, perf *PerformanceReport) error {
	for i := range perf.Opportunities {
		op := &perf.Opportunities[i]
		err := sqlitex.Execute(conn,
			`INSERT INTO opportunities (type, name, element_type, description, storage_impact, speed_impact, maintenance_impact, effort, risk, reversible, score)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{
				op.Type, op.ElementName, string(op.ElementType), op.Description,
				string(op.StorageImpact), string(op.SpeedImpact), string(op.MaintenanceImpact),
				string(op.Effort), string(op.Risk), boolInt(op.Reversible), op.Score,
			}})
		if err != nil {
			return fmt.Errorf("insert opportunity: %w", err)
		}
	}
	return nil
}

// insertSummaryStats precomputes the headline numbers dashboards read without
// aggregating detail tables.
func insertSummaryStats(conn *sqlite.Conn, r *Report) error {
	stats := []struct {
		key   string
		value float64
	}{
		{"tables", float64(len(r.Schema.Tables))},
		{"columns", float64(len(r.Schema.Columns))},
		{"indexes", float64(len(r.Schema.Indexes))},
		{"enums", float64(len(r.Schema.Enums))},
		{"usage_sites", float64(len(r.Usage.Patterns))},
		{"literal_queries", float64(len(r.Usage.Queries))},
		{"unused_candidates", float64(len(r.Unused.Candidates))},
		{"drift_findings", float64(len(r.Drift.Findings))},
		{"schema_health", float64(r.Drift.SchemaHealth)},
		{"index_utilization", r.Drift.IndexUtilization},
		{"opportunities", float64(len(r.Performance.Opportunities))},
	}
	for _, s := range stats {
		err := sqlitex.Execute(conn,
			`INSERT INTO summary_stats (stat, value) VALUES (?, ?)`,
			&sqlitex.ExecOptions{Args: []any{s.key, s.value}})
		if err != nil {
			return fmt.Errorf("insert stat %s: %w", s.key, err)
		}
	}
	return nil
}

// validateDB re-checks the summary/detail count contract against stored rows.
func validateDB(conn *sqlite.Conn, r *Report, prog *Progress) error {
	checks := []struct {
		query string
		want  int
	}{
		{`SELECT COUNT(*) FROM schema_elements`, r.Schema.Len()},
		{`SELECT COUNT(*) FROM usage_patterns`, len(r.Usage.Patterns)},
		{`SELECT COUNT(*) FROM query_analyses`, len(r.Usage.Queries)},
		{`SELECT COUNT(*) FROM unused_candidates`, len(r.Unused.Candidates)},
		{`SELECT COUNT(*) FROM drift_findings`, len(r.Drift.Findings)},
		{`SELECT COUNT(*) FROM opportunities`, len(r.Performance.Opportunities)},
	}
	for _, check := range checks {
		var got int
		err := sqlitex.ExecuteTransient(conn, check.query, &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				got = stmt.ColumnInt(0)
				return nil
			},
		})
		if err != nil {
			return fmt.Errorf("validate %q: %w", check.query, err)
		}
		if got != check.want {
			return fmt.Errorf("validation failed: %q returned %d, want %d", check.query, got, check.want)
		}
	}
	prog.Log("Validation passed (%d checks)", len(checks))
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
