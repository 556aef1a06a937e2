package main

import "encoding/json"

// ElementType identifies the kind of a declared schema element.
type ElementType string

const (
	ElementTable  ElementType = "table"
	ElementColumn ElementType = "column"
	ElementIndex  ElementType = "index"
	ElementEnum   ElementType = "enum"
)

// OperationKind classifies how a usage site touches a schema element.
type OperationKind string

const (
	OpSelect    OperationKind = "select"
	OpInsert    OperationKind = "insert"
	OpUpdate    OperationKind = "update"
	OpDelete    OperationKind = "delete"
	OpJoin      OperationKind = "join"
	OpWhere     OperationKind = "where"
	OpOrderBy   OperationKind = "order_by"
	OpReference OperationKind = "reference"
	OpImport    OperationKind = "import"
)

// Confidence is the coarse trust tier attached to a detected fact.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// rank orders confidence tiers: high beats medium beats low.
func (c Confidence) rank() int {
	switch c {
	case ConfidenceHigh:
		return 2
	case ConfidenceMedium:
		return 1
	}
	return 0
}

// Complexity buckets a chained-call sequence by hop count, and doubles as the
// migration-complexity flag on removal candidates.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// ElementMetadata carries type-specific structural attributes of a schema
// element. Only the fields relevant to the element's type are populated.
type ElementMetadata struct {
	DataType     string   `json:"data_type,omitempty"`
	Nullable     bool     `json:"nullable,omitempty"`
	HasDefault   bool     `json:"has_default,omitempty"`
	IsPrimaryKey bool     `json:"is_primary_key,omitempty"`
	IsForeignKey bool     `json:"is_foreign_key,omitempty"`
	Table        string   `json:"table,omitempty"`   // owning table for columns and indexes
	Columns      []string `json:"columns,omitempty"` // covered columns for indexes
	Unique       bool     `json:"unique,omitempty"`
	Values       []string `json:"values,omitempty"` // ordered values for enums
}

// UsageInfo is a single matched reference to a schema element.
// Confidence is derived deterministically from syntactic position and is
// never mutated after creation.
type UsageInfo struct {
	File       string        `json:"file"`
	Line       int           `json:"line"`
	Col        int           `json:"col"`
	Kind       OperationKind `json:"kind"`
	Context    string        `json:"context"` // enclosing call/function snippet, <=150 chars
	Confidence Confidence    `json:"confidence"`
}

// SchemaElement is one declared persistent-storage construct. Created once per
// declaration by the schema mapper; the Usage list is appended during the
// usage pass and read immutably by every later phase.
type SchemaElement struct {
	Name           string          `json:"name"`
	Type           ElementType     `json:"type"`
	File           string          `json:"file"`
	Line           int             `json:"line"`
	DefinitionText string          `json:"definition_text"`
	Dependencies   []string        `json:"dependencies,omitempty"`
	Metadata       ElementMetadata `json:"metadata"`
	Usage          []UsageInfo     `json:"usage"`
}

// Key returns the cross-map identity of the element (type-qualified name).
func (e *SchemaElement) Key() string {
	return string(e.Type) + ":" + e.Name
}

// BestConfidence returns the strongest confidence tier across recorded usage,
// or "" when the element has no usage at all.
func (e *SchemaElement) BestConfidence() Confidence {
	best := Confidence("")
	for _, u := range e.Usage {
		if best == "" || u.Confidence.rank() > best.rank() {
			best = u.Confidence
		}
	}
	return best
}

// SchemaMap is the full extracted schema: four maps keyed by element name
// (columns use the table.column compound key). Produced once per run and
// passed read-only into every subsequent phase.
type SchemaMap struct {
	Tables  map[string]*SchemaElement `json:"tables"`
	Columns map[string]*SchemaElement `json:"columns"`
	Indexes map[string]*SchemaElement `json:"indexes"`
	Enums   map[string]*SchemaElement `json:"enums"`

	// aliases maps declared Go identifiers (the bound var of a table/enum
	// declaration) to element keys, so usage matching catches both the schema
	// name and the binding name.
	aliases map[string][]string
}

// NewSchemaMap creates an empty schema map ready for extraction.
func NewSchemaMap() *SchemaMap {
	return &SchemaMap{
		Tables:  make(map[string]*SchemaElement),
		Columns: make(map[string]*SchemaElement),
		Indexes: make(map[string]*SchemaElement),
		Enums:   make(map[string]*SchemaElement),
		aliases: make(map[string][]string),
	}
}

// Lookup resolves a type-qualified element key back to its element.
func (m *SchemaMap) Lookup(key string) *SchemaElement {
	for _, bucket := range []map[string]*SchemaElement{m.Tables, m.Columns, m.Indexes, m.Enums} {
		for _, e := range bucket {
			if e.Key() == key {
				return e
			}
		}
	}
	return nil
}

// Len returns the total number of extracted elements.
func (m *SchemaMap) Len() int {
	return len(m.Tables) + len(m.Columns) + len(m.Indexes) + len(m.Enums)
}

// UsagePattern is one classified usage site in the scanner's flat output.
type UsagePattern struct {
	Element     string        `json:"element"` // type-qualified key
	ElementType ElementType   `json:"element_type"`
	File        string        `json:"file"`
	Line        int           `json:"line"`
	Col         int           `json:"col"`
	Kind        OperationKind `json:"kind"`
	Confidence  Confidence    `json:"confidence"`
	Complexity  Complexity    `json:"complexity"`
	Dynamic     bool          `json:"dynamic"`
	Context     string        `json:"context"`
}

// QueryAnalysis is a best-effort secondary signal derived from SQL-looking
// string literal content. Never merged into structural confidence.
type QueryAnalysis struct {
	File    string   `json:"file"`
	Line    int      `json:"line"`
	Snippet string   `json:"snippet"`
	Kind    string   `json:"kind"` // leading SQL verb, lowercased
	Tables  []string `json:"tables,omitempty"`
	Columns []string `json:"columns,omitempty"`
	Dynamic bool     `json:"dynamic"`
}

// UsageSummary holds the counts the rendering layer consumes. Counts always
// equal the corresponding detail slice lengths.
type UsageSummary struct {
	Patterns       int `json:"patterns"`
	Queries        int `json:"queries"`
	FilesScanned   int `json:"files_scanned"`
	FilesSkipped   int `json:"files_skipped"`
	DynamicUsage   int `json:"dynamic_usage"`
	HighConfidence int `json:"high_confidence"`
}

// UsageReport is the usage scanner's phase output.
type UsageReport struct {
	Summary  UsageSummary    `json:"summary"`
	Patterns []UsagePattern  `json:"patterns"`
	Queries  []QueryAnalysis `json:"queries"`

	// literals is the set of short string literal values seen anywhere in the
	// corpus, used by the drift analyzer for enum value drift.
	literals map[string]bool
}

// RecommendedAction is the unused-element removal recommendation.
type RecommendedAction string

const (
	ActionRemove      RecommendedAction = "remove"
	ActionInvestigate RecommendedAction = "investigate"
	ActionKeep        RecommendedAction = "keep"
)

// Priority orders recommendations for human triage.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Impact is a coarse estimated magnitude used by the unused analyzer and the
// performance assessor. It doubles as the effort/risk scale.
type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

// points converts an impact or effort level to its numeric weight.
func (i Impact) points() float64 {
	switch i {
	case ImpactHigh:
		return 3
	case ImpactMedium:
		return 2
	}
	return 1
}

// UnusedElementCandidate is one zero-usage element with a removal
// recommendation. Immutable after creation.
type UnusedElementCandidate struct {
	ElementName         string            `json:"element_name"`
	ElementType         ElementType       `json:"element_type"`
	Confidence          Confidence        `json:"confidence"`
	Reasons             []string          `json:"reasons"`
	RecommendedAction   RecommendedAction `json:"recommended_action"`
	Priority            Priority          `json:"priority"`
	MigrationComplexity Complexity        `json:"migration_complexity"`
	PotentialImpact     Impact            `json:"potential_impact"`
	RollbackPlan        string            `json:"rollback_plan"`
}

// Key returns the candidate's type-qualified element key.
func (c *UnusedElementCandidate) Key() string {
	return string(c.ElementType) + ":" + c.ElementName
}

// MigrationPlan stages candidate removal into three fixed, pairwise-disjoint
// phases whose union is the full candidate set.
type MigrationPlan struct {
	Phase1 []string `json:"phase1"` // simple removals
	Phase2 []string `json:"phase2"` // medium complexity, excluding low confidence
	Phase3 []string `json:"phase3"` // complex, high impact, or low confidence
}

// UnusedSummary holds the counts consumed by the rendering layer.
type UnusedSummary struct {
	Candidates     int `json:"candidates"`
	RemoveActions  int `json:"remove_actions"`
	KeepActions    int `json:"keep_actions"`
	UnusedTables   int `json:"unused_tables"`
	UnusedColumns  int `json:"unused_columns"`
	UnusedIndexes  int `json:"unused_indexes"`
	UnusedEnums    int `json:"unused_enums"`
	HighConfidence int `json:"high_confidence"`
}

// UnusedReport is the unused-element analyzer's phase output.
type UnusedReport struct {
	Summary    UnusedSummary            `json:"summary"`
	Candidates []UnusedElementCandidate `json:"candidates"`
	Plan       MigrationPlan            `json:"plan"`
}

// DriftType classifies a divergence between declared schema and observed
// usage.
type DriftType string

const (
	DriftUnused     DriftType = "unused"
	DriftMisaligned DriftType = "misaligned"
	DriftAdded      DriftType = "added"
	DriftRemoved    DriftType = "removed"
	DriftModified   DriftType = "modified"
)

// Severity ranks drift findings. Critical is reserved for structural
// contradictions such as a foreign key referencing a nonexistent table.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
	SeverityInfo     Severity = "info"
)

// rank returns the fixed sort order: most severe first.
func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityMajor:
		return 1
	case SeverityMinor:
		return 2
	}
	return 3
}

// DriftFinding is pure derived data, regenerated wholesale on every run.
type DriftFinding struct {
	ElementName string      `json:"element_name"`
	ElementType ElementType `json:"element_type"`
	DriftType   DriftType   `json:"drift_type"`
	Severity    Severity    `json:"severity"`
	Confidence  float64     `json:"confidence"` // [0,1]
	Detail      string      `json:"detail"`
}

// DriftSummary holds the counts consumed by the rendering layer.
type DriftSummary struct {
	Findings         int `json:"findings"`
	Critical         int `json:"critical"`
	Major            int `json:"major"`
	Minor            int `json:"minor"`
	Info             int `json:"info"`
	RedundantIndexes int `json:"redundant_indexes"`
}

// DriftReport is the drift analyzer's phase output.
type DriftReport struct {
	Summary          DriftSummary   `json:"summary"`
	Findings         []DriftFinding `json:"findings"`
	SchemaHealth     int            `json:"schema_health"` // 0..100
	IndexUtilization float64        `json:"index_utilization"`
	RedundantIndexes []string       `json:"redundant_indexes,omitempty"`
}

// OptimizationOpportunity is one ranked optimization with estimated impact,
// cost, and risk.
type OptimizationOpportunity struct {
	Type              string      `json:"type"`
	ElementName       string      `json:"element_name"`
	ElementType       ElementType `json:"element_type"`
	Description       string      `json:"description"`
	StorageImpact     Impact      `json:"storage_impact"`
	SpeedImpact       Impact      `json:"speed_impact"`
	MaintenanceImpact Impact      `json:"maintenance_impact"`
	Effort            Impact      `json:"effort"`
	Risk              Impact      `json:"risk"`
	Reversible        bool        `json:"reversible"`
	Score             float64     `json:"score"` // impact sum over effort points
}

// impactSum is the combined impact weight across the three impact axes.
func (o *OptimizationOpportunity) impactSum() float64 {
	return o.StorageImpact.points() + o.SpeedImpact.points() + o.MaintenanceImpact.points()
}

// ActionPlan buckets opportunities by effort/risk, first matching bucket wins.
type ActionPlan struct {
	QuickWins  []string `json:"quick_wins"`
	MediumTerm []string `json:"medium_term"`
	LongTerm   []string `json:"long_term"`
}

// Projection is one fixed-horizon outcome estimate.
type Projection struct {
	Label                 string  `json:"label"`
	Fraction              float64 `json:"fraction"`
	OpportunitiesRealized int     `json:"opportunities_realized"`
	ProjectedImpact       float64 `json:"projected_impact"`
}

// PerformanceSummary holds the counts consumed by the rendering layer.
type PerformanceSummary struct {
	Opportunities int     `json:"opportunities"`
	QuickWins     int     `json:"quick_wins"`
	TotalImpact   float64 `json:"total_impact"`
}

// PerformanceReport is the performance assessor's phase output.
type PerformanceReport struct {
	Summary       PerformanceSummary        `json:"summary"`
	Opportunities []OptimizationOpportunity `json:"opportunities"`
	Plan          ActionPlan                `json:"plan"`
	Projections   []Projection              `json:"projections"`
}

// Report is the full pipeline result: one deterministic, JSON-serializable
// structure per run.
type Report struct {
	Root        string             `json:"root"`
	SchemaFiles []string           `json:"schema_files"`
	Schema      *SchemaMap         `json:"schema"`
	Usage       *UsageReport       `json:"usage"`
	Unused      *UnusedReport      `json:"unused"`
	Drift       *DriftReport       `json:"drift"`
	Performance *PerformanceReport `json:"performance"`
	Warnings    []string           `json:"warnings,omitempty"`
}

// MarshalIndent renders the report as stable, human-diffable JSON.
func (r *Report) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
