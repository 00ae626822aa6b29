// Package diff compares two baseline.Baseline snapshots and produces a
// structured risk assessment (§4.12).
package diff

// ChangeKind enumerates the fourteen kinds of per-parameter schema change.
type ChangeKind string

const (
	ChangeParameterAdded      ChangeKind = "parameter_added"
	ChangeParameterRemoved    ChangeKind = "parameter_removed"
	ChangeTypeChanged         ChangeKind = "type_changed"
	ChangeRequiredAdded       ChangeKind = "parameter_required_added"
	ChangeRequiredRemoved     ChangeKind = "parameter_required_removed"
	ChangeEnumValueAdded      ChangeKind = "enum_value_added"
	ChangeEnumValueRemoved    ChangeKind = "enum_value_removed"
	ChangeConstraintAdded     ChangeKind = "constraint_added"
	ChangeConstraintRemoved   ChangeKind = "constraint_removed"
	ChangeConstraintTightened ChangeKind = "constraint_tightened"
	ChangeConstraintRelaxed   ChangeKind = "constraint_relaxed"
	ChangeDescriptionChanged  ChangeKind = "description_changed"
	ChangeDefaultChanged      ChangeKind = "default_changed"
	ChangeFormatChanged       ChangeKind = "format_changed"
)

// Severity bands a diff's overall risk.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityBreaking Severity = "breaking"
)

// Priority bands an ActionItem's urgency.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Complexity bands migration effort from breaking-change count.
type Complexity string

const (
	ComplexityTrivial  Complexity = "trivial"
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// SchemaChange is one per-parameter change between two tool schemas.
type SchemaChange struct {
	Path        string     `json:"path"`
	Kind        ChangeKind `json:"kind"`
	Breaking    bool       `json:"breaking"`
	Before      any        `json:"before,omitempty"`
	After       any        `json:"after,omitempty"`
	Description string     `json:"description"`
}

// ToolDiff is the full delta for one tool present in both baselines.
type ToolDiff struct {
	Tool    string         `json:"tool"`
	Changes []SchemaChange `json:"changes"`
}

// ReconciliationWarning is the additive signal decided in Open Question
// 1: a tool whose schemaHash is unchanged but whose observed behavior
// (response fingerprint or error patterns) diverged between baselines.
// It never affects Severity or blocks comparison.
type ReconciliationWarning struct {
	Tool   string `json:"tool"`
	Detail string `json:"detail"`
}

// ActionItem is a prioritized, human-actionable remediation suggestion.
type ActionItem struct {
	Priority    Priority `json:"priority"`
	Tool        string   `json:"tool"`
	Issue       string   `json:"issue"`
	Remediation string   `json:"remediation"`
}

// Result is the full output of Compare.
type Result struct {
	ToolsAdded        []string                `json:"toolsAdded"`
	ToolsRemoved      []string                `json:"toolsRemoved"`
	ToolsModified     []ToolDiff              `json:"toolsModified"`
	Reconciliation    []ReconciliationWarning `json:"reconciliationWarnings,omitempty"`
	RiskScore         int                     `json:"riskScore"`
	Severity          Severity                `json:"severity"`
	Complexity        Complexity              `json:"migrationComplexity"`
	ActionItems       []ActionItem            `json:"actionItems"`
	AffectedWorkflows []string                `json:"affectedWorkflows,omitempty"`
}
