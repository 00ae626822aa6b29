// Package diff compares two baseline.Baseline snapshots of the same MCP
// server, taken at different times, and produces a structured risk
// assessment an operator can act on without re-reading every schema by
// hand (§4.12).
package diff

import (
	"sort"

	"github.com/dotsetlabs/bellwether/internal/baseline"
	"github.com/dotsetlabs/bellwether/internal/workflow"
)

// changeWeight scores how much risk one SchemaChange contributes. The
// weights are ordinal, not measured: removals and tightenings outweigh
// additions and relaxations, and a type change outweighs a cosmetic one.
var changeWeight = map[ChangeKind]int{
	ChangeParameterAdded:      5,
	ChangeParameterRemoved:    20,
	ChangeTypeChanged:         25,
	ChangeRequiredAdded:       20,
	ChangeRequiredRemoved:     5,
	ChangeEnumValueAdded:      3,
	ChangeEnumValueRemoved:    15,
	ChangeConstraintAdded:     10,
	ChangeConstraintRemoved:   3,
	ChangeConstraintTightened: 10,
	ChangeConstraintRelaxed:   2,
	ChangeDescriptionChanged:  1,
	ChangeDefaultChanged:      3,
	ChangeFormatChanged:       5,
}

const (
	toolRemovedWeight = 40
	toolAddedWeight   = 5

	breakingRiskThreshold = 40
	warningRiskThreshold  = 15
)

// Compare produces the full delta between two baselines of the same
// server taken at different points in time. workflows is optional; when
// supplied, any workflow whose steps call a removed or modified tool is
// reported in AffectedWorkflows.
func Compare(before, after baseline.Baseline, workflows []workflow.Definition) (Result, error) {
	beforeByName := toolsByName(before.Tools)
	afterByName := toolsByName(after.Tools)

	var result Result
	risk := 0

	for name := range afterByName {
		if _, ok := beforeByName[name]; !ok {
			result.ToolsAdded = append(result.ToolsAdded, name)
			risk += toolAddedWeight
		}
	}
	for name := range beforeByName {
		if _, ok := afterByName[name]; !ok {
			result.ToolsRemoved = append(result.ToolsRemoved, name)
			risk += toolRemovedWeight
		}
	}
	sort.Strings(result.ToolsAdded)
	sort.Strings(result.ToolsRemoved)

	for _, name := range sortedNames(beforeByName, afterByName) {
		bt, inBefore := beforeByName[name]
		at, inAfter := afterByName[name]
		if !inBefore || !inAfter {
			continue
		}
		if bt.SchemaHash == at.SchemaHash {
			if w := reconciliationWarning(name, bt, at); w != nil {
				result.Reconciliation = append(result.Reconciliation, *w)
			}
			continue
		}

		changes, err := compareSchemas(bt.Schema, at.Schema)
		if err != nil {
			return Result{}, err
		}
		if len(changes) == 0 {
			continue
		}
		result.ToolsModified = append(result.ToolsModified, ToolDiff{Tool: name, Changes: changes})
		for _, c := range changes {
			risk += changeWeight[c.Kind]
		}
	}
	sort.Slice(result.ToolsModified, func(i, j int) bool {
		return result.ToolsModified[i].Tool < result.ToolsModified[j].Tool
	})

	if risk > 100 {
		risk = 100
	}
	result.RiskScore = risk
	result.Severity = severityFor(result, risk)
	result.ActionItems = buildActionItems(result)
	result.Complexity = complexityFor(result.ActionItems)
	result.AffectedWorkflows = affectedWorkflows(result, workflows)

	return result, nil
}

func toolsByName(tools []baseline.ToolCapability) map[string]baseline.ToolCapability {
	out := make(map[string]baseline.ToolCapability, len(tools))
	for _, t := range tools {
		out[t.Name] = t
	}
	return out
}

func sortedNames(a, b map[string]baseline.ToolCapability) []string {
	seen := map[string]bool{}
	var names []string
	for n := range a {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for n := range b {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// reconciliationWarning implements Open Question 1: a tool can keep an
// identical schema hash while its observed behavior drifts. That signal
// never affects Severity or blocks comparison — it is purely additive.
func reconciliationWarning(name string, before, after baseline.ToolCapability) *ReconciliationWarning {
	switch {
	case before.ResponseFingerprint != "" && after.ResponseFingerprint != "" && before.ResponseFingerprint != after.ResponseFingerprint:
		return &ReconciliationWarning{Tool: name, Detail: "response fingerprint changed despite an unchanged schema"}
	case !sameStrings(before.ErrorPatterns, after.ErrorPatterns):
		return &ReconciliationWarning{Tool: name, Detail: "observed error patterns changed despite an unchanged schema"}
	default:
		return nil
	}
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func hasBreakingChange(result Result) bool {
	if len(result.ToolsRemoved) > 0 {
		return true
	}
	for _, td := range result.ToolsModified {
		for _, c := range td.Changes {
			if c.Breaking {
				return true
			}
		}
	}
	return false
}

func severityFor(result Result, risk int) Severity {
	switch {
	case hasBreakingChange(result) || risk >= breakingRiskThreshold:
		return SeverityBreaking
	case risk >= warningRiskThreshold:
		return SeverityWarning
	case risk > 0:
		return SeverityInfo
	default:
		return SeverityNone
	}
}

func buildActionItems(result Result) []ActionItem {
	var items []ActionItem
	for _, tool := range result.ToolsRemoved {
		items = append(items, ActionItem{
			Priority:    PriorityCritical,
			Tool:        tool,
			Issue:       "tool was removed from the server",
			Remediation: "remove or replace every call site and workflow step that invokes this tool",
		})
	}
	for _, td := range result.ToolsModified {
		for _, c := range td.Changes {
			items = append(items, actionItemFor(td.Tool, c))
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		pi, pj := priorityRank(items[i].Priority), priorityRank(items[j].Priority)
		if pi != pj {
			return pi < pj
		}
		return items[i].Tool < items[j].Tool
	})
	return items
}

func actionItemFor(tool string, c SchemaChange) ActionItem {
	switch c.Kind {
	case ChangeParameterRemoved:
		return ActionItem{Priority: PriorityCritical, Tool: tool, Issue: c.Description, Remediation: "stop sending parameter " + c.Path + "; update any caller that relies on it"}
	case ChangeTypeChanged:
		return ActionItem{Priority: PriorityHigh, Tool: tool, Issue: c.Description, Remediation: "re-validate callers against the new type for " + c.Path}
	case ChangeRequiredAdded:
		return ActionItem{Priority: PriorityHigh, Tool: tool, Issue: c.Description, Remediation: "always supply " + c.Path + " going forward"}
	case ChangeEnumValueRemoved:
		return ActionItem{Priority: PriorityHigh, Tool: tool, Issue: c.Description, Remediation: "stop using the removed enum value for " + c.Path}
	case ChangeConstraintAdded, ChangeConstraintTightened:
		return ActionItem{Priority: PriorityMedium, Tool: tool, Issue: c.Description, Remediation: "confirm existing values for " + c.Path + " still satisfy the constraint"}
	default:
		return ActionItem{Priority: PriorityLow, Tool: tool, Issue: c.Description, Remediation: "review " + c.Path + " for any dependent assumptions"}
	}
}

func priorityRank(p Priority) int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

func complexityFor(items []ActionItem) Complexity {
	breaking := 0
	for _, item := range items {
		if item.Priority != PriorityLow {
			breaking++
		}
	}
	switch {
	case breaking == 0:
		return ComplexityTrivial
	case breaking <= 2:
		return ComplexitySimple
	case breaking <= 5:
		return ComplexityModerate
	default:
		return ComplexityComplex
	}
}

func affectedWorkflows(result Result, workflows []workflow.Definition) []string {
	if len(workflows) == 0 {
		return nil
	}
	touched := map[string]bool{}
	for _, t := range result.ToolsRemoved {
		touched[t] = true
	}
	for _, td := range result.ToolsModified {
		touched[td.Tool] = true
	}
	if len(touched) == 0 {
		return nil
	}

	var names []string
	for _, def := range workflows {
		for _, step := range def.Steps {
			if touched[step.Tool] {
				names = append(names, def.Name)
				break
			}
		}
	}
	sort.Strings(names)
	return names
}
