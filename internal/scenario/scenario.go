// Package scenario implements §4.9's scenario evaluator: user-authored
// assertions checked against an observed tool response via a cycle-safe
// dotted-path resolver.
package scenario

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Scenario names a tool call and the assertions its response must
// satisfy.
type Scenario struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Tool        string      `yaml:"tool"`
	Args        any         `yaml:"args,omitempty"`
	Assertions  []Assertion `yaml:"assertions"`
	// Category tags the scenario's intent (happy_path/error/edge_case),
	// mirroring the category an interview's generated questions carry.
	Category string `yaml:"category,omitempty"`
}

// Document is the top-level shape of a scenarios YAML file
// (scenarios.path in the configuration schema).
type Document struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// Result is the outcome of running one Scenario against an observed
// response.
type Result struct {
	Scenario Scenario
	Checks   []AssertionResult
	Passed   bool
}

// Run evaluates every assertion in s against response and reports overall
// pass/fail (a scenario passes only if every assertion does).
func Run(s Scenario, response any) Result {
	checks := EvaluateAll(response, s.Assertions)
	passed := true
	for _, c := range checks {
		if !c.Passed {
			passed = false
			break
		}
	}
	return Result{Scenario: s, Checks: checks, Passed: passed}
}

// Load parses a scenarios YAML document.
func Load(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parsing scenarios document: %w", err)
	}
	return doc, nil
}

// Select filters doc.Scenarios down to names, preserving file order. An
// empty names list returns every scenario (scenarios.only unset means
// "run everything").
func Select(doc Document, names []string) []Scenario {
	if len(names) == 0 {
		return doc.Scenarios
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var out []Scenario
	for _, s := range doc.Scenarios {
		if wanted[s.Name] {
			out = append(out, s)
		}
	}
	return out
}
