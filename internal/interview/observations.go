package interview

import "github.com/dotsetlabs/bellwether/internal/baseline"

// ToolObservations converts Result into the per-tool observation map
// baseline.Build's BuildInput.Observations expects, carrying forward
// each tool's derived behavioral notes, response fingerprint, and
// either-weighted confidence score.
func (r Result) ToolObservations() map[string]baseline.ToolObservation {
	obs := make(map[string]baseline.ToolObservation, len(r.Tools))
	for name, tr := range r.Tools {
		obs[name] = baseline.ToolObservation{
			Tool:                tr.Tool,
			ResponseFingerprint: tr.ResponseFingerprint,
			ErrorPatterns:       tr.ErrorPatterns,
			Expects:             tr.Expects,
			Requires:            tr.Requires,
			Warns:               tr.Warns,
			Notes:               tr.Notes,
			Confidence:          tr.Confidence,
		}
	}
	return obs
}

// Assertions collects every scenario-driven interaction's assertion
// checks into the baseline.AssertionRecord list that §6's baseline file
// format carries at the top level. Generated question/answer
// interactions have no Assertions and are skipped.
func (r Result) Assertions() []baseline.AssertionRecord {
	var out []baseline.AssertionRecord
	for _, i := range r.Interactions {
		if i.Assertions == nil {
			continue
		}
		out = append(out, baseline.AssertionRecord{
			Scenario: i.Question,
			Tool:     i.Tool,
			Passed:   i.Outcome.Correct,
			Checks:   i.Assertions,
		})
	}
	return out
}
