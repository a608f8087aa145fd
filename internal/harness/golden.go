package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/resync/internal/ir"
	"github.com/roach88/resync/internal/record"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical
// JSON serialization. Record field order, which canonical JSON would lose,
// is kept in a separate "order" list. Issue messages are left out: they
// come from the schema engine and are not stable across its versions.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"type":   event.Type,
			"seq":    event.Seq,
			"fields": stringList(event.Fields),
			"rev":    event.Rev,
		}
		if event.Record != nil {
			eventMap["record"] = documentMap(event.Record)
		}
		if event.Validated != nil {
			eventMap["validated"] = event.Validated
		}
		if o := event.Outcome; o != nil {
			eventMap["outcome"] = map[string]any{
				"assigned": stringList(o.Assigned),
				"changed":  stringList(o.Changed),
				"deleted":  stringList(o.Deleted),
				"added":    stringList(o.Added),
			}
		}
		if len(event.Issues) > 0 {
			issues := make([]any, len(event.Issues))
			for j, issue := range event.Issues {
				issues[j] = map[string]any{"field": issue.Field, "code": issue.Code}
			}
			eventMap["issues"] = issues
		}
		traceList[i] = eventMap
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
}

func documentMap(doc *record.Document) map[string]any {
	return map[string]any{
		"order":  stringList(doc.Fields()),
		"values": doc.Object(),
	}
}

func stringList(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

// CanonicalTrace renders the result's trace as canonical JSON, the golden
// file format.
func CanonicalTrace(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check expectations, or an error
// if scenario execution fails.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := CanonicalTrace(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
