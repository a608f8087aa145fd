// Package harness runs reconciliation scenarios and checks their outcome.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: legacy_field_stripped
//	description: "What this scenario validates"
//	collection: inns
//	reserved: [_reserved]
//	schema:
//	  kind: cue
//	  definition: "#Inn"
//	  source: |
//	    #Inn: { name: string }
//	record:
//	  name: Inn
//	  extraLegacyField: x
//	  _reserved: true
//	passes: 2
//	expect:
//	  record: { name: Inn, _reserved: true }
//	  stored: { name: Inn }
//
// The schema is inline (source) or a file (path, relative to the scenario
// file). Record keys keep their YAML order; expect.record and expect.stored
// are compared in order.
//
// # Execution
//
// Each scenario runs in a fresh in-memory store. The record is minted by a
// model.Model (ids doc-0001, doc-0002, ...) and saved passes times. A
// pre-save hook reconciles the record and appends one TraceEvent per pass.
//
// Besides the expect clause, every run checks two properties: a rejected
// save leaves the record exactly as it was, and every pass after the first
// succeeds without changing the record.
//
// # Golden Files
//
// RunWithGolden compares the canonical trace against
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
