package harness

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/resync/internal/model"
	"github.com/roach88/resync/internal/record"
	"github.com/roach88/resync/internal/store"
)

// Expectation types, used in AssertionError.Type.
const (
	ExpectRecord    = "record"
	ExpectStored    = "stored"
	ExpectNotStored = "not_stored"
	ExpectError     = "error"
)

// AssertionContext gives expectations access to the scenario's store.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// AssertionError is returned when an expectation fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Expectation type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Expectation failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		switch event.Type {
		case EventSave:
			fmt.Fprintf(&buf, "  [%d] save rev=%d %s\n", event.Seq, event.Rev, event.Record)
		case EventReject:
			fmt.Fprintf(&buf, "  [%d] reject %d issue(s)\n", event.Seq, len(event.Issues))
		}
	}

	return buf.String()
}

// EvaluateExpectations checks expect against the result and returns one
// message per failure.
func EvaluateExpectations(result *Result, expect Expect, actx *AssertionContext) []string {
	var failures []string
	add := func(err error) {
		if err != nil {
			failures = append(failures, err.Error())
		}
	}

	if expect.Record != nil {
		add(assertRecord(result, expect.Record))
	}
	if expect.Stored != nil {
		add(assertStored(result, expect.Stored, actx))
	}
	if expect.NotStored {
		add(assertNotStored(result, actx))
	}
	add(assertError(result, expect.Error))
	return failures
}

// userView returns doc without its bookkeeping fields.
func userView(doc *record.Document) *record.Document {
	out := doc.Clone()
	for _, name := range record.DefaultReserved.Names() {
		out.Delete(name)
	}
	return out
}

// assertRecord compares the final document, in field order.
func assertRecord(result *Result, want *record.Document) error {
	got := userView(result.Record)
	if got.Equal(want) {
		return nil
	}
	return &AssertionError{
		Type:     ExpectRecord,
		Expected: want.String(),
		Actual:   got.String(),
		Trace:    result.Trace,
	}
}

// assertStored compares the latest stored revision, in field order.
func assertStored(result *Result, want *record.Document, actx *AssertionContext) error {
	rev, err := actx.Store.ReadLatest(actx.Ctx, result.Record.ID())
	if err != nil {
		return &AssertionError{
			Type:     ExpectStored,
			Expected: want.String(),
			Actual:   err.Error(),
			Trace:    result.Trace,
		}
	}
	got := userView(model.FromRevision(rev))
	if got.Equal(want) {
		return nil
	}
	return &AssertionError{
		Type:     ExpectStored,
		Expected: want.String(),
		Actual:   got.String(),
		Trace:    result.Trace,
	}
}

func assertNotStored(result *Result, actx *AssertionContext) error {
	rev, err := actx.Store.ReadLatest(actx.Ctx, result.Record.ID())
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	actual := fmt.Sprintf("revision %d stored", rev.Rev)
	if err != nil {
		actual = err.Error()
	}
	return &AssertionError{
		Type:     ExpectNotStored,
		Expected: "no stored revision",
		Actual:   actual,
		Trace:    result.Trace,
	}
}

// assertError checks the last trace event against want. A nil want
// expects no rejection at all.
func assertError(result *Result, want *ErrorExpect) error {
	var last *TraceEvent
	if n := len(result.Trace); n > 0 {
		last = &result.Trace[n-1]
	}

	if want == nil {
		for _, event := range result.Trace {
			if event.Type == EventReject {
				return &AssertionError{
					Type:     ExpectError,
					Expected: "every pass saved",
					Actual:   fmt.Sprintf("pass %d rejected: %s", event.Seq, issueSummary(event)),
					Trace:    result.Trace,
				}
			}
		}
		return nil
	}

	if last == nil || last.Type != EventReject {
		return &AssertionError{
			Type:     ExpectError,
			Expected: fmt.Sprintf("rejection naming %v", want.Fields),
			Actual:   "last pass saved",
			Trace:    result.Trace,
		}
	}

	var fields, codes []string
	for _, issue := range last.Issues {
		if !slices.Contains(fields, issue.Field) {
			fields = append(fields, issue.Field)
		}
		if !slices.Contains(codes, issue.Code) {
			codes = append(codes, issue.Code)
		}
	}

	if len(want.Fields) > 0 && !sameSet(fields, want.Fields) {
		return &AssertionError{
			Type:     ExpectError,
			Expected: fmt.Sprintf("issues for fields %v", sorted(want.Fields)),
			Actual:   fmt.Sprintf("issues for fields %v: %s", sorted(fields), issueSummary(*last)),
			Trace:    result.Trace,
		}
	}
	if len(want.Codes) > 0 && !sameSet(codes, want.Codes) {
		return &AssertionError{
			Type:     ExpectError,
			Expected: fmt.Sprintf("issue codes %v", sorted(want.Codes)),
			Actual:   fmt.Sprintf("issue codes %v: %s", sorted(codes), issueSummary(*last)),
			Trace:    result.Trace,
		}
	}
	return nil
}

func issueSummary(event TraceEvent) string {
	parts := make([]string, len(event.Issues))
	for i, issue := range event.Issues {
		parts[i] = issue.String()
	}
	return strings.Join(parts, "; ")
}

func sameSet(a, b []string) bool {
	return slices.Equal(sorted(a), sorted(b))
}

func sorted(s []string) []string {
	out := slices.Clone(s)
	slices.Sort(out)
	return slices.Compact(out)
}
