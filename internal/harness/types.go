package harness

import (
	"github.com/roach88/resync/internal/ir"
	"github.com/roach88/resync/internal/reconcile"
	"github.com/roach88/resync/internal/record"
	"github.com/roach88/resync/internal/schema"
)

// Trace event types.
const (
	EventSave   = "save"
	EventReject = "reject"
)

// TraceEvent records one save attempt.
type TraceEvent struct {
	Type string `json:"type"` // "save" or "reject"
	Seq  int64  `json:"seq"`

	// Fields are the user fields extracted for validation, in order.
	Fields []string `json:"fields"`

	// Validated and Outcome are set for saves.
	Validated ir.IRObject        `json:"validated,omitempty"`
	Outcome   *reconcile.Outcome `json:"outcome,omitempty"`

	// Issues are set for rejections.
	Issues []schema.Issue `json:"issues,omitempty"`

	// Record is the document after the attempt; Rev its _rev.
	Record *record.Document `json:"record"`
	Rev    int64            `json:"rev"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and property held.
	Pass bool `json:"pass"`

	// Trace contains one event per save attempt, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors explains each failed expectation. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Record is the final state of the document.
	Record *record.Document `json:"record"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddSaveTrace records a successful pass.
func (r *Result) AddSaveTrace(seq int64, pass *reconcile.Pass, doc *record.Document, rev int64) {
	outcome := pass.Outcome
	r.Trace = append(r.Trace, TraceEvent{
		Type:      EventSave,
		Seq:       seq,
		Fields:    pass.FieldNames,
		Validated: pass.Validated,
		Outcome:   &outcome,
		Record:    doc.Clone(),
		Rev:       rev,
	})
}

// AddRejectTrace records a pass that failed validation.
func (r *Result) AddRejectTrace(seq int64, fields []string, issues []schema.Issue, doc *record.Document, rev int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   EventReject,
		Seq:    seq,
		Fields: fields,
		Issues: issues,
		Record: doc.Clone(),
		Rev:    rev,
	})
}
