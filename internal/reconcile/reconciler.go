package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/resync/internal/ir"
	"github.com/roach88/resync/internal/record"
	"github.com/roach88/resync/internal/schema"
)

// ErrNoResult is returned when a validator reports success without a result.
var ErrNoResult = errors.New("reconcile: validator returned a nil result")

// Reconciler runs reconciliation passes for one record type.
// It is immutable after New and safe for concurrent use.
type Reconciler struct {
	reserved record.Reserved
	deep     bool
	logger   *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithDeepSnapshot makes Extract deep-copy nested values, so a validator
// that mutates nested arrays or objects in place cannot reach the record.
func WithDeepSnapshot() Option {
	return func(r *Reconciler) {
		r.deep = true
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// New creates a Reconciler for records whose reserved fields are reserved.
func New(reserved record.Reserved, opts ...Option) *Reconciler {
	r := &Reconciler{reserved: reserved}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Reserved returns the reserved set.
func (r *Reconciler) Reserved() record.Reserved {
	return r.reserved
}

// Pass records what one successful Run saw and did.
type Pass struct {
	FieldNames []string    `json:"field_names"`
	Snapshot   ir.IRObject `json:"snapshot"`
	Validated  ir.IRObject `json:"validated"`
	Outcome    Outcome     `json:"outcome"`
}

// Extract returns the user field names and snapshot of rec.
func (r *Reconciler) Extract(rec record.Record) ([]string, ir.IRObject) {
	names, snapshot := ExtractUserFields(rec, r.reserved)
	if r.deep {
		snapshot = snapshot.Clone()
	}
	return names, snapshot
}

// Apply applies validated to rec. Reserved keys in validated are ignored,
// so a validator cannot write framework fields.
func (r *Reconciler) Apply(rec record.Record, fieldNames []string, validated ir.IRObject) Outcome {
	filtered := make(ir.IRObject, len(validated))
	for _, k := range validated.SortedKeys() {
		if r.reserved.Has(k) {
			r.logger.Warn("ignoring reserved field in validated result", "field", k)
			continue
		}
		filtered[k] = validated[k]
	}
	return ApplyValidated(rec, fieldNames, filtered)
}

// Run performs Extract, Validate and Apply on rec.
//
// A validation error is returned as is and rec is left untouched. The same
// holds when ctx is done before Apply starts.
func (r *Reconciler) Run(ctx context.Context, rec record.Record, v schema.Validator) (*Pass, error) {
	names, snapshot := r.Extract(rec)

	validated, err := v.Validate(ctx, snapshot)
	if err != nil {
		r.logger.Debug("validation failed", "schema", schema.NameOf(v), "fields", len(names), "error", err)
		return nil, err
	}
	if validated == nil {
		return nil, fmt.Errorf("%w (%s)", ErrNoResult, schema.NameOf(v))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outcome := r.Apply(rec, names, validated)
	r.logger.Debug("record reconciled",
		"schema", schema.NameOf(v),
		"changed", len(outcome.Changed),
		"deleted", len(outcome.Deleted),
		"added", len(outcome.Added),
	)
	return &Pass{
		FieldNames: names,
		Snapshot:   snapshot,
		Validated:  validated,
		Outcome:    outcome,
	}, nil
}

// PreSave returns a lifecycle hook that reconciles the subject bound in its
// context (see record.WithSubject) against v.
//
// The hook mutates the subject in place. Invoking it without a bound
// subject is a programming error and panics.
func (r *Reconciler) PreSave(v schema.Validator) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		rec, ok := record.SubjectFrom(ctx)
		if !ok {
			panic("reconcile: pre-save hook invoked without a subject")
		}
		_, err := r.Run(ctx, rec, v)
		return err
	}
}
