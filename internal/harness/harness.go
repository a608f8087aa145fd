package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/resync/internal/model"
	"github.com/roach88/resync/internal/reconcile"
	"github.com/roach88/resync/internal/record"
	"github.com/roach88/resync/internal/schema"
	"github.com/roach88/resync/internal/store"
	"github.com/roach88/resync/internal/testutil"
)

// Harness executes one scenario against a model backed by its own store.
type Harness struct {
	store      *store.Store
	model      *model.Model
	reconciler *reconcile.Reconciler
	validator  schema.Validator
	logger     *slog.Logger

	// lastPass is set by the pre-save hook on success.
	lastPass *reconcile.Pass
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, with
// sequential document ids, so repeated runs produce identical traces.
//
// Execution flow:
//  1. Compile the schema
//  2. Create the model and mint the record
//  3. Save the record Passes times, tracing each pass
//  4. Check the expect clause
//
// The returned error is reserved for execution problems (bad schema,
// storage failure); failed expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	validator, err := compileSchema(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return run(ctx, scenario, validator)
}

// run executes scenario against validator.
func run(ctx context.Context, scenario *Scenario, validator schema.Validator) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:     st,
		validator: validator,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	collection := scenario.Collection
	if collection == "" {
		collection = DefaultCollection
	}
	opts := []model.Option{
		model.WithStore(st),
		model.WithReserved(scenario.Reserved...),
		model.WithIDGenerator(testutil.NewSequentialIDs("doc")),
		model.WithLogger(h.logger),
		model.WithPreSave(h.reconcileHook),
	}
	if scenario.DeepSnapshot {
		opts = append(opts, model.WithDeepSnapshot())
	}
	h.model = model.New(collection, opts...)
	h.reconciler = h.model.Reconciler()

	result := NewResult()
	doc := h.model.New(scenario.Record.Clone().Entries()...)

	passes := scenario.Passes
	if passes == 0 {
		passes = 1
	}
	for i := 1; i <= passes; i++ {
		if err := h.executePass(ctx, int64(i), doc, result); err != nil {
			return nil, fmt.Errorf("pass %d: %w", i, err)
		}
	}
	result.Record = doc.Clone()

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateExpectations(result, scenario.Expect, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// reconcileHook is the model's pre-save hook.
func (h *Harness) reconcileHook(ctx context.Context) error {
	rec, _ := record.SubjectFrom(ctx)
	pass, err := h.reconciler.Run(ctx, rec, h.validator)
	if err != nil {
		return err
	}
	h.lastPass = pass
	return nil
}

// executePass saves doc once and traces the attempt.
func (h *Harness) executePass(ctx context.Context, seq int64, doc *record.Document, result *Result) error {
	before := doc.Clone()
	h.lastPass = nil

	err := h.model.Save(ctx, doc)
	if err != nil {
		verr, ok := schema.AsValidationError(err)
		if !ok {
			return err
		}
		fields, _ := h.reconciler.Extract(before)
		result.AddRejectTrace(seq, fields, verr.Issues, doc, model.Rev(doc))
		if !before.Equal(doc) {
			result.AddError(fmt.Sprintf("pass %d: rejected save changed the record: before %s, after %s", seq, before, doc))
		}
		h.logger.Info("pass rejected", "seq", seq, "issues", len(verr.Issues))
		return nil
	}

	result.AddSaveTrace(seq, h.lastPass, doc, model.Rev(doc))
	if seq > 1 && h.lastPass.Outcome.Mutated() {
		result.AddError(fmt.Sprintf("pass %d: not a fixed point: changed %v, deleted %v, added %v",
			seq, h.lastPass.Outcome.Changed, h.lastPass.Outcome.Deleted, h.lastPass.Outcome.Added))
	}
	h.logger.Info("pass saved", "seq", seq, "rev", model.Rev(doc))
	return nil
}

// compileSchema builds the scenario's validator.
func compileSchema(s *Scenario) (schema.Validator, error) {
	policy, err := schema.ParseUnknownKeys(s.Schema.UnknownKeys)
	if err != nil {
		return nil, err
	}
	opts := []schema.Option{schema.WithUnknownKeys(policy)}

	if s.Schema.Path != "" {
		return schema.Load(s.Schema.Kind, s.Schema.Path, s.Schema.Definition, opts...)
	}
	switch s.Schema.Kind {
	case schema.KindCUE:
		return schema.CompileCUE(s.Name+".cue", s.Schema.Source, s.Schema.Definition, opts...)
	case schema.KindJSONSchema:
		return schema.CompileJSONSchema(s.Name+".schema.json", []byte(s.Schema.Source), opts...)
	default:
		return nil, fmt.Errorf("unknown schema kind %q", s.Schema.Kind)
	}
}
