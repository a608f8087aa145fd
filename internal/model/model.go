package model

import (
	"context"
	"errors"
	"log/slog"
	"runtime"

	"github.com/roach88/resync/internal/ir"
	"github.com/roach88/resync/internal/reconcile"
	"github.com/roach88/resync/internal/record"
	"github.com/roach88/resync/internal/schema"
)

var (
	// ErrNoID is returned when a document without an _id is saved.
	ErrNoID = errors.New("document has no _id")

	// ErrNoStore is returned by Find on a model without a Persister.
	ErrNoStore = errors.New("model has no store")
)

// Hook runs before a document is persisted. The document is the subject
// bound in ctx (record.SubjectFrom). A non-nil error aborts the save.
type Hook func(ctx context.Context) error

// Persister stores revisions of a document's user fields.
// Implemented by *store.Store.
type Persister interface {
	WriteRevision(ctx context.Context, rev ir.Revision, expectedRev int64) (ir.Revision, bool, error)
	ReadLatest(ctx context.Context, id string) (ir.Revision, error)
}

// Model describes one collection of documents.
//
// Thread-safety: a Model is immutable after New. Save serializes work per
// document; different documents save concurrently. Two live copies of the
// same stored document are arbitrated by the store's revision check.
type Model struct {
	collection string
	reserved   record.Reserved
	hooks      []Hook
	persister  Persister
	ids        IDGenerator
	logger     *slog.Logger
	deep       bool
	saveLimit  int
	locks      keyedMutex[*record.Document]

	// hook factories run after all options, so validators see the final
	// reserved set regardless of option order.
	pending []func(m *Model) Hook
}

// Option configures a Model.
type Option func(*Model)

// WithReserved adds framework-owned field names on top of
// record.DefaultReserved.
func WithReserved(names ...string) Option {
	return func(m *Model) {
		m.reserved = m.reserved.With(names...)
	}
}

// WithPreSave appends a hook to the pre-save chain.
func WithPreSave(h Hook) Option {
	return func(m *Model) {
		m.pending = append(m.pending, func(*Model) Hook { return h })
	}
}

// WithValidator appends a reconciliation hook against v to the pre-save
// chain: user fields are validated and the document is rewritten to match
// the validated result.
func WithValidator(v schema.Validator) Option {
	return func(m *Model) {
		m.pending = append(m.pending, func(m *Model) Hook {
			return m.Reconciler().PreSave(v)
		})
	}
}

// WithStore sets the Persister. Without one, Save runs the hooks and
// advances _rev in memory only.
func WithStore(p Persister) Option {
	return func(m *Model) {
		m.persister = p
	}
}

// WithIDGenerator sets the id generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(m *Model) {
		m.ids = g
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) {
		m.logger = logger
	}
}

// WithDeepSnapshot makes validator hooks snapshot nested values by copy.
func WithDeepSnapshot() Option {
	return func(m *Model) {
		m.deep = true
	}
}

// WithSaveLimit bounds the number of concurrent saves in SaveAll.
// Default: GOMAXPROCS.
func WithSaveLimit(n int) Option {
	return func(m *Model) {
		m.saveLimit = n
	}
}

// New creates a model for collection.
func New(collection string, opts ...Option) *Model {
	m := &Model{
		collection: collection,
		reserved:   record.DefaultReserved,
		ids:        UUIDv7Generator{},
		saveLimit:  runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.saveLimit < 1 {
		m.saveLimit = 1
	}
	for _, build := range m.pending {
		m.hooks = append(m.hooks, build(m))
	}
	m.pending = nil
	return m
}

// Collection returns the collection name.
func (m *Model) Collection() string {
	return m.collection
}

// Reserved returns the model's reserved set.
func (m *Model) Reserved() record.Reserved {
	return m.reserved
}

// Reconciler returns a reconciler configured with the model's reserved
// set, logger and snapshot mode.
func (m *Model) Reconciler() *reconcile.Reconciler {
	opts := []reconcile.Option{reconcile.WithLogger(m.logger)}
	if m.deep {
		opts = append(opts, reconcile.WithDeepSnapshot())
	}
	return reconcile.New(m.reserved, opts...)
}

// New returns a fresh, unsaved document carrying a new _id, _rev 0 and
// _isNew true, followed by fields.
func (m *Model) New(fields ...record.Field) *record.Document {
	doc := record.NewDocument(
		record.F(record.FieldID, ir.IRString(m.ids.Generate())),
		record.F(record.FieldRev, ir.IRInt(0)),
		record.F(record.FieldIsNew, ir.IRBool(true)),
	)
	for _, f := range fields {
		doc.Set(f.Name, f.Value)
	}
	return doc
}

// Rev returns the document's _rev, or 0 when it is absent.
func Rev(doc *record.Document) int64 {
	if v, ok := doc.Get(record.FieldRev); ok {
		if rev, ok := v.(ir.IRInt); ok {
			return int64(rev)
		}
	}
	return 0
}
