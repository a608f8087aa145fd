package model

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/resync/internal/ir"
	"github.com/roach88/resync/internal/reconcile"
	"github.com/roach88/resync/internal/record"
)

// Save runs the pre-save hooks against doc and persists its user fields.
//
// Hooks run in order with doc bound as the subject of ctx. The first hook
// error aborts the save and is returned wrapped; errors.As still reaches
// the hook's error. Nothing is persisted after a hook error.
//
// On success doc's _rev is set to the stored revision and _isNew to false.
// Only one Save per document runs at a time.
func (m *Model) Save(ctx context.Context, doc *record.Document) error {
	unlock := m.locks.Lock(doc)
	defer unlock()

	id := doc.ID()
	if id == "" {
		return fmt.Errorf("save %s: %w", m.collection, ErrNoID)
	}

	hookCtx := record.WithSubject(ctx, doc)
	for i, h := range m.hooks {
		if err := h(hookCtx); err != nil {
			m.logger.Debug("pre-save hook failed", "collection", m.collection, "id", id, "hook", i, "error", err)
			return fmt.Errorf("save %s/%s: pre-save: %w", m.collection, id, err)
		}
	}

	expected := Rev(doc)
	if m.persister == nil {
		doc.Set(record.FieldRev, ir.IRInt(expected+1))
		doc.Set(record.FieldIsNew, ir.IRBool(false))
		return nil
	}

	names, body := reconcile.ExtractUserFields(doc, m.reserved)
	saved, written, err := m.persister.WriteRevision(ctx, ir.Revision{
		DocumentID: id,
		Collection: m.collection,
		Fields:     names,
		Body:       body,
	}, expected)
	if err != nil {
		return fmt.Errorf("save %s/%s: %w", m.collection, id, err)
	}

	doc.Set(record.FieldRev, ir.IRInt(saved.Rev))
	doc.Set(record.FieldIsNew, ir.IRBool(false))
	m.logger.Debug("document saved",
		"collection", m.collection,
		"id", id,
		"rev", saved.Rev,
		"seq", saved.Seq,
		"written", written,
	)
	return nil
}

// SaveAll saves docs concurrently, at most the save limit at a time.
// It returns the first error; saves already started run to completion.
// A document passed more than once is saved one call after another.
func (m *Model) SaveAll(ctx context.Context, docs ...*record.Document) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.saveLimit)
	for _, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return m.Save(gctx, doc)
		})
	}
	return g.Wait()
}

// Find loads the latest revision of id as a live document, with fields in
// the order they had when saved.
func (m *Model) Find(ctx context.Context, id string) (*record.Document, error) {
	if m.persister == nil {
		return nil, fmt.Errorf("find %s/%s: %w", m.collection, id, ErrNoStore)
	}
	rev, err := m.persister.ReadLatest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find %s/%s: %w", m.collection, id, err)
	}
	if rev.Collection != m.collection {
		return nil, fmt.Errorf("find %s/%s: document belongs to collection %q", m.collection, id, rev.Collection)
	}
	return FromRevision(rev), nil
}

// FromRevision rebuilds a saved document from a stored revision.
// Body keys missing from rev.Fields are appended in sorted order.
func FromRevision(rev ir.Revision) *record.Document {
	doc := record.NewDocument(
		record.F(record.FieldID, ir.IRString(rev.DocumentID)),
		record.F(record.FieldRev, ir.IRInt(rev.Rev)),
		record.F(record.FieldIsNew, ir.IRBool(false)),
	)
	for _, name := range rev.Fields {
		if v, ok := rev.Body[name]; ok {
			doc.Set(name, v)
		}
	}
	for _, name := range rev.Body.SortedKeys() {
		if !doc.Has(name) {
			doc.Set(name, rev.Body[name])
		}
	}
	return doc
}
