package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/resync/internal/ir"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ReadLatest returns the current revision of a document.
// Returns ErrNotFound if the document has never been written.
func (s *Store) ReadLatest(ctx context.Context, id string) (ir.Revision, error) {
	var current int64
	err := s.db.QueryRowContext(ctx, `SELECT rev FROM documents WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Revision{}, fmt.Errorf("read latest %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.Revision{}, fmt.Errorf("read latest %s: %w", id, err)
	}
	return readRevision(ctx, s.db, id, current)
}

// ReadRevision returns one revision of a document.
func (s *Store) ReadRevision(ctx context.Context, id string, rev int64) (ir.Revision, error) {
	return readRevision(ctx, s.db, id, rev)
}

func readRevision(ctx context.Context, q queryer, id string, rev int64) (ir.Revision, error) {
	row := q.QueryRowContext(ctx, `
		SELECT r.doc_id, d.collection, r.rev, r.seq, r.fields, r.body, r.hash
		FROM revisions r
		JOIN documents d ON d.id = r.doc_id
		WHERE r.doc_id = ? AND r.rev = ?
	`, id, rev)

	out, err := scanRevision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Revision{}, fmt.Errorf("read revision %s@%d: %w", id, rev, ErrNotFound)
	}
	if err != nil {
		return ir.Revision{}, fmt.Errorf("read revision %s@%d: %w", id, rev, err)
	}
	return out, nil
}

// ReadRevisions returns every revision of a document, oldest first.
// Returns an empty slice (not nil) if the document has never been written.
func (s *Store) ReadRevisions(ctx context.Context, id string) ([]ir.Revision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.doc_id, d.collection, r.rev, r.seq, r.fields, r.body, r.hash
		FROM revisions r
		JOIN documents d ON d.id = r.doc_id
		WHERE r.doc_id = ?
		ORDER BY r.rev ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()

	revisions := []ir.Revision{}
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		revisions = append(revisions, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}
	return revisions, nil
}

// ListDocuments returns the documents of a collection ordered by seq, then
// id. An empty collection lists every document.
func (s *Store) ListDocuments(ctx context.Context, collection string) ([]ir.DocumentSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, collection, rev, seq, hash
		FROM documents
		WHERE ? = '' OR collection = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, collection, collection)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := []ir.DocumentSummary{}
	for rows.Next() {
		var d ir.DocumentSummary
		if err := rows.Scan(&d.ID, &d.Collection, &d.Rev, &d.Seq, &d.Hash); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRevision(row scanner) (ir.Revision, error) {
	var (
		rev        ir.Revision
		fieldsJSON string
		bodyJSON   string
	)
	if err := row.Scan(&rev.DocumentID, &rev.Collection, &rev.Rev, &rev.Seq, &fieldsJSON, &bodyJSON, &rev.Hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.Revision{}, err
		}
		return ir.Revision{}, fmt.Errorf("scan revision: %w", err)
	}

	fields, err := unmarshalFields(fieldsJSON)
	if err != nil {
		return ir.Revision{}, fmt.Errorf("revision %s@%d: %w", rev.DocumentID, rev.Rev, err)
	}
	body, err := unmarshalBody(bodyJSON)
	if err != nil {
		return ir.Revision{}, fmt.Errorf("revision %s@%d: %w", rev.DocumentID, rev.Rev, err)
	}
	rev.Fields = fields
	rev.Body = body
	return rev, nil
}
