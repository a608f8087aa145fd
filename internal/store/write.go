package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/resync/internal/ir"
)

// WriteRevision appends a revision of rev.DocumentID and makes it current.
//
// expectedRev is the revision the caller's copy was loaded at (0 for a new
// document). When the stored document has moved on, the write fails with
// ErrRevisionConflict. When the body hashes the same as the current
// revision and the field order matches, nothing is written and the current
// revision is returned with written=false, so retries are idempotent. A
// reordering alone still writes a new revision.
//
// The returned revision carries the assigned Rev, Seq and Hash.
func (s *Store) WriteRevision(ctx context.Context, rev ir.Revision, expectedRev int64) (saved ir.Revision, written bool, err error) {
	if rev.DocumentID == "" {
		return ir.Revision{}, false, fmt.Errorf("write revision: empty document id")
	}
	if rev.Body == nil {
		rev.Body = ir.IRObject{}
	}

	hash, err := ir.DocumentHash(rev.Collection, rev.DocumentID, rev.Body)
	if err != nil {
		return ir.Revision{}, false, fmt.Errorf("write revision: %w", err)
	}
	bodyJSON, err := marshalBody(rev.Body)
	if err != nil {
		return ir.Revision{}, false, fmt.Errorf("write revision: %w", err)
	}
	fieldsJSON, err := marshalFields(rev.Fields)
	if err != nil {
		return ir.Revision{}, false, fmt.Errorf("write revision: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ir.Revision{}, false, fmt.Errorf("write revision: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var (
		current     int64
		currentHash string
		collection  string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT rev, hash, collection FROM documents WHERE id = ?`,
		rev.DocumentID,
	).Scan(&current, &currentHash, &collection)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		current = 0
	case err != nil:
		return ir.Revision{}, false, fmt.Errorf("write revision: read current: %w", err)
	default:
		if collection != rev.Collection {
			return ir.Revision{}, false, fmt.Errorf("write revision: document %s belongs to collection %q, not %q",
				rev.DocumentID, collection, rev.Collection)
		}
		if currentHash == hash {
			latest, err := readRevision(ctx, tx, rev.DocumentID, current)
			if err != nil {
				return ir.Revision{}, false, fmt.Errorf("write revision: %w", err)
			}
			if slices.Equal(latest.Fields, rev.Fields) {
				return latest, false, nil
			}
		}
	}

	if current != expectedRev {
		return ir.Revision{}, false, fmt.Errorf("write revision: %w: document %s is at rev %d, expected %d",
			ErrRevisionConflict, rev.DocumentID, current, expectedRev)
	}

	rev.Rev = current + 1
	rev.Seq = s.clock.Next()
	rev.Hash = hash

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, collection, rev, seq, hash)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET rev = excluded.rev, seq = excluded.seq, hash = excluded.hash
	`, rev.DocumentID, rev.Collection, rev.Rev, rev.Seq, rev.Hash)
	if err != nil {
		return ir.Revision{}, false, fmt.Errorf("write revision: upsert document: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO revisions (doc_id, rev, seq, fields, body, hash)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rev.DocumentID, rev.Rev, rev.Seq, fieldsJSON, bodyJSON, rev.Hash)
	if err != nil {
		return ir.Revision{}, false, fmt.Errorf("write revision: insert revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ir.Revision{}, false, fmt.Errorf("write revision: commit: %w", err)
	}

	if rev.Fields == nil {
		rev.Fields = []string{}
	}
	return rev, true, nil
}
