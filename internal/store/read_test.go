package store

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/roach88/resync/internal/ir"
)

func TestReadLatest(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rev := createTestRevision("d1", "Inn")
	rev.Fields = []string{"rooms", "name"}
	if _, _, err := s.WriteRevision(ctx, rev, 0); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, _, err := s.WriteRevision(ctx, createTestRevision("d1", "Tavern"), 1); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got, err := s.ReadLatest(ctx, "d1")
	if err != nil {
		t.Fatalf("ReadLatest() failed: %v", err)
	}
	if got.Rev != 2 || got.Collection != "inns" {
		t.Errorf("got rev %d collection %q, want rev 2 collection inns", got.Rev, got.Collection)
	}
	if !ir.Equal(got.Body["name"], ir.IRString("Tavern")) {
		t.Errorf("name = %v, want Tavern", got.Body["name"])
	}

	first, err := s.ReadRevision(ctx, "d1", 1)
	if err != nil {
		t.Fatalf("ReadRevision() failed: %v", err)
	}
	if !slices.Equal(first.Fields, []string{"rooms", "name"}) {
		t.Errorf("fields = %v, want [rooms name]", first.Fields)
	}
}

func TestReadLatest_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadLatest(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	_, err = s.ReadRevision(context.Background(), "missing", 1)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReadRevisions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i, name := range []string{"Inn", "Tavern", "Hostel"} {
		if _, _, err := s.WriteRevision(ctx, createTestRevision("d1", name), int64(i)); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
	}

	revs, err := s.ReadRevisions(ctx, "d1")
	if err != nil {
		t.Fatalf("ReadRevisions() failed: %v", err)
	}
	if len(revs) != 3 {
		t.Fatalf("got %d revisions, want 3", len(revs))
	}
	for i, rev := range revs {
		if rev.Rev != int64(i+1) {
			t.Errorf("revs[%d].Rev = %d, want %d", i, rev.Rev, i+1)
		}
	}

	empty, err := s.ReadRevisions(ctx, "missing")
	if err != nil {
		t.Fatalf("ReadRevisions() failed: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", empty)
	}
}

func TestListDocuments(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	writes := []ir.Revision{
		createTestRevision("b", "Inn"),
		createTestRevision("a", "Inn"),
		{DocumentID: "h1", Collection: "hostels", Body: ir.IRObject{"name": ir.IRString("Bunk")}},
	}
	for _, rev := range writes {
		if _, _, err := s.WriteRevision(ctx, rev, 0); err != nil {
			t.Fatalf("write %s failed: %v", rev.DocumentID, err)
		}
	}

	inns, err := s.ListDocuments(ctx, "inns")
	if err != nil {
		t.Fatalf("ListDocuments() failed: %v", err)
	}
	var ids []string
	for _, d := range inns {
		ids = append(ids, d.ID)
	}
	if !slices.Equal(ids, []string{"b", "a"}) {
		t.Errorf("inns = %v, want [b a] (seq order)", ids)
	}

	all, err := s.ListDocuments(ctx, "")
	if err != nil {
		t.Fatalf("ListDocuments() failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d documents, want 3", len(all))
	}
}
