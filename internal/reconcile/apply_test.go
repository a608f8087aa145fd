package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/resync/internal/ir"
	"github.com/roach88/resync/internal/record"
)

func TestApplyDeletion(t *testing.T) {
	doc := record.NewDocument(record.F("a", ir.IRInt(0)), record.F("b", ir.IRInt(2)))

	out := ApplyValidated(doc, []string{"a", "b"}, ir.IRObject{"a": ir.IRInt(1)})

	a, ok := doc.Get("a")
	require.True(t, ok)
	assert.Equal(t, ir.IRInt(1), a)
	assert.False(t, doc.Has("b"))

	assert.Equal(t, Outcome{
		Assigned: []string{"a"},
		Changed:  []string{"a"},
		Deleted:  []string{"b"},
	}, out)
}

func TestApplyDefaultInjection(t *testing.T) {
	doc := record.NewDocument(record.F("a", ir.IRInt(1)))

	out := ApplyValidated(doc, []string{"a"}, ir.IRObject{
		"a": ir.IRInt(1),
		"b": ir.IRString("default"),
	})

	a, _ := doc.Get("a")
	b, _ := doc.Get("b")
	assert.Equal(t, ir.IRInt(1), a)
	assert.Equal(t, ir.IRString("default"), b)
	assert.Equal(t, []string{"a", "b"}, doc.Fields())

	assert.Equal(t, []string{"a"}, out.Assigned)
	assert.Empty(t, out.Changed)
	assert.Equal(t, []string{"b"}, out.Added)
	assert.True(t, out.Mutated())
}

func TestApplyAddsInCanonicalOrder(t *testing.T) {
	doc := record.NewDocument()

	ApplyValidated(doc, nil, ir.IRObject{
		"zeta":  ir.IRInt(1),
		"alpha": ir.IRInt(2),
		"mid":   ir.IRInt(3),
	})

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, doc.Fields())
}

func TestApplyKeepsFieldPositions(t *testing.T) {
	doc := record.NewDocument(
		record.F("b", ir.IRInt(1)),
		record.F("_id", ir.IRString("a1")),
		record.F("a", ir.IRInt(2)),
	)

	ApplyValidated(doc, []string{"b", "a"}, ir.IRObject{"a": ir.IRInt(20), "b": ir.IRInt(10)})

	assert.Equal(t, []string{"b", "_id", "a"}, doc.Fields())
}

func TestApplyIgnoresFieldsOutsideBothSets(t *testing.T) {
	doc := record.NewDocument(
		record.F("_id", ir.IRString("a1")),
		record.F("untracked", ir.IRString("keep")),
		record.F("a", ir.IRInt(1)),
	)

	ApplyValidated(doc, []string{"a"}, ir.IRObject{})

	assert.Equal(t, []string{"_id", "untracked"}, doc.Fields())
}

func TestApplyEmptyResultDeletesEverythingExtracted(t *testing.T) {
	doc := record.NewDocument(record.F("a", ir.IRInt(1)), record.F("b", ir.IRInt(2)))

	out := ApplyValidated(doc, []string{"a", "b"}, ir.IRObject{})

	assert.Equal(t, 0, doc.Len())
	assert.Equal(t, []string{"a", "b"}, out.Deleted)
}

func TestApplyDuplicateFieldNames(t *testing.T) {
	doc := record.NewDocument(record.F("a", ir.IRInt(1)))

	out := ApplyValidated(doc, []string{"a", "a"}, ir.IRObject{"a": ir.IRInt(2)})

	assert.Equal(t, []string{"a"}, out.Assigned)
}

func TestApplyNoopOutcome(t *testing.T) {
	doc := record.NewDocument(record.F("a", ir.IRInt(1)))

	out := ApplyValidated(doc, []string{"a"}, ir.IRObject{"a": ir.IRInt(1)})

	assert.False(t, out.Mutated())
}

func TestApplyFixedPoint(t *testing.T) {
	doc := record.NewDocument(
		record.F("_id", ir.IRString("a1")),
		record.F("a", ir.IRInt(0)),
		record.F("b", ir.IRInt(2)),
	)
	result := ir.IRObject{"a": ir.IRInt(1), "c": ir.IRArray{ir.IRString("x")}}

	names, _ := ExtractUserFields(doc, record.DefaultReserved)
	ApplyValidated(doc, names, result)
	afterFirst := doc.Clone()

	names, _ = ExtractUserFields(doc, record.DefaultReserved)
	out := ApplyValidated(doc, names, result)

	assert.True(t, doc.Equal(afterFirst), "second apply changed %s", doc)
	assert.False(t, out.Mutated())
	assert.Empty(t, out.Added)
}

func TestApplyNilRecordPanics(t *testing.T) {
	require.Panics(t, func() {
		ApplyValidated(nil, nil, ir.IRObject{})
	})
}
