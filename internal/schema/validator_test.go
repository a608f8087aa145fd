package schema

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/resync/internal/ir"
)

func TestValidatorFunc(t *testing.T) {
	v := ValidatorFunc(func(ctx context.Context, snapshot ir.IRObject) (ir.IRObject, error) {
		return ir.IRObject{"seen": ir.IRInt(int64(len(snapshot)))}, nil
	})

	got, err := v.Validate(context.Background(), ir.IRObject{"a": ir.IRInt(1)})
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{"seen": ir.IRInt(1)}, got)
	assert.Equal(t, "validator", NameOf(v))
}

func TestPassthroughCopiesTopLevel(t *testing.T) {
	snapshot := ir.IRObject{"a": ir.IRInt(1)}

	got, err := Passthrough.Validate(context.Background(), snapshot)
	require.NoError(t, err)
	assert.Equal(t, snapshot, got)

	got["b"] = ir.IRInt(2)
	assert.False(t, snapshot.Has("b"))
}

func TestValidationErrorMessage(t *testing.T) {
	tests := []struct {
		name   string
		issues []Issue
		want   string
	}{
		{"no issues", nil, "validation failed against inn"},
		{
			"one issue",
			[]Issue{{Field: "name", Code: ErrCodeRequired, Message: "missing property"}},
			"validation failed against inn: [E201] name: missing property",
		},
		{
			"several issues",
			[]Issue{
				{Field: "name", Code: ErrCodeRequired, Message: "missing property"},
				{Code: ErrCodeInvalid, Message: "bad"},
			},
			"validation failed against inn (2 issues): [E201] name: missing property; [E200] bad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &ValidationError{Schema: "inn", Issues: tt.issues}
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestAsValidationErrorUnwraps(t *testing.T) {
	orig := &ValidationError{Schema: "inn"}
	wrapped := fmt.Errorf("save inn: %w", orig)

	got, ok := AsValidationError(wrapped)
	require.True(t, ok)
	assert.Same(t, orig, got)

	_, ok = AsValidationError(errors.New("plain"))
	assert.False(t, ok)
}

func TestParseUnknownKeys(t *testing.T) {
	for in, want := range map[string]UnknownKeys{
		"":        Strip,
		"strip":   Strip,
		"REJECT":  Reject,
		" allow ": Allow,
	} {
		got, err := ParseUnknownKeys(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseUnknownKeys("keep")
	require.Error(t, err)
	assert.Equal(t, "reject", Reject.String())
}
