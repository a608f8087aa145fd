package schema

import (
	"context"

	"github.com/roach88/resync/internal/ir"
)

// Validator validates a snapshot of user fields.
//
// On success it returns the validated result: a fresh object whose keys may
// be a subset of the snapshot (stripped fields), a superset (defaults) or
// equal, with values in their validated form. On failure it returns a
// *ValidationError. Validate may block; it should honour ctx.
//
// Implementations must not mutate the snapshot. The snapshot may share
// nested arrays and objects with the live record.
type Validator interface {
	Validate(ctx context.Context, snapshot ir.IRObject) (ir.IRObject, error)
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(ctx context.Context, snapshot ir.IRObject) (ir.IRObject, error)

// Validate implements Validator.
func (f ValidatorFunc) Validate(ctx context.Context, snapshot ir.IRObject) (ir.IRObject, error) {
	return f(ctx, snapshot)
}

// Named is implemented by validators that can describe their schema,
// for logs and error messages.
type Named interface {
	Name() string
}

// NameOf returns v's schema name, or "validator" when it has none.
func NameOf(v Validator) string {
	if n, ok := v.(Named); ok {
		return n.Name()
	}
	return "validator"
}

// Passthrough is a Validator that accepts every snapshot unchanged.
// The result is a shallow copy so callers may own it.
var Passthrough Validator = ValidatorFunc(func(ctx context.Context, snapshot ir.IRObject) (ir.IRObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(ir.IRObject, len(snapshot))
	for k, v := range snapshot {
		out[k] = v
	}
	return out, nil
})
