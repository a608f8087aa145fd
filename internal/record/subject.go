package record

import "context"

type subjectKey struct{}

// WithSubject binds rec as the implicit subject of ctx.
// Lifecycle hooks receive the document they run for through this binding
// rather than as a parameter.
func WithSubject(ctx context.Context, rec Record) context.Context {
	return context.WithValue(ctx, subjectKey{}, rec)
}

// SubjectFrom returns the record bound by WithSubject.
func SubjectFrom(ctx context.Context) (Record, bool) {
	rec, ok := ctx.Value(subjectKey{}).(Record)
	return rec, ok && rec != nil
}
