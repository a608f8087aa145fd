// Package reconcile resynchronizes a live record with the validated form of
// its own user fields.
//
// A pass has three stages and never goes back:
//
//  1. Extract: enumerate the record's fields, drop reserved names, copy the
//     rest into a snapshot. The record is not touched.
//  2. Validate: hand the snapshot to a schema.Validator. A failure is
//     returned to the caller unchanged and the pass stops here.
//  3. Apply: every extracted name is either reassigned from the validated
//     result or deleted; names only the result carries (defaults) are added.
//
// Because Extract never mutates and Apply only runs after a successful
// Validate, a failed pass leaves the record exactly as it was.
//
// The package holds no locks. Concurrent passes over distinct records are
// fine; passes over the same record must be serialized by the caller
// (see model.Model).
package reconcile
