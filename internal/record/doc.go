// Package record models the live, identity-bearing documents that resync
// reconciles in place.
//
// A Document keeps one ordered field namespace. Host-framework fields
// (identity, revision, lifecycle flags) and user fields live side by side and
// may interleave; the closed Reserved set, supplied once per document type,
// is the only thing that tells them apart.
//
// Field order is the order of first assignment. Reassigning an existing field
// keeps its position; deleting and re-adding moves it to the end.
package record
