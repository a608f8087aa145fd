// Package ir provides the value model shared by every resync package.
//
// Documents carry their user fields as IRValue trees. The model is sealed and
// small so that snapshots, validated results and stored bodies
// all have one exact representation:
//   - NO float types anywhere - use int64 for numbers
//   - IRNull is explicit; Go nil is never a valid IRValue
//   - RFC 8785 canonical JSON is the only encoding used for hashing
//
// ir imports nothing internal. Everything else builds on it.
package ir
