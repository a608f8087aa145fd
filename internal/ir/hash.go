package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainDocument = "resync/document/v1"
	DomainSnapshot = "resync/snapshot/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DocumentHash computes the content hash of a document revision.
// Field order does not contribute: two bodies with the same fields and
// values hash identically regardless of enumeration order.
func DocumentHash(collection, id string, body IRObject) (string, error) {
	obj := IRObject{
		"collection": IRString(collection),
		"id":         IRString(id),
		"body":       body,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("DocumentHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDocument, canonical), nil
}

// SnapshotHash fingerprints a bare snapshot or validated result.
// Used by traces to show whether validation changed anything.
func SnapshotHash(obj IRObject) (string, error) {
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("SnapshotHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

// MustDocumentHash is like DocumentHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustDocumentHash(collection, id string, body IRObject) string {
	h, err := DocumentHash(collection, id, body)
	if err != nil {
		panic(err)
	}
	return h
}
