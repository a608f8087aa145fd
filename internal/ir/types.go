package ir

// Revision is one persisted version of a document's user fields.
//
// Body holds the values; Fields preserves the enumeration order the live
// document had when it was saved, since IRObject itself is unordered.
type Revision struct {
	DocumentID string   `json:"document_id"`
	Collection string   `json:"collection"`
	Rev        int64    `json:"rev"`
	Seq        int64    `json:"seq"` // Logical clock, never wall time
	Fields     []string `json:"fields"`
	Body       IRObject `json:"body"`
	Hash       string   `json:"hash"`
}

// DocumentSummary is a row of the documents index.
type DocumentSummary struct {
	ID         string `json:"id"`
	Collection string `json:"collection"`
	Rev        int64  `json:"rev"`
	Seq        int64  `json:"seq"`
	Hash       string `json:"hash"`
}
