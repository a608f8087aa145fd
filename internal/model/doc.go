// Package model is the host framework around records: it mints documents
// with framework-owned fields, runs ordered pre-save hooks against the
// document being saved, and persists the user fields.
//
// Reconciliation plugs in as a pre-save hook (see WithValidator). Hooks
// find the document through record.SubjectFrom; Save binds it.
package model
