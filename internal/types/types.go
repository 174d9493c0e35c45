// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles —
// storage, repository, query, and view can all import types without
// depending on each other.
package types

// Student represents one student record.
//
// The ID is assigned by the store the first time the record is persisted
// (a zero ID means "not yet stored — assign me one"). Once assigned it
// never changes and is never reused, even after the record is deleted.
// Every other field may be rewritten by an update.
//
// Struct tags serve two purposes:
//
//  1. json:"..."  — controls how the field appears when encoded to JSON
//     (lowercase names, so snapshots can be dumped/logged consistently).
//
//  2. validate:"..." — rules checked by the go-playground/validator
//     package at the repository boundary. Only Name carries "required":
//     presence of a name is the single input rule this system enforces.
type Student struct {
	ID        int64  `json:"id"`
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email"`
	RegNumber string `json:"regNumber"`
	Age       int    `json:"age"`
	Course    string `json:"course"`
}
