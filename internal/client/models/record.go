// Package models defines the client-side data carried between the CarVault
// services and the CLI.
package models

import "slices"

// Field names a Record attribute that accepts uploaded assets.
type Field string

const (
	FieldLogo      Field = "logo"
	FieldImages    Field = "images"
	FieldDocuments Field = "documents"
)

// ParseField maps user input to a Field.
func ParseField(s string) (Field, bool) {
	switch f := Field(s); f {
	case FieldLogo, FieldImages, FieldDocuments:
		return f, true
	default:
		return "", false
	}
}

// Record is one car in the collection. Images and Documents keep upload
// order and may contain duplicates.
type Record struct {
	ID        uint64
	Name      string
	Model     string
	Logo      string
	Images    []string
	Documents []string
	Owner     string
	Approved  bool
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	r.Images = slices.Clone(r.Images)
	r.Documents = slices.Clone(r.Documents)
	return r
}
