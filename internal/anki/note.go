package anki

import (
	"errors"
	"strings"
)

// Sentinel errors returned by Collection
var (
	// ErrNotFound indicates a note ID that does not exist in the collection
	ErrNotFound = errors.New("note not found")

	// ErrUnsupportedSchema indicates a database without notetype information
	ErrUnsupportedSchema = errors.New("unsupported collection schema")
)

// fieldSeparator joins field values in the notes.flds column (ASCII 31)
const fieldSeparator = "\x1f"

// NoteID identifies a note. IDs grow with creation time but are not contiguous.
type NoteID int64

// Field is a named note field
type Field struct {
	Name  string
	Value string
}

// Note is a single note with the fields of its notetype, in field order
type Note struct {
	ID       NoteID
	Notetype string
	Fields   []Field
}

// NewNote creates a note from parallel name and value slices. Missing
// values are treated as empty fields.
func NewNote(id NoteID, notetype string, names, values []string) *Note {
	fields := make([]Field, len(names))
	for i, name := range names {
		fields[i].Name = name
		if i < len(values) {
			fields[i].Value = values[i]
		}
	}
	return &Note{ID: id, Notetype: notetype, Fields: fields}
}

// Field returns the value of the named field and whether the note's
// notetype has that field
func (n *Note) Field(name string) (string, bool) {
	for _, f := range n.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// HasField reports whether the note's notetype has the named field
func (n *Note) HasField(name string) bool {
	_, ok := n.Field(name)
	return ok
}

// Notetype describes a note schema: its name and ordered field names
type Notetype struct {
	ID     int64
	Name   string
	Fields []string
}

// FieldOrd returns the position of the named field in the notetype
func (nt Notetype) FieldOrd(name string) (int, bool) {
	for i, f := range nt.Fields {
		if f == name {
			return i, true
		}
	}
	return 0, false
}

func splitFields(flds string) []string {
	return strings.Split(flds, fieldSeparator)
}

func joinFields(values []string) string {
	return strings.Join(values, fieldSeparator)
}
