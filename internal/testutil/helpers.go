package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/abdnh/subs2srs-context/internal/anki"
)

// Field names used by subs2srs notetypes in tests
const (
	SentenceType  = "Sentence"
	SequenceField = "Notes"
	MarkerField   = "SequenceMarker"
	AudioField    = "Audio"
)

// NewNote creates a note whose fields are the given map, in name order
func NewNote(id anki.NoteID, notetype string, fields map[string]string) *anki.Note {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]string, len(names))
	for i, name := range names {
		values[i] = fields[name]
	}
	return anki.NewNote(id, notetype, names, values)
}

// SentenceNote creates a subs2srs sentence note with a marker field
func SentenceNote(id anki.NoteID, marker, sequence, audio string) *anki.Note {
	return NewNote(id, SentenceType, map[string]string{
		"Expression":  "",
		SequenceField: sequence,
		MarkerField:   marker,
		AudioField:    audio,
	})
}

// CreateTestCollection builds a collection inside a temporary profile
// directory and returns its path
func CreateTestCollection(t *testing.T, build func(b *anki.CollectionBuilder)) string {
	t.Helper()

	b := anki.NewCollectionBuilder()
	build(b)

	path := filepath.Join(t.TempDir(), "User 1", "collection.anki2")
	if err := b.Build(path); err != nil {
		t.Fatalf("Failed to build test collection: %v", err)
	}
	return path
}

// AddSentenceNotetype adds the notetype subs2srs generates
func AddSentenceNotetype(b *anki.CollectionBuilder) {
	b.AddNotetype(SentenceType, "Expression", AudioField, SequenceField, MarkerField)
}

// CreateTestFile creates a test file with content
func CreateTestFile(t *testing.T, path string, content []byte) {
	t.Helper()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create directory for test file: %v", err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to create test file %s: %v", path, err)
	}
}
