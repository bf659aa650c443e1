// Package anki reads and writes Anki collection databases (collection.anki2).
// Collection is a read-only view used to look up notes by ID and to run
// search queries; CollectionBuilder writes small collections in the legacy
// schema. Notes expose their fields through Note.Field, which reports
// whether the note's notetype has the field at all.
package anki
