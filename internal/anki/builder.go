package anki

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CollectionBuilder writes a collection database in the legacy schema
// (notetypes as JSON in col.models), the format .apkg packages carry
type CollectionBuilder struct {
	deckID    int64
	notetypes []Notetype
	notes     []builderNote
	lastID    NoteID
	err       error
}

type builderNote struct {
	id     NoteID
	mid    int64
	values []string
}

// NewCollectionBuilder creates an empty builder
func NewCollectionBuilder() *CollectionBuilder {
	// Generate IDs based on timestamp like Anki does
	now := time.Now().UnixMilli()
	return &CollectionBuilder{
		deckID: now,
		lastID: NoteID(now),
	}
}

// AddNotetype adds a notetype with the given ordered field names
func (b *CollectionBuilder) AddNotetype(name string, fields ...string) Notetype {
	nt := Notetype{
		ID:     b.deckID + 1 + int64(len(b.notetypes)),
		Name:   name,
		Fields: fields,
	}
	b.notetypes = append(b.notetypes, nt)
	return nt
}

// AddNote adds a note with the next free ID and returns that ID. Errors
// (unknown notetype or field) are reported by Build.
func (b *CollectionBuilder) AddNote(notetype string, fields map[string]string) NoteID {
	id := b.lastID + 1
	b.AddNoteWithID(id, notetype, fields)
	return id
}

// AddNoteWithID adds a note with an explicit ID, which lets callers leave
// gaps in the ID sequence
func (b *CollectionBuilder) AddNoteWithID(id NoteID, notetype string, fields map[string]string) {
	if b.err != nil {
		return
	}

	nt, ok := b.notetype(notetype)
	if !ok {
		b.err = fmt.Errorf("unknown notetype %q", notetype)
		return
	}

	values := make([]string, len(nt.Fields))
	for name, value := range fields {
		ord, ok := nt.FieldOrd(name)
		if !ok {
			b.err = fmt.Errorf("notetype %q has no field %q", notetype, name)
			return
		}
		values[ord] = value
	}

	b.notes = append(b.notes, builderNote{id: id, mid: nt.ID, values: values})
	if id > b.lastID {
		b.lastID = id
	}
}

func (b *CollectionBuilder) notetype(name string) (Notetype, bool) {
	for _, nt := range b.notetypes {
		if nt.Name == name {
			return nt, true
		}
	}
	return Notetype{}, false
}

// Build writes the collection to path, which must not exist yet
func (b *CollectionBuilder) Build(path string) error {
	if b.err != nil {
		return b.err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create collection directory: %w", err)
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := b.createTables(db); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	if err := b.insertCollection(db); err != nil {
		return fmt.Errorf("failed to insert collection: %w", err)
	}

	if err := b.insertNotes(db); err != nil {
		return fmt.Errorf("failed to insert notes: %w", err)
	}

	return nil
}

// createTables creates the legacy Anki tables
func (b *CollectionBuilder) createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE col (
			id integer PRIMARY KEY,
			crt integer NOT NULL,
			mod integer NOT NULL,
			scm integer NOT NULL,
			ver integer NOT NULL,
			dty integer NOT NULL,
			usn integer NOT NULL,
			ls integer NOT NULL,
			conf text NOT NULL,
			models text NOT NULL,
			decks text NOT NULL,
			dconf text NOT NULL,
			tags text NOT NULL
		)`,
		`CREATE TABLE notes (
			id integer PRIMARY KEY,
			guid text NOT NULL,
			mid integer NOT NULL,
			mod integer NOT NULL,
			usn integer NOT NULL,
			tags text NOT NULL,
			flds text NOT NULL,
			sfld text NOT NULL,
			csum integer NOT NULL,
			flags integer NOT NULL,
			data text NOT NULL
		)`,
		`CREATE TABLE cards (
			id integer PRIMARY KEY,
			nid integer NOT NULL,
			did integer NOT NULL,
			ord integer NOT NULL,
			mod integer NOT NULL,
			usn integer NOT NULL,
			type integer NOT NULL,
			queue integer NOT NULL,
			due integer NOT NULL,
			ivl integer NOT NULL,
			factor integer NOT NULL,
			reps integer NOT NULL,
			lapses integer NOT NULL,
			left integer NOT NULL,
			odue integer NOT NULL,
			odid integer NOT NULL,
			flags integer NOT NULL,
			data text NOT NULL
		)`,
		`CREATE INDEX ix_notes_csum ON notes (csum)`,
		`CREATE INDEX ix_notes_usn ON notes (usn)`,
		`CREATE INDEX ix_cards_nid ON cards (nid)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}

	return nil
}

// insertCollection inserts the col row with decks and notetypes
func (b *CollectionBuilder) insertCollection(db *sql.DB) error {
	now := time.Now().Unix()

	decks := map[string]interface{}{
		fmt.Sprintf("%d", b.deckID): map[string]interface{}{
			"id":   b.deckID,
			"name": "subs2srs",
			"mod":  now,
			"desc": "",
			"dyn":  0,
			"conf": 1,
			"usn":  0,
		},
	}
	decksJSON, err := json.Marshal(decks)
	if err != nil {
		return err
	}

	models := make(map[string]interface{}, len(b.notetypes))
	for _, nt := range b.notetypes {
		models[fmt.Sprintf("%d", nt.ID)] = b.notetypeConfig(nt, now)
	}
	modelsJSON, err := json.Marshal(models)
	if err != nil {
		return err
	}

	query := `INSERT INTO col VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = db.Exec(query,
		1,        // id
		now,      // crt
		now*1000, // mod
		now*1000, // scm
		11,       // ver (schema version)
		0,        // dty
		0,        // usn
		0,        // ls
		"{}",     // conf
		string(modelsJSON),
		string(decksJSON),
		"{}", // dconf
		"{}", // tags
	)
	return err
}

// notetypeConfig creates the col.models entry for a notetype
func (b *CollectionBuilder) notetypeConfig(nt Notetype, now int64) map[string]interface{} {
	flds := make([]map[string]interface{}, len(nt.Fields))
	for i, name := range nt.Fields {
		flds[i] = map[string]interface{}{
			"name":   name,
			"ord":    i,
			"sticky": false,
			"rtl":    false,
			"font":   "Arial",
			"size":   20,
			"media":  []string{},
		}
	}

	front := ""
	if len(nt.Fields) > 0 {
		front = "{{" + nt.Fields[0] + "}}"
	}

	return map[string]interface{}{
		"id":    nt.ID,
		"name":  nt.Name,
		"type":  0,
		"mod":   now,
		"usn":   -1,
		"sortf": 0,
		"did":   b.deckID,
		"flds":  flds,
		"tmpls": []map[string]interface{}{
			{
				"name": "Card 1",
				"ord":  0,
				"qfmt": front,
				"afmt": "{{FrontSide}}",
				"did":  nil,
			},
		},
		"css": ".card { font-family: Arial, sans-serif; }",
	}
}

// insertNotes inserts every note with one card each
func (b *CollectionBuilder) insertNotes(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, n := range b.notes {
		sortField := ""
		if len(n.values) > 0 {
			sortField = n.values[0]
		}

		_, err := tx.Exec(`INSERT INTO notes VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			int64(n.id),                 // id
			fmt.Sprintf("s2s_%d", n.id), // guid
			n.mid,                       // mid
			now,                         // mod
			-1,                          // usn
			"",                          // tags
			joinFields(n.values),        // flds
			sortField,                   // sfld
			0,                           // csum
			0,                           // flags
			"",                          // data
		)
		if err != nil {
			return fmt.Errorf("failed to insert note %d: %w", n.id, err)
		}

		_, err = tx.Exec(`INSERT INTO cards VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			int64(n.id), // id
			int64(n.id), // nid
			b.deckID,    // did
			0,           // ord
			now,         // mod
			-1,          // usn
			0,           // type (0=new)
			0,           // queue (0=new)
			int64(n.id), // due
			0, 0, 0, 0, 0, 0, 0, 0,
			"", // data
		)
		if err != nil {
			return fmt.Errorf("failed to insert card for note %d: %w", n.id, err)
		}
	}

	return tx.Commit()
}
