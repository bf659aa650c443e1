package search

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Kind identifies what a Term restricts
type Kind int

const (
	// KindNoteType restricts notes to one notetype, compared by exact name
	KindNoteType Kind = iota
	// KindField restricts a named field to a wildcard pattern
	KindField
)

// Term is a single restriction of a Query
type Term struct {
	Kind    Kind
	Field   string // field name, KindField only
	Pattern string // notetype name for KindNoteType, wildcard pattern for KindField
}

// NoteType restricts a query to notes of the named notetype
func NoteType(name string) Term {
	return Term{Kind: KindNoteType, Pattern: norm.NFC.String(name)}
}

// FieldGlob restricts field to values matching the wildcard pattern
func FieldGlob(field, pattern string) Term {
	return Term{Kind: KindField, Field: field, Pattern: norm.NFC.String(pattern)}
}

// FieldEquals restricts field to exactly value. Wildcard characters in
// value match only themselves.
func FieldEquals(field, value string) Term {
	return FieldGlob(field, Escape(value))
}

// Query is a conjunction of terms
type Query struct {
	Terms []Term
}

// New creates a query from terms
func New(terms ...Term) Query {
	return Query{Terms: terms}
}

// And returns a copy of q with the given terms added
func (q Query) And(terms ...Term) Query {
	out := make([]Term, 0, len(q.Terms)+len(terms))
	out = append(out, q.Terms...)
	out = append(out, terms...)
	return Query{Terms: out}
}

// NoteTypes returns the distinct notetype names the query is restricted to
func (q Query) NoteTypes() []string {
	var names []string
	seen := make(map[string]bool)
	for _, t := range q.Terms {
		if t.Kind == KindNoteType && !seen[t.Pattern] {
			seen[t.Pattern] = true
			names = append(names, t.Pattern)
		}
	}
	return names
}

// FieldTerms returns the field restrictions of the query
func (q Query) FieldTerms() []Term {
	var terms []Term
	for _, t := range q.Terms {
		if t.Kind == KindField {
			terms = append(terms, t)
		}
	}
	return terms
}

// Match reports whether a note of the given notetype satisfies every term.
// field looks up a field value and reports whether the notetype has it; a
// field term on a missing field never matches.
func (q Query) Match(notetype string, field func(name string) (string, bool)) bool {
	notetype = norm.NFC.String(notetype)
	for _, t := range q.Terms {
		switch t.Kind {
		case KindNoteType:
			if t.Pattern != notetype {
				return false
			}
		case KindField:
			value, ok := field(t.Field)
			if !ok || !Match(t.Pattern, value) {
				return false
			}
		}
	}
	return true
}

// String renders the query as a search string, one quoted term per
// restriction, in the form the collection browser accepts.
func (q Query) String() string {
	parts := make([]string, 0, len(q.Terms))
	for _, t := range q.Terms {
		switch t.Kind {
		case KindNoteType:
			parts = append(parts, quote("note:"+Escape(t.Pattern)))
		case KindField:
			parts = append(parts, quote(escapeFieldName(t.Field)+":"+t.Pattern))
		}
	}
	return strings.Join(parts, " ")
}

func escapeFieldName(name string) string {
	return strings.ReplaceAll(Escape(name), ":", `\:`)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
