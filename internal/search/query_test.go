package search

import (
	"testing"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"showA", "showA"},
		{"a*b", `a\*b`},
		{"a_b", `a\_b`},
		{`a\b`, `a\\b`},
		{"12_044", `12\_044`},
		{"ябълка", "ябълка"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Escape(tt.in); got != tt.want {
				t.Errorf("Escape(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		text    string
		want    bool
	}{
		{"exact", "showA", "showA", true},
		{"exact is whole field", "showA", "showAB", false},
		{"star matches run", `12\_044*`, "12_044", true},
		{"star matches suffix", `12\_044*`, "12_044b_take2", true},
		{"escaped underscore is literal", `12\_044*`, "12X044", false},
		{"padding width matters", `002\_*`, "2_", false},
		{"underscore matches one char", "a_c", "abc", true},
		{"underscore needs a char", "a_c", "ac", false},
		{"escaped star is literal", Escape("a*b"), "a*b", true},
		{"escaped star does not glob", Escape("a*b"), "aXb", false},
		{"escaped backslash", Escape(`a\b`), `a\b`, true},
		{"dangling backslash", `ab\`, `ab\`, true},
		{"regexp metachars are literal", "a.b", "aXb", false},
		{"empty pattern matches empty", "", "", true},
		{"empty pattern needs empty", "", "x", false},
		{"star spans newlines", "a*", "a\nb", true},
		{"normalization", "e\u0301", "\u00e9", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.pattern, tt.text); got != tt.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern, tt.text, got, tt.want)
			}
		})
	}
}

func TestCompileCaches(t *testing.T) {
	first := Compile("cache*me")
	second := Compile("cache*me")
	if first != second {
		t.Error("Expected the same compiled expression for a repeated pattern")
	}
}

func TestQueryMatch(t *testing.T) {
	fields := map[string]string{
		"Notes":          "12_044",
		"SequenceMarker": "showA",
		"Audio":          "[sound:044.mp3]",
	}
	lookup := func(name string) (string, bool) {
		v, ok := fields[name]
		return v, ok
	}

	tests := []struct {
		name     string
		query    Query
		notetype string
		want     bool
	}{
		{
			name:     "all terms match",
			query:    New(NoteType("Sentence"), FieldEquals("SequenceMarker", "showA"), FieldGlob("Notes", `12\_044*`)),
			notetype: "Sentence",
			want:     true,
		},
		{
			name:     "notetype mismatch",
			query:    New(NoteType("Sentence"), FieldGlob("Notes", `12\_044*`)),
			notetype: "Vocabulary",
			want:     false,
		},
		{
			name:     "marker mismatch",
			query:    New(NoteType("Sentence"), FieldEquals("SequenceMarker", "showB")),
			notetype: "Sentence",
			want:     false,
		},
		{
			name:     "missing field never matches",
			query:    New(FieldGlob("Expression", "*")),
			notetype: "Sentence",
			want:     false,
		},
		{
			name:     "empty query matches everything",
			query:    New(),
			notetype: "Anything",
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Match(tt.notetype, lookup); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueryString(t *testing.T) {
	q := New(
		NoteType("Sentence"),
		FieldEquals("SequenceMarker", `a*b"c`),
		FieldGlob("Notes", Escape("12_044")+"*"),
	)

	want := `"note:Sentence" "SequenceMarker:a\*b\"c" "Notes:12\_044*"`
	if got := q.String(); got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}
}

func TestQueryAnd(t *testing.T) {
	base := New(NoteType("Sentence"))
	extended := base.And(FieldEquals("Audio", "x"))

	if len(base.Terms) != 1 {
		t.Errorf("And modified the receiver: %d terms", len(base.Terms))
	}
	if len(extended.Terms) != 2 {
		t.Errorf("Expected 2 terms, got %d", len(extended.Terms))
	}
	if got := extended.NoteTypes(); len(got) != 1 || got[0] != "Sentence" {
		t.Errorf("NoteTypes() = %v", got)
	}
	if got := extended.FieldTerms(); len(got) != 1 || got[0].Field != "Audio" {
		t.Errorf("FieldTerms() = %v", got)
	}
}
