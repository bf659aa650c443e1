package neighbor

import (
	"regexp"

	"github.com/abdnh/subs2srs-context/internal/anki"
)

// soundPattern matches a sound tag at the start of a field
var soundPattern = regexp.MustCompile(`^\[sound:(.*?)\]`)

// ParseSoundRef extracts the filename from a "[sound:<filename>]" value.
// An empty filename counts as no reference.
func ParseSoundRef(value string) (string, bool) {
	m := soundPattern.FindStringSubmatch(value)
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// AudioReference returns the filename referenced by the note's audio
// field. The file itself is not checked.
func (r *Resolver) AudioReference(note *anki.Note) (string, bool) {
	if note == nil {
		return "", false
	}
	value, ok := note.Field(r.config.AudioField)
	if !ok {
		return "", false
	}
	return ParseSoundRef(value)
}
