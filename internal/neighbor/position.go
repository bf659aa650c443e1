package neighbor

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/abdnh/subs2srs-context/internal/anki"
)

// sequencePattern matches the start of a subs2srs sequence field. Anything
// after the sequence number (take suffixes, timestamps) is ignored.
var sequencePattern = regexp.MustCompile(`^(\d+)_(\d+)`)

// Position is a note's place in its subs2srs sequence. Episode and
// Sequence keep the field's original digits, since the padding width is
// part of how neighbors are matched.
type Position struct {
	Notetype    string
	Marker      string
	HasMarker   bool // the notetype has a marker field
	Episode     string
	EpisodeNum  int
	Sequence    string
	SequenceNum int
}

// ParseSequence splits a sequence field value into its episode and
// sequence digits
func ParseSequence(value string) (episode, sequence string, ok bool) {
	m := sequencePattern.FindStringSubmatch(value)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// NewPosition builds a position from its string parts. It fails when
// episode or sequence are not plain digits.
func NewPosition(notetype, marker string, hasMarker bool, episode, sequence string) (Position, error) {
	ep, seq, ok := ParseSequence(episode + "_" + sequence)
	if !ok || ep != episode || seq != sequence {
		return Position{}, fmt.Errorf("invalid sequence position %q_%q", episode, sequence)
	}

	epNum, err := strconv.Atoi(episode)
	if err != nil {
		return Position{}, fmt.Errorf("invalid episode %q: %w", episode, err)
	}
	seqNum, err := strconv.Atoi(sequence)
	if err != nil {
		return Position{}, fmt.Errorf("invalid sequence %q: %w", sequence, err)
	}

	return Position{
		Notetype:    notetype,
		Marker:      marker,
		HasMarker:   hasMarker,
		Episode:     episode,
		EpisodeNum:  epNum,
		Sequence:    sequence,
		SequenceNum: seqNum,
	}, nil
}

// ParseContext reads the position of note from the configured sequence
// and marker fields. It reports false when the note has no usable
// sequence field.
func (r *Resolver) ParseContext(note *anki.Note) (Position, bool) {
	if note == nil {
		return Position{}, false
	}

	value, ok := note.Field(r.config.SequenceField)
	if !ok {
		return Position{}, false
	}
	episode, sequence, ok := ParseSequence(value)
	if !ok {
		return Position{}, false
	}

	var marker string
	hasMarker := false
	if r.config.MarkerField != "" {
		marker, hasMarker = note.Field(r.config.MarkerField)
	}

	pos, err := NewPosition(note.Notetype, marker, hasMarker, episode, sequence)
	if err != nil {
		// Digits that overflow int
		r.logger.Debug("unusable sequence field", "note", note.ID, "value", value, "error", err)
		return Position{}, false
	}
	return pos, true
}

// Width is the zero-padding width of the sequence number
func (p Position) Width() int {
	return len(p.Sequence)
}

// SequenceAt formats n with the position's own padding width
func (p Position) SequenceAt(n int) string {
	return fmt.Sprintf("%0*d", p.Width(), n)
}

// String renders the position as episode_sequence
func (p Position) String() string {
	return p.Episode + "_" + p.Sequence
}
