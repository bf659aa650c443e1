package neighbor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/abdnh/subs2srs-context/internal/anki"
	"github.com/abdnh/subs2srs-context/internal/logging"
	"github.com/abdnh/subs2srs-context/internal/search"
)

// Store is the read side of the note collection the resolver needs.
// FindNotes should return IDs in ascending order.
type Store interface {
	// Note returns a note by ID, or an error wrapping anki.ErrNotFound
	Note(ctx context.Context, id anki.NoteID) (*anki.Note, error)

	// FindNotes returns the IDs of notes matching q
	FindNotes(ctx context.Context, q search.Query) ([]anki.NoteID, error)
}

// Direction selects which neighbor to look up
type Direction int

const (
	Previous Direction = iota
	Next
)

func (d Direction) String() string {
	if d == Previous {
		return "previous"
	}
	return "next"
}

func (d Direction) offset() int {
	if d == Previous {
		return -1
	}
	return 1
}

// Mode selects how neighbors are found
type Mode string

const (
	// ModeSequence matches notes by parsed episode and sequence
	ModeSequence Mode = "sequence"
	// ModeAdjacent treats the notes with IDs one below and above as neighbors
	ModeAdjacent Mode = "adjacent"
	// ModeAuto uses ModeSequence for notetypes with a sequence field and
	// ModeAdjacent for the rest
	ModeAuto Mode = "auto"
)

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeSequence, ModeAdjacent, ModeAuto:
		return m, nil
	default:
		return "", fmt.Errorf("unknown resolver mode %q (want sequence, adjacent or auto)", s)
	}
}

// Config names the fields the resolver reads
type Config struct {
	SequenceField string // holds "<episode>_<sequence>"
	MarkerField   string // optional grouping token, empty to ignore markers
	AudioField    string // holds "[sound:<filename>]"
	Mode          Mode
}

// DefaultConfig returns the field names subs2srs writes
func DefaultConfig() *Config {
	return &Config{
		SequenceField: "Notes",
		MarkerField:   "SequenceMarker",
		AudioField:    "Audio",
		Mode:          ModeSequence,
	}
}

// Resolver finds the neighbors of notes in a Store
type Resolver struct {
	store  Store
	config *Config
	logger *slog.Logger
}

// NewResolver creates a resolver over store
func NewResolver(store Store, config *Config) *Resolver {
	if config == nil {
		config = DefaultConfig()
	}
	return &Resolver{
		store:  store,
		config: config,
		logger: logging.WithComponent("resolver"),
	}
}

// Config returns the resolver configuration
func (r *Resolver) Config() Config {
	return *r.config
}

// Neighbor is a resolved neighbor note with a playable audio clip
type Neighbor struct {
	ID    anki.NoteID `json:"id" yaml:"id"`
	Audio string      `json:"audio" yaml:"audio"`
}

// Neighbors holds both sides; a nil side could not be resolved
type Neighbors struct {
	Previous *Neighbor `json:"previous" yaml:"previous"`
	Next     *Neighbor `json:"next" yaml:"next"`
}

// NeighborQuery builds the search for the neighbor of pos in direction
// dir. It reports false when no neighbor can exist (before sequence 0).
func (r *Resolver) NeighborQuery(pos Position, dir Direction) (search.Query, bool) {
	target := pos.SequenceNum + dir.offset()
	if target < 0 {
		return search.Query{}, false
	}

	q := search.New(search.NoteType(pos.Notetype))
	if pos.HasMarker && r.config.MarkerField != "" {
		q = q.And(search.FieldEquals(r.config.MarkerField, pos.Marker))
	}

	// The trailing wildcard admits suffixes after the sequence number
	prefix := search.Escape(pos.Episode + "_" + pos.SequenceAt(target))
	q = q.And(search.FieldGlob(r.config.SequenceField, prefix+"*"))

	return q, true
}

// FindNeighbor returns the note next to pos in direction dir, or nil when
// there is none. When several notes match, the one with the lowest ID
// wins. Errors are only returned for store failures.
func (r *Resolver) FindNeighbor(ctx context.Context, pos Position, dir Direction) (*anki.Note, error) {
	q, ok := r.NeighborQuery(pos, dir)
	if !ok {
		return nil, nil
	}

	ids, err := r.store.FindNotes(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s neighbor of %s: %w", dir, pos, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	best := ids[0]
	for _, id := range ids[1:] {
		if id < best {
			best = id
		}
	}
	if len(ids) > 1 {
		r.logger.Debug("several neighbor candidates", "position", pos.String(), "direction", dir.String(),
			"candidates", len(ids), "chosen", best)
	}

	return r.note(ctx, best)
}

// AdjacentNote returns the note whose ID is one below or above id,
// whatever its notetype, or nil when that ID does not exist
func (r *Resolver) AdjacentNote(ctx context.Context, id anki.NoteID, dir Direction) (*anki.Note, error) {
	return r.note(ctx, id+anki.NoteID(dir.offset()))
}

// Neighbor resolves the neighbor of note according to the configured mode
func (r *Resolver) Neighbor(ctx context.Context, note *anki.Note, dir Direction) (*anki.Note, error) {
	if note == nil {
		return nil, nil
	}

	mode := r.config.Mode
	if mode == ModeAuto {
		mode = ModeSequence
		if !note.HasField(r.config.SequenceField) {
			mode = ModeAdjacent
		}
	}

	if mode == ModeAdjacent {
		return r.AdjacentNote(ctx, note.ID, dir)
	}

	pos, ok := r.ParseContext(note)
	if !ok {
		return nil, nil
	}
	return r.FindNeighbor(ctx, pos, dir)
}

// ResolveNeighbors returns the audio of the previous and next notes.
// Lookup failures are logged and leave that side empty.
func (r *Resolver) ResolveNeighbors(ctx context.Context, note *anki.Note) Neighbors {
	if note == nil {
		return Neighbors{}
	}
	lookup := func(dir Direction) (*anki.Note, error) {
		return r.Neighbor(ctx, note, dir)
	}
	return Neighbors{
		Previous: r.resolve(lookup, Previous, "note", note.ID),
		Next:     r.resolve(lookup, Next, "note", note.ID),
	}
}

// ResolveNeighborsByID looks the note up first; a missing note has no neighbors
func (r *Resolver) ResolveNeighborsByID(ctx context.Context, id anki.NoteID) Neighbors {
	note, err := r.note(ctx, id)
	if err != nil {
		r.logger.Warn("note lookup failed", "note", id, "error", err)
		return Neighbors{}
	}
	return r.ResolveNeighbors(ctx, note)
}

// ResolvePosition returns the neighbors of a position given directly,
// always matching by sequence
func (r *Resolver) ResolvePosition(ctx context.Context, pos Position) Neighbors {
	lookup := func(dir Direction) (*anki.Note, error) {
		return r.FindNeighbor(ctx, pos, dir)
	}
	return Neighbors{
		Previous: r.resolve(lookup, Previous, "position", pos.String()),
		Next:     r.resolve(lookup, Next, "position", pos.String()),
	}
}

func (r *Resolver) resolve(lookup func(Direction) (*anki.Note, error), dir Direction, key string, value any) *Neighbor {
	neighbor, err := lookup(dir)
	if err != nil {
		r.logger.Warn("neighbor lookup failed", key, value, "direction", dir.String(), "error", err)
		return nil
	}
	if neighbor == nil {
		return nil
	}

	audio, ok := r.AudioReference(neighbor)
	if !ok {
		return nil
	}
	return &Neighbor{ID: neighbor.ID, Audio: audio}
}

// note fetches a note, mapping a missing note to nil
func (r *Resolver) note(ctx context.Context, id anki.NoteID) (*anki.Note, error) {
	note, err := r.store.Note(ctx, id)
	if errors.Is(err, anki.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return note, nil
}
