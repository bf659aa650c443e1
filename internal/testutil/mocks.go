package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/abdnh/subs2srs-context/internal/anki"
	"github.com/abdnh/subs2srs-context/internal/search"
)

// MockStore is an in-memory note store
type MockStore struct {
	mu      sync.Mutex
	Notes   map[anki.NoteID]*anki.Note
	Errors  map[anki.NoteID]error // returned by Note for that ID
	FindErr error                 // returned by every FindNotes call
	Reverse bool                  // return FindNotes results in descending order
	Calls   []string
}

// NewMockStore creates a store holding notes
func NewMockStore(notes ...*anki.Note) *MockStore {
	m := &MockStore{
		Notes:  make(map[anki.NoteID]*anki.Note),
		Errors: make(map[anki.NoteID]error),
	}
	for _, n := range notes {
		m.Notes[n.ID] = n
	}
	return m
}

// Add stores a note, replacing any note with the same ID
func (m *MockStore) Add(note *anki.Note) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Notes[note.ID] = note
}

// Delete removes a note
func (m *MockStore) Delete(id anki.NoteID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Notes, id)
}

// Note mocks looking up a note by ID
func (m *MockStore) Note(ctx context.Context, id anki.NoteID) (*anki.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, fmt.Sprintf("NOTE %d", id))

	if err, ok := m.Errors[id]; ok {
		return nil, err
	}
	if n, ok := m.Notes[id]; ok {
		return n, nil
	}
	return nil, fmt.Errorf("note %d: %w", id, anki.ErrNotFound)
}

// FindNotes mocks a search by matching every stored note against q
func (m *MockStore) FindNotes(ctx context.Context, q search.Query) ([]anki.NoteID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, fmt.Sprintf("FIND %s", q))

	if m.FindErr != nil {
		return nil, m.FindErr
	}

	var ids []anki.NoteID
	for id, n := range m.Notes {
		if q.Match(n.Notetype, n.Field) {
			ids = append(ids, id)
		}
	}

	sort.Slice(ids, func(i, j int) bool {
		if m.Reverse {
			return ids[i] > ids[j]
		}
		return ids[i] < ids[j]
	})
	return ids, nil
}

// NotesOfType mocks listing notes of a notetype; empty lists all notes
func (m *MockStore) NotesOfType(ctx context.Context, notetype string) ([]anki.NoteID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, fmt.Sprintf("TYPE %s", notetype))

	if m.FindErr != nil {
		return nil, m.FindErr
	}

	var ids []anki.NoteID
	for id, n := range m.Notes {
		if notetype == "" || n.Notetype == notetype {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// CallCount returns the number of recorded calls
func (m *MockStore) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockPlayer records playback requests
type MockPlayer struct {
	mu     sync.Mutex
	Err    error
	Played []string
}

// Play mocks playing a media file
func (p *MockPlayer) Play(ctx context.Context, filename string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Played = append(p.Played, filename)
	return p.Err
}
