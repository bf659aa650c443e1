package neighbor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdnh/subs2srs-context/internal/anki"
	"github.com/abdnh/subs2srs-context/internal/testutil"
)

func TestParseMode(t *testing.T) {
	for _, name := range []string{"sequence", "adjacent", "auto"} {
		m, err := ParseMode(name)
		require.NoError(t, err)
		assert.Equal(t, Mode(name), m)
	}

	_, err := ParseMode("unpadded")
	assert.Error(t, err)
}

func TestDirectionString(t *testing.T) {
	assert.Equal(t, "previous", Previous.String())
	assert.Equal(t, "next", Next.String())
}

func TestNeighborQuery(t *testing.T) {
	r := NewResolver(testutil.NewMockStore(), nil)

	pos, err := NewPosition("Sentence", "a*b", true, "12", "045")
	require.NoError(t, err)

	q, ok := r.NeighborQuery(pos, Previous)
	require.True(t, ok)
	assert.Equal(t, `"note:Sentence" "SequenceMarker:a\*b" "Notes:12\_044*"`, q.String())

	q, ok = r.NeighborQuery(pos, Next)
	require.True(t, ok)
	assert.Equal(t, `"note:Sentence" "SequenceMarker:a\*b" "Notes:12\_046*"`, q.String())

	noMarker, err := NewPosition("Sentence", "", false, "3", "9")
	require.NoError(t, err)
	q, ok = r.NeighborQuery(noMarker, Next)
	require.True(t, ok)
	assert.Equal(t, `"note:Sentence" "Notes:3\_10*"`, q.String())

	first, err := NewPosition("Sentence", "", false, "1", "000")
	require.NoError(t, err)
	_, ok = r.NeighborQuery(first, Previous)
	assert.False(t, ok, "no sequence number below zero")
}

func TestResolveNeighborsScenarios(t *testing.T) {
	current := testutil.SentenceNote(100, "showA", "12_045", "[sound:045.mp3]")

	tests := []struct {
		name     string
		notes    []*anki.Note
		wantPrev *Neighbor
		wantNext *Neighbor
	}{
		{
			name: "previous in same marker",
			notes: []*anki.Note{
				testutil.SentenceNote(50, "showA", "12_044", "[sound:044.mp3]"),
			},
			wantPrev: &Neighbor{ID: 50, Audio: "044.mp3"},
		},
		{
			name: "marker mismatch",
			notes: []*anki.Note{
				testutil.SentenceNote(50, "showB", "12_044", "[sound:044.mp3]"),
			},
		},
		{
			name: "first in episode",
			notes: []*anki.Note{
				testutil.SentenceNote(50, "showA", "11_044", "[sound:11_044.mp3]"),
				testutil.SentenceNote(150, "showA", "12_046", "[sound:046.mp3]"),
			},
			wantNext: &Neighbor{ID: 150, Audio: "046.mp3"},
		},
		{
			name: "other notetype",
			notes: []*anki.Note{
				testutil.NewNote(50, "Vocabulary", map[string]string{
					"Notes": "12_044", "SequenceMarker": "showA", "Audio": "[sound:044.mp3]",
				}),
			},
		},
		{
			name: "padding width preserved",
			notes: []*anki.Note{
				testutil.SentenceNote(50, "showA", "12_44", "[sound:44.mp3]"),
				testutil.SentenceNote(51, "showA", "12_0044", "[sound:0044.mp3]"),
				testutil.SentenceNote(52, "showA", "12_46", "[sound:46.mp3]"),
			},
		},
		{
			name: "neighbor without audio",
			notes: []*anki.Note{
				testutil.SentenceNote(50, "showA", "12_044", ""),
				testutil.SentenceNote(150, "showA", "12_046", "no sound here"),
			},
		},
		{
			name: "take suffix matches",
			notes: []*anki.Note{
				testutil.SentenceNote(150, "showA", "12_046_00.10.11", "[sound:046.mp3]"),
			},
			wantNext: &Neighbor{ID: 150, Audio: "046.mp3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMockStore(tt.notes...)
			store.Add(current)
			r := NewResolver(store, nil)

			got := r.ResolveNeighbors(context.Background(), current)
			assert.Equal(t, tt.wantPrev, got.Previous)
			assert.Equal(t, tt.wantNext, got.Next)
		})
	}
}

func TestFindNeighborPadding(t *testing.T) {
	store := testutil.NewMockStore(
		testutil.SentenceNote(1, "", "1_2", "[sound:a.mp3]"),
		testutil.SentenceNote(2, "", "1_02", "[sound:b.mp3]"),
		testutil.SentenceNote(3, "", "1_002", "[sound:c.mp3]"),
	)
	r := NewResolver(store, nil)

	pos, err := NewPosition("Sentence", "", true, "1", "003")
	require.NoError(t, err)

	got, err := r.FindNeighbor(context.Background(), pos, Previous)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, anki.NoteID(3), got.ID)
}

func TestFindNeighborMarkerEscaping(t *testing.T) {
	store := testutil.NewMockStore(
		testutil.SentenceNote(1, "aXb", "1_001", "[sound:x.mp3]"),
		testutil.SentenceNote(2, "a_b", "1_001", "[sound:u.mp3]"),
	)
	r := NewResolver(store, nil)

	pos, err := NewPosition("Sentence", "a*b", true, "1", "002")
	require.NoError(t, err)

	got, err := r.FindNeighbor(context.Background(), pos, Previous)
	require.NoError(t, err)
	assert.Nil(t, got, "a*b must not match aXb")

	store.Add(testutil.SentenceNote(3, "a*b", "1_001", "[sound:star.mp3]"))
	got, err = r.FindNeighbor(context.Background(), pos, Previous)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, anki.NoteID(3), got.ID)

	underscore, err := NewPosition("Sentence", "aXb", true, "1", "002")
	require.NoError(t, err)
	got, err = r.FindNeighbor(context.Background(), underscore, Previous)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, anki.NoteID(1), got.ID, "a literal marker only matches itself")
}

func TestFindNeighborNeverCrossesGroups(t *testing.T) {
	store := testutil.NewMockStore(
		testutil.SentenceNote(1, "showB", "5_010", "[sound:b.mp3]"),
		testutil.NewNote(2, "Vocabulary", map[string]string{"Notes": "5_010", "SequenceMarker": "showA"}),
		testutil.SentenceNote(3, "showA", "6_010", "[sound:ep6.mp3]"),
		testutil.SentenceNote(4, "showA", "5_010", "[sound:a.mp3]"),
	)
	r := NewResolver(store, nil)

	pos, err := NewPosition("Sentence", "showA", true, "5", "011")
	require.NoError(t, err)

	got, err := r.FindNeighbor(context.Background(), pos, Previous)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Sentence", got.Notetype)
	marker, _ := got.Field("SequenceMarker")
	assert.Equal(t, "showA", marker)
	assert.Equal(t, anki.NoteID(4), got.ID)
}

func TestFindNeighborLowestIDWins(t *testing.T) {
	store := testutil.NewMockStore(
		testutil.SentenceNote(30, "", "1_001b", "[sound:b.mp3]"),
		testutil.SentenceNote(10, "", "1_001", "[sound:a.mp3]"),
		testutil.SentenceNote(20, "", "1_001", "[sound:dup.mp3]"),
	)
	store.Reverse = true
	r := NewResolver(store, nil)

	pos, err := NewPosition("Sentence", "", true, "1", "002")
	require.NoError(t, err)

	got, err := r.FindNeighbor(context.Background(), pos, Previous)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, anki.NoteID(10), got.ID)
}

func TestFindNeighborStoreError(t *testing.T) {
	store := testutil.NewMockStore()
	store.FindErr = errors.New("database is locked")
	r := NewResolver(store, nil)

	pos, err := NewPosition("Sentence", "", false, "1", "002")
	require.NoError(t, err)

	_, err = r.FindNeighbor(context.Background(), pos, Next)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.FindErr)

	// ResolveNeighbors absorbs the failure
	current := testutil.SentenceNote(5, "", "1_002", "")
	assert.Equal(t, Neighbors{}, r.ResolveNeighbors(context.Background(), current))
}

func TestFindNeighborDeletedNote(t *testing.T) {
	store := testutil.NewMockStore(testutil.SentenceNote(7, "", "1_001", "[sound:a.mp3]"))
	r := NewResolver(store, nil)

	pos, err := NewPosition("Sentence", "", true, "1", "002")
	require.NoError(t, err)

	// The note vanishes between the search and the lookup
	store.Errors[7] = anki.ErrNotFound
	got, err := r.FindNeighbor(context.Background(), pos, Previous)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResolveNeighborsAfterDelete(t *testing.T) {
	current := testutil.SentenceNote(2, "m", "1_002", "[sound:2.mp3]")
	store := testutil.NewMockStore(
		testutil.SentenceNote(1, "m", "1_001", "[sound:1.mp3]"),
		current,
		testutil.SentenceNote(3, "m", "1_003", "[sound:3.mp3]"),
		testutil.SentenceNote(4, "m", "1_003", "[sound:3b.mp3]"),
	)
	r := NewResolver(store, nil)

	n := r.ResolveNeighbors(context.Background(), current)
	assert.Equal(t, &Neighbor{ID: 3, Audio: "3.mp3"}, n.Next)

	store.Delete(1)
	store.Delete(3)

	n = r.ResolveNeighbors(context.Background(), current)
	assert.Nil(t, n.Previous)
	assert.Equal(t, &Neighbor{ID: 4, Audio: "3b.mp3"}, n.Next)
}

func TestResolveNeighborsNoContext(t *testing.T) {
	store := testutil.NewMockStore(testutil.SentenceNote(1, "", "1_001", "[sound:a.mp3]"))
	r := NewResolver(store, nil)

	assert.Equal(t, Neighbors{}, r.ResolveNeighbors(context.Background(), nil))
	assert.Equal(t, Neighbors{}, r.ResolveNeighbors(context.Background(),
		testutil.SentenceNote(2, "", "no position", "")))
	assert.Zero(t, store.CallCount(), "no search without a position")
}

func TestResolveNeighborsByID(t *testing.T) {
	store := testutil.NewMockStore(
		testutil.SentenceNote(1, "m", "2_009", "[sound:9.mp3]"),
		testutil.SentenceNote(2, "m", "2_010", "[sound:10.mp3]"),
		testutil.SentenceNote(3, "m", "2_011", "[sound:11.mp3]"),
	)
	r := NewResolver(store, nil)

	got := r.ResolveNeighborsByID(context.Background(), 2)
	assert.Equal(t, &Neighbor{ID: 1, Audio: "9.mp3"}, got.Previous)
	assert.Equal(t, &Neighbor{ID: 3, Audio: "11.mp3"}, got.Next)

	assert.Equal(t, Neighbors{}, r.ResolveNeighborsByID(context.Background(), 99))

	store.Errors[4] = errors.New("disk I/O error")
	assert.Equal(t, Neighbors{}, r.ResolveNeighborsByID(context.Background(), 4))
}

func TestAdjacentMode(t *testing.T) {
	store := testutil.NewMockStore(
		testutil.SentenceNote(9, "x", "9_999", "[sound:prev.mp3]"),
		testutil.NewNote(10, "Vocabulary", map[string]string{"Word": "neko"}),
		testutil.NewNote(11, "Vocabulary", map[string]string{"Audio": "[sound:next.mp3]"}),
	)

	config := DefaultConfig()
	config.Mode = ModeAdjacent
	r := NewResolver(store, config)

	got := r.ResolveNeighborsByID(context.Background(), 10)
	assert.Equal(t, &Neighbor{ID: 9, Audio: "prev.mp3"}, got.Previous)
	assert.Equal(t, &Neighbor{ID: 11, Audio: "next.mp3"}, got.Next)

	// A gap in IDs means no neighbor
	assert.Nil(t, r.ResolveNeighborsByID(context.Background(), 9).Previous)
}

func TestAutoMode(t *testing.T) {
	store := testutil.NewMockStore(
		testutil.NewNote(9, "Vocabulary", map[string]string{"Audio": "[sound:adjacent.mp3]"}),
		testutil.NewNote(10, "Vocabulary", map[string]string{"Word": "neko"}),
		testutil.SentenceNote(20, "", "1_001", "[sound:seq1.mp3]"),
		testutil.NewNote(21, "Vocabulary", map[string]string{"Audio": "[sound:not-this.mp3]"}),
		testutil.SentenceNote(22, "", "1_002", ""),
		testutil.SentenceNote(30, "", "1_003", "[sound:seq3.mp3]"),
	)

	config := DefaultConfig()
	config.Mode = ModeAuto
	r := NewResolver(store, config)

	vocab := r.ResolveNeighborsByID(context.Background(), 10)
	assert.Equal(t, &Neighbor{ID: 9, Audio: "adjacent.mp3"}, vocab.Previous)

	sentence := r.ResolveNeighborsByID(context.Background(), 22)
	assert.Equal(t, &Neighbor{ID: 20, Audio: "seq1.mp3"}, sentence.Previous)
	assert.Equal(t, &Neighbor{ID: 30, Audio: "seq3.mp3"}, sentence.Next)
}

func TestCustomFields(t *testing.T) {
	store := testutil.NewMockStore(
		testutil.NewNote(1, "Clip", map[string]string{"Seq": "4_07", "Sound": "[sound:7.ogg]"}),
		testutil.NewNote(2, "Clip", map[string]string{"Seq": "4_08", "Sound": "[sound:8.ogg]"}),
	)
	r := NewResolver(store, &Config{SequenceField: "Seq", AudioField: "Sound", Mode: ModeSequence})

	got := r.ResolveNeighborsByID(context.Background(), 2)
	assert.Equal(t, &Neighbor{ID: 1, Audio: "7.ogg"}, got.Previous)
	assert.Nil(t, got.Next)
	assert.Equal(t, "Seq", r.Config().SequenceField)
}

func TestResolvePosition(t *testing.T) {
	store := testutil.NewMockStore(
		testutil.SentenceNote(1, "showA", "12_044", "[sound:044.mp3]"),
		testutil.SentenceNote(2, "showB", "12_046", "[sound:b046.mp3]"),
	)
	r := NewResolver(store, nil)

	pos, err := NewPosition("Sentence", "showA", true, "12", "045")
	require.NoError(t, err)

	got := r.ResolvePosition(context.Background(), pos)
	assert.Equal(t, &Neighbor{ID: 1, Audio: "044.mp3"}, got.Previous)
	assert.Nil(t, got.Next)

	// Without a marker every marker matches
	pos.HasMarker = false
	got = r.ResolvePosition(context.Background(), pos)
	assert.Equal(t, &Neighbor{ID: 2, Audio: "b046.mp3"}, got.Next)
}
