// Package neighbor resolves the previous and next notes of a subs2srs note
// and the audio clips they carry. A note's place in its sequence comes from
// an "<episode>_<sequence>" field; neighbors are the notes of the same
// notetype and marker whose sequence differs by one, with the same
// zero-padding as the note itself. Every failure to resolve (no sequence
// field, no neighbor, no audio, a deleted note) is a normal outcome and
// yields no result rather than an error.
package neighbor
