// Package message defines the commands a card's web view sends back to the
// add-on and their wire encoding:
//
//	subs2srs:play:<filename>
//	subs2srs:context:<notetype>:[=<marker>]:<episode>:<sequence>
//
// Context arguments are path-escaped. The encoding is only ever handled by
// Parse and Encode.
package message

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Prefix identifies messages addressed to this add-on
const Prefix = "subs2srs"

const (
	cmdPlay    = "play"
	cmdContext = "context"

	// markerTag starts the marker argument when the notetype has a marker
	// field, so an empty marker differs from no marker at all
	markerTag = "="
)

var (
	// ErrUnknownCommand is returned for messages with this add-on's prefix
	// but a command it does not know
	ErrUnknownCommand = errors.New("unknown command")

	// ErrMalformed is returned when a known command has the wrong arguments
	ErrMalformed = errors.New("malformed message")
)

// Message is one of Play or ShowContext
type Message interface {
	command() string
}

// Play asks the host to play a media file
type Play struct {
	Filename string
}

// ShowContext asks the host to show the neighbors of a sequence position.
// Marker is only matched when HasMarker is set; a notetype with a marker
// field sends HasMarker even when the field is empty.
type ShowContext struct {
	Notetype  string
	Marker    string
	HasMarker bool
	Episode   string
	Sequence  string
}

func (Play) command() string        { return cmdPlay }
func (ShowContext) command() string { return cmdContext }

// IsOurs reports whether raw is addressed to this add-on
func IsOurs(raw string) bool {
	return raw == Prefix || strings.HasPrefix(raw, Prefix+":")
}

// Parse decodes a raw bridge message. Messages for other add-ons are not
// parsed; check IsOurs first.
func Parse(raw string) (Message, error) {
	if !IsOurs(raw) {
		return nil, fmt.Errorf("%w: not a %s message: %q", ErrMalformed, Prefix, raw)
	}

	// Filenames may contain colons, so play takes the rest verbatim
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: missing command in %q", ErrMalformed, raw)
	}

	switch parts[1] {
	case cmdPlay:
		if len(parts) < 3 || parts[2] == "" {
			return nil, fmt.Errorf("%w: play needs a filename", ErrMalformed)
		}
		return Play{Filename: parts[2]}, nil

	case cmdContext:
		return parseContext(raw)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, parts[1])
	}
}

func parseContext(raw string) (Message, error) {
	args := strings.Split(raw, ":")[2:]
	if len(args) != 4 {
		return nil, fmt.Errorf("%w: context needs 4 arguments, got %d", ErrMalformed, len(args))
	}

	// A marker without the tag is still a marker; only an empty argument
	// means the notetype has none
	hasMarker := args[1] != ""
	args[1] = strings.TrimPrefix(args[1], markerTag)

	decoded := make([]string, len(args))
	for i, arg := range args {
		v, err := url.PathUnescape(arg)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		decoded[i] = v
	}

	msg := ShowContext{
		Notetype:  decoded[0],
		Marker:    decoded[1],
		HasMarker: hasMarker,
		Episode:   decoded[2],
		Sequence:  decoded[3],
	}
	if msg.Notetype == "" || msg.Episode == "" || msg.Sequence == "" {
		return nil, fmt.Errorf("%w: context needs a notetype, episode and sequence", ErrMalformed)
	}
	return msg, nil
}

// Encode renders m in wire form. The marker of a ShowContext without
// HasMarker is dropped.
func Encode(m Message) string {
	switch m := m.(type) {
	case Play:
		return strings.Join([]string{Prefix, cmdPlay, m.Filename}, ":")
	case ShowContext:
		marker := ""
		if m.HasMarker {
			marker = markerTag + escape(m.Marker)
		}
		return strings.Join([]string{
			Prefix, cmdContext,
			escape(m.Notetype), marker, escape(m.Episode), escape(m.Sequence),
		}, ":")
	default:
		panic(fmt.Sprintf("message: unknown message type %T", m))
	}
}

// escape path-escapes a component so it contains no colon
func escape(s string) string {
	return strings.ReplaceAll(url.PathEscape(s), ":", "%3A")
}
