package host

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/abdnh/subs2srs-context/internal/logging"
	"github.com/abdnh/subs2srs-context/internal/message"
	"github.com/abdnh/subs2srs-context/internal/neighbor"
	"github.com/abdnh/subs2srs-context/internal/playback"
)

// WebSurface is a web view that can run scripts
type WebSurface interface {
	Eval(script string)
}

// HasWebSurface is implemented by UI containers that own a web view.
// WebSurface may return nil when the view is not ready.
type HasWebSurface interface {
	WebSurface() WebSurface
}

// ContextPayload is pushed to the web surface for a ShowContext message
type ContextPayload struct {
	Position string             `json:"position"`
	Previous *neighbor.Neighbor `json:"previous"`
	Next     *neighbor.Neighbor `json:"next"`
}

// Addon holds the resolver and player shared by all hooks
type Addon struct {
	resolver *neighbor.Resolver
	player   playback.Player
	logger   *slog.Logger
}

// New creates the add-on state
func New(resolver *neighbor.Resolver, player playback.Player) *Addon {
	return &Addon{
		resolver: resolver,
		player:   player,
		logger:   logging.WithComponent("host"),
	}
}

// ContextMessage is the ShowContext message a card at pos sends
func ContextMessage(pos neighbor.Position) message.ShowContext {
	return message.ShowContext{
		Notetype:  pos.Notetype,
		Marker:    pos.Marker,
		HasMarker: pos.HasMarker,
		Episode:   pos.Episode,
		Sequence:  pos.Sequence,
	}
}

// Handle processes a raw bridge message from container. It reports false
// for messages addressed to someone else. Playback failures are logged,
// not returned.
func (a *Addon) Handle(ctx context.Context, raw string, container any) (bool, error) {
	if !message.IsOurs(raw) {
		return false, nil
	}

	msg, err := message.Parse(raw)
	if err != nil {
		return true, err
	}

	switch m := msg.(type) {
	case message.Play:
		if err := a.player.Play(ctx, m.Filename); err != nil {
			a.logger.Warn("playback failed", "file", m.Filename, "error", err)
		}
		return true, nil

	case message.ShowContext:
		return true, a.showContext(ctx, m, container)
	}

	return true, fmt.Errorf("%w: %T", message.ErrUnknownCommand, msg)
}

func (a *Addon) showContext(ctx context.Context, m message.ShowContext, container any) error {
	pos, err := neighbor.NewPosition(m.Notetype, m.Marker, m.HasMarker, m.Episode, m.Sequence)
	if err != nil {
		return fmt.Errorf("%w: %v", message.ErrMalformed, err)
	}

	n := a.resolver.ResolvePosition(ctx, pos)

	payload, err := json.Marshal(ContextPayload{
		Position: pos.String(),
		Previous: n.Previous,
		Next:     n.Next,
	})
	if err != nil {
		return fmt.Errorf("failed to encode context payload: %w", err)
	}

	holder, ok := container.(HasWebSurface)
	if !ok {
		a.logger.Debug("container has no web surface", "container", fmt.Sprintf("%T", container))
		return nil
	}
	surface := holder.WebSurface()
	if surface == nil {
		return nil
	}

	surface.Eval(fmt.Sprintf("subs2srsContext.show(%s);", payload))
	return nil
}
