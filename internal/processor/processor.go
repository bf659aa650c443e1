package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abdnh/subs2srs-context/internal/anki"
	"github.com/abdnh/subs2srs-context/internal/audit"
	"github.com/abdnh/subs2srs-context/internal/cli"
	"github.com/abdnh/subs2srs-context/internal/host"
	"github.com/abdnh/subs2srs-context/internal/logging"
	"github.com/abdnh/subs2srs-context/internal/message"
	"github.com/abdnh/subs2srs-context/internal/neighbor"
	"github.com/abdnh/subs2srs-context/internal/playback"
	"github.com/abdnh/subs2srs-context/internal/profile"
)

// Processor runs the CLI operations against one collection
type Processor struct {
	settings *cli.Settings
	out      io.Writer
	progress io.Writer
	logger   *slog.Logger

	// Opened on first use
	collection *anki.Collection
	resolver   *neighbor.Resolver
	player     playback.Player
	addon      *host.Addon
}

// NewProcessor creates a processor; the collection is opened lazily
func NewProcessor(settings *cli.Settings) *Processor {
	var progress io.Writer
	if logging.IsTerminal(os.Stderr) {
		progress = os.Stderr
	}
	return &Processor{
		settings: settings,
		out:      os.Stdout,
		progress: progress,
		logger:   logging.WithComponent("processor"),
	}
}

// SetOutput redirects command output
func (p *Processor) SetOutput(w io.Writer) {
	p.out = w
}

// SetPlayer replaces the audio player used by Play and HandleMessage
func (p *Processor) SetPlayer(player playback.Player) {
	p.player = player
}

// Close closes the collection if it was opened
func (p *Processor) Close() error {
	if p.collection == nil {
		return nil
	}
	err := p.collection.Close()
	p.collection = nil
	return err
}

// ContextResult describes a note's sequence position and its neighbors.
// Message is the bridge message the note's card sends to show its context.
type ContextResult struct {
	ID       anki.NoteID        `json:"id" yaml:"id"`
	Notetype string             `json:"notetype" yaml:"notetype"`
	Position *PositionView      `json:"position" yaml:"position"`
	Previous *neighbor.Neighbor `json:"previous" yaml:"previous"`
	Next     *neighbor.Neighbor `json:"next" yaml:"next"`
	Message  string             `json:"message,omitempty" yaml:"message,omitempty"`
}

// PositionView is the printable part of a neighbor.Position
type PositionView struct {
	Episode  string `json:"episode" yaml:"episode"`
	Sequence string `json:"sequence" yaml:"sequence"`
	Marker   string `json:"marker,omitempty" yaml:"marker,omitempty"`
}

// ShowContext prints the position of a note and its resolved neighbors
func (p *Processor) ShowContext(ctx context.Context, id anki.NoteID) error {
	if err := p.open(ctx); err != nil {
		return err
	}

	note, err := p.collection.Note(ctx, id)
	if err != nil {
		return err
	}

	result := ContextResult{ID: note.ID, Notetype: note.Notetype}
	if pos, ok := p.resolver.ParseContext(note); ok {
		result.Position = &PositionView{Episode: pos.Episode, Sequence: pos.Sequence, Marker: pos.Marker}
		result.Message = message.Encode(host.ContextMessage(pos))
	}

	n := p.resolver.ResolveNeighbors(ctx, note)
	result.Previous, result.Next = n.Previous, n.Next

	return p.write(result, func(w io.Writer) {
		fmt.Fprintf(w, "Note %d (%s)\n", result.ID, result.Notetype)
		if result.Position == nil {
			fmt.Fprintf(w, "  No sequence position in field %s\n", p.resolver.Config().SequenceField)
		} else {
			fmt.Fprintf(w, "  Episode %s, sequence %s", result.Position.Episode, result.Position.Sequence)
			if result.Position.Marker != "" {
				fmt.Fprintf(w, ", marker %s", result.Position.Marker)
			}
			fmt.Fprintln(w)
		}
		writeNeighbors(w, n)
		if result.Message != "" {
			fmt.Fprintf(w, "  Message: %s\n", result.Message)
		}
	})
}

// ShowNeighbors prints the previous and next audio of a note. A note that
// does not exist has no neighbors.
func (p *Processor) ShowNeighbors(ctx context.Context, id anki.NoteID) error {
	if err := p.open(ctx); err != nil {
		return err
	}

	n := p.resolver.ResolveNeighborsByID(ctx, id)
	return p.write(n, func(w io.Writer) {
		writeNeighbors(w, n)
	})
}

// Play plays the audio of the note's neighbor on side ("previous" or "next")
func (p *Processor) Play(ctx context.Context, id anki.NoteID, side string) error {
	if err := p.open(ctx); err != nil {
		return err
	}

	n := p.resolver.ResolveNeighborsByID(ctx, id)
	target := n.Next
	if side == neighbor.Previous.String() {
		target = n.Previous
	}
	if target == nil {
		return fmt.Errorf("note %d has no %s audio", id, side)
	}

	fmt.Fprintf(p.out, "Playing %s (note %d)\n", target.Audio, target.ID)
	return p.player.Play(ctx, target.Audio)
}

// PlayFile plays a file from the collection's media folder
func (p *Processor) PlayFile(ctx context.Context, filename string) error {
	if err := p.open(ctx); err != nil {
		return err
	}

	fmt.Fprintf(p.out, "Playing %s\n", filename)
	return p.player.Play(ctx, filename)
}

// Audit resolves every note of notetype and prints a summary
func (p *Processor) Audit(ctx context.Context, notetype string) error {
	if err := p.open(ctx); err != nil {
		return err
	}

	a := audit.New(p.collection, p.resolver, audit.Config{
		Notetype: notetype,
		Workers:  p.settings.Workers,
		Progress: p.progress,
	})
	report, err := a.Run(ctx)
	if err != nil {
		return err
	}

	return p.write(report, func(w io.Writer) {
		scope := report.Notetype
		if scope == "" {
			scope = "all notetypes"
		}
		fmt.Fprintf(w, "\n=== Audit Summary (%s) ===\n", scope)
		fmt.Fprintf(w, "Notes: %d\n", report.Notes)
		fmt.Fprintf(w, "With sequence position: %d\n", report.WithContext)
		fmt.Fprintf(w, "With previous audio: %d\n", report.WithPrevious)
		fmt.Fprintf(w, "With next audio: %d\n", report.WithNext)
		if report.Duplicates > 0 {
			fmt.Fprintf(w, "Sharing a position: %d\n", report.Duplicates)
		}
		if len(report.Isolated) > 0 {
			fmt.Fprintf(w, "Without any neighbor: %d\n", len(report.Isolated))
		}
		fmt.Fprintf(w, "Elapsed: %s\n", report.Elapsed.Round(time.Millisecond))
		fmt.Fprintf(w, "================================\n")
	})
}

// HandleMessage passes a raw bridge message to the add-on. Scripts meant
// for the web view are printed instead.
func (p *Processor) HandleMessage(ctx context.Context, raw string) error {
	if err := p.open(ctx); err != nil {
		return err
	}

	handled, err := p.addon.Handle(ctx, raw, &printSurface{w: p.out})
	if err != nil {
		return err
	}
	if !handled {
		fmt.Fprintf(p.out, "Ignored message for another add-on: %s\n", raw)
	}
	return nil
}

// ListProfiles prints the profiles found in the Anki data directory
func (p *Processor) ListProfiles(ctx context.Context) error {
	baseDir, err := p.baseDir()
	if err != nil {
		return err
	}

	profiles, err := profile.Discover(baseDir)
	if err != nil {
		return err
	}

	return p.write(profiles, func(w io.Writer) {
		if len(profiles) == 0 {
			fmt.Fprintf(w, "No profiles found in %s\n", baseDir)
			return
		}
		for _, pr := range profiles {
			fmt.Fprintf(w, "%s\t%s\n", pr.Name, pr.Collection)
		}
	})
}

// open opens the collection and builds the resolver, player and add-on
func (p *Processor) open(ctx context.Context) error {
	if p.collection != nil {
		return nil
	}

	config, err := p.settings.ResolverConfig()
	if err != nil {
		return err
	}

	path, err := p.collectionPath()
	if err != nil {
		return err
	}

	col, err := anki.Open(ctx, path)
	if err != nil {
		return err
	}
	p.logger.Debug("opened collection", "path", path, "notetypes", len(col.Notetypes()))

	p.collection = col
	p.resolver = neighbor.NewResolver(col, config)
	if p.player == nil {
		player := playback.NewCommandPlayer(col.MediaDir(), p.settings.PlayerCommand)
		player.Wait = true
		p.player = player
	}
	p.addon = host.New(p.resolver, p.player)
	return nil
}

func (p *Processor) collectionPath() (string, error) {
	if p.settings.CollectionPath != "" {
		return p.settings.CollectionPath, nil
	}

	baseDir, err := p.baseDir()
	if err != nil {
		return "", err
	}
	pr, err := profile.Find(baseDir, p.settings.Profile)
	if err != nil {
		return "", err
	}
	return pr.Collection, nil
}

func (p *Processor) baseDir() (string, error) {
	if p.settings.BaseDir != "" {
		return p.settings.BaseDir, nil
	}
	return profile.DefaultBaseDir()
}

// write renders v in the configured output format
func (p *Processor) write(v any, text func(w io.Writer)) error {
	switch p.settings.OutputFormat {
	case "json":
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(p.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "", "text":
		text(p.out)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", p.settings.OutputFormat)
	}
}

func writeNeighbors(w io.Writer, n neighbor.Neighbors) {
	for _, side := range []struct {
		name     string
		neighbor *neighbor.Neighbor
	}{{"Previous", n.Previous}, {"Next", n.Next}} {
		if side.neighbor == nil {
			fmt.Fprintf(w, "  %s: none\n", side.name)
			continue
		}
		fmt.Fprintf(w, "  %s: %s (note %d)\n", side.name, side.neighbor.Audio, side.neighbor.ID)
	}
}

// printSurface is a web surface that prints scripts
type printSurface struct {
	w io.Writer
}

func (s *printSurface) WebSurface() host.WebSurface {
	return s
}

func (s *printSurface) Eval(script string) {
	fmt.Fprintln(s.w, script)
}
