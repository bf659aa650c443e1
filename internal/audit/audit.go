// Package audit resolves the neighbors of every note in a collection and
// summarizes how well its subs2srs sequences link up
package audit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/abdnh/subs2srs-context/internal/anki"
	"github.com/abdnh/subs2srs-context/internal/logging"
	"github.com/abdnh/subs2srs-context/internal/neighbor"
)

// Store lists and reads notes
type Store interface {
	neighbor.Store
	NotesOfType(ctx context.Context, notetype string) ([]anki.NoteID, error)
}

// Config holds audit configuration
type Config struct {
	Notetype string    // empty audits every notetype
	Workers  int       // concurrent resolutions
	Progress io.Writer // progress bar output, nil for none
}

// Report summarizes an audit
type Report struct {
	Notetype     string        `json:"notetype" yaml:"notetype"`
	Notes        int           `json:"notes" yaml:"notes"`
	WithContext  int           `json:"with_context" yaml:"with_context"`
	WithPrevious int           `json:"with_previous" yaml:"with_previous"`
	WithNext     int           `json:"with_next" yaml:"with_next"`
	Duplicates   int           `json:"duplicates" yaml:"duplicates"`
	Isolated     []anki.NoteID `json:"isolated" yaml:"isolated"` // have a position but no neighbor audio
	Elapsed      time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Auditor runs audits over a store
type Auditor struct {
	store    Store
	resolver *neighbor.Resolver
	config   Config
	logger   *slog.Logger
}

// New creates an auditor
func New(store Store, resolver *neighbor.Resolver, config Config) *Auditor {
	if config.Workers <= 0 {
		config.Workers = 4
	}
	return &Auditor{
		store:    store,
		resolver: resolver,
		config:   config,
		logger:   logging.WithComponent("audit"),
	}
}

// Run audits every selected note. It stops at the first store failure.
func (a *Auditor) Run(ctx context.Context) (*Report, error) {
	start := time.Now()

	ids, err := a.store.NotesOfType(ctx, a.config.Notetype)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	a.logger.Info("starting audit", "notetype", a.config.Notetype, "notes", len(ids), "workers", a.config.Workers)

	var bar *progressbar.ProgressBar
	if a.config.Progress != nil {
		bar = progressbar.NewOptions(len(ids),
			progressbar.OptionSetWriter(a.config.Progress),
			progressbar.OptionSetDescription("Auditing"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}

	report := &Report{Notetype: a.config.Notetype, Notes: len(ids)}
	positions := make(map[string]int)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.Workers)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			note, err := a.store.Note(gctx, id)
			if err != nil {
				return fmt.Errorf("failed to read note %d: %w", id, err)
			}

			pos, hasContext := a.resolver.ParseContext(note)
			var n neighbor.Neighbors
			if hasContext {
				n = a.resolver.ResolveNeighbors(gctx, note)
			}

			mu.Lock()
			defer mu.Unlock()
			if hasContext {
				report.WithContext++
				positions[positionKey(pos)]++
				if n.Previous == nil && n.Next == nil {
					report.Isolated = append(report.Isolated, id)
				}
			}
			if n.Previous != nil {
				report.WithPrevious++
			}
			if n.Next != nil {
				report.WithNext++
			}
			if bar != nil {
				bar.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if bar != nil {
		bar.Finish()
	}

	for _, count := range positions {
		if count > 1 {
			report.Duplicates += count
		}
	}
	sort.Slice(report.Isolated, func(i, j int) bool { return report.Isolated[i] < report.Isolated[j] })
	report.Elapsed = time.Since(start)

	a.logger.Info("audit finished", "notes", report.Notes, "with_context", report.WithContext,
		"duplicates", report.Duplicates, "elapsed", report.Elapsed)

	return report, nil
}

// positionKey identifies a sequence slot; notes sharing one make neighbor
// matching ambiguous
func positionKey(p neighbor.Position) string {
	return fmt.Sprintf("%s\x00%t\x00%s\x00%s\x00%s", p.Notetype, p.HasMarker, p.Marker, p.Episode, p.Sequence)
}
