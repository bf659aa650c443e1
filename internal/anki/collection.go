package anki

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/abdnh/subs2srs-context/internal/logging"
	"github.com/abdnh/subs2srs-context/internal/search"
)

// Collection is a read-only view of an Anki collection database
type Collection struct {
	db        *sql.DB
	path      string
	notetypes map[int64]Notetype
	byName    map[string]Notetype
	logger    *slog.Logger
}

// OpenOptions holds options for opening a collection
type OpenOptions struct {
	BusyTimeout  time.Duration // How long to wait while Anki holds a write lock
	MaxOpenConns int           // Concurrent readers, used by batch resolution
}

// DefaultOpenOptions returns sensible defaults
func DefaultOpenOptions() *OpenOptions {
	return &OpenOptions{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 4,
	}
}

// Open opens the collection at path read-only with default options
func Open(ctx context.Context, path string) (*Collection, error) {
	return OpenWithOptions(ctx, path, nil)
}

// OpenWithOptions opens the collection at path read-only
func OpenWithOptions(ctx context.Context, path string, opts *OpenOptions) (*Collection, error) {
	if opts == nil {
		opts = DefaultOpenOptions()
	}

	// mode=ro fails late with an unhelpful message, so check first
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open collection: %w", err)
	}

	dsn, err := collectionDSN(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection: %w", err)
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	c := &Collection{
		db:     db,
		path:   path,
		logger: logging.WithComponent("collection"),
	}

	if err := c.Reload(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return c, nil
}

// collectionDSN builds a read-only SQLite URI for path. Characters such as
// '#' and '?' in directory names are percent-encoded.
func collectionDSN(path string, opts *OpenOptions) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	abs = filepath.ToSlash(abs)
	if !strings.HasPrefix(abs, "/") {
		abs = "/" + abs // C:/... on Windows
	}

	query := url.Values{}
	query.Set("mode", "ro")
	query.Set("_busy_timeout", strconv.FormatInt(opts.BusyTimeout.Milliseconds(), 10))

	u := url.URL{Scheme: "file", Path: abs, RawQuery: query.Encode()}
	return u.String(), nil
}

// Close closes the database connection
func (c *Collection) Close() error {
	return c.db.Close()
}

// Path returns the collection file path
func (c *Collection) Path() string {
	return c.path
}

// MediaDir returns the media folder that belongs to the collection
// (collection.anki2 -> collection.media)
func (c *Collection) MediaDir() string {
	return MediaDir(c.path)
}

// MediaDir returns the media folder for a collection file path
func MediaDir(collectionPath string) string {
	return strings.TrimSuffix(collectionPath, filepath.Ext(collectionPath)) + ".media"
}

// Reload re-reads notetype definitions. Notes are always read live.
func (c *Collection) Reload(ctx context.Context) error {
	notetypes, err := loadNotetypes(ctx, c.db)
	if err != nil {
		return fmt.Errorf("failed to load notetypes: %w", err)
	}

	c.notetypes = make(map[int64]Notetype, len(notetypes))
	c.byName = make(map[string]Notetype, len(notetypes))
	for _, nt := range notetypes {
		c.notetypes[nt.ID] = nt
		c.byName[nt.Name] = nt
	}

	c.logger.Debug("loaded notetypes", "path", c.path, "count", len(notetypes))
	return nil
}

// Notetypes returns all notetypes sorted by name
func (c *Collection) Notetypes() []Notetype {
	out := make([]Notetype, 0, len(c.notetypes))
	for _, nt := range c.notetypes {
		out = append(out, nt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Notetype returns the notetype with the given name
func (c *Collection) Notetype(name string) (Notetype, bool) {
	nt, ok := c.byName[name]
	return nt, ok
}

// Note returns the note with the given ID. A missing note yields an error
// wrapping ErrNotFound.
func (c *Collection) Note(ctx context.Context, id NoteID) (*Note, error) {
	var mid int64
	var flds string
	err := c.db.QueryRowContext(ctx, `SELECT mid, flds FROM notes WHERE id = ?`, int64(id)).Scan(&mid, &flds)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("note %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read note %d: %w", id, err)
	}

	nt, ok := c.notetypes[mid]
	if !ok {
		// Notetype added after the collection was opened
		c.logger.Debug("note has unknown notetype", "note", id, "mid", mid)
		return &Note{ID: id}, nil
	}

	return NewNote(id, nt.Name, nt.Fields, splitFields(flds)), nil
}

// FindNotes returns the IDs of notes matching q in ascending order.
// Notetype and field terms are evaluated inside SQLite.
func (c *Collection) FindNotes(ctx context.Context, q search.Query) ([]NoteID, error) {
	where, args := c.buildWhere(q)
	if where == "" {
		return nil, nil
	}

	query := "SELECT id FROM notes WHERE " + where + " ORDER BY id"
	c.logger.Debug("find notes", "search", q.String())

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search notes: %w", err)
	}
	defer rows.Close()

	var ids []NoteID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan note id: %w", err)
		}
		ids = append(ids, NoteID(id))
	}

	return ids, rows.Err()
}

// NotesOfType returns the IDs of all notes of a notetype, or of every
// notetype when name is empty
func (c *Collection) NotesOfType(ctx context.Context, name string) ([]NoteID, error) {
	if name == "" {
		return c.FindNotes(ctx, search.New())
	}
	return c.FindNotes(ctx, search.New(search.NoteType(name)))
}

// buildWhere translates q into one clause per candidate notetype, since
// field positions differ between notetypes. An empty clause means nothing
// can match.
func (c *Collection) buildWhere(q search.Query) (string, []any) {
	var candidates []Notetype
	switch names := q.NoteTypes(); len(names) {
	case 0:
		candidates = c.Notetypes()
	case 1:
		nt, ok := c.byName[names[0]]
		if !ok {
			return "", nil
		}
		candidates = []Notetype{nt}
	default:
		// A note has exactly one notetype
		return "", nil
	}

	fieldTerms := q.FieldTerms()
	var clauses []string
	var args []any

candidate:
	for _, nt := range candidates {
		parts := []string{"mid = ?"}
		ntArgs := []any{nt.ID}
		for _, t := range fieldTerms {
			ord, ok := nt.FieldOrd(t.Field)
			if !ok {
				continue candidate
			}
			parts = append(parts, "anki_glob(?, field_at(flds, ?))")
			ntArgs = append(ntArgs, t.Pattern, ord)
		}
		clauses = append(clauses, "("+strings.Join(parts, " AND ")+")")
		args = append(args, ntArgs...)
	}

	return strings.Join(clauses, " OR "), args
}
