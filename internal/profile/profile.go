// Package profile finds the collections of Anki profiles on disk
package profile

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/abdnh/subs2srs-context/internal/anki"
)

// collectionPattern matches one collection per profile directory
const collectionPattern = "*/collection.anki2"

// ErrNoCollection is returned when no matching profile collection exists
var ErrNoCollection = errors.New("no profile collection found")

// Profile is an Anki profile with a collection
type Profile struct {
	Name       string `json:"name" yaml:"name"`
	Collection string `json:"collection" yaml:"collection"`
	MediaDir   string `json:"media_dir" yaml:"media_dir"`
}

// DefaultBaseDir returns the platform's Anki data directory
func DefaultBaseDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "Anki2"), nil
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "Anki2"), nil
	default:
		if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
			return filepath.Join(dir, "Anki2"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", "Anki2"), nil
	}
}

// Discover lists the profiles below baseDir, sorted by name
func Discover(baseDir string) ([]Profile, error) {
	if _, err := os.Stat(baseDir); err != nil {
		return nil, fmt.Errorf("anki data directory: %w", err)
	}

	matches, err := doublestar.Glob(os.DirFS(baseDir), collectionPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", baseDir, err)
	}

	profiles := make([]Profile, 0, len(matches))
	for _, m := range matches {
		collection := filepath.Join(baseDir, filepath.FromSlash(m))
		profiles = append(profiles, Profile{
			Name:       path.Dir(m),
			Collection: collection,
			MediaDir:   anki.MediaDir(collection),
		})
	}

	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })
	return profiles, nil
}

// Find returns the named profile. An empty name selects the only
// profile, or "User 1" when there are several.
func Find(baseDir, name string) (Profile, error) {
	profiles, err := Discover(baseDir)
	if err != nil {
		return Profile{}, err
	}
	if len(profiles) == 0 {
		return Profile{}, fmt.Errorf("%w in %s", ErrNoCollection, baseDir)
	}

	if name == "" {
		if len(profiles) == 1 {
			return profiles[0], nil
		}
		name = "User 1"
	}

	for _, p := range profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("%w for profile %q in %s", ErrNoCollection, name, baseDir)
}
