// Package playback plays media files referenced by notes through an
// external audio player
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/abdnh/subs2srs-context/internal/logging"
)

// ErrInvalidFilename is returned for names that would leave the media directory
var ErrInvalidFilename = errors.New("invalid media filename")

// Player plays a media file by name
type Player interface {
	Play(ctx context.Context, filename string) error
}

// candidate is an audio player binary and the arguments placed before the file
type candidate struct {
	name string
	args []string
}

// linuxPlayers are tried in order; mpg123 first since it handles MP3 best
var linuxPlayers = []candidate{
	{"mpg123", []string{"-q"}},
	{"ffplay", []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
	{"play", []string{"-q"}},
	{"paplay", nil},
	{"aplay", []string{"-q"}},
}

// CommandPlayer runs an audio player on files in a media directory
type CommandPlayer struct {
	MediaDir string
	// Command overrides player detection unless blank; the file path is
	// appended to it
	Command string
	// Wait blocks Play until the player exits
	Wait bool

	lookPath func(string) (string, error)
	logger   *slog.Logger
}

// NewCommandPlayer creates a player for mediaDir
func NewCommandPlayer(mediaDir, command string) *CommandPlayer {
	return &CommandPlayer{
		MediaDir: mediaDir,
		Command:  command,
		lookPath: exec.LookPath,
		logger:   logging.WithComponent("playback"),
	}
}

// Resolve returns the path of filename inside the media directory
func (p *CommandPlayer) Resolve(filename string) (string, error) {
	if filename == "" || filename == "." || filename == ".." ||
		strings.ContainsAny(filename, `/\`) || filepath.Base(filename) != filename {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}

	path := filepath.Join(p.MediaDir, filename)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("media file %s: %w", filename, err)
	}
	return path, nil
}

// Play starts the player on filename. Unless Wait is set it returns once
// the player has started.
func (p *CommandPlayer) Play(ctx context.Context, filename string) error {
	path, err := p.Resolve(filename)
	if err != nil {
		return err
	}

	cmd, err := p.command(ctx, path)
	if err != nil {
		return err
	}

	p.logger.Debug("starting playback", "file", filename, "player", cmd.Path)

	if p.Wait {
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("failed to play %s: %w", filename, err)
		}
		return nil
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start player for %s: %w", filename, err)
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			p.logger.Warn("player exited with error", "file", filename, "error", err)
		}
	}()
	return nil
}

// command builds the platform-specific player command
func (p *CommandPlayer) command(ctx context.Context, path string) (*exec.Cmd, error) {
	// A blank command falls back to detection
	if fields := strings.Fields(p.Command); len(fields) > 0 {
		return exec.CommandContext(ctx, fields[0], append(fields[1:], path)...), nil
	}

	lookPath := p.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	switch runtime.GOOS {
	case "darwin":
		return exec.CommandContext(ctx, "afplay", path), nil
	case "windows":
		return exec.CommandContext(ctx, "cmd", "/c", "start", "/min", path), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		for _, c := range linuxPlayers {
			if _, err := lookPath(c.name); err == nil {
				return exec.CommandContext(ctx, c.name, append(append([]string{}, c.args...), path)...), nil
			}
		}
		return nil, fmt.Errorf("no audio player found. Install mpg123, ffplay, sox, paplay, or aplay")
	default:
		return nil, fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}
