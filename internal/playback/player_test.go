package playback

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdnh/subs2srs-context/internal/testutil"
)

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateTestFile(t, filepath.Join(dir, "clip01.mp3"), []byte("ID3"))
	p := NewCommandPlayer(dir, "")

	path, err := p.Resolve("clip01.mp3")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "clip01.mp3"), path)

	_, err = p.Resolve("missing.mp3")
	assert.ErrorIs(t, err, os.ErrNotExist)

	for _, name := range []string{"", ".", "..", "../clip01.mp3", "sub/clip.mp3", `sub\clip.mp3`, "/etc/passwd"} {
		_, err := p.Resolve(name)
		assert.ErrorIs(t, err, ErrInvalidFilename, name)
	}
}

func TestPlayWithCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell utility")
	}

	dir := t.TempDir()
	testutil.CreateTestFile(t, filepath.Join(dir, "clip.mp3"), []byte("ID3"))

	p := NewCommandPlayer(dir, "true")
	p.Wait = true
	assert.NoError(t, p.Play(context.Background(), "clip.mp3"))

	p.Command = "false"
	assert.Error(t, p.Play(context.Background(), "clip.mp3"))
}

func TestPlayRejectsBeforeRunning(t *testing.T) {
	p := NewCommandPlayer(t.TempDir(), "definitely-not-a-player")
	err := p.Play(context.Background(), "../secret.mp3")
	assert.ErrorIs(t, err, ErrInvalidFilename)
}

func TestNoPlayerFound(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("player detection differs per platform")
	}

	dir := t.TempDir()
	testutil.CreateTestFile(t, filepath.Join(dir, "clip.mp3"), []byte("ID3"))

	p := NewCommandPlayer(dir, "")
	var looked []string
	p.lookPath = func(name string) (string, error) {
		looked = append(looked, name)
		return "", errors.New("not found")
	}

	err := p.Play(context.Background(), "clip.mp3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no audio player found")
	assert.Equal(t, []string{"mpg123", "ffplay", "play", "paplay", "aplay"}, looked)
}

func TestBlankCommandFallsBackToDetection(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("player detection differs per platform")
	}

	dir := t.TempDir()
	testutil.CreateTestFile(t, filepath.Join(dir, "clip.mp3"), []byte("ID3"))

	for _, command := range []string{" ", "   ", "\t\n"} {
		p := NewCommandPlayer(dir, command)
		var looked []string
		p.lookPath = func(name string) (string, error) {
			looked = append(looked, name)
			return "", errors.New("not found")
		}

		err := p.Play(context.Background(), "clip.mp3")
		require.Error(t, err, "command %q", command)
		assert.Contains(t, err.Error(), "no audio player found")
		assert.Len(t, looked, len(linuxPlayers), "command %q", command)
	}
}

func TestPlayerDetectionOrder(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("player detection differs per platform")
	}

	p := NewCommandPlayer(t.TempDir(), "")
	p.lookPath = func(name string) (string, error) {
		if name == "paplay" || name == "aplay" {
			return "/usr/bin/" + name, nil
		}
		return "", errors.New("not found")
	}

	cmd, err := p.command(context.Background(), "/media/clip.mp3")
	require.NoError(t, err)
	assert.Equal(t, []string{"paplay", "/media/clip.mp3"}, cmd.Args)
}
