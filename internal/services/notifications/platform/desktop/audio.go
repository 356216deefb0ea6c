package desktop

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/louisbranch/hrdesk/internal/platform/timeouts"
	"github.com/louisbranch/hrdesk/internal/services/notifications/presentation"
)

// ErrNotAudio means an asset does not look like a sound file.
var ErrNotAudio = errors.New("asset is not a recognized audio format")

// CommandAudio plays sounds with the first available command-line player.
// It serves as both the low-latency output (decoded assets are staged in a
// private temp dir) and the element fallback (local files play in place).
type CommandAudio struct {
	opts   Options
	player []string
	// gesture makes new contexts start suspended until Resume.
	gesture bool
}

// NewCommandAudio finds a player. With requireGesture, opened contexts
// start suspended so sound only plays after the user interacted with the
// app.
func NewCommandAudio(opts Options, requireGesture bool) *CommandAudio {
	opts = opts.withDefaults()
	a := &CommandAudio{opts: opts, gesture: requireGesture}
	for _, candidate := range soundPlayers {
		if opts.available(candidate[0]) {
			a.player = candidate
			break
		}
	}
	return a
}

// Supported reports whether a player was found.
func (a *CommandAudio) Supported() bool {
	return a != nil && len(a.player) > 0
}

// Open implements presentation.AudioOutput.
func (a *CommandAudio) Open(context.Context) (presentation.AudioContext, error) {
	if !a.Supported() {
		return nil, ErrUnsupported
	}
	dir, err := os.MkdirTemp("", "hrdesk-sound-*")
	if err != nil {
		return nil, fmt.Errorf("stage sounds: %w", err)
	}
	return &commandContext{audio: a, dir: dir, suspended: a.gesture}, nil
}

// Load implements presentation.ElementPlayer for local files.
func (a *CommandAudio) Load(_ context.Context, location string) (presentation.Sound, error) {
	if !a.Supported() {
		return nil, ErrUnsupported
	}
	path, ok := localPath(location)
	if !ok {
		return nil, fmt.Errorf("element player needs a local file, got %s", location)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("sound file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("sound file %s is a directory", path)
	}
	return &commandSound{audio: a, path: path}, nil
}

type commandContext struct {
	audio *CommandAudio
	dir   string

	mu        sync.Mutex
	suspended bool
	staged    int
	closed    bool
}

func (c *commandContext) Suspended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suspended
}

func (c *commandContext) Resume(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("audio context is closed")
	}
	c.suspended = false
	return nil
}

// Decode checks that asset is audio and stages it for the player.
func (c *commandContext) Decode(_ context.Context, asset []byte) (presentation.Sound, error) {
	if !isAudio(asset) {
		return nil, ErrNotAudio
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errors.New("audio context is closed")
	}
	c.staged++
	path := filepath.Join(c.dir, fmt.Sprintf("sound-%d", c.staged))
	if err := os.WriteFile(path, asset, 0o600); err != nil {
		return nil, fmt.Errorf("stage sound: %w", err)
	}
	return &commandSound{audio: c.audio, path: path}, nil
}

func (c *commandContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return os.RemoveAll(c.dir)
}

type commandSound struct {
	audio *CommandAudio
	path  string
}

// Play starts playback in the background so the visible alert is not held
// back by the length of the sound.
func (s *commandSound) Play(context.Context) error {
	player := s.audio.player
	args := append(append([]string(nil), player[1:]...), s.path)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.SoundPlayback)
		defer cancel()
		if _, err := s.audio.opts.Run(ctx, player[0], args...); err != nil {
			s.audio.opts.Logf("desktop: play %s: %v", filepath.Base(s.path), err)
		}
	}()
	return nil
}

func isAudio(asset []byte) bool {
	if len(asset) == 0 {
		return false
	}
	kind := http.DetectContentType(asset)
	return strings.HasPrefix(kind, "audio/") || kind == "application/ogg"
}

func localPath(location string) (string, bool) {
	location = strings.TrimSpace(location)
	switch {
	case location == "":
		return "", false
	case strings.HasPrefix(location, "file://"):
		return strings.TrimPrefix(location, "file://"), true
	case strings.Contains(location, "://"):
		return "", false
	default:
		return location, true
	}
}
