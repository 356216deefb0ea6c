// Package desktop implements the presentation capabilities on a desktop
// session with the helpers every major desktop ships: notify-send or
// osascript for alerts, a command-line player for sound, and the system
// opener to focus the application.
package desktop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"
)

// ErrUnsupported means the platform has no helper for a capability.
var ErrUnsupported = errors.New("desktop capability is not supported on this platform")

// Runner executes a helper command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Options are shared by every desktop capability.
type Options struct {
	// AppName labels alerts where the platform supports it.
	AppName  string
	Run      Runner
	LookPath func(file string) (string, error)
	Logf     func(format string, args ...any)
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.AppName) == "" {
		o.AppName = "hrdesk"
	}
	if o.Run == nil {
		o.Run = execRunner
	}
	if o.LookPath == nil {
		o.LookPath = exec.LookPath
	}
	if o.Logf == nil {
		o.Logf = log.Printf
	}
	return o
}

func (o Options) available(name string) bool {
	if name == "" {
		return false
	}
	_, err := o.LookPath(name)
	return err == nil
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(out))
		if detail != "" {
			return out, fmt.Errorf("%s failed: %w: %s", name, err, detail)
		}
		return out, fmt.Errorf("%s failed: %w", name, err)
	}
	return out, nil
}
