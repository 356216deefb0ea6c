package desktop

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/louisbranch/hrdesk/internal/platform/timeouts"
	"github.com/louisbranch/hrdesk/internal/services/notifications/presentation"
)

const clickAction = "default"

// Renderer shows alerts through the platform notification helper. On
// platforms without one it silently drops alerts and Supported is false.
type Renderer struct {
	opts      Options
	supported bool
	actions   bool

	mu      sync.Mutex
	onClick func(tag string)
	ctx     context.Context
	cancel  context.CancelFunc
	waiting sync.WaitGroup
}

// NewRenderer creates a renderer. With clickActions, alerts are shown with a
// default action and the helper waits in the background to report clicks
// to the handler set by SetClickHandler.
func NewRenderer(opts Options, clickActions bool) *Renderer {
	opts = opts.withDefaults()
	name, _ := notifyCommand(opts.AppName, presentation.Alert{}, false)
	ctx, cancel := context.WithCancel(context.Background())
	return &Renderer{
		opts:      opts,
		supported: opts.available(name),
		actions:   clickActions && supportsClickActions,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Supported reports whether alerts can be shown.
func (r *Renderer) Supported() bool {
	return r != nil && r.supported
}

// SetClickHandler sets the function called with the tag of a clicked alert.
func (r *Renderer) SetClickHandler(onClick func(tag string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onClick = onClick
}

// Render implements presentation.Renderer.
func (r *Renderer) Render(ctx context.Context, alert presentation.Alert) error {
	if !r.Supported() {
		return nil
	}
	r.mu.Lock()
	onClick := r.onClick
	r.mu.Unlock()

	if r.actions && onClick != nil && alert.Tag != "" {
		name, args := notifyCommand(r.opts.AppName, alert, true)
		r.waiting.Add(1)
		go r.awaitClick(alert.Tag, onClick, name, args)
		return nil
	}

	name, args := notifyCommand(r.opts.AppName, alert, false)
	ctx, cancel := context.WithTimeout(ctx, timeouts.NotifyCommand)
	defer cancel()
	if _, err := r.opts.Run(ctx, name, args...); err != nil {
		return fmt.Errorf("show alert: %w", err)
	}
	return nil
}

func (r *Renderer) awaitClick(tag string, onClick func(string), name string, args []string) {
	defer r.waiting.Done()
	ctx, cancel := context.WithTimeout(r.ctx, timeouts.AlertClickWait)
	defer cancel()
	out, err := r.opts.Run(ctx, name, args...)
	if err != nil {
		if r.ctx.Err() == nil {
			r.opts.Logf("desktop: alert %s: %v", tag, err)
		}
		return
	}
	if strings.TrimSpace(string(out)) == clickAction {
		onClick(tag)
	}
}

// Close stops background click waits.
func (r *Renderer) Close() {
	if r == nil {
		return
	}
	r.cancel()
	r.waiting.Wait()
}

// notifySendArgs builds notify-send arguments. The synchronous hint makes
// alerts sharing a tag replace each other instead of stacking.
func notifySendArgs(appName string, alert presentation.Alert, wait bool) []string {
	args := []string{"--app-name=" + appName}
	if alert.Icon != "" {
		args = append(args, "--icon="+alert.Icon)
	}
	if alert.Tag != "" {
		args = append(args,
			"--hint=string:x-canonical-private-synchronous:"+alert.Tag,
			"--hint=string:x-dunst-stack-tag:"+alert.Tag,
		)
	}
	if wait {
		args = append(args, "--wait", "--action="+clickAction+"=Open")
	}
	title := alert.Title
	if strings.TrimSpace(title) == "" {
		title = appName
	}
	return append(args, "--", title, alert.Body)
}

// appleScript builds the osascript program for one alert.
func appleScript(alert presentation.Alert) string {
	return fmt.Sprintf(`display notification "%s" with title "%s"`,
		escapeAppleScript(alert.Body), escapeAppleScript(alert.Title))
}

// escapeAppleScript escapes special characters for AppleScript strings.
func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	return s
}
