package desktop

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/hrdesk/internal/platform/timeouts"
)

// Focuser brings the application to the front by opening its URL with the
// system opener.
type Focuser struct {
	opts Options
	url  string
}

// NewFocuser creates a focuser for appURL. An empty URL disables focusing.
func NewFocuser(opts Options, appURL string) *Focuser {
	return &Focuser{opts: opts.withDefaults(), url: strings.TrimSpace(appURL)}
}

// Focus implements presentation.Focuser.
func (f *Focuser) Focus(ctx context.Context) error {
	if f == nil || f.url == "" {
		return nil
	}
	if !f.opts.available(opener) {
		return ErrUnsupported
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.NotifyCommand)
	defer cancel()
	if _, err := f.opts.Run(ctx, opener, f.url); err != nil {
		return fmt.Errorf("open %s: %w", f.url, err)
	}
	return nil
}
