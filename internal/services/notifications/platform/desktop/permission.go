package desktop

import (
	"context"
	"errors"
	"fmt"

	"github.com/louisbranch/hrdesk/internal/services/notifications/presentation"
	"github.com/louisbranch/hrdesk/internal/services/notifications/storage"
)

// Permission keeps the notification permission decision in the key/value
// store. A desktop session has no prompt, so an undecided request is
// granted whenever alerts can be shown.
type Permission struct {
	kv storage.KeyValueStore
	// policy overrides any remembered decision when not default.
	policy    presentation.Permission
	supported func() bool
	logf      func(format string, args ...any)
}

// NewPermission creates a persisted permission provider. supported reports
// whether alerts can be rendered at all.
func NewPermission(opts Options, kv storage.KeyValueStore, policy presentation.Permission, supported func() bool) *Permission {
	opts = opts.withDefaults()
	if supported == nil {
		supported = func() bool { return true }
	}
	return &Permission{kv: kv, policy: policy, supported: supported, logf: opts.Logf}
}

// Query implements presentation.PermissionProvider.
func (p *Permission) Query(ctx context.Context) (presentation.Permission, error) {
	if p.policy != presentation.PermissionDefault && p.policy != "" {
		return p.policy, nil
	}
	if p.kv == nil {
		return presentation.PermissionDefault, nil
	}
	raw, err := p.kv.Get(ctx, storage.KeyNotificationPermission)
	if errors.Is(err, storage.ErrNotFound) {
		return presentation.PermissionDefault, nil
	}
	if err != nil {
		return presentation.PermissionDefault, fmt.Errorf("read notification permission: %w", err)
	}
	return presentation.ParsePermission(raw), nil
}

// Request implements presentation.PermissionProvider and remembers the
// decision. A failed write is logged and the decision still stands.
func (p *Permission) Request(ctx context.Context) (presentation.Permission, error) {
	decision := presentation.PermissionGranted
	if !p.supported() {
		decision = presentation.PermissionDenied
	}
	if p.policy == presentation.PermissionDenied {
		decision = presentation.PermissionDenied
	}
	if p.kv != nil {
		if err := p.kv.Put(ctx, storage.KeyNotificationPermission, string(decision)); err != nil {
			p.logf("desktop: remember notification permission: %v", err)
		}
	}
	return decision, nil
}
