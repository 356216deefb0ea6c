// Package identity resolves the subject id the notifier works for.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/hrdesk/internal/services/notifications/storage"
)

// ErrUnknownSubject means no subject id was configured or remembered.
var ErrUnknownSubject = errors.New("subject id is unknown")

// Resolve returns the current subject id. A configured id wins and is
// remembered in kv; otherwise the remembered id is used.
func Resolve(ctx context.Context, kv storage.KeyValueStore, configured string) (string, error) {
	configured = strings.TrimSpace(configured)
	if configured != "" {
		if kv != nil {
			if err := kv.Put(ctx, storage.KeySubjectID, configured); err != nil {
				return "", fmt.Errorf("remember subject id: %w", err)
			}
		}
		return configured, nil
	}
	if kv == nil {
		return "", ErrUnknownSubject
	}
	stored, err := kv.Get(ctx, storage.KeySubjectID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrUnknownSubject
	}
	if err != nil {
		return "", fmt.Errorf("read subject id: %w", err)
	}
	stored = strings.TrimSpace(stored)
	if stored == "" {
		return "", ErrUnknownSubject
	}
	return stored, nil
}

// Forget drops the remembered subject id, used on logout.
func Forget(ctx context.Context, kv storage.KeyValueStore) error {
	if kv == nil {
		return nil
	}
	if err := kv.Delete(ctx, storage.KeySubjectID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("forget subject id: %w", err)
	}
	return nil
}
