package storage

import (
	"context"
	"errors"
)

// ErrNotFound indicates a requested key is missing.
var ErrNotFound = errors.New("record not found")

// Keys shared by the components that persist small pieces of local state.
const (
	// KeySubjectID holds the last resolved subject id.
	KeySubjectID = "identity.subject_id"
	// KeyNotificationPermission holds the user's notification permission decision.
	KeyNotificationPermission = "presentation.notification_permission"
)

// KeyValueStore persists string values that must survive restarts.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
