package presentation

import "context"

// Permission is the platform's notification permission decision.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionDefault Permission = "default"
)

// ParsePermission maps stored values to a Permission; unknown values are
// undecided.
func ParsePermission(raw string) Permission {
	switch Permission(raw) {
	case PermissionGranted, PermissionDenied:
		return Permission(raw)
	default:
		return PermissionDefault
	}
}

// PermissionProvider queries and requests notification permission.
type PermissionProvider interface {
	Query(ctx context.Context) (Permission, error)
	Request(ctx context.Context) (Permission, error)
}

// Renderer shows one visible notification. Renders sharing a tag replace
// each other.
type Renderer interface {
	Render(ctx context.Context, alert Alert) error
}

// Sound is a prepared, playable notification sound.
type Sound interface {
	Play(ctx context.Context) error
}

// AudioOutput opens the low-latency audio context.
type AudioOutput interface {
	Open(ctx context.Context) (AudioContext, error)
}

// AudioContext decodes sound assets and may start suspended until a user
// gesture allows it to resume.
type AudioContext interface {
	Suspended() bool
	Resume(ctx context.Context) error
	Decode(ctx context.Context, asset []byte) (Sound, error)
	Close() error
}

// ElementPlayer is the simple fallback: load a sound straight from a
// location.
type ElementPlayer interface {
	Load(ctx context.Context, location string) (Sound, error)
}

// AssetLoader fetches raw sound assets.
type AssetLoader interface {
	Load(ctx context.Context, location string) ([]byte, error)
}

// InteractionSource registers one-shot user gesture listeners. The returned
// function cancels the listener.
type InteractionSource interface {
	Once(listener func()) (cancel func())
}

// Focuser brings the application to the foreground.
type Focuser interface {
	Focus(ctx context.Context) error
}
