package presentation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"maps"
	"strings"
	"sync"
	"time"
)

const (
	clickBuffer     = 32
	maxClickTargets = 256
)

// Alert is one visible notification. Tag is derived from event identity so
// the platform collapses duplicate renders.
type Alert struct {
	Tag      string
	Title    string
	Body     string
	Icon     string
	Metadata map[string]any
}

// ClickSignal reports that the user clicked a rendered alert.
type ClickSignal struct {
	Tag      string
	Metadata map[string]any
	At       time.Time
}

// Config lists the platform capabilities the manager owns. Only Permissions
// and Renderer are required; missing audio capabilities mean no sound.
type Config struct {
	Permissions    PermissionProvider
	Renderer       Renderer
	Audio          AudioOutput
	Elements       ElementPlayer
	Assets         AssetLoader
	Interactions   InteractionSource
	Focuser        Focuser
	SoundLocations []string
	Icon           string
	Clock          func() time.Time
	Logf           func(format string, args ...any)
}

// Manager is the only owner of the audio context and notification
// permission.
type Manager struct {
	permissions    PermissionProvider
	renderer       Renderer
	audioOut       AudioOutput
	elements       ElementPlayer
	assets         AssetLoader
	interactions   InteractionSource
	focuser        Focuser
	soundLocations []string
	icon           string
	clock          func() time.Time
	logf           func(format string, args ...any)
	clicks         chan ClickSignal

	mu              sync.Mutex
	audio           audioState
	cancelGesture   func()
	targets         map[string]map[string]any
	targetOrder     []string
	loggedDenied    bool
	loggedNoSound   bool
	loggedSuspended bool
}

// New creates a manager in the UNINITIALIZED audio state.
func New(cfg Config) (*Manager, error) {
	if cfg.Permissions == nil {
		return nil, errors.New("permission provider is required")
	}
	if cfg.Renderer == nil {
		return nil, errors.New("notification renderer is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}
	locations := make([]string, 0, len(cfg.SoundLocations))
	for _, location := range cfg.SoundLocations {
		if location = strings.TrimSpace(location); location != "" {
			locations = append(locations, location)
		}
	}
	return &Manager{
		permissions:    cfg.Permissions,
		renderer:       cfg.Renderer,
		audioOut:       cfg.Audio,
		elements:       cfg.Elements,
		assets:         cfg.Assets,
		interactions:   cfg.Interactions,
		focuser:        cfg.Focuser,
		soundLocations: locations,
		icon:           cfg.Icon,
		clock:          cfg.Clock,
		logf:           cfg.Logf,
		clicks:         make(chan ClickSignal, clickBuffer),
		audio:          audioUninitialized{},
		targets:        make(map[string]map[string]any),
	}, nil
}

// Present shows alert when permission allows. Undecided permission is
// requested first; a denial is logged once and Present returns nil.
func (m *Manager) Present(ctx context.Context, alert Alert) error {
	if m == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	permission, err := m.permissions.Query(ctx)
	if err != nil {
		m.logf("presentation: query permission: %v", err)
		permission = PermissionDefault
	}
	if permission == PermissionDefault {
		permission, err = m.permissions.Request(ctx)
		if err != nil {
			m.logf("presentation: request permission: %v", err)
			permission = PermissionDefault
		}
	}
	if permission != PermissionGranted {
		m.logOnce(&m.loggedDenied, "presentation: notification permission %s, alerts are stored only", permission)
		return nil
	}

	if alert.Icon == "" {
		alert.Icon = m.icon
	}
	m.registerTarget(alert.Tag, alert.Metadata)
	if err := m.renderer.Render(ctx, alert); err != nil {
		return fmt.Errorf("render alert %s: %w", alert.Tag, err)
	}
	return nil
}

func (m *Manager) registerTarget(tag string, metadata map[string]any) {
	if tag == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.targets[tag]; !exists {
		m.targetOrder = append(m.targetOrder, tag)
	}
	m.targets[tag] = maps.Clone(metadata)
	for len(m.targetOrder) > maxClickTargets {
		oldest := m.targetOrder[0]
		m.targetOrder = m.targetOrder[1:]
		delete(m.targets, oldest)
	}
}

// Click handles a platform click on the alert rendered with tag: it focuses
// the application and emits a ClickSignal. It reports whether tag was known.
func (m *Manager) Click(ctx context.Context, tag string) bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	metadata, ok := m.targets[tag]
	m.mu.Unlock()
	if !ok {
		return false
	}
	if m.focuser != nil {
		if err := m.focuser.Focus(ctx); err != nil {
			m.logf("presentation: focus application: %v", err)
		}
	}
	signal := ClickSignal{Tag: tag, Metadata: maps.Clone(metadata), At: m.clock()}
	select {
	case m.clicks <- signal:
	default:
		m.logf("presentation: click signal for %s dropped, no reader", tag)
	}
	return true
}

// Clicks streams ClickSignals for downstream routing.
func (m *Manager) Clicks() <-chan ClickSignal {
	return m.clicks
}

// Close releases the audio context and any gesture listener.
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	st := m.audio
	m.audio = audioUninitialized{}
	if m.cancelGesture != nil {
		m.cancelGesture()
		m.cancelGesture = nil
	}
	m.mu.Unlock()

	switch st := st.(type) {
	case audioReady:
		if st.audio != nil {
			return st.audio.Close()
		}
	case audioSuspended:
		return st.audio.Close()
	}
	return nil
}

func (m *Manager) logOnce(flag *bool, format string, args ...any) {
	m.mu.Lock()
	if *flag {
		m.mu.Unlock()
		return
	}
	*flag = true
	m.mu.Unlock()
	m.logf(format, args...)
}
