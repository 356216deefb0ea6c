package presentation

import (
	"context"
	"errors"
	"fmt"

	"github.com/louisbranch/hrdesk/internal/platform/timeouts"
	"github.com/louisbranch/hrdesk/internal/services/notifications/domain"
)

var (
	// ErrAudioSuspended means the audio context still waits for a user gesture.
	ErrAudioSuspended = errors.New("audio context is suspended")
	// ErrAudioUnavailable means no sound asset could be prepared.
	ErrAudioUnavailable = errors.New("audio is unavailable")
	// ErrAudioLoading means Prepare has not finished yet.
	ErrAudioLoading = errors.New("audio is still loading")
)

// audioState is a tagged variant; each state carries only the data valid
// in it, so a READY state without a sound cannot be built.
type audioState interface {
	kind() domain.AudioState
}

type audioUninitialized struct{}

type audioLoading struct {
	done chan struct{}
}

type audioSuspended struct {
	audio AudioContext
	sound Sound
}

type audioReady struct {
	sound Sound
	// audio is nil when the element fallback produced the sound.
	audio AudioContext
}

func (audioUninitialized) kind() domain.AudioState { return domain.AudioUninitialized }
func (audioLoading) kind() domain.AudioState       { return domain.AudioLoading }
func (audioSuspended) kind() domain.AudioState     { return domain.AudioSuspended }
func (audioReady) kind() domain.AudioState         { return domain.AudioReady }

// AudioState returns the current audio state.
func (m *Manager) AudioState() domain.AudioState {
	if m == nil {
		return domain.AudioUninitialized
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.audio.kind()
}

// Prepare acquires the audio context and decodes the first loadable sound.
// It is idempotent: READY and SUSPENDED return immediately and a concurrent
// call waits for the one in progress.
func (m *Manager) Prepare(ctx context.Context) error {
	if m == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	m.mu.Lock()
	switch st := m.audio.(type) {
	case audioReady, audioSuspended:
		m.mu.Unlock()
		return nil
	case audioLoading:
		m.mu.Unlock()
		select {
		case <-st.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	done := make(chan struct{})
	m.audio = audioLoading{done: done}
	m.mu.Unlock()

	next := m.loadSound(ctx)

	m.mu.Lock()
	m.audio = next
	m.mu.Unlock()
	close(done)

	if suspended, ok := next.(audioSuspended); ok {
		m.listenForGesture(suspended)
	}
	if _, ok := next.(audioUninitialized); ok {
		return ErrAudioUnavailable
	}
	return nil
}

func (m *Manager) loadSound(ctx context.Context) audioState {
	if m.audioOut != nil && m.assets != nil {
		audio, err := m.audioOut.Open(ctx)
		if err != nil {
			m.logf("presentation: audio context unavailable, using element player: %v", err)
		} else {
			for _, location := range m.soundLocations {
				asset, err := m.assets.Load(ctx, location)
				if err != nil {
					m.logf("presentation: sound asset %s: %v", location, err)
					continue
				}
				sound, err := audio.Decode(ctx, asset)
				if err != nil {
					m.logf("presentation: decode %s: %v", location, err)
					continue
				}
				if audio.Suspended() {
					return audioSuspended{audio: audio, sound: sound}
				}
				return audioReady{sound: sound, audio: audio}
			}
			if err := audio.Close(); err != nil {
				m.logf("presentation: close audio context: %v", err)
			}
		}
	}
	if m.elements != nil {
		for _, location := range m.soundLocations {
			sound, err := m.elements.Load(ctx, location)
			if err != nil {
				m.logf("presentation: element sound %s: %v", location, err)
				continue
			}
			return audioReady{sound: sound}
		}
	}
	m.logOnce(&m.loggedNoSound, "presentation: no notification sound could be loaded, continuing without audio")
	return audioUninitialized{}
}

// listenForGesture resumes a suspended context on the next user gesture.
func (m *Manager) listenForGesture(st audioSuspended) {
	if m.interactions == nil {
		return
	}
	cancel := m.interactions.Once(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.AssetLoad)
		defer cancel()
		if err := st.audio.Resume(ctx); err != nil {
			m.logf("presentation: resume after interaction: %v", err)
			m.listenForGesture(st)
			return
		}
		m.promote(st)
	})
	m.mu.Lock()
	if m.cancelGesture != nil {
		m.cancelGesture()
	}
	m.cancelGesture = cancel
	m.mu.Unlock()
}

// promote moves st to READY if it is still the current state.
func (m *Manager) promote(st audioSuspended) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.audio.(audioSuspended)
	if !ok || current.audio != st.audio {
		return
	}
	m.audio = audioReady{sound: st.sound, audio: st.audio}
	if m.cancelGesture != nil {
		m.cancelGesture()
		m.cancelGesture = nil
	}
}

// Play plays the prepared sound. A suspended context is resumed inline;
// failing that, ErrAudioSuspended is returned. Sound is best-effort and Play
// never panics.
func (m *Manager) Play(ctx context.Context) (err error) {
	if m == nil {
		return ErrAudioUnavailable
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("play sound: %v", r)
		}
	}()

	m.mu.Lock()
	st := m.audio
	m.mu.Unlock()

	switch st := st.(type) {
	case audioReady:
		return st.sound.Play(ctx)
	case audioSuspended:
		if resumeErr := st.audio.Resume(ctx); resumeErr != nil || st.audio.Suspended() {
			m.logOnce(&m.loggedSuspended, "presentation: sound blocked until the user interacts with the app")
			return ErrAudioSuspended
		}
		m.promote(st)
		return st.sound.Play(ctx)
	case audioLoading:
		return ErrAudioLoading
	default:
		return ErrAudioUnavailable
	}
}
