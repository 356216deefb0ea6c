package presentation

import "sync"

// InteractionHub fans user gestures out to one-shot listeners. The host
// calls Notify on every click, keypress or touch it observes.
type InteractionHub struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[uint64]func()
}

// NewInteractionHub creates an empty hub.
func NewInteractionHub() *InteractionHub {
	return &InteractionHub{listeners: make(map[uint64]func())}
}

// Once implements InteractionSource.
func (h *InteractionHub) Once(listener func()) func() {
	if h == nil || listener == nil {
		return func() {}
	}
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.listeners[id] = listener
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

// Notify runs and removes every registered listener. It returns how many
// ran.
func (h *InteractionHub) Notify() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	pending := h.listeners
	h.listeners = make(map[uint64]func())
	h.mu.Unlock()

	for _, listener := range pending {
		listener()
	}
	return len(pending)
}

// Pending returns the number of registered listeners.
func (h *InteractionHub) Pending() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}
