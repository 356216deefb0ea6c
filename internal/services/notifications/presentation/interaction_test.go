package presentation

import "testing"

func TestInteractionHubRunsListenersOnce(t *testing.T) {
	t.Parallel()

	hub := NewInteractionHub()
	calls := 0
	hub.Once(func() { calls++ })
	cancel := hub.Once(func() { calls += 10 })
	cancel()

	if ran := hub.Notify(); ran != 1 {
		t.Fatalf("ran = %d, want 1", ran)
	}
	if ran := hub.Notify(); ran != 0 {
		t.Fatalf("second notify ran = %d, want 0", ran)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestInteractionHubNilSafe(t *testing.T) {
	t.Parallel()

	var hub *InteractionHub
	hub.Once(func() {})()
	if hub.Notify() != 0 || hub.Pending() != 0 {
		t.Fatal("expected nil hub to be inert")
	}
}
