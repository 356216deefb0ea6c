package reminder

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/louisbranch/hrdesk/internal/services/notifications/domain"
)

type fakeSource struct {
	mu    sync.Mutex
	calls int
	fetch func(ctx context.Context, call int) ([]domain.Subject, error)
}

func (f *fakeSource) Fetch(ctx context.Context, _ string, _ string) ([]domain.Subject, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	fetch := f.fetch
	f.mu.Unlock()
	return fetch(ctx, call)
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func runScheduler(t *testing.T, cfg Config) *Scheduler {
	t.Helper()
	if cfg.Logf == nil {
		cfg.Logf = t.Logf
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return s
}

func nextMessage(t *testing.T, s *Scheduler) Message {
	t.Helper()
	select {
	case msg, ok := <-s.Messages():
		if !ok {
			t.Fatal("messages closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for scheduler message")
	}
	return Message{}
}

func expectMessage(t *testing.T, s *Scheduler, want MessageType) Message {
	t.Helper()
	msg := nextMessage(t, s)
	if msg.Type != want {
		t.Fatalf("message = %s (%q), want %s", msg.Type, msg.Reason, want)
	}
	return msg
}

func expectQuiet(t *testing.T, s *Scheduler, wait time.Duration) {
	t.Helper()
	select {
	case msg := <-s.Messages():
		t.Fatalf("unexpected message %s %+v", msg.Type, msg.Reminder)
	case <-time.After(wait):
	}
}

func TestNewSchedulerRequiresRuleAndSource(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{Source: &fakeSource{}}); err == nil {
		t.Fatal("expected missing rule error")
	}
	if _, err := New(Config{Rule: CalendarRule{}}); err == nil {
		t.Fatal("expected missing source error")
	}
}

func TestSchedulerReportsStageTransitionsInOrder(t *testing.T) {
	t.Parallel()

	clock := &testClock{now: at("07:55")}
	source := &fakeSource{fetch: func(context.Context, int) ([]domain.Subject, error) {
		return []domain.Subject{{ID: "emp-1", Title: "Ana"}}, nil
	}}
	s := runScheduler(t, Config{Rule: singleWindowRule(), Source: source, Clock: clock.Now})

	if err := s.Start(StartConfig{DataSourceURL: "http://hr.local/attendance", SubjectID: "emp-1", CheckInterval: 10 * time.Millisecond}); err != nil {
		t.Fatalf("start: %v", err)
	}
	started := expectMessage(t, s, MessageStarted)
	if started.Domain != domain.ReminderDomainAttendance {
		t.Fatalf("domain = %q, want attendance", started.Domain)
	}

	if msg := expectMessage(t, s, MessageReminder); msg.Reminder.Kind != domain.ReminderUpcoming {
		t.Fatalf("first reminder = %s, want UPCOMING", msg.Reminder.Kind)
	}
	clock.Set(at("08:05"))
	if msg := expectMessage(t, s, MessageReminder); msg.Reminder.Kind != domain.ReminderDue {
		t.Fatalf("second reminder = %s, want DUE", msg.Reminder.Kind)
	}
	clock.Set(at("09:45"))
	if msg := expectMessage(t, s, MessageReminder); msg.Reminder.Kind != domain.ReminderMissed {
		t.Fatalf("third reminder = %s, want MISSED", msg.Reminder.Kind)
	}
	expectQuiet(t, s, 60*time.Millisecond)
}

func TestSchedulerRaisesErrorOncePerFailureStreak(t *testing.T) {
	t.Parallel()

	var failing atomic.Bool
	var successes atomic.Int32
	failing.Store(true)
	source := &fakeSource{fetch: func(context.Context, int) ([]domain.Subject, error) {
		if failing.Load() {
			return nil, errors.New("backend down")
		}
		successes.Add(1)
		return nil, nil
	}}
	s := runScheduler(t, Config{Rule: CalendarRule{}, Source: source})

	if err := s.Start(StartConfig{DataSourceURL: "http://hr.local/calendar", CheckInterval: 5 * time.Millisecond}); err != nil {
		t.Fatalf("start: %v", err)
	}
	expectMessage(t, s, MessageStarted)
	msg := expectMessage(t, s, MessageError)
	if msg.Reason == "" {
		t.Fatal("expected error reason")
	}
	expectQuiet(t, s, 60*time.Millisecond)
	if calls := source.Calls(); calls <= DefaultFailureThreshold {
		t.Fatalf("calls = %d, want scheduler to keep polling after ERROR", calls)
	}

	failing.Store(false)
	deadline := time.Now().Add(2 * time.Second)
	for successes.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for a successful fetch")
		}
		time.Sleep(time.Millisecond)
	}
	failing.Store(true)
	expectMessage(t, s, MessageError)
}

func TestSchedulerStopDiscardsInFlightFetch(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	clock := &testClock{now: at("08:05")}
	source := &fakeSource{fetch: func(context.Context, int) ([]domain.Subject, error) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		return []domain.Subject{{ID: "emp-1"}}, nil
	}}
	s := runScheduler(t, Config{Rule: singleWindowRule(), Source: source, Clock: clock.Now})

	if err := s.Start(StartConfig{DataSourceURL: "http://hr.local/attendance", CheckInterval: time.Hour}); err != nil {
		t.Fatalf("start: %v", err)
	}
	expectMessage(t, s, MessageStarted)
	<-entered

	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	expectMessage(t, s, MessageStopped)
	close(release)
	expectQuiet(t, s, 60*time.Millisecond)
}

func TestSchedulerUpdateIntervalSpeedsUpPolling(t *testing.T) {
	t.Parallel()

	source := &fakeSource{fetch: func(context.Context, int) ([]domain.Subject, error) {
		return nil, nil
	}}
	s := runScheduler(t, Config{Rule: CalendarRule{}, Source: source})

	if err := s.Start(StartConfig{DataSourceURL: "http://hr.local/calendar", CheckInterval: time.Hour}); err != nil {
		t.Fatalf("start: %v", err)
	}
	expectMessage(t, s, MessageStarted)
	if err := s.UpdateInterval(5 * time.Millisecond); err != nil {
		t.Fatalf("update interval: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for source.Calls() < 4 {
		if time.Now().After(deadline) {
			t.Fatalf("calls = %d, want faster polling after interval update", source.Calls())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSchedulerStartWithoutURLReportsError(t *testing.T) {
	t.Parallel()

	s := runScheduler(t, Config{Rule: CalendarRule{}, Source: &fakeSource{}})
	if err := s.Start(StartConfig{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	expectMessage(t, s, MessageError)
}

func TestSchedulerClosedAfterRunReturns(t *testing.T) {
	t.Parallel()

	s, err := New(Config{Rule: CalendarRule{}, Source: &fakeSource{}, Logf: t.Logf})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, ok := <-s.Messages(); ok {
		t.Fatal("expected messages to be closed")
	}
	if err := s.Stop(); !errors.Is(err, ErrSchedulerClosed) {
		t.Fatalf("stop after run = %v, want %v", err, ErrSchedulerClosed)
	}
	if err := s.Run(context.Background()); !errors.Is(err, ErrSchedulerRunning) {
		t.Fatalf("second run = %v, want %v", err, ErrSchedulerRunning)
	}
}
