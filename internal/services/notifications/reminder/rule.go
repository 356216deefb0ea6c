package reminder

import (
	"maps"
	"time"

	"github.com/louisbranch/hrdesk/internal/services/notifications/domain"
)

// Rule evaluates one reminder domain for a subject at a point in time.
type Rule interface {
	Domain() string
	Windows(subject domain.Subject, now time.Time) []Window
}

var (
	_ Rule = AttendanceRule{}
	_ Rule = CalendarRule{}
)

// Window is one timed obligation of a subject on one day.
type Window struct {
	Name string
	// Anchor is the scheduled time shared by every stage of this window.
	Anchor     time.Time
	UpcomingAt time.Time
	DueAt      time.Time
	// MissedAt zero means the window never becomes MISSED.
	MissedAt  time.Time
	Completed bool
	Title     string
	Payload   map[string]any
}

// Stage returns the furthest stage reached at now, or "" before UpcomingAt.
func (w Window) Stage(now time.Time) domain.ReminderKind {
	switch {
	case now.Before(w.UpcomingAt):
		return ""
	case now.Before(w.DueAt):
		return domain.ReminderUpcoming
	case w.MissedAt.IsZero() || now.Before(w.MissedAt):
		return domain.ReminderDue
	default:
		return domain.ReminderMissed
	}
}

type trackKey struct {
	subject string
	window  string
	day     string
}

// tracker remembers the last stage emitted per subject window and day. It is
// owned by a single scheduler goroutine.
type tracker struct {
	stages map[trackKey]domain.ReminderKind
}

func newTracker() *tracker {
	return &tracker{stages: make(map[trackKey]domain.ReminderKind)}
}

// observe evaluates subjects against rule and returns the reminder events to
// emit, in order. Stages skipped between two ticks are emitted in sequence;
// a window seen for the first time only emits its current stage, and one
// first seen already MISSED is recorded without emitting.
func (t *tracker) observe(rule Rule, subjects []domain.Subject, now time.Time) []domain.ReminderEvent {
	var events []domain.ReminderEvent
	for _, subject := range subjects {
		if subject.ID == "" {
			continue
		}
		for _, window := range rule.Windows(subject, now) {
			if window.Completed {
				continue
			}
			stage := window.Stage(now)
			if stage == "" {
				continue
			}
			key := trackKey{subject: subject.ID, window: window.Name, day: domain.DayKey(window.Anchor)}
			prev, seen := t.stages[key]
			if !seen {
				t.stages[key] = stage
				if stage == domain.ReminderMissed {
					continue
				}
				events = append(events, newEvent(rule.Domain(), subject, window, stage))
				continue
			}
			for _, kind := range domain.ReminderKindsThrough(stage) {
				if kind.Rank() <= prev.Rank() {
					continue
				}
				events = append(events, newEvent(rule.Domain(), subject, window, kind))
				t.stages[key] = kind
			}
		}
	}
	t.prune(now)
	return events
}

func (t *tracker) prune(now time.Time) {
	oldest := domain.DayKey(now.AddDate(0, 0, -1))
	for key := range t.stages {
		if key.day < oldest {
			delete(t.stages, key)
		}
	}
}

func (t *tracker) reset() {
	clear(t.stages)
}

func newEvent(domainName string, subject domain.Subject, window Window, kind domain.ReminderKind) domain.ReminderEvent {
	payload := make(map[string]any, len(window.Payload)+2)
	maps.Copy(payload, window.Payload)
	payload["subject_id"] = subject.ID
	payload["window"] = window.Name
	return domain.ReminderEvent{
		Kind:          kind,
		Domain:        domainName,
		SubjectID:     subject.ID,
		Window:        window.Name,
		ScheduledTime: window.Anchor,
		Title:         window.Title,
		Payload:       payload,
	}
}
