package domain

import (
	"fmt"
	"strings"
	"time"
)

// ReminderKind is the stage a reminder subject crossed on a scheduler tick.
type ReminderKind string

const (
	// ReminderUpcoming fires when a window is about to open.
	ReminderUpcoming ReminderKind = "UPCOMING"
	// ReminderDue fires when a window is open and not yet completed.
	ReminderDue ReminderKind = "DUE"
	// ReminderMissed fires once when a window closed without completion.
	ReminderMissed ReminderKind = "MISSED"
)

// Rank orders reminder kinds along the UPCOMING → DUE → MISSED progression.
// Unknown kinds rank zero.
func (k ReminderKind) Rank() int {
	switch k {
	case ReminderUpcoming:
		return 1
	case ReminderDue:
		return 2
	case ReminderMissed:
		return 3
	default:
		return 0
	}
}

// ReminderKindsThrough returns every kind from UPCOMING up to and including k.
func ReminderKindsThrough(k ReminderKind) []ReminderKind {
	all := []ReminderKind{ReminderUpcoming, ReminderDue, ReminderMissed}
	rank := k.Rank()
	if rank == 0 {
		return nil
	}
	return all[:rank]
}

// Reminder domains with their own scheduler instance.
const (
	ReminderDomainCalendar   = "calendar"
	ReminderDomainAttendance = "attendance"
)

// ReminderEvent signals that one subject crossed a time threshold. It is
// ephemeral: produced by a scheduler and consumed once by the delivery queue.
type ReminderEvent struct {
	Kind      ReminderKind
	Domain    string
	SubjectID string
	// Window names the rule window within the subject (e.g. morning_check_in).
	Window string
	// ScheduledTime anchors the window on its day; it is identical for every
	// stage of one window so the kind distinguishes the stages.
	ScheduledTime time.Time
	Title         string
	Payload       map[string]any
}

// DedupKey identifies the event by (kind, subject, window, scheduled time).
func (e ReminderEvent) DedupKey() string {
	return fmt.Sprintf("reminder:%s:%s:%s:%s:%d",
		strings.ToLower(string(e.Kind)),
		strings.TrimSpace(e.Domain),
		strings.TrimSpace(e.SubjectID),
		strings.TrimSpace(e.Window),
		e.ScheduledTime.UTC().Unix(),
	)
}

// MessageType is the render template key for this reminder.
func (e ReminderEvent) MessageType() string {
	return "reminder." + strings.TrimSpace(e.Domain) + "." + strings.ToLower(string(e.Kind))
}

// DayEnd returns the first instant of the day after t in t's location.
func DayEnd(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

// DayKey formats t's calendar day in its own location.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
