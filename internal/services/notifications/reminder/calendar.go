package reminder

import (
	"errors"
	"time"

	"github.com/louisbranch/hrdesk/internal/services/notifications/domain"
)

// CalendarWindow is the single window name used for calendar events.
const CalendarWindow = "event"

// CalendarRule reminds about events starting within Horizon. An event is DUE
// at its start and MISSED MissAfter later unless acknowledged; a zero
// MissAfter disables MISSED.
type CalendarRule struct {
	Horizon   time.Duration `yaml:"horizon"`
	MissAfter time.Duration `yaml:"miss_after"`
}

// DefaultCalendarRule returns a 15 minute lookahead with a 30 minute miss
// threshold.
func DefaultCalendarRule() CalendarRule {
	return CalendarRule{Horizon: 15 * time.Minute, MissAfter: 30 * time.Minute}
}

// Validate rejects negative durations.
func (r CalendarRule) Validate() error {
	if r.Horizon < 0 {
		return errors.New("calendar horizon must not be negative")
	}
	if r.MissAfter < 0 {
		return errors.New("calendar miss_after must not be negative")
	}
	return nil
}

// Domain implements Rule.
func (r CalendarRule) Domain() string {
	return domain.ReminderDomainCalendar
}

// Windows implements Rule.
func (r CalendarRule) Windows(subject domain.Subject, now time.Time) []Window {
	if subject.Start.IsZero() {
		return nil
	}
	start := subject.Start.In(now.Location())
	var missedAt time.Time
	if r.MissAfter > 0 {
		missedAt = start.Add(r.MissAfter)
	}
	payload := map[string]any{
		"title":     subject.Title,
		"starts_at": start.Format("15:04"),
		"date":      domain.DayKey(start),
	}
	for key, value := range subject.Data {
		if _, taken := payload[key]; !taken {
			payload[key] = value
		}
	}
	return []Window{{
		Name:       CalendarWindow,
		Anchor:     start,
		UpcomingAt: start.Add(-r.Horizon),
		DueAt:      start,
		MissedAt:   missedAt,
		Completed:  subject.HasCompleted(CalendarWindow),
		Title:      subject.Title,
		Payload:    payload,
	}}
}
