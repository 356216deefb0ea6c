package reminder

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/hrdesk/internal/services/notifications/domain"
	"gopkg.in/yaml.v3"
)

// DefaultCategory is the cutoff key used when a subject's category has no
// dedicated cutoff.
const DefaultCategory = "default"

// ClockTime is a wall-clock time of day, written as "HH:MM" in rule files.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses "HH:MM".
func ParseClockTime(raw string) (ClockTime, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return ClockTime{}, fmt.Errorf("parse clock time %q: %w", raw, err)
	}
	return ClockTime{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

// MustClock is ParseClockTime for literals.
func MustClock(raw string) ClockTime {
	c, err := ParseClockTime(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// On returns the instant of c on day's calendar date in loc.
func (c ClockTime) On(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.In(loc).Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, loc)
}

func (c ClockTime) minutes() int {
	return c.Hour*60 + c.Minute
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// UnmarshalYAML reads "HH:MM" scalars.
func (c *ClockTime) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseClockTime(node.Value)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// AttendanceWindow is one of the daily check-in/check-out windows.
type AttendanceWindow struct {
	Name    string               `yaml:"name"`
	Label   string               `yaml:"label"`
	Opens   ClockTime            `yaml:"opens"`
	Cutoffs map[string]ClockTime `yaml:"cutoffs"`
}

// Cutoff returns the cutoff for category, falling back to the default.
func (w AttendanceWindow) Cutoff(category string) (ClockTime, bool) {
	category = strings.TrimSpace(category)
	if category != "" {
		for key, cutoff := range w.Cutoffs {
			if strings.EqualFold(key, category) {
				return cutoff, true
			}
		}
	}
	cutoff, ok := w.Cutoffs[DefaultCategory]
	return cutoff, ok
}

// AttendanceRule tracks the fixed daily attendance windows. Each window is
// UPCOMING UpcomingLead before it opens, DUE while open, and MISSED at the
// subject category's cutoff.
type AttendanceRule struct {
	UpcomingLead time.Duration      `yaml:"upcoming_lead"`
	Timezone     string             `yaml:"timezone"`
	Schedule     []AttendanceWindow `yaml:"windows"`

	loc *time.Location
}

// DefaultAttendanceRule returns the stock four-window day with MORNING and
// EVENING shift cutoffs.
func DefaultAttendanceRule() AttendanceRule {
	return AttendanceRule{
		UpcomingLead: 10 * time.Minute,
		Schedule: []AttendanceWindow{
			{
				Name:  "morning_check_in",
				Label: "Morning check-in",
				Opens: MustClock("08:00"),
				Cutoffs: map[string]ClockTime{
					DefaultCategory: MustClock("09:30"),
					"MORNING":       MustClock("08:30"),
					"EVENING":       MustClock("10:30"),
				},
			},
			{
				Name:  "lunch_check_out",
				Label: "Lunch check-out",
				Opens: MustClock("12:00"),
				Cutoffs: map[string]ClockTime{
					DefaultCategory: MustClock("13:00"),
					"MORNING":       MustClock("12:30"),
					"EVENING":       MustClock("13:30"),
				},
			},
			{
				Name:  "lunch_check_in",
				Label: "Lunch check-in",
				Opens: MustClock("13:00"),
				Cutoffs: map[string]ClockTime{
					DefaultCategory: MustClock("14:00"),
					"MORNING":       MustClock("13:30"),
					"EVENING":       MustClock("14:30"),
				},
			},
			{
				Name:  "evening_check_out",
				Label: "Evening check-out",
				Opens: MustClock("17:00"),
				Cutoffs: map[string]ClockTime{
					DefaultCategory: MustClock("18:30"),
					"MORNING":       MustClock("17:30"),
					"EVENING":       MustClock("19:30"),
				},
			},
		},
	}
}

// Validate checks window names and that every cutoff follows its opening.
func (r *AttendanceRule) Validate() error {
	if r == nil {
		return errors.New("attendance rule is required")
	}
	if r.UpcomingLead < 0 {
		return errors.New("attendance upcoming_lead must not be negative")
	}
	if len(r.Schedule) == 0 {
		return errors.New("attendance rule needs at least one window")
	}
	seen := make(map[string]struct{}, len(r.Schedule))
	for _, window := range r.Schedule {
		name := strings.TrimSpace(window.Name)
		if name == "" {
			return errors.New("attendance window name is required")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate attendance window %q", name)
		}
		seen[name] = struct{}{}
		if _, ok := window.Cutoffs[DefaultCategory]; !ok {
			return fmt.Errorf("attendance window %q: %s cutoff is required", name, DefaultCategory)
		}
		for category, cutoff := range window.Cutoffs {
			if cutoff.minutes() <= window.Opens.minutes() {
				return fmt.Errorf("attendance window %q: %s cutoff %s is not after opening %s", name, category, cutoff, window.Opens)
			}
		}
	}
	if tz := strings.TrimSpace(r.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("attendance timezone: %w", err)
		}
		r.loc = loc
	}
	return nil
}

// Domain implements Rule.
func (r AttendanceRule) Domain() string {
	return domain.ReminderDomainAttendance
}

// Windows implements Rule.
func (r AttendanceRule) Windows(subject domain.Subject, now time.Time) []Window {
	loc := r.loc
	if loc == nil {
		loc = now.Location()
	}
	windows := make([]Window, 0, len(r.Schedule))
	for _, aw := range r.Schedule {
		cutoff, ok := aw.Cutoff(subject.Category)
		if !ok {
			continue
		}
		opens := aw.Opens.On(now, loc)
		closes := cutoff.On(now, loc)
		label := aw.Label
		if label == "" {
			label = aw.Name
		}
		windows = append(windows, Window{
			Name:       aw.Name,
			Anchor:     opens,
			UpcomingAt: opens.Add(-r.UpcomingLead),
			DueAt:      opens,
			MissedAt:   closes,
			Completed:  subject.HasCompleted(aw.Name),
			Title:      subject.Title,
			Payload: map[string]any{
				"window_label": label,
				"opens_at":     aw.Opens.String(),
				"cutoff_at":    cutoff.String(),
				"category":     subject.Category,
				"date":         domain.DayKey(opens),
			},
		})
	}
	return windows
}
