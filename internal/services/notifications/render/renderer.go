package render

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	defaultGenericTitle = "Notification"
	defaultGenericBody  = "You have a new notification."
	defaultUnknownValue = "unknown"
)

// Input is one render request for a delivered event.
type Input struct {
	MessageType string
	Data        map[string]any
}

// Output is localized copy for one visible notification.
type Output struct {
	Title string
	Body  string
}

// Localizer is the minimal message-printer contract required by the renderer.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

// template maps one message type to catalog keys and the payload fields
// that fill their verbs, in order.
type template struct {
	titleKey  string
	titleArgs []string
	bodyKey   string
	bodyArgs  []string
}

// templates is data: adding an event type means adding a row here and its
// catalog strings, never touching the queue or channel.
var templates = map[string]template{
	"new-request": {
		titleKey: "notification.new_request.title", titleArgs: []string{"request_type"},
		bodyKey: "notification.new_request.body", bodyArgs: []string{"requester_name", "request_type"},
	},
	"new-meeting": {
		titleKey: "notification.new_meeting.title",
		bodyKey:  "notification.new_meeting.body", bodyArgs: []string{"meeting_title", "meeting_time"},
	},
	"new-task": {
		titleKey: "notification.new_task.title",
		bodyKey:  "notification.new_task.body", bodyArgs: []string{"assigned_by", "task_title"},
	},
	"task-updated": {
		titleKey: "notification.task_updated.title",
		bodyKey:  "notification.task_updated.body", bodyArgs: []string{"task_title", "status"},
	},
	"request-approved": {
		titleKey: "notification.request_approved.title",
		bodyKey:  "notification.request_approved.body", bodyArgs: []string{"request_type", "approver_name"},
	},
	"request-rejected": {
		titleKey: "notification.request_rejected.title",
		bodyKey:  "notification.request_rejected.body", bodyArgs: []string{"request_type", "approver_name"},
	},
	"request-status-updated": {
		titleKey: "notification.request_status_updated.title",
		bodyKey:  "notification.request_status_updated.body", bodyArgs: []string{"request_type", "status"},
	},
	"missed-attendance": {
		titleKey: "notification.missed_attendance.title",
		bodyKey:  "notification.missed_attendance.body", bodyArgs: []string{"window_label", "date"},
	},
	"reminder.attendance.upcoming": {
		titleKey: "reminder.attendance.upcoming.title",
		bodyKey:  "reminder.attendance.upcoming.body", bodyArgs: []string{"window_label", "opens_at"},
	},
	"reminder.attendance.due": {
		titleKey: "reminder.attendance.due.title",
		bodyKey:  "reminder.attendance.due.body", bodyArgs: []string{"window_label", "cutoff_at"},
	},
	"reminder.attendance.missed": {
		titleKey: "reminder.attendance.missed.title",
		bodyKey:  "reminder.attendance.missed.body", bodyArgs: []string{"window_label", "cutoff_at"},
	},
	"reminder.calendar.upcoming": {
		titleKey: "reminder.calendar.upcoming.title",
		bodyKey:  "reminder.calendar.upcoming.body", bodyArgs: []string{"title", "starts_at"},
	},
	"reminder.calendar.due": {
		titleKey: "reminder.calendar.due.title",
		bodyKey:  "reminder.calendar.due.body", bodyArgs: []string{"title"},
	},
	"reminder.calendar.missed": {
		titleKey: "reminder.calendar.missed.title",
		bodyKey:  "reminder.calendar.missed.body", bodyArgs: []string{"title", "starts_at"},
	},
}

// Known reports whether messageType has a dedicated template.
func Known(messageType string) bool {
	_, ok := templates[normalizeToken(messageType)]
	return ok
}

// Render returns localized copy for one event. Unknown message types and
// missing catalog entries fall back to generic copy.
func Render(loc Localizer, input Input) Output {
	tmpl, ok := templates[normalizeToken(input.MessageType)]
	if !ok || loc == nil {
		return genericOutput(loc)
	}

	title := localize(loc, tmpl.titleKey, fieldArgs(loc, input.Data, tmpl.titleArgs)...)
	body := localize(loc, tmpl.bodyKey, fieldArgs(loc, input.Data, tmpl.bodyArgs)...)
	if title == tmpl.titleKey || body == tmpl.bodyKey {
		return genericOutput(loc)
	}
	return Output{Title: title, Body: body}
}

// NewLocalizer returns a printer for the closest supported language to tag.
func NewLocalizer(tag string) *message.Printer {
	return message.NewPrinter(MatchLanguage(tag))
}

var supported = []language.Tag{language.English, language.BrazilianPortuguese}

var matcher = language.NewMatcher(supported)

// MatchLanguage resolves a BCP 47 tag to a supported catalog language,
// defaulting to English.
func MatchLanguage(tag string) language.Tag {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return language.English
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return language.English
	}
	_, index, confidence := matcher.Match(parsed)
	if confidence == language.No {
		return language.English
	}
	return supported[index]
}

func fieldArgs(loc Localizer, data map[string]any, fields []string) []any {
	if len(fields) == 0 {
		return nil
	}
	unknown := localizeWithFallback(loc, "notification.value.unknown", defaultUnknownValue)
	args := make([]any, 0, len(fields))
	for _, field := range fields {
		value := formatValue(data[field])
		if value == "" {
			value = unknown
		}
		args = append(args, value)
	}
	return args
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func genericOutput(loc Localizer) Output {
	return Output{
		Title: localizeWithFallback(loc, "notification.generic.title", defaultGenericTitle),
		Body:  localizeWithFallback(loc, "notification.generic.body", defaultGenericBody),
	}
}

func localize(loc Localizer, key string, args ...any) string {
	if loc == nil {
		return key
	}
	return loc.Sprintf(key, args...)
}

func localizeWithFallback(loc Localizer, key string, fallback string) string {
	value := strings.TrimSpace(localize(loc, key))
	if value == "" || value == key {
		return fallback
	}
	return value
}

func normalizeToken(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
