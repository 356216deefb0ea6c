package push

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/hrdesk/internal/services/notifications/domain"
)

// correlationRule derives ${type}_${id}_${action} from an event's data.
type correlationRule struct {
	// Kind is used when KindField is empty or missing from the data.
	Kind        string
	KindField   string
	IDFields    []string
	Action      string
	ActionField string
}

// catalog maps server event names to correlation rules. New events only
// need a row here (and a render template).
var catalog = map[string]correlationRule{
	domain.PushNewRequest: {
		Kind:      "request",
		KindField: "request_type",
		IDFields:  []string{"request_id", "id"},
		Action:    "created",
	},
	domain.PushNewMeeting: {
		Kind:     "meeting",
		IDFields: []string{"meeting_id", "id"},
		Action:   "scheduled",
	},
	domain.PushNewTask: {
		Kind:     "task",
		IDFields: []string{"task_id", "id"},
		Action:   "assigned",
	},
	domain.PushTaskUpdated: {
		Kind:        "task",
		IDFields:    []string{"task_id", "id"},
		Action:      "updated",
		ActionField: "status",
	},
	domain.PushRequestApproved: {
		Kind:      "request",
		KindField: "request_type",
		IDFields:  []string{"request_id", "id"},
		Action:    "approved",
	},
	domain.PushRequestRejected: {
		Kind:      "request",
		KindField: "request_type",
		IDFields:  []string{"request_id", "id"},
		Action:    "rejected",
	},
	domain.PushRequestStatusUpdated: {
		Kind:        "request",
		KindField:   "request_type",
		IDFields:    []string{"request_id", "id"},
		Action:      "updated",
		ActionField: "status",
	},
	domain.PushMissedAttendance: {
		Kind:        "attendance",
		IDFields:    []string{"attendance_id", "date"},
		Action:      "missed",
		ActionField: "window",
	},
}

// Known reports whether eventName is in the catalog.
func Known(eventName string) bool {
	_, ok := catalog[eventName]
	return ok
}

// CorrelationFor derives the correlation id of one event. An explicit
// correlation_id in the data wins; events without a usable id fall back to
// the event timestamp so distinct events never collapse.
func CorrelationFor(eventName string, data map[string]any, ts time.Time) string {
	if explicit := field(data, "correlation_id"); explicit != "" {
		return explicit
	}
	rule, ok := catalog[eventName]
	if !ok {
		id := field(data, "id")
		if id == "" {
			id = strconv.FormatInt(ts.UnixMilli(), 10)
		}
		return domain.CorrelationID(token(eventName), id)
	}

	kind := rule.Kind
	if rule.KindField != "" {
		if value := field(data, rule.KindField); value != "" {
			kind = value
		}
	}
	id := ""
	for _, name := range rule.IDFields {
		if id = field(data, name); id != "" {
			break
		}
	}
	if id == "" {
		id = strconv.FormatInt(ts.UnixMilli(), 10)
	}
	action := rule.Action
	if rule.ActionField != "" {
		if value := field(data, rule.ActionField); value != "" {
			action = value
		}
	}
	return domain.CorrelationID(token(kind), token(id), token(action))
}

func field(data map[string]any, name string) string {
	value, ok := data[name]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// token lowercases and joins inner whitespace with dashes so ids stay
// stable across display variants ("Sick Leave" and "sick leave").
func token(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), "-")
}
