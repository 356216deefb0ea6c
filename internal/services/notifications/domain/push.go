package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Push event names emitted by the server.
const (
	PushNewRequest           = "new-request"
	PushNewMeeting           = "new-meeting"
	PushNewTask              = "new-task"
	PushTaskUpdated          = "task-updated"
	PushRequestApproved      = "request-approved"
	PushRequestRejected      = "request-rejected"
	PushRequestStatusUpdated = "request-status-updated"
	PushMissedAttendance     = "missed-attendance"
)

// PushEvent is a server-originated business event. Delivery is at-least-once;
// CorrelationID is the dedup key.
type PushEvent struct {
	EventType     string
	CorrelationID string
	Timestamp     time.Time
	Body          json.RawMessage
}

// DedupKey identifies the event by its correlation id.
func (e PushEvent) DedupKey() string {
	return "push:" + strings.TrimSpace(e.CorrelationID)
}

// Data decodes the event body into a generic map. An empty body yields an
// empty map.
func (e PushEvent) Data() (map[string]any, error) {
	data := map[string]any{}
	raw := strings.TrimSpace(string(e.Body))
	if raw == "" || raw == "null" {
		return data, nil
	}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, err
	}
	return data, nil
}

// CorrelationID joins business identifiers as ${type}_${id}_${action}.
// Blank parts are skipped.
func CorrelationID(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, "_")
}
