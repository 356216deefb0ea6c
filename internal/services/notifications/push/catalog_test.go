package push

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/louisbranch/hrdesk/internal/services/notifications/domain"
)

func TestCorrelationFor(t *testing.T) {
	t.Parallel()

	ts := time.UnixMilli(1772445600000).UTC()
	tests := []struct {
		name  string
		event string
		data  map[string]any
		want  string
	}{
		{name: "approved leave", event: domain.PushRequestApproved, data: map[string]any{"request_type": "leave", "request_id": float64(42)}, want: "leave_42_approved"},
		{name: "rejected spaced type", event: domain.PushRequestRejected, data: map[string]any{"request_type": "Sick Leave", "request_id": "7"}, want: "sick-leave_7_rejected"},
		{name: "status from data", event: domain.PushRequestStatusUpdated, data: map[string]any{"request_type": "permission", "id": "9", "status": "IN_REVIEW"}, want: "permission_9_in_review"},
		{name: "default kind", event: domain.PushNewRequest, data: map[string]any{"request_id": "3"}, want: "request_3_created"},
		{name: "task update without status", event: domain.PushTaskUpdated, data: map[string]any{"task_id": "t1"}, want: "task_t1_updated"},
		{name: "meeting", event: domain.PushNewMeeting, data: map[string]any{"meeting_id": "m1"}, want: "meeting_m1_scheduled"},
		{name: "missed attendance", event: domain.PushMissedAttendance, data: map[string]any{"date": "2026-03-02", "window": "morning_check_in"}, want: "attendance_2026-03-02_morning_check_in"},
		{name: "missing id uses timestamp", event: domain.PushNewTask, data: map[string]any{}, want: "task_1772445600000_assigned"},
		{name: "explicit correlation", event: domain.PushNewTask, data: map[string]any{"correlation_id": "custom_1"}, want: "custom_1"},
		{name: "unknown with id", event: "payroll-closed", data: map[string]any{"id": "p1"}, want: "payroll-closed_p1"},
		{name: "unknown without id", event: "payroll-closed", data: nil, want: "payroll-closed_1772445600000"},
	}
	for _, tt := range tests {
		if got := CorrelationFor(tt.event, tt.data, ts); got != tt.want {
			t.Fatalf("%s: correlation = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestCatalogCoversServerEvents(t *testing.T) {
	t.Parallel()

	for _, name := range []string{
		domain.PushNewRequest,
		domain.PushNewMeeting,
		domain.PushNewTask,
		domain.PushTaskUpdated,
		domain.PushRequestApproved,
		domain.PushRequestRejected,
		domain.PushRequestStatusUpdated,
		domain.PushMissedAttendance,
	} {
		if !Known(name) {
			t.Fatalf("event %q missing from catalog", name)
		}
	}
}

func TestDecodeEventTimestamps(t *testing.T) {
	t.Parallel()

	received := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		payload string
		want    time.Time
		wantErr bool
	}{
		{name: "rfc3339", payload: `{"timestamp":"2026-03-02T10:00:00Z","data":{"task_id":"1"}}`, want: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)},
		{name: "unix millis", payload: `{"timestamp":1772445600000,"data":{}}`, want: time.UnixMilli(1772445600000).UTC()},
		{name: "missing", payload: `{"data":{}}`, want: received},
		{name: "null payload", payload: `null`, want: received},
		{name: "bad string", payload: `{"timestamp":"soon"}`, wantErr: true},
		{name: "bad number", payload: `{"timestamp":1.5}`, wantErr: true},
		{name: "data not object", payload: `{"data":"hello"}`, wantErr: true},
	}
	for _, tt := range tests {
		event, err := decodeEvent(Frame{Type: domain.PushNewTask, Payload: json.RawMessage(tt.payload)}, received)
		if tt.wantErr {
			if !errors.Is(err, errMalformedFrame) {
				t.Fatalf("%s: err = %v, want malformed frame", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if !event.Timestamp.Equal(tt.want) {
			t.Fatalf("%s: timestamp = %v, want %v", tt.name, event.Timestamp, tt.want)
		}
	}
}

func TestDecodeEventRequiresType(t *testing.T) {
	t.Parallel()

	if _, err := decodeEvent(Frame{}, time.Now()); !errors.Is(err, errMalformedFrame) {
		t.Fatalf("err = %v, want malformed frame", err)
	}
}
