package push

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/hrdesk/internal/services/notifications/domain"
)

// Control frame types exchanged outside the event catalog.
const (
	FrameRegister         = "register"
	FramePing             = "ping"
	FramePong             = "pong"
	FrameServerDisconnect = "server.disconnect"
	FrameRegistered       = "registered"
)

var errMalformedFrame = errors.New("malformed push frame")

// Frame is one JSON websocket message in either direction.
type Frame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type registerPayload struct {
	SubjectID string `json:"subject_id"`
}

type eventPayload struct {
	Type      string          `json:"type"`
	Timestamp json.RawMessage `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

func registerFrame(subjectID string) (Frame, error) {
	payload, err := json.Marshal(registerPayload{SubjectID: subjectID})
	if err != nil {
		return Frame{}, fmt.Errorf("encode register payload: %w", err)
	}
	return Frame{Type: FrameRegister, Payload: payload}, nil
}

// decodeEvent turns a business event frame into a PushEvent. received is
// used when the payload carries no timestamp.
func decodeEvent(frame Frame, received time.Time) (domain.PushEvent, error) {
	name := strings.TrimSpace(frame.Type)
	if name == "" {
		return domain.PushEvent{}, fmt.Errorf("%w: missing type", errMalformedFrame)
	}
	var payload eventPayload
	if raw := bytes.TrimSpace(frame.Payload); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return domain.PushEvent{}, fmt.Errorf("%w: %v", errMalformedFrame, err)
		}
	}
	ts, err := parseTimestamp(payload.Timestamp, received)
	if err != nil {
		return domain.PushEvent{}, err
	}
	event := domain.PushEvent{
		EventType: name,
		Timestamp: ts,
		Body:      payload.Data,
	}
	data, err := event.Data()
	if err != nil {
		return domain.PushEvent{}, fmt.Errorf("%w: data: %v", errMalformedFrame, err)
	}
	event.CorrelationID = CorrelationFor(name, data, ts)
	return event, nil
}

// parseTimestamp accepts RFC 3339 strings or Unix milliseconds.
func parseTimestamp(raw json.RawMessage, fallback time.Time) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return fallback, nil
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return time.Time{}, fmt.Errorf("%w: timestamp: %v", errMalformedFrame, err)
		}
		if strings.TrimSpace(text) == "" {
			return fallback, nil
		}
		ts, err := time.Parse(time.RFC3339Nano, text)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: timestamp: %v", errMalformedFrame, err)
		}
		return ts, nil
	}
	millis, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp: %v", errMalformedFrame, err)
	}
	return time.UnixMilli(millis).UTC(), nil
}
