package domain

import (
	"strings"
	"time"
	"unicode"
)

// Notification is the user-visible record mirrored between the inbox and the
// backend.
type Notification struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Read      bool           `json:"read"`
}

// NotificationID derives a stable notification id from a dedup or
// correlation key, so redelivered events map onto the same record.
func NotificationID(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(key) + 4)
	b.WriteString("ntf_")
	for _, r := range key {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

// Subject is one row of a reminder data source.
type Subject struct {
	ID       string    `json:"id"`
	Category string    `json:"category,omitempty"`
	Title    string    `json:"title,omitempty"`
	Start    time.Time `json:"start"`
	// Completed lists rule windows the subject already satisfied today.
	Completed []string       `json:"completed,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// HasCompleted reports whether the subject satisfied the named window.
func (s Subject) HasCompleted(window string) bool {
	window = strings.TrimSpace(window)
	for _, done := range s.Completed {
		if strings.EqualFold(strings.TrimSpace(done), window) {
			return true
		}
	}
	return false
}
