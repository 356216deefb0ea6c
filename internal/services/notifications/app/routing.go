package app

import (
	"context"
	"strings"

	"github.com/louisbranch/hrdesk/internal/services/notifications/domain"
	"github.com/louisbranch/hrdesk/internal/services/notifications/presentation"
	"github.com/louisbranch/hrdesk/internal/services/notifications/reminder"
)

// reminderSink accepts reminder events for delivery.
type reminderSink interface {
	EnqueueReminder(event domain.ReminderEvent) bool
}

// notificationLog records delivered push notifications.
type notificationLog interface {
	Record(n domain.Notification) bool
}

// readMarker marks inbox notifications as read.
type readMarker interface {
	MarkRead(id string) bool
}

// inboxRecorder adapts the inbox to the delivery queue's Recorder.
type inboxRecorder struct {
	store notificationLog
}

func (r inboxRecorder) Record(n domain.Notification) {
	if r.store == nil {
		return
	}
	r.store.Record(n)
}

// forwardReminders drains scheduler messages into the delivery queue until
// the scheduler closes its channel.
func forwardReminders(messages <-chan reminder.Message, sink reminderSink, logf func(format string, args ...any)) {
	for msg := range messages {
		switch msg.Type {
		case reminder.MessageReminder:
			if !sink.EnqueueReminder(msg.Reminder) {
				logf("notifier: %s reminder %s already delivered", msg.Domain, msg.Reminder.DedupKey())
			}
		case reminder.MessageError:
			logf("notifier: %s reminders degraded: %s", msg.Domain, msg.Reason)
		case reminder.MessageStarted:
			logf("notifier: %s reminders started", msg.Domain)
		case reminder.MessageStopped:
			logf("notifier: %s reminders stopped: %s", msg.Domain, msg.Reason)
		}
	}
}

// routeClicks marks the inbox entry behind a clicked push alert as read.
func routeClicks(ctx context.Context, clicks <-chan presentation.ClickSignal, marker readMarker, logf func(format string, args ...any)) {
	for {
		select {
		case <-ctx.Done():
			return
		case signal := <-clicks:
			id, _ := signal.Metadata["notification_id"].(string)
			if strings.TrimSpace(id) == "" {
				continue
			}
			if marker.MarkRead(id) {
				logf("notifier: marked %s read from alert click", id)
			}
		}
	}
}
