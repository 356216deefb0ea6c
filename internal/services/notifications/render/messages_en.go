package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.English

	message.SetString(lang, "notification.generic.title", defaultGenericTitle)
	message.SetString(lang, "notification.generic.body", defaultGenericBody)
	message.SetString(lang, "notification.value.unknown", defaultUnknownValue)

	message.SetString(lang, "notification.new_request.title", "New %s request")
	message.SetString(lang, "notification.new_request.body", "%s submitted a %s request.")
	message.SetString(lang, "notification.new_meeting.title", "New meeting scheduled")
	message.SetString(lang, "notification.new_meeting.body", "%s at %s.")
	message.SetString(lang, "notification.new_task.title", "New task assigned")
	message.SetString(lang, "notification.new_task.body", "%s assigned you %q.")
	message.SetString(lang, "notification.task_updated.title", "Task updated")
	message.SetString(lang, "notification.task_updated.body", "%q is now %s.")
	message.SetString(lang, "notification.request_approved.title", "Request approved")
	message.SetString(lang, "notification.request_approved.body", "Your %s request was approved by %s.")
	message.SetString(lang, "notification.request_rejected.title", "Request rejected")
	message.SetString(lang, "notification.request_rejected.body", "Your %s request was rejected by %s.")
	message.SetString(lang, "notification.request_status_updated.title", "Request updated")
	message.SetString(lang, "notification.request_status_updated.body", "Your %s request is now %s.")
	message.SetString(lang, "notification.missed_attendance.title", "Missed attendance")
	message.SetString(lang, "notification.missed_attendance.body", "No %s record on %s.")

	message.SetString(lang, "reminder.attendance.upcoming.title", "Attendance reminder")
	message.SetString(lang, "reminder.attendance.upcoming.body", "%s opens at %s.")
	message.SetString(lang, "reminder.attendance.due.title", "Attendance due")
	message.SetString(lang, "reminder.attendance.due.body", "%s is open until %s.")
	message.SetString(lang, "reminder.attendance.missed.title", "Attendance missed")
	message.SetString(lang, "reminder.attendance.missed.body", "%s closed at %s without a record.")
	message.SetString(lang, "reminder.calendar.upcoming.title", "Upcoming event")
	message.SetString(lang, "reminder.calendar.upcoming.body", "%s starts at %s.")
	message.SetString(lang, "reminder.calendar.due.title", "Event starting")
	message.SetString(lang, "reminder.calendar.due.body", "%s is starting now.")
	message.SetString(lang, "reminder.calendar.missed.title", "Event missed")
	message.SetString(lang, "reminder.calendar.missed.body", "%s started at %s.")
}
