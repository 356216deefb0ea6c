package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.MustParse("pt-BR")

	message.SetString(lang, "notification.generic.title", "Notificação")
	message.SetString(lang, "notification.generic.body", "Você tem uma nova notificação.")
	message.SetString(lang, "notification.value.unknown", "desconhecido")

	message.SetString(lang, "notification.new_request.title", "Nova solicitação de %s")
	message.SetString(lang, "notification.new_request.body", "%s enviou uma solicitação de %s.")
	message.SetString(lang, "notification.new_meeting.title", "Nova reunião agendada")
	message.SetString(lang, "notification.new_meeting.body", "%s às %s.")
	message.SetString(lang, "notification.new_task.title", "Nova tarefa atribuída")
	message.SetString(lang, "notification.new_task.body", "%s atribuiu a você %q.")
	message.SetString(lang, "notification.task_updated.title", "Tarefa atualizada")
	message.SetString(lang, "notification.task_updated.body", "%q agora está %s.")
	message.SetString(lang, "notification.request_approved.title", "Solicitação aprovada")
	message.SetString(lang, "notification.request_approved.body", "Sua solicitação de %s foi aprovada por %s.")
	message.SetString(lang, "notification.request_rejected.title", "Solicitação recusada")
	message.SetString(lang, "notification.request_rejected.body", "Sua solicitação de %s foi recusada por %s.")
	message.SetString(lang, "notification.request_status_updated.title", "Solicitação atualizada")
	message.SetString(lang, "notification.request_status_updated.body", "Sua solicitação de %s agora está %s.")
	message.SetString(lang, "notification.missed_attendance.title", "Ponto não registrado")
	message.SetString(lang, "notification.missed_attendance.body", "Nenhum registro de %s em %s.")

	message.SetString(lang, "reminder.attendance.upcoming.title", "Lembrete de ponto")
	message.SetString(lang, "reminder.attendance.upcoming.body", "%s abre às %s.")
	message.SetString(lang, "reminder.attendance.due.title", "Registre seu ponto")
	message.SetString(lang, "reminder.attendance.due.body", "%s está aberto até %s.")
	message.SetString(lang, "reminder.attendance.missed.title", "Ponto perdido")
	message.SetString(lang, "reminder.attendance.missed.body", "%s fechou às %s sem registro.")
	message.SetString(lang, "reminder.calendar.upcoming.title", "Evento em breve")
	message.SetString(lang, "reminder.calendar.upcoming.body", "%s começa às %s.")
	message.SetString(lang, "reminder.calendar.due.title", "Evento começando")
	message.SetString(lang, "reminder.calendar.due.body", "%s está começando agora.")
	message.SetString(lang, "reminder.calendar.missed.title", "Evento perdido")
	message.SetString(lang, "reminder.calendar.missed.body", "%s começou às %s.")
}
