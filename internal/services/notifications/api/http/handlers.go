package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/louisbranch/hrdesk/internal/services/notifications/domain"
)

type handler struct {
	deps Deps
}

type statusResponse struct {
	SubjectID       string `json:"subject_id"`
	Connected       bool   `json:"connected"`
	ConnectionState string `json:"connection_state"`
	AudioState      string `json:"audio_state"`
	UnreadCount     int    `json:"unread_count"`
}

type notificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
	Error         string                `json:"error,omitempty"`
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		SubjectID:       h.deps.Inbox.SubjectID(),
		ConnectionState: domain.ConnectionDisconnected.String(),
		AudioState:      domain.AudioUninitialized.String(),
		UnreadCount:     h.deps.Inbox.UnreadCount(),
	}
	if h.deps.Connection != nil {
		resp.Connected = h.deps.Connection.Connected()
		resp.ConnectionState = h.deps.Connection.State().String()
	}
	if h.deps.Presentation != nil {
		resp.AudioState = h.deps.Presentation.AudioState().String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.snapshot())
}

// refreshNotifications reloads from the backend. A failed reload keeps the
// current list, which is returned alongside the error.
func (h *handler) refreshNotifications(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Inbox.Load(r.Context()); err != nil {
		log.Printf("host api: refresh notifications: %v", err)
		resp := h.snapshot()
		resp.Error = "backend unavailable"
		writeJSON(w, http.StatusBadGateway, resp)
		return
	}
	writeJSON(w, http.StatusOK, h.snapshot())
}

func (h *handler) markRead(w http.ResponseWriter, r *http.Request) {
	if !h.deps.Inbox.MarkRead(chi.URLParam(r, "id")) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) deleteNotification(w http.ResponseWriter, r *http.Request) {
	if !h.deps.Inbox.Delete(chi.URLParam(r, "id")) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) clearNotifications(w http.ResponseWriter, r *http.Request) {
	h.deps.Inbox.ClearAll()
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) interaction(w http.ResponseWriter, r *http.Request) {
	resumed := 0
	if h.deps.Interactions != nil {
		resumed = h.deps.Interactions.Notify()
	}
	writeJSON(w, http.StatusOK, map[string]int{"listeners": resumed})
}

func (h *handler) clickAlert(w http.ResponseWriter, r *http.Request) {
	if h.deps.Presentation == nil || !h.deps.Presentation.Click(r.Context(), chi.URLParam(r, "tag")) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) snapshot() notificationsResponse {
	return notificationsResponse{
		Notifications: h.deps.Inbox.List(),
		UnreadCount:   h.deps.Inbox.UnreadCount(),
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
