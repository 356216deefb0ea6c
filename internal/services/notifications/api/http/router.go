// Package http serves the Host API the UI layer uses to read notification
// state and forward user actions to the notifier.
package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/louisbranch/hrdesk/internal/services/notifications/domain"
)

// Inbox is the notification store as seen by the UI.
type Inbox interface {
	SubjectID() string
	List() []domain.Notification
	UnreadCount() int
	Load(ctx context.Context) error
	MarkRead(id string) bool
	Delete(id string) bool
	ClearAll()
}

// Connection reports push channel state.
type Connection interface {
	State() domain.ConnectionState
	Connected() bool
}

// Presentation reports audio state and routes alert clicks.
type Presentation interface {
	AudioState() domain.AudioState
	Click(ctx context.Context, tag string) bool
}

// Interactions receives user gestures.
type Interactions interface {
	Notify() int
}

// Deps are the collaborators behind the Host API.
type Deps struct {
	Inbox              Inbox
	Connection         Connection
	Presentation       Presentation
	Interactions       Interactions
	CORSAllowedOrigins []string
}

// NewRouter builds the Host API router.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(deps.CORSAllowedOrigins) > 0 {
		r.Use(corsMiddleware(deps.CORSAllowedOrigins))
	}

	r.Get("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	h := &handler{deps: deps}
	r.Get("/status", h.status)
	r.Post("/interaction", h.interaction)
	r.Post("/alerts/{tag}/click", h.clickAlert)

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.listNotifications)
		r.Delete("/", h.clearNotifications)
		r.Post("/refresh", h.refreshNotifications)
		r.Post("/{id}/read", h.markRead)
		r.Delete("/{id}", h.deleteNotification)
	})

	return r
}

func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	})
}
