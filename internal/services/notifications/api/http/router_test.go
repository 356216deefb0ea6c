package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/louisbranch/hrdesk/internal/services/notifications/domain"
)

type fakeInbox struct {
	items   []domain.Notification
	loadErr error
	loads   int
	cleared bool
}

func (f *fakeInbox) SubjectID() string { return "emp-1" }

func (f *fakeInbox) List() []domain.Notification {
	return append([]domain.Notification(nil), f.items...)
}

func (f *fakeInbox) UnreadCount() int {
	n := 0
	for _, item := range f.items {
		if !item.Read {
			n++
		}
	}
	return n
}

func (f *fakeInbox) Load(context.Context) error {
	f.loads++
	return f.loadErr
}

func (f *fakeInbox) MarkRead(id string) bool {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Read = true
			return true
		}
	}
	return false
}

func (f *fakeInbox) Delete(id string) bool {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return true
		}
	}
	return false
}

func (f *fakeInbox) ClearAll() {
	f.items = nil
	f.cleared = true
}

type fakeConnection struct{ state domain.ConnectionState }

func (f fakeConnection) State() domain.ConnectionState { return f.state }
func (f fakeConnection) Connected() bool               { return f.state == domain.ConnectionConnected }

type fakePresentation struct {
	tags   map[string]bool
	clicks []string
}

func (f *fakePresentation) AudioState() domain.AudioState { return domain.AudioSuspended }

func (f *fakePresentation) Click(_ context.Context, tag string) bool {
	f.clicks = append(f.clicks, tag)
	return f.tags[tag]
}

type fakeInteractions struct{ notified int }

func (f *fakeInteractions) Notify() int {
	f.notified++
	return 1
}

func newTestRouter() (http.Handler, *fakeInbox, *fakePresentation, *fakeInteractions) {
	inbox := &fakeInbox{items: []domain.Notification{
		{ID: "n2", Type: domain.PushNewTask, Title: "New task"},
		{ID: "n1", Type: domain.PushNewMeeting, Title: "New meeting", Read: true},
	}}
	presentation := &fakePresentation{tags: map[string]bool{"ntf_n2": true}}
	interactions := &fakeInteractions{}
	router := NewRouter(Deps{
		Inbox:              inbox,
		Connection:         fakeConnection{state: domain.ConnectionReconnecting},
		Presentation:       presentation,
		Interactions:       interactions,
		CORSAllowedOrigins: []string{"http://localhost:5173"},
	})
	return router, inbox, presentation, interactions
}

func serve(router http.Handler, method string, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestUp(t *testing.T) {
	t.Parallel()

	router, _, _, _ := newTestRouter()
	rec := serve(router, http.MethodGet, "/up")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("up = %d %q", rec.Code, rec.Body.String())
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()

	router, _, _, _ := newTestRouter()
	rec := serve(router, http.MethodGet, "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	var got statusResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := statusResponse{SubjectID: "emp-1", Connected: false, ConnectionState: "RECONNECTING", AudioState: "SUSPENDED", UnreadCount: 1}
	if got != want {
		t.Fatalf("status = %+v, want %+v", got, want)
	}
}

func TestListAndMutateNotifications(t *testing.T) {
	t.Parallel()

	router, inbox, _, _ := newTestRouter()

	rec := serve(router, http.MethodGet, "/notifications")
	var list notificationsResponse
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Notifications) != 2 || list.UnreadCount != 1 {
		t.Fatalf("list = %+v", list)
	}

	if rec := serve(router, http.MethodPost, "/notifications/n2/read"); rec.Code != http.StatusNoContent {
		t.Fatalf("mark read = %d", rec.Code)
	}
	if inbox.UnreadCount() != 0 {
		t.Fatalf("unread = %d, want 0", inbox.UnreadCount())
	}
	if rec := serve(router, http.MethodPost, "/notifications/missing/read"); rec.Code != http.StatusNotFound {
		t.Fatalf("mark missing = %d, want 404", rec.Code)
	}
	if rec := serve(router, http.MethodDelete, "/notifications/n1"); rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rec.Code)
	}
	if rec := serve(router, http.MethodDelete, "/notifications/n1"); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete = %d, want 404", rec.Code)
	}
	if rec := serve(router, http.MethodDelete, "/notifications"); rec.Code != http.StatusNoContent {
		t.Fatalf("clear = %d", rec.Code)
	}
	if !inbox.cleared || len(inbox.items) != 0 {
		t.Fatalf("inbox = %+v, want cleared", inbox.items)
	}
}

func TestRefreshKeepsListOnFailure(t *testing.T) {
	t.Parallel()

	router, inbox, _, _ := newTestRouter()
	if rec := serve(router, http.MethodPost, "/notifications/refresh"); rec.Code != http.StatusOK {
		t.Fatalf("refresh = %d", rec.Code)
	}

	inbox.loadErr = errors.New("offline")
	rec := serve(router, http.MethodPost, "/notifications/refresh")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("refresh = %d, want 502", rec.Code)
	}
	var got notificationsResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Error == "" || len(got.Notifications) != 2 {
		t.Fatalf("response = %+v, want error with prior list", got)
	}
	if inbox.loads != 2 {
		t.Fatalf("loads = %d, want 2", inbox.loads)
	}
}

func TestInteractionAndAlertClick(t *testing.T) {
	t.Parallel()

	router, _, presentation, interactions := newTestRouter()

	rec := serve(router, http.MethodPost, "/interaction")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"listeners":1`) {
		t.Fatalf("interaction = %d %q", rec.Code, rec.Body.String())
	}
	if interactions.notified != 1 {
		t.Fatalf("notified = %d, want 1", interactions.notified)
	}

	if rec := serve(router, http.MethodPost, "/alerts/ntf_n2/click"); rec.Code != http.StatusNoContent {
		t.Fatalf("click = %d", rec.Code)
	}
	if rec := serve(router, http.MethodPost, "/alerts/unknown/click"); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown click = %d, want 404", rec.Code)
	}
	if len(presentation.clicks) != 2 || presentation.clicks[0] != "ntf_n2" {
		t.Fatalf("clicks = %v", presentation.clicks)
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	router, _, _, _ := newTestRouter()
	req := httptest.NewRequest(http.MethodOptions, "/notifications", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("allow origin = %q", got)
	}
}
