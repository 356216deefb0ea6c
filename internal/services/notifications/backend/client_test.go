package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/louisbranch/hrdesk/internal/services/notifications/domain"
)

type fakeBackend struct {
	mu         sync.Mutex
	calls      []string
	created    []createRequest
	auth       []string
	requestIDs []string
	listBody   string
	status     int
}

func newFakeBackend(t *testing.T) (*fakeBackend, *Client) {
	t.Helper()
	fb := &fakeBackend{listBody: `[]`, status: http.StatusOK}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			fb.mu.Lock()
			fb.calls = append(fb.calls, req.Method+" "+req.URL.Path)
			fb.auth = append(fb.auth, req.Header.Get("Authorization"))
			fb.requestIDs = append(fb.requestIDs, req.Header.Get("X-Request-Id"))
			status := fb.status
			fb.mu.Unlock()
			if status != http.StatusOK {
				w.WriteHeader(status)
				return
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/api/notifications/{subjectID}", func(w http.ResponseWriter, req *http.Request) {
		fb.mu.Lock()
		body := fb.listBody
		fb.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
	r.Post("/api/notifications", func(w http.ResponseWriter, req *http.Request) {
		var payload createRequest
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fb.mu.Lock()
		fb.created = append(fb.created, payload)
		fb.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	r.Patch("/api/notifications/{id}/read", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Delete("/api/notifications/clear/{subjectID}", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Delete("/api/notifications/{id}", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	client, err := New(Config{BaseURL: server.URL + "/api/", Token: "secret", Client: server.Client()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return fb, client
}

func TestNewValidatesBaseURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "  ", "ftp://example.com", "://bad"} {
		if _, err := New(Config{BaseURL: raw}); err == nil {
			t.Fatalf("New(%q) expected error", raw)
		}
	}
}

func TestListAcceptsArrayAndWrappedBodies(t *testing.T) {
	t.Parallel()

	fb, client := newFakeBackend(t)
	stamp := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "array", body: `[{"id":"n1","type":"new-task","title":"t","timestamp":"2026-03-02T09:00:00Z","read":true}]`, want: 1},
		{name: "wrapped", body: `{"notifications":[{"id":"n1","timestamp":"2026-03-02T09:00:00Z"},{"id":"n2","timestamp":"2026-03-02T09:00:00Z"}]}`, want: 2},
		{name: "empty", body: ``, want: 0},
		{name: "wrapped null", body: `{"notifications":null}`, want: 0},
	}
	for _, tc := range tests {
		fb.mu.Lock()
		fb.listBody = tc.body
		fb.mu.Unlock()

		got, err := client.List(context.Background(), "emp-1")
		if err != nil {
			t.Fatalf("%s: list: %v", tc.name, err)
		}
		if got == nil || len(got) != tc.want {
			t.Fatalf("%s: len = %d, want %d", tc.name, len(got), tc.want)
		}
		if tc.want > 0 && !got[0].Timestamp.Equal(stamp) {
			t.Fatalf("%s: timestamp = %v, want %v", tc.name, got[0].Timestamp, stamp)
		}
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.calls[0] != "GET /api/notifications/emp-1" {
		t.Fatalf("call = %q", fb.calls[0])
	}
	if fb.auth[0] != "Bearer secret" {
		t.Fatalf("authorization = %q", fb.auth[0])
	}
	if len(fb.requestIDs) < 2 || fb.requestIDs[0] == "" || fb.requestIDs[0] == fb.requestIDs[1] {
		t.Fatalf("request ids = %v, want distinct non-empty ids", fb.requestIDs)
	}
}

func TestListRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	fb, client := newFakeBackend(t)
	fb.listBody = `{"notifications":`
	if _, err := client.List(context.Background(), "emp-1"); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := client.List(context.Background(), " "); err == nil {
		t.Fatal("expected missing subject error")
	}
}

func TestMutationsHitExpectedEndpoints(t *testing.T) {
	t.Parallel()

	fb, client := newFakeBackend(t)
	ctx := context.Background()
	n := domain.Notification{ID: "ntf_leave_42_approved", Type: domain.PushRequestApproved, Title: "Request approved", Timestamp: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}

	if err := client.Create(ctx, "emp-1", n); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := client.MarkRead(ctx, n.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if err := client.Delete(ctx, n.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := client.Clear(ctx, "emp-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	want := []string{
		"POST /api/notifications",
		"PATCH /api/notifications/ntf_leave_42_approved/read",
		"DELETE /api/notifications/ntf_leave_42_approved",
		"DELETE /api/notifications/clear/emp-1",
	}
	if len(fb.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", fb.calls, want)
	}
	for i := range want {
		if fb.calls[i] != want[i] {
			t.Fatalf("call[%d] = %q, want %q", i, fb.calls[i], want[i])
		}
	}
	if len(fb.created) != 1 || fb.created[0].SubjectID != "emp-1" || fb.created[0].ID != n.ID {
		t.Fatalf("created = %+v", fb.created)
	}
}

func TestStatusErrors(t *testing.T) {
	t.Parallel()

	fb, client := newFakeBackend(t)
	fb.status = http.StatusNotFound

	err := client.MarkRead(context.Background(), "missing")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want StatusError", err)
	}
	if statusErr.Code != http.StatusNotFound || !IsNotFound(err) {
		t.Fatalf("status = %d, want 404", statusErr.Code)
	}

	fb.mu.Lock()
	fb.status = http.StatusInternalServerError
	fb.mu.Unlock()
	if err := client.Delete(context.Background(), "x"); err == nil || IsNotFound(err) {
		t.Fatalf("delete = %v, want 500 status error", err)
	}
}

func TestRequestHonorsTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	client, err := New(Config{BaseURL: server.URL, Client: server.Client(), Timeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.MarkRead(context.Background(), "n1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("mark read = %v, want deadline exceeded", err)
	}
}
