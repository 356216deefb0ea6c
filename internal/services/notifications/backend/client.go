// Package backend calls the REST endpoints that persist the notification
// inbox for one subject.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/louisbranch/hrdesk/internal/platform/id"
	"github.com/louisbranch/hrdesk/internal/platform/timeouts"
	"github.com/louisbranch/hrdesk/internal/services/notifications/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName       = "github.com/louisbranch/hrdesk/internal/services/notifications/backend"
	maxResponseBytes = 4 << 20
)

// StatusError reports a non-2xx backend response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s returned %s", e.Method, e.Path, e.Status)
}

// IsNotFound reports whether err is a 404 backend response.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound
}

// Config configures the REST client.
type Config struct {
	BaseURL string
	// Token is sent as a bearer token when set.
	Token   string
	Client  *http.Client
	Timeout time.Duration
	Tracer  trace.Tracer
}

// Client is the notification CRUD client.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	timeout time.Duration
	tracer  trace.Tracer
}

// New creates a client rooted at cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("backend base url is required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse backend base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend base url %q must be http or https", raw)
	}
	base.RawQuery = ""
	base.Fragment = ""
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = timeouts.BackendRequest
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}
	return &Client{
		baseURL: strings.TrimRight(base.String(), "/"),
		token:   strings.TrimSpace(cfg.Token),
		client:  cfg.Client,
		timeout: cfg.Timeout,
		tracer:  cfg.Tracer,
	}, nil
}

type createRequest struct {
	SubjectID string `json:"subject_id"`
	domain.Notification
}

type listResponse struct {
	Notifications []domain.Notification `json:"notifications"`
}

// List returns the subject's notifications, newest first as sent by the
// backend. It accepts a bare array or an object with a notifications field.
func (c *Client) List(ctx context.Context, subjectID string) ([]domain.Notification, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, errors.New("subject id is required")
	}
	body, err := c.do(ctx, "backend.list", http.MethodGet, "/notifications/"+url.PathEscape(subjectID), nil)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return []domain.Notification{}, nil
	}
	var items []domain.Notification
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode notifications: %w", err)
		}
	} else {
		var wrapped listResponse
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("decode notifications: %w", err)
		}
		items = wrapped.Notifications
	}
	if items == nil {
		items = []domain.Notification{}
	}
	return items, nil
}

// Create persists one notification for subjectID.
func (c *Client) Create(ctx context.Context, subjectID string, n domain.Notification) error {
	payload, err := json.Marshal(createRequest{SubjectID: strings.TrimSpace(subjectID), Notification: n})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	_, err = c.do(ctx, "backend.create", http.MethodPost, "/notifications", payload)
	return err
}

// MarkRead marks one notification as read.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	_, err := c.do(ctx, "backend.mark_read", http.MethodPatch, "/notifications/"+url.PathEscape(id)+"/read", nil)
	return err
}

// Delete removes one notification.
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.do(ctx, "backend.delete", http.MethodDelete, "/notifications/"+url.PathEscape(id), nil)
	return err
}

// Clear removes every notification of subjectID.
func (c *Client) Clear(ctx context.Context, subjectID string) error {
	_, err := c.do(ctx, "backend.clear", http.MethodDelete, "/notifications/clear/"+url.PathEscape(subjectID), nil)
	return err
}

func (c *Client) do(ctx context.Context, spanName string, method string, path string, payload []byte) ([]byte, error) {
	if c == nil {
		return nil, errors.New("backend client is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	ctx, span := c.tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
	))
	defer span.End()

	body, err := c.roundTrip(ctx, method, path, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return body, err
}

func (c *Client) roundTrip(ctx context.Context, method string, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if requestID, err := id.NewID(); err == nil {
		req.Header.Set("X-Request-Id", requestID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s request: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s %s response: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Method: method, Path: path, Code: resp.StatusCode, Status: resp.Status}
	}
	return body, nil
}
