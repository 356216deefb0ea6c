package delivery

import (
	"context"
	"errors"
	"log"
	"maps"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/louisbranch/hrdesk/internal/services/notifications/domain"
	"github.com/louisbranch/hrdesk/internal/services/notifications/presentation"
	"github.com/louisbranch/hrdesk/internal/services/notifications/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultReminderGap spaces consecutive visible reminder deliveries.
	DefaultReminderGap = 5 * time.Second
	// DefaultPushDedupTTL collapses repeated push events.
	DefaultPushDedupTTL = 5 * time.Second

	tracerName = "github.com/louisbranch/hrdesk/internal/services/notifications/delivery"
)

// ErrQueueRunning is returned when Run is called twice.
var ErrQueueRunning = errors.New("delivery queue is already running")

// Presenter plays the notification sound and renders the visible alert.
type Presenter interface {
	Play(ctx context.Context) error
	Present(ctx context.Context, alert presentation.Alert) error
}

// Recorder persists push-originated notifications.
type Recorder interface {
	Record(n domain.Notification)
}

// Source labels where an entry came from.
type Source string

const (
	SourceReminder Source = "reminder"
	SourcePush     Source = "push"
)

// Entry is one pending delivery. Exactly one of Reminder or Push is set.
type Entry struct {
	Reminder   *domain.ReminderEvent
	Push       *domain.PushEvent
	EnqueuedAt time.Time
	DedupKey   string
}

// Source reports the entry's producer.
func (e Entry) Source() Source {
	if e.Push != nil {
		return SourcePush
	}
	return SourceReminder
}

// Config wires the queue's collaborators and pacing. A negative gap disables
// spacing for that source; zero selects the default.
type Config struct {
	Presenter    Presenter
	Recorder     Recorder
	Localizer    render.Localizer
	ReminderGap  time.Duration
	PushGap      time.Duration
	PushDedupTTL time.Duration
	Clock        func() time.Time
	Tracer       trace.Tracer
	Logf         func(format string, args ...any)
}

// Queue serializes reminder and push events into one deduplicated,
// rate-limited stream of visible notifications.
type Queue struct {
	presenter    Presenter
	recorder     Recorder
	localizer    render.Localizer
	reminderGap  time.Duration
	pushGap      time.Duration
	pushDedupTTL time.Duration
	clock        func() time.Time
	tracer       trace.Tracer
	logf         func(format string, args ...any)

	mu      sync.Mutex
	entries []Entry
	pending map[string]int
	seen    map[string]time.Time
	stopped bool
	stop    chan struct{}
	wake    chan struct{}
	running atomic.Bool

	// lastVisible is owned by the Run goroutine.
	lastVisible time.Time
}

// New creates a queue. Presenter is required; Recorder may be nil.
func New(cfg Config) (*Queue, error) {
	if cfg.Presenter == nil {
		return nil, errors.New("delivery presenter is required")
	}
	switch {
	case cfg.ReminderGap == 0:
		cfg.ReminderGap = DefaultReminderGap
	case cfg.ReminderGap < 0:
		cfg.ReminderGap = 0
	}
	if cfg.PushGap < 0 {
		cfg.PushGap = 0
	}
	if cfg.PushDedupTTL <= 0 {
		cfg.PushDedupTTL = DefaultPushDedupTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}
	return &Queue{
		presenter:    cfg.Presenter,
		recorder:     cfg.Recorder,
		localizer:    cfg.Localizer,
		reminderGap:  cfg.ReminderGap,
		pushGap:      cfg.PushGap,
		pushDedupTTL: cfg.PushDedupTTL,
		clock:        cfg.Clock,
		tracer:       cfg.Tracer,
		logf:         cfg.Logf,
		pending:      make(map[string]int),
		seen:         make(map[string]time.Time),
		stop:         make(chan struct{}),
		wake:         make(chan struct{}, 1),
	}, nil
}

// EnqueueReminder accepts a reminder unless its window/day key was already
// accepted. It reports whether the event was queued.
func (q *Queue) EnqueueReminder(event domain.ReminderEvent) bool {
	key := event.DedupKey()
	return q.enqueue(Entry{Reminder: &event, DedupKey: key}, domain.DayEnd(event.ScheduledTime))
}

// EnqueuePush accepts a push event unless its correlation id was seen within
// the dedup TTL. It reports whether the event was queued.
func (q *Queue) EnqueuePush(event domain.PushEvent) bool {
	if strings.TrimSpace(event.CorrelationID) == "" {
		q.logf("delivery: dropping %q push without correlation id", event.EventType)
		return false
	}
	now := q.clock()
	return q.enqueue(Entry{Push: &event, DedupKey: event.DedupKey()}, now.Add(q.pushDedupTTL))
}

func (q *Queue) enqueue(entry Entry, expires time.Time) bool {
	now := q.clock()
	entry.EnqueuedAt = now

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return false
	}
	q.pruneLocked(now)
	if q.pending[entry.DedupKey] > 0 {
		q.mu.Unlock()
		return false
	}
	if until, ok := q.seen[entry.DedupKey]; ok && now.Before(until) {
		q.mu.Unlock()
		return false
	}
	q.seen[entry.DedupKey] = expires
	q.pending[entry.DedupKey]++
	q.entries = append(q.entries, entry)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

func (q *Queue) pruneLocked(now time.Time) {
	for key, until := range q.seen {
		if !now.Before(until) {
			delete(q.seen, key)
		}
	}
}

// Len returns the number of pending entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Stop discards every pending entry and ends Run. Later enqueues are
// rejected.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	dropped := len(q.entries)
	q.entries = nil
	clear(q.pending)
	close(q.stop)
	q.mu.Unlock()

	if dropped > 0 {
		q.logf("delivery: stopped with %d pending entries discarded", dropped)
	}
}

// Run drains the queue one entry at a time until ctx is done or Stop.
func (q *Queue) Run(ctx context.Context) error {
	if !q.running.CompareAndSwap(false, true) {
		return ErrQueueRunning
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		entry, ok := q.next(ctx)
		if !ok {
			return nil
		}
		if !q.waitGap(ctx, entry) {
			return nil
		}
		q.deliver(ctx, entry)
		q.mu.Lock()
		if q.pending[entry.DedupKey] > 0 {
			q.pending[entry.DedupKey]--
			if q.pending[entry.DedupKey] == 0 {
				delete(q.pending, entry.DedupKey)
			}
		}
		q.mu.Unlock()
	}
}

func (q *Queue) next(ctx context.Context) (Entry, bool) {
	for {
		q.mu.Lock()
		if q.stopped {
			q.mu.Unlock()
			return Entry{}, false
		}
		if len(q.entries) > 0 {
			entry := q.entries[0]
			q.entries[0] = Entry{}
			q.entries = q.entries[1:]
			q.mu.Unlock()
			return entry, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Entry{}, false
		case <-q.stop:
			return Entry{}, false
		case <-q.wake:
		}
	}
}

func (q *Queue) gapFor(entry Entry) time.Duration {
	if entry.Source() == SourcePush {
		return q.pushGap
	}
	return q.reminderGap
}

// waitGap blocks until the entry's gap since the last visible delivery has
// elapsed. It returns false if the queue stopped meanwhile.
func (q *Queue) waitGap(ctx context.Context, entry Entry) bool {
	gap := q.gapFor(entry)
	if gap <= 0 || q.lastVisible.IsZero() {
		return true
	}
	wait := q.lastVisible.Add(gap).Sub(q.clock())
	if wait <= 0 {
		return true
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-q.stop:
		return false
	case <-timer.C:
		return true
	}
}

func (q *Queue) deliver(ctx context.Context, entry Entry) {
	ctx, span := q.tracer.Start(ctx, "delivery.deliver", trace.WithAttributes(
		attribute.String("notification.source", string(entry.Source())),
		attribute.String("notification.dedup_key", entry.DedupKey),
	))
	defer span.End()

	content, err := contentFor(entry)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed event")
		q.logf("delivery: dropping %s: %v", entry.DedupKey, err)
		return
	}
	out := render.Render(q.localizer, render.Input{MessageType: content.messageType, Data: content.data})
	span.SetAttributes(attribute.String("notification.type", content.messageType))

	if err := q.presenter.Play(ctx); err != nil {
		span.AddEvent("sound skipped", trace.WithAttributes(attribute.String("error", err.Error())))
	}
	alert := presentation.Alert{
		Tag:      content.tag,
		Title:    out.Title,
		Body:     out.Body,
		Metadata: content.metadata(),
	}
	if err := q.presenter.Present(ctx, alert); err != nil {
		span.RecordError(err)
		q.logf("delivery: present %s: %v", entry.DedupKey, err)
	}
	q.lastVisible = q.clock()

	if entry.Push != nil && q.recorder != nil {
		q.recorder.Record(domain.Notification{
			ID:        content.tag,
			Type:      content.messageType,
			Title:     out.Title,
			Body:      out.Body,
			Data:      content.data,
			Timestamp: entry.Push.Timestamp,
		})
	}
}

type content struct {
	source      Source
	messageType string
	tag         string
	dedupKey    string
	data        map[string]any
}

func contentFor(entry Entry) (content, error) {
	if entry.Push != nil {
		data, err := entry.Push.Data()
		if err != nil {
			return content{}, err
		}
		return content{
			source:      SourcePush,
			messageType: entry.Push.EventType,
			tag:         domain.NotificationID(entry.Push.CorrelationID),
			dedupKey:    entry.DedupKey,
			data:        data,
		}, nil
	}
	if entry.Reminder == nil {
		return content{}, errors.New("entry has no event")
	}
	event := entry.Reminder
	data := make(map[string]any, len(event.Payload)+1)
	maps.Copy(data, event.Payload)
	if _, ok := data["title"]; !ok && event.Title != "" {
		data["title"] = event.Title
	}
	return content{
		source:      SourceReminder,
		messageType: event.MessageType(),
		tag:         domain.NotificationID(entry.DedupKey),
		dedupKey:    entry.DedupKey,
		data:        data,
	}, nil
}

func (c content) metadata() map[string]any {
	metadata := map[string]any{
		"source":    string(c.source),
		"type":      c.messageType,
		"dedup_key": c.dedupKey,
	}
	if c.source == SourcePush {
		metadata["notification_id"] = c.tag
	}
	for key, value := range c.data {
		if _, taken := metadata[key]; !taken {
			metadata[key] = value
		}
	}
	return metadata
}
