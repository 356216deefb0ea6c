package reminder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/louisbranch/hrdesk/internal/platform/timeouts"
	"github.com/louisbranch/hrdesk/internal/services/notifications/domain"
)

// Action is a host to scheduler command verb.
type Action string

const (
	ActionStart          Action = "start"
	ActionStop           Action = "stop"
	ActionUpdateInterval Action = "updateInterval"
)

// Command is the only way a host drives a running scheduler.
type Command struct {
	Action        Action
	DataSourceURL string
	SubjectID     string
	CheckInterval time.Duration
}

// MessageType labels scheduler to host messages.
type MessageType string

const (
	MessageStarted  MessageType = "STARTED"
	MessageStopped  MessageType = "STOPPED"
	MessageError    MessageType = "ERROR"
	MessageReminder MessageType = "REMINDER"
)

// Message is posted by the scheduler goroutine to its host.
type Message struct {
	Type     MessageType
	Domain   string
	Reminder domain.ReminderEvent
	Reason   string
	At       time.Time
}

const (
	// DefaultCheckInterval is the tick period when a start command omits one.
	DefaultCheckInterval = 60 * time.Second
	// DefaultFailureThreshold is the consecutive fetch failures that raise ERROR.
	DefaultFailureThreshold = 3

	commandBuffer = 8
	messageBuffer = 64
)

var (
	// ErrSchedulerClosed is returned by Send after Run has exited.
	ErrSchedulerClosed = errors.New("reminder scheduler is closed")
	// ErrSchedulerRunning is returned when Run is called twice.
	ErrSchedulerRunning = errors.New("reminder scheduler is already running")
)

// Config wires a scheduler to its rule and data source.
type Config struct {
	Rule             Rule
	Source           Source
	FailureThreshold int
	FetchTimeout     time.Duration
	Clock            func() time.Time
	Logf             func(format string, args ...any)
}

// StartConfig is the payload of a start command.
type StartConfig struct {
	DataSourceURL string
	SubjectID     string
	CheckInterval time.Duration
}

// Scheduler polls a data source on its own goroutine and reports reminder
// stage transitions as messages. Hosts talk to it only through Send and
// Messages; every field below the channels is owned by the Run goroutine.
type Scheduler struct {
	rule         Rule
	source       Source
	threshold    int
	fetchTimeout time.Duration
	clock        func() time.Time
	logf         func(format string, args ...any)

	commands chan Command
	messages chan Message
	results  chan fetchResult
	done     chan struct{}
	started  atomic.Bool

	running     bool
	current     StartConfig
	ticker      *time.Ticker
	fetchCancel context.CancelFunc
	generation  uint64
	inflight    bool
	failures    int
	tracker     *tracker
}

type fetchResult struct {
	generation uint64
	subjects   []domain.Subject
	err        error
}

// New creates a scheduler. Call Run to start its goroutine.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Rule == nil {
		return nil, errors.New("reminder rule is required")
	}
	if cfg.Source == nil {
		return nil, errors.New("reminder source is required")
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = timeouts.SourceFetch
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}
	return &Scheduler{
		rule:         cfg.Rule,
		source:       cfg.Source,
		threshold:    cfg.FailureThreshold,
		fetchTimeout: cfg.FetchTimeout,
		clock:        cfg.Clock,
		logf:         cfg.Logf,
		commands:     make(chan Command, commandBuffer),
		messages:     make(chan Message, messageBuffer),
		results:      make(chan fetchResult, 1),
		done:         make(chan struct{}),
		tracker:      newTracker(),
	}, nil
}

// Domain returns the rule domain this scheduler evaluates.
func (s *Scheduler) Domain() string {
	return s.rule.Domain()
}

// Messages is closed when Run returns.
func (s *Scheduler) Messages() <-chan Message {
	return s.messages
}

// Send delivers a command to the scheduler goroutine.
func (s *Scheduler) Send(cmd Command) error {
	select {
	case <-s.done:
		return ErrSchedulerClosed
	default:
	}
	select {
	case s.commands <- cmd:
		return nil
	case <-s.done:
		return ErrSchedulerClosed
	}
}

// Start begins polling. Starting a running scheduler restarts it with cfg.
func (s *Scheduler) Start(cfg StartConfig) error {
	return s.Send(Command{
		Action:        ActionStart,
		DataSourceURL: cfg.DataSourceURL,
		SubjectID:     cfg.SubjectID,
		CheckInterval: cfg.CheckInterval,
	})
}

// Stop halts polling; an in-flight fetch is cancelled and its result dropped.
func (s *Scheduler) Stop() error {
	return s.Send(Command{Action: ActionStop})
}

// UpdateInterval changes the tick period.
func (s *Scheduler) UpdateInterval(interval time.Duration) error {
	return s.Send(Command{Action: ActionUpdateInterval, CheckInterval: interval})
}

// Run processes commands, ticks and fetch results until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrSchedulerRunning
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer close(s.messages)
	defer close(s.done)

	for {
		var tick <-chan time.Time
		if s.ticker != nil {
			tick = s.ticker.C
		}
		select {
		case <-ctx.Done():
			wasRunning := s.running
			s.halt()
			if wasRunning {
				select {
				case s.messages <- s.message(MessageStopped, "context done"):
				default:
				}
			}
			return nil
		case cmd := <-s.commands:
			s.handle(ctx, cmd)
		case <-tick:
			s.fetch(ctx)
		case result := <-s.results:
			s.receive(ctx, result)
		}
	}
}

func (s *Scheduler) handle(ctx context.Context, cmd Command) {
	switch cmd.Action {
	case ActionStart:
		if strings.TrimSpace(cmd.DataSourceURL) == "" {
			s.post(ctx, s.message(MessageError, "data source url is required"))
			return
		}
		s.halt()
		if strings.TrimSpace(cmd.SubjectID) != s.current.SubjectID {
			s.tracker.reset()
		}
		interval := cmd.CheckInterval
		if interval <= 0 {
			interval = DefaultCheckInterval
		}
		s.current = StartConfig{
			DataSourceURL: strings.TrimSpace(cmd.DataSourceURL),
			SubjectID:     strings.TrimSpace(cmd.SubjectID),
			CheckInterval: interval,
		}
		s.failures = 0
		s.running = true
		s.ticker = time.NewTicker(interval)
		s.post(ctx, s.message(MessageStarted, ""))
		s.fetch(ctx)
	case ActionStop:
		if !s.running {
			return
		}
		s.halt()
		s.post(ctx, s.message(MessageStopped, "stopped"))
	case ActionUpdateInterval:
		if cmd.CheckInterval <= 0 {
			s.logf("reminder: %s ignoring non-positive interval %v", s.rule.Domain(), cmd.CheckInterval)
			return
		}
		s.current.CheckInterval = cmd.CheckInterval
		if s.ticker != nil {
			s.ticker.Reset(cmd.CheckInterval)
		}
	default:
		s.logf("reminder: %s ignoring unknown action %q", s.rule.Domain(), cmd.Action)
	}
}

func (s *Scheduler) fetch(ctx context.Context) {
	if !s.running || s.inflight {
		return
	}
	s.inflight = true
	generation := s.generation
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	s.fetchCancel = cancel
	dataSourceURL, subjectID := s.current.DataSourceURL, s.current.SubjectID

	go func() {
		defer cancel()
		subjects, err := s.source.Fetch(fetchCtx, dataSourceURL, subjectID)
		select {
		case s.results <- fetchResult{generation: generation, subjects: subjects, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (s *Scheduler) receive(ctx context.Context, result fetchResult) {
	if result.generation != s.generation || !s.running {
		return
	}
	s.inflight = false
	s.fetchCancel = nil

	if result.err != nil {
		s.failures++
		s.logf("reminder: %s fetch failed (%d consecutive): %v", s.rule.Domain(), s.failures, result.err)
		if s.failures == s.threshold {
			reason := fmt.Sprintf("%d consecutive fetch failures: %v", s.failures, result.err)
			s.post(ctx, s.message(MessageError, reason))
		}
		return
	}
	s.failures = 0

	for _, event := range s.tracker.observe(s.rule, result.subjects, s.clock()) {
		msg := s.message(MessageReminder, "")
		msg.Reminder = event
		s.post(ctx, msg)
	}
}

// halt stops the ticker and invalidates any in-flight fetch.
func (s *Scheduler) halt() {
	if s.fetchCancel != nil {
		s.fetchCancel()
		s.fetchCancel = nil
	}
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	s.generation++
	s.inflight = false
	s.running = false
}

func (s *Scheduler) message(kind MessageType, reason string) Message {
	return Message{Type: kind, Domain: s.rule.Domain(), Reason: reason, At: s.clock()}
}

func (s *Scheduler) post(ctx context.Context, msg Message) {
	select {
	case s.messages <- msg:
	case <-ctx.Done():
	}
}
