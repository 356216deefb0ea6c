package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/hrdesk/internal/platform/timeouts"
	"github.com/louisbranch/hrdesk/internal/services/notifications/domain"
	"golang.org/x/net/websocket"
)

const (
	// DefaultMaxAttempts bounds dial failures within one outage.
	DefaultMaxAttempts = 10
	// DefaultBaseDelay is the first reconnect delay; later attempts grow linearly.
	DefaultBaseDelay = time.Second
	// DefaultMaxDelay caps the reconnect delay.
	DefaultMaxDelay = 5 * time.Second

	defaultOrigin = "http://localhost/"
)

var (
	// ErrAlreadyConnected is returned by Connect while a connection loop runs.
	ErrAlreadyConnected = errors.New("push channel already connected")
	// ErrSubjectRequired is returned when no subject identity was injected.
	ErrSubjectRequired = errors.New("push channel subject id is required")
)

// Config controls a push channel.
type Config struct {
	SubjectID   string
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// StableAfter is how long a session must last to reset the retry budget.
	// Zero means MaxDelay.
	StableAfter   time.Duration
	DialTimeout   time.Duration
	WriteTimeout  time.Duration
	Origin        string
	Clock         func() time.Time
	Logf          func(format string, args ...any)
	OnEvent       func(domain.PushEvent)
	OnStateChange func(domain.ConnectionState)
}

// Channel keeps one websocket to the push server alive and hands typed
// events to OnEvent. It owns the ConnectionState.
type Channel struct {
	cfg Config

	mu     sync.Mutex
	state  domain.ConnectionState
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}

	// stateMu serializes OnStateChange callbacks in transition order.
	stateMu sync.Mutex
}

// New creates a disconnected channel.
func New(cfg Config) (*Channel, error) {
	cfg.SubjectID = strings.TrimSpace(cfg.SubjectID)
	if cfg.SubjectID == "" {
		return nil, ErrSubjectRequired
	}
	if cfg.OnEvent == nil {
		return nil, errors.New("push event handler is required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if cfg.StableAfter <= 0 {
		cfg.StableAfter = cfg.MaxDelay
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = timeouts.WebSocketDial
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = timeouts.WebSocketWrite
	}
	if strings.TrimSpace(cfg.Origin) == "" {
		cfg.Origin = defaultOrigin
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}
	return &Channel{cfg: cfg, state: domain.ConnectionDisconnected}, nil
}

// State returns the current connection state.
func (c *Channel) State() domain.ConnectionState {
	if c == nil {
		return domain.ConnectionDisconnected
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether the channel is CONNECTED.
func (c *Channel) Connected() bool {
	return c.State() == domain.ConnectionConnected
}

// Connect starts the background connection loop to serverURL.
func (c *Channel) Connect(ctx context.Context, serverURL string) error {
	if c == nil {
		return errors.New("push channel is nil")
	}
	target, err := WebSocketURL(serverURL)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		c.run(runCtx, target)
		c.release(done)
		cancel()
	}()
	return nil
}

// Close tears the connection down and waits for the loop to exit.
func (c *Channel) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	cancel, done, conn := c.cancel, c.done, c.conn
	c.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	if conn != nil {
		_ = conn.Close()
	}
	<-done
	c.release(done)
	return nil
}

// release forgets the loop behind done so Connect may start a new one.
func (c *Channel) release(done chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == done {
		c.cancel = nil
		c.done = nil
	}
}

// WebSocketURL normalizes http(s) URLs to ws(s).
func WebSocketURL(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse push url: %w", err)
	}
	switch parsed.Scheme {
	case "ws", "wss":
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("push url %q must use ws, wss, http or https", raw)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("push url %q has no host", raw)
	}
	return parsed.String(), nil
}

func (c *Channel) run(ctx context.Context, target string) {
	defer c.transition(domain.ConnectionDisconnected)
	c.transition(domain.ConnectionConnecting)

	plan := retryPlan{maxAttempts: c.cfg.MaxAttempts, delay: c.retryDelay}
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := c.dial(ctx, target)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			delay, ok := plan.dialFailed()
			if !ok {
				c.cfg.Logf("push: giving up after %d attempts: %v", plan.attempt, err)
				return
			}
			c.transition(domain.ConnectionReconnecting)
			c.cfg.Logf("push: connect attempt %d failed: %v", plan.attempt, err)
			if !waitRetry(ctx, delay) {
				return
			}
			continue
		}

		started := c.cfg.Clock()
		serverClosed := c.serve(ctx, conn)
		if ctx.Err() != nil {
			return
		}
		stable := c.cfg.Clock().Sub(started) >= c.cfg.StableAfter
		delay, ok := plan.sessionEnded(serverClosed, stable)
		if !ok {
			c.cfg.Logf("push: giving up after %d short-lived connections", plan.attempt)
			return
		}
		c.transition(domain.ConnectionReconnecting)
		if serverClosed {
			c.cfg.Logf("push: server closed the connection, reconnecting in %v", delay)
		} else {
			c.cfg.Logf("push: connection dropped, reconnecting in %v", delay)
		}
		if !waitRetry(ctx, delay) {
			return
		}
	}
}

// retryPlan counts consecutive failures within one outage. A session that
// ends before it proved stable counts as a failure.
type retryPlan struct {
	attempt     int
	maxAttempts int
	delay       func(attempt int) time.Duration
}

// dialFailed returns the wait before the next dial, or false once the
// budget is spent.
func (p *retryPlan) dialFailed() (time.Duration, bool) {
	p.attempt++
	if p.attempt >= p.maxAttempts {
		return 0, false
	}
	return p.delay(p.attempt), true
}

// sessionEnded returns the wait before redialing after a connection ended.
// Only the first server close in a row redials without waiting.
func (p *retryPlan) sessionEnded(serverClosed, stable bool) (time.Duration, bool) {
	if stable {
		p.attempt = 0
	}
	p.attempt++
	if !stable && p.attempt >= p.maxAttempts {
		return 0, false
	}
	if serverClosed && p.attempt == 1 {
		return 0, true
	}
	return p.delay(p.attempt), true
}

func (c *Channel) dial(ctx context.Context, target string) (*websocket.Conn, error) {
	wsConfig, err := websocket.NewConfig(target, c.cfg.Origin)
	if err != nil {
		return nil, fmt.Errorf("websocket config: %w", err)
	}
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()
	conn, err := wsConfig.DialContext(dialCtx)
	if err != nil {
		return nil, fmt.Errorf("dial push server: %w", err)
	}
	return conn, nil
}

// serve registers and reads frames until the connection ends. It reports
// whether the server ended it deliberately.
func (c *Channel) serve(ctx context.Context, conn *websocket.Conn) bool {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		_ = conn.Close()
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
	}()

	c.transition(domain.ConnectionConnected)

	register, err := registerFrame(c.cfg.SubjectID)
	if err == nil {
		err = c.send(conn, register)
	}
	if err != nil {
		c.cfg.Logf("push: register %s: %v", c.cfg.SubjectID, err)
		return false
	}

	for {
		var raw []byte
		if err := websocket.Message.Receive(conn, &raw); err != nil {
			if ctx.Err() != nil {
				return false
			}
			return errors.Is(err, io.EOF)
		}
		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.cfg.Logf("push: dropping malformed frame: %v", err)
			continue
		}
		switch frame.Type {
		case FramePing:
			if err := c.send(conn, Frame{Type: FramePong, RequestID: frame.RequestID}); err != nil {
				c.cfg.Logf("push: pong: %v", err)
				return false
			}
		case FramePong, FrameRegistered:
		case FrameServerDisconnect:
			return true
		default:
			event, err := decodeEvent(frame, c.cfg.Clock())
			if err != nil {
				c.cfg.Logf("push: dropping %q frame: %v", frame.Type, err)
				continue
			}
			if !Known(event.EventType) {
				c.cfg.Logf("push: unknown event %q delivered with correlation %s", event.EventType, event.CorrelationID)
			}
			if ctx.Err() != nil {
				return false
			}
			c.cfg.OnEvent(event)
		}
	}
}

func (c *Channel) send(conn *websocket.Conn, frame Frame) error {
	if err := conn.SetWriteDeadline(c.cfg.Clock().Add(c.cfg.WriteTimeout)); err != nil {
		return err
	}
	return websocket.JSON.Send(conn, frame)
}

func (c *Channel) retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return min(c.cfg.BaseDelay*time.Duration(attempt), c.cfg.MaxDelay)
}

// transition applies a state change allowed by the transition table and
// reports it to OnStateChange.
func (c *Channel) transition(next domain.ConnectionState) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	c.mu.Lock()
	prev := c.state
	if prev == next {
		c.mu.Unlock()
		return
	}
	if !prev.CanTransition(next) {
		c.mu.Unlock()
		c.cfg.Logf("push: ignoring transition %s -> %s", prev, next)
		return
	}
	c.state = next
	c.mu.Unlock()

	if c.cfg.OnStateChange != nil {
		c.cfg.OnStateChange(next)
	}
}

func waitRetry(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
