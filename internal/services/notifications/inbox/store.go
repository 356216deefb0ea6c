// Package inbox keeps the in-memory notification list for the signed-in
// subject and mirrors every mutation to the backend asynchronously.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"log"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/louisbranch/hrdesk/internal/services/notifications/domain"
)

// ErrStoreRunning is returned when Run is called twice.
var ErrStoreRunning = errors.New("inbox sync worker is already running")

// Backend persists notifications durably.
type Backend interface {
	List(ctx context.Context, subjectID string) ([]domain.Notification, error)
	Create(ctx context.Context, subjectID string, n domain.Notification) error
	MarkRead(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context, subjectID string) error
}

type syncKind string

const (
	syncCreate   syncKind = "create"
	syncMarkRead syncKind = "mark_read"
	syncDelete   syncKind = "delete"
	syncClear    syncKind = "clear"
)

type syncOp struct {
	kind         syncKind
	id           string
	notification domain.Notification
}

// Store is the single writer of the notification list. Mutations apply
// in memory first and are never rolled back when the backend sync fails.
type Store struct {
	subjectID string
	backend   Backend
	logf      func(format string, args ...any)

	mu    sync.Mutex
	items []domain.Notification

	syncMu   sync.Mutex
	syncCond *sync.Cond
	ops      []syncOp
	inFlight *syncOp
	// settled holds ops synced while a Load waits on the backend.
	settled []syncOp
	loading int
	wake    chan struct{}
	running atomic.Bool
}

// New creates a store for subjectID.
func New(subjectID string, backend Backend, logf func(format string, args ...any)) (*Store, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, errors.New("subject id is required")
	}
	if backend == nil {
		return nil, errors.New("notification backend is required")
	}
	if logf == nil {
		logf = log.Printf
	}
	s := &Store{
		subjectID: subjectID,
		backend:   backend,
		logf:      logf,
		wake:      make(chan struct{}, 1),
	}
	s.syncCond = sync.NewCond(&s.syncMu)
	return s, nil
}

// SubjectID returns the subject whose notifications the store mirrors.
func (s *Store) SubjectID() string {
	return s.subjectID
}

// Load replaces the list from the backend. Local mutations the backend may
// not reflect yet are replayed over the fetched list. On failure the prior
// list is kept and the error is returned for the caller to surface.
func (s *Store) Load(ctx context.Context) error {
	s.syncMu.Lock()
	s.loading++
	mark := len(s.settled)
	s.syncMu.Unlock()

	items, err := s.backend.List(ctx, s.subjectID)

	// Mutations hold mu while scheduling, so nothing slips in between
	// collecting the pending ops and the swap.
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncMu.Lock()
	pending := append([]syncOp(nil), s.settled[mark:]...)
	if s.inFlight != nil {
		pending = append(pending, *s.inFlight)
	}
	pending = append(pending, s.ops...)
	s.loading--
	if s.loading == 0 {
		s.settled = nil
	}
	s.syncMu.Unlock()

	if err != nil {
		return fmt.Errorf("load notifications: %w", err)
	}
	loaded := make([]domain.Notification, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item.ID]; dup || item.ID == "" {
			continue
		}
		seen[item.ID] = struct{}{}
		loaded = append(loaded, item)
	}
	s.items = replay(loaded, pending)
	return nil
}

// replay applies ops in order to items.
func replay(items []domain.Notification, ops []syncOp) []domain.Notification {
	for _, op := range ops {
		i := slices.IndexFunc(items, func(n domain.Notification) bool { return n.ID == op.id })
		switch op.kind {
		case syncCreate:
			if i < 0 {
				n := op.notification
				n.Data = maps.Clone(n.Data)
				items = append([]domain.Notification{n}, items...)
			}
		case syncMarkRead:
			if i >= 0 {
				items[i].Read = true
			}
		case syncDelete:
			if i >= 0 {
				items = append(items[:i:i], items[i+1:]...)
			}
		case syncClear:
			items = nil
		}
	}
	return items
}

// Record prepends n unless a notification with the same id is already
// listed. It reports whether n was added.
func (s *Store) Record(n domain.Notification) bool {
	if strings.TrimSpace(n.ID) == "" {
		s.logf("inbox: dropping notification without id")
		return false
	}
	n.Data = maps.Clone(n.Data)

	s.mu.Lock()
	if s.indexLocked(n.ID) >= 0 {
		s.mu.Unlock()
		return false
	}
	s.items = append([]domain.Notification{n}, s.items...)
	s.schedule(syncOp{kind: syncCreate, id: n.ID, notification: n})
	s.mu.Unlock()
	return true
}

// MarkRead flags id as read. It reports whether id was listed.
func (s *Store) MarkRead(id string) bool {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	if !s.items[i].Read {
		s.items[i].Read = true
		s.schedule(syncOp{kind: syncMarkRead, id: id})
	}
	s.mu.Unlock()
	return true
}

// Delete removes id. It reports whether id was listed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	s.schedule(syncOp{kind: syncDelete, id: id})
	s.mu.Unlock()
	return true
}

// ClearAll removes every notification of the subject.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.schedule(syncOp{kind: syncClear})
}

// UnreadCount counts unread notifications.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	unread := 0
	for _, item := range s.items {
		if !item.Read {
			unread++
		}
	}
	return unread
}

// List returns a copy of the notifications, newest first.
func (s *Store) List() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Notification, len(s.items))
	for i, item := range s.items {
		item.Data = maps.Clone(item.Data)
		out[i] = item
	}
	return out
}

// Get returns the notification with id.
func (s *Store) Get(id string) (domain.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return domain.Notification{}, false
	}
	item := s.items[i]
	item.Data = maps.Clone(item.Data)
	return item, true
}

func (s *Store) indexLocked(id string) int {
	for i, item := range s.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) schedule(op syncOp) {
	s.syncMu.Lock()
	s.ops = append(s.ops, op)
	s.syncMu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run replays mutations against the backend in the order they happened
// until ctx is done. Unsynced mutations are dropped on exit.
func (s *Store) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrStoreRunning
	}
	defer func() {
		s.syncMu.Lock()
		if dropped := len(s.ops); dropped > 0 {
			s.logf("inbox: %d backend syncs dropped on shutdown", dropped)
		}
		s.ops = nil
		s.running.Store(false)
		s.syncCond.Broadcast()
		s.syncMu.Unlock()
	}()
	for {
		s.syncMu.Lock()
		if len(s.ops) == 0 {
			s.syncMu.Unlock()
			select {
			case <-ctx.Done():
				return nil
			case <-s.wake:
			}
			continue
		}
		op := s.ops[0]
		s.ops[0] = syncOp{}
		s.ops = s.ops[1:]
		s.inFlight = &op
		s.syncMu.Unlock()

		s.sync(ctx, op)

		s.syncMu.Lock()
		s.inFlight = nil
		if s.loading > 0 {
			s.settled = append(s.settled, op)
		}
		s.syncCond.Broadcast()
		s.syncMu.Unlock()
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (s *Store) sync(ctx context.Context, op syncOp) {
	var err error
	switch op.kind {
	case syncCreate:
		err = s.backend.Create(ctx, s.subjectID, op.notification)
	case syncMarkRead:
		err = s.backend.MarkRead(ctx, op.id)
	case syncDelete:
		err = s.backend.Delete(ctx, op.id)
	case syncClear:
		err = s.backend.Clear(ctx, s.subjectID)
	}
	if err != nil {
		s.logf("inbox: sync %s %s: %v", op.kind, op.id, err)
	}
}

// Wait blocks until every scheduled sync has been attempted or dropped by a
// stopping worker. It needs Run to make progress.
func (s *Store) Wait() {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	for len(s.ops) > 0 || s.inFlight != nil {
		s.syncCond.Wait()
	}
}
