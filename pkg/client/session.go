package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mesh-intelligence/facets/pkg/types"
)

// Committer is the write half of the API an edit session needs. *Client
// satisfies it; tests substitute fakes.
type Committer interface {
	UpdateItemFields(ctx context.Context, itemID string, updates []types.ValueUpdate) ([]types.FieldValue, error)
}

// SessionState names the phases of an edit session.
type SessionState string

// Session states. A session sits Idle until an edit makes it Dirty and arms
// the debounce timer (Debouncing); the timer fire commits the accumulated
// batch (Committing); failure rolls the optimistic state back (Reverting)
// before returning to Idle.
const (
	StateIdle       SessionState = "idle"
	StateDirty      SessionState = "dirty"
	StateDebouncing SessionState = "debouncing"
	StateCommitting SessionState = "committing"
	StateReverting  SessionState = "reverting"
)

// DefaultDebounce is the delay between the last edit and the coalesced
// write.
const DefaultDebounce = 400 * time.Millisecond

// ErrSessionClosed is returned by Set after Close or Discard.
var ErrSessionClosed = errors.New("edit session is closed")

// EditSession coalesces rapid edits on one item into debounced, batched
// writes with optimistic local state and rollback on failure.
//
// Each edit lands in the local optimistic state immediately and (re)arms a
// cancellable timer; edits inside the window accumulate into one pending
// batch, so N rapid edits produce one write carrying the final value per
// field. The timer is owned by the session and cancelled on Close, which
// makes "switching items never fires a stale write" structural rather than
// a condition every caller has to remember to check.
type EditSession struct {
	committer Committer
	itemID    string
	debounce  time.Duration
	onError   func(error)

	// commitMu serializes commits so canonical responses reconcile in
	// send order; overlapping commits finishing out of order would
	// otherwise resurrect an older value.
	commitMu sync.Mutex

	mu       sync.Mutex
	state    SessionState
	baseline map[string]types.Value // last known-good values
	local    map[string]types.Value // optimistic state shown to the user
	pending  map[string]types.Value // accumulated batch for the next commit
	timer    *time.Timer
	closed   bool
	inflight sync.WaitGroup
}

// SessionOption configures an EditSession.
type SessionOption func(*EditSession)

// WithDebounce overrides the debounce window.
func WithDebounce(d time.Duration) SessionOption {
	return func(s *EditSession) { s.debounce = d }
}

// WithErrorHandler installs a callback invoked with every surfaced commit
// error, after rollback.
func WithErrorHandler(fn func(error)) SessionOption {
	return func(s *EditSession) { s.onError = fn }
}

// NewEditSession starts a session for one item. initial seeds the
// known-good snapshot, typically the values of a freshly fetched
// projection. One session serves one open item view; opening another item
// means closing this session and starting a new one.
func NewEditSession(committer Committer, itemID string, initial map[string]types.Value, opts ...SessionOption) *EditSession {
	s := &EditSession{
		committer: committer,
		itemID:    itemID,
		debounce:  DefaultDebounce,
		state:     StateIdle,
		baseline:  make(map[string]types.Value, len(initial)),
		local:     make(map[string]types.Value, len(initial)),
		pending:   make(map[string]types.Value),
	}
	for id, v := range initial {
		s.baseline[id] = v
		s.local[id] = v
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set applies one edit: the optimistic value is visible via Value
// immediately, and the debounce timer restarts so further edits to this or
// any other field coalesce into the same batch.
func (s *EditSession) Set(fieldID string, v types.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	s.local[fieldID] = v
	s.pending[fieldID] = v
	s.state = StateDirty

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.commitAsync)
	s.state = StateDebouncing
	return nil
}

// Value returns the current optimistic value of a field.
func (s *EditSession) Value(fieldID string) (types.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.local[fieldID]
	return v, ok
}

// State returns the current session state.
func (s *EditSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Flush commits any pending batch synchronously, cancelling the timer
// first. Safe to call with nothing pending.
func (s *EditSession) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	return s.commit(ctx)
}

// Close flushes any pending edits and shuts the session down. The timer is
// cancelled before anything else, so no write for this item can fire after
// Close returns.
func (s *EditSession) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	err := s.commit(ctx)

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.inflight.Wait()
	return err
}

// Discard cancels the timer and drops all pending edits without writing,
// rolling the optimistic state back to the last known-good snapshot.
func (s *EditSession) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	for id := range s.pending {
		if base, ok := s.baseline[id]; ok {
			s.local[id] = base
		} else {
			delete(s.local, id)
		}
	}
	s.pending = make(map[string]types.Value)
	s.state = StateIdle
	s.closed = true
}

// commitAsync is the timer callback; commit errors surface through the
// error handler, not a return value, because nobody is waiting on a timer.
func (s *EditSession) commitAsync() {
	s.inflight.Add(1)
	defer s.inflight.Done()
	_ = s.commit(context.Background())
}

// commit sends the accumulated batch, reconciles on success, and rolls back
// the optimistic state on failure. Edits arriving while the commit is in
// flight land in a fresh pending batch and are neither lost nor clobbered
// by reconciliation.
func (s *EditSession) commit(ctx context.Context) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	if len(s.pending) == 0 {
		s.state = StateIdle
		s.mu.Unlock()
		return nil
	}
	batch := s.pending
	s.pending = make(map[string]types.Value)
	s.state = StateCommitting
	s.mu.Unlock()

	updates := make([]types.ValueUpdate, 0, len(batch))
	for id, v := range batch {
		updates = append(updates, types.ValueUpdate{FieldID: id, Value: v})
	}

	canonical, err := s.committer.UpdateItemFields(ctx, s.itemID, updates)

	s.mu.Lock()
	if err != nil {
		s.state = StateReverting
		for id := range batch {
			if _, edited := s.pending[id]; edited {
				continue // a newer edit owns this field now
			}
			if base, ok := s.baseline[id]; ok {
				s.local[id] = base
			} else {
				delete(s.local, id)
			}
		}
		s.state = StateIdle
		handler := s.onError
		s.mu.Unlock()
		if handler != nil {
			handler(err)
		}
		return err
	}

	for _, fv := range canonical {
		s.baseline[fv.FieldID] = fv.Value
		if _, edited := s.pending[fv.FieldID]; !edited {
			s.local[fv.FieldID] = fv.Value
		}
	}
	if len(s.pending) == 0 {
		s.state = StateIdle
	}
	s.mu.Unlock()
	return nil
}
