package payment

import (
	"context"
	"sync"
)

// Session is one purchase attempt from submission to terminal state. Its
// snapshot is updated by the polling loop and read by the status endpoint;
// the cancel handle lives only inside the registry.
type Session struct {
	ID            string
	MAC           string
	CorrelationID int64

	mu     sync.RWMutex
	snap   Snapshot
	cancel CancelFunc
}

// Snapshot returns the latest observed state of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Observer receives every transition of a session, after the registry has
// recorded it.
type Observer func(session *Session, snap Snapshot)

// Sessions enforces the one-live-session-per-device invariant: beginning a
// new purchase for a MAC cancels the previous polling loop before the new
// one starts, so two loops can never race to update the same portal page.
type Sessions struct {
	poller *Poller

	mu    sync.Mutex
	byID  map[string]*Session
	byMAC map[string]*Session
}

// NewSessions creates the session registry.
func NewSessions(poller *Poller) *Sessions {
	return &Sessions{
		poller: poller,
		byID:   make(map[string]*Session),
		byMAC:  make(map[string]*Session),
	}
}

// Begin retires any live session for the MAC, then starts polling the given
// correlation id under the caller-supplied session id. The observer sees
// every transition; terminal snapshots also release the MAC slot.
func (s *Sessions) Begin(ctx context.Context, id, mac string, correlationID int64, observer Observer) *Session {
	sess := &Session{
		ID:            id,
		MAC:           mac,
		CorrelationID: correlationID,
		snap: Snapshot{
			CorrelationID: correlationID,
			State:         StatePending,
		},
	}

	s.mu.Lock()
	prev := s.byMAC[mac]
	s.byID[sess.ID] = sess
	s.byMAC[mac] = sess
	s.mu.Unlock()

	// Cancel outside the registry lock: the polling callback takes it when
	// releasing a terminal session.
	if prev != nil {
		prev.retire()
	}

	cancel := s.poller.Start(ctx, correlationID, func(snap Snapshot) {
		sess.mu.Lock()
		sess.snap = snap
		sess.mu.Unlock()

		if observer != nil {
			observer(sess, snap)
		}
		// The observer persists terminal snapshots before the session is
		// dropped here, so later status reads land on the audit table.
		if snap.State.Terminal() {
			s.release(sess)
		}
	})

	sess.mu.Lock()
	sess.cancel = cancel
	sess.mu.Unlock()

	return sess
}

// Get returns the session by id.
func (s *Sessions) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	return sess, ok
}

// Cancel retires a session explicitly, e.g. when the user navigates away.
func (s *Sessions) Cancel(id string) {
	s.mu.Lock()
	sess, ok := s.byID[id]
	s.mu.Unlock()
	if !ok {
		return
	}

	sess.retire()
	s.release(sess)
}

// retire invokes the session's cancel handle at most once.
func (s *Session) retire() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// release drops a session that can no longer transition. Sessions must not
// accumulate for the life of the process; final states stay readable through
// the audit table.
func (s *Sessions) release(sess *Session) {
	s.mu.Lock()
	if s.byMAC[sess.MAC] == sess {
		delete(s.byMAC, sess.MAC)
	}
	delete(s.byID, sess.ID)
	s.mu.Unlock()
}
