package session

import (
	"sync"
	"time"
)

// Session is the state kept for one user session.
type Session struct {
	ID           string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	IsActive     bool      `json:"is_active"`
}

type entry struct {
	session  Session
	inFlight int
}

// Store maps session ids to session state. All methods are safe for
// concurrent use and each one is atomic.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry
	// latest maps a user to the id of their most recently created session
	latest map[string]string
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*entry),
		latest:   make(map[string]string),
	}
}

// Put inserts s and makes it the user's latest session.
func (s *Store) Put(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(sess)
}

func (s *Store) putLocked(sess Session) {
	s.sessions[sess.ID] = &entry{session: sess}
	s.latest[sess.UserID] = sess.ID
}

// Get returns the session with the given id.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	return e.session, true
}

// GetOrPut returns the user's latest session when reuse accepts it.
// Otherwise it inserts the session returned by create. The check and the
// insert happen under one lock, so concurrent callers for the same user
// end up sharing a single new session.
func (s *Store) GetOrPut(userID string, reuse func(Session) bool, create func() Session) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.latest[userID]; ok {
		if e, ok := s.sessions[id]; ok && reuse(e.session) {
			return e.session, false
		}
	}

	sess := create()
	s.putLocked(sess)
	return sess, true
}

// Touch sets the last activity time of a session.
func (s *Store) Touch(id string, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return false
	}
	if at.After(e.session.LastActivity) {
		e.session.LastActivity = at
	}
	return true
}

// Delete removes a session and returns its final state.
func (s *Store) Delete(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	s.deleteLocked(id, e)
	return e.session, true
}

func (s *Store) deleteLocked(id string, e *entry) {
	delete(s.sessions, id)
	if s.latest[e.session.UserID] == id {
		delete(s.latest, e.session.UserID)
	}
}

// AdjustInFlight changes the number of running tasks referencing a session.
// The count never drops below zero.
func (s *Store) AdjustInFlight(id string, delta int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return false
	}
	e.inFlight += delta
	if e.inFlight < 0 {
		e.inFlight = 0
	}
	return true
}

// InFlight returns the number of tasks referencing a session.
func (s *Store) InFlight(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.sessions[id]; ok {
		return e.inFlight
	}
	return 0
}

// Sweep removes every session for which expired returns true and that no
// task references, returning the removed sessions.
func (s *Store) Sweep(expired func(Session) bool) []Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []Session
	for id, e := range s.sessions {
		if e.inFlight > 0 || !expired(e.session) {
			continue
		}
		s.deleteLocked(id, e)
		removed = append(removed, e.session)
	}
	return removed
}

// Each calls fn for every session with its in-flight count, under the lock.
func (s *Store) Each(fn func(sess Session, inFlight int)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.sessions {
		fn(e.session, e.inFlight)
	}
}
