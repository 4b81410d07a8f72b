package session

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound is returned for unknown or ended session ids.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidUser is returned when a user id is empty.
	ErrInvalidUser = errors.New("user id is required")
)

// DefaultInactivityThreshold is how long a session may stay idle before it
// becomes eligible for reaping.
const DefaultInactivityThreshold = 30 * time.Minute

// Stats summarises the sessions currently held.
type Stats struct {
	TotalSessions  int `json:"total_sessions"`
	ActiveSessions int `json:"active_sessions"`
	ActiveUsers    int `json:"active_users"`
	InFlightTasks  int `json:"in_flight_tasks"`
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithInactivityThreshold sets the idle time after which a session is
// neither reused nor kept by CleanupInactive.
func WithInactivityThreshold(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.threshold = d
		}
	}
}

// Manager creates, resolves and reaps sessions.
type Manager struct {
	store     *Store
	clock     clock.Clock
	threshold time.Duration
	logger    *slog.Logger
}

// NewManager returns a Manager over store.
func NewManager(store *Store, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		clock:     clock.New(),
		threshold: DefaultInactivityThreshold,
		logger:    logger.With("component", "session_manager"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Threshold returns the configured inactivity threshold.
func (m *Manager) Threshold() time.Duration {
	return m.threshold
}

func (m *Manager) newSession(userID string) Session {
	now := m.clock.Now().UTC()
	return Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		CreatedAt:    now,
		LastActivity: now,
		IsActive:     true,
	}
}

// Create starts a new session for userID and returns its id.
func (m *Manager) Create(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", ErrInvalidUser
	}

	sess := m.newSession(userID)
	m.store.Put(sess)

	m.logger.Info("session created", "session_id", sess.ID, "user_id", userID)
	return sess.ID, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (Session, error) {
	sess, ok := m.store.Get(id)
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// GetOrCreate returns the user's newest session if it is still within the
// inactivity threshold, creating one otherwise. The boolean reports whether a
// new session was created.
func (m *Manager) GetOrCreate(userID string) (Session, bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Session{}, false, ErrInvalidUser
	}

	now := m.clock.Now()
	sess, created := m.store.GetOrPut(userID,
		func(s Session) bool { return s.IsActive && !m.idle(s, now) },
		func() Session { return m.newSession(userID) },
	)

	if created {
		m.logger.Info("session created", "session_id", sess.ID, "user_id", userID)
	}
	return sess, created, nil
}

// End removes a session. It returns false when the id is unknown.
func (m *Manager) End(id string) bool {
	sess, ok := m.store.Delete(id)
	if !ok {
		return false
	}
	m.logger.Info("session ended", "session_id", id, "user_id", sess.UserID)
	return true
}

// RecordActivity marks a session as used now.
func (m *Manager) RecordActivity(id string) bool {
	return m.store.Touch(id, m.clock.Now().UTC())
}

// TrackTask records that a task referencing the session is in flight.
func (m *Manager) TrackTask(id string) bool {
	return m.store.AdjustInFlight(id, 1)
}

// UntrackTask records that a task referencing the session has finished.
func (m *Manager) UntrackTask(id string) bool {
	return m.store.AdjustInFlight(id, -1)
}

// CleanupInactive removes sessions idle past the threshold that no running
// task references and returns how many were removed.
func (m *Manager) CleanupInactive() int {
	now := m.clock.Now()
	removed := m.store.Sweep(func(s Session) bool {
		return m.idle(s, now)
	})

	for _, s := range removed {
		m.logger.Debug("session reaped",
			"session_id", s.ID,
			"user_id", s.UserID,
			"idle", now.Sub(s.LastActivity))
	}
	if len(removed) > 0 {
		m.logger.Info("inactive sessions cleaned up", "count", len(removed))
	}
	return len(removed)
}

// Stats returns counts over the sessions currently held.
func (m *Manager) Stats() Stats {
	now := m.clock.Now()
	users := make(map[string]struct{})
	var stats Stats

	m.store.Each(func(s Session, inFlight int) {
		stats.TotalSessions++
		stats.InFlightTasks += inFlight
		if s.IsActive && !m.idle(s, now) {
			stats.ActiveSessions++
			users[s.UserID] = struct{}{}
		}
	})
	stats.ActiveUsers = len(users)
	return stats
}

func (m *Manager) idle(s Session, now time.Time) bool {
	return now.Sub(s.LastActivity) > m.threshold
}
