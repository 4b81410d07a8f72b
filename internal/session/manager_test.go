package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/phrazzld/focus-api/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewManager(NewStore(), logger,
		WithClock(mock),
		WithInactivityThreshold(10*time.Minute))
	return m, mock
}

func TestManager_CreateGetEnd(t *testing.T) {
	t.Parallel()
	m, mock := newTestManager(t)

	id, err := m.Create("u1")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	sess, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.UserID)
	assert.True(t, sess.IsActive)
	assert.Equal(t, mock.Now().UTC(), sess.CreatedAt)
	assert.Equal(t, sess.CreatedAt, sess.LastActivity)

	assert.False(t, m.End("unknown"))
	assert.True(t, m.End(id))

	_, err = m.Get(id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.False(t, m.End(id))
}

func TestManager_CreateRequiresUser(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t)

	_, err := m.Create("  ")
	assert.ErrorIs(t, err, ErrInvalidUser)

	_, _, err = m.GetOrCreate("")
	assert.ErrorIs(t, err, ErrInvalidUser)
}

func TestManager_GetOrCreateConcurrentBurst(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t)

	const callers = 50
	ids := make(chan string, callers)
	var created sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0

	for i := 0; i < callers; i++ {
		created.Add(1)
		go func() {
			defer created.Done()
			sess, isNew, err := m.GetOrCreate("u1")
			assert.NoError(t, err)
			if isNew {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
			ids <- sess.ID
		}()
	}
	created.Wait()
	close(ids)

	first := ""
	for id := range ids {
		if first == "" {
			first = id
		}
		assert.Equal(t, first, id)
	}
	assert.Equal(t, 1, createdCount)

	stats := m.Stats()
	assert.Equal(t, 1, stats.TotalSessions)
	assert.Equal(t, 1, stats.ActiveSessions)
	assert.Equal(t, 1, stats.ActiveUsers)
}

func TestManager_GetOrCreateAfterIdle(t *testing.T) {
	t.Parallel()
	m, mock := newTestManager(t)

	first, created, err := m.GetOrCreate("u1")
	require.NoError(t, err)
	assert.True(t, created)

	mock.Add(5 * time.Minute)
	again, created, err := m.GetOrCreate("u1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	mock.Add(11 * time.Minute)
	fresh, created, err := m.GetOrCreate("u1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, fresh.ID)

	other, _, err := m.GetOrCreate("u2")
	require.NoError(t, err)
	assert.NotEqual(t, fresh.ID, other.ID)
}

func TestManager_RecordActivity(t *testing.T) {
	t.Parallel()
	m, mock := newTestManager(t)

	id, err := m.Create("u1")
	require.NoError(t, err)

	mock.Add(8 * time.Minute)
	assert.True(t, m.RecordActivity(id))
	assert.False(t, m.RecordActivity("unknown"))

	mock.Add(8 * time.Minute)
	assert.Zero(t, m.CleanupInactive())

	sess, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, sess.CreatedAt.Add(8*time.Minute), sess.LastActivity)
}

func TestManager_CleanupInactive(t *testing.T) {
	t.Parallel()
	m, mock := newTestManager(t)

	idle, err := m.Create("u1")
	require.NoError(t, err)
	busy, err := m.Create("u2")
	require.NoError(t, err)
	require.True(t, m.TrackTask(busy))

	mock.Add(20 * time.Minute)
	fresh, err := m.Create("u3")
	require.NoError(t, err)

	assert.Equal(t, 1, m.CleanupInactive())
	_, err = m.Get(idle)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get(busy)
	assert.NoError(t, err, "sessions referenced by running tasks survive")
	_, err = m.Get(fresh)
	assert.NoError(t, err)

	stats := m.Stats()
	assert.Equal(t, 2, stats.TotalSessions)
	assert.Equal(t, 1, stats.ActiveSessions)
	assert.Equal(t, 1, stats.InFlightTasks)

	require.True(t, m.UntrackTask(busy))
	assert.Equal(t, 1, m.CleanupInactive())
	assert.Equal(t, 1, m.Stats().TotalSessions)
}

func TestManager_StatsAfterEnd(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t)

	id, err := m.Create("u1")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Stats().TotalSessions)

	require.True(t, m.End(id))
	assert.Equal(t, Stats{}, m.Stats())
}

func TestActivityHandler(t *testing.T) {
	t.Parallel()
	m, mock := newTestManager(t)

	id, err := m.Create("u1")
	require.NoError(t, err)
	require.True(t, m.TrackTask(id))

	mock.Add(3 * time.Minute)
	handler := NewActivityHandler(m)
	err = handler.HandleEvent(context.Background(), &events.TaskEvent{
		TaskID:    "t1",
		SessionID: id,
		Status:    "completed",
	})
	require.NoError(t, err)

	sess, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, mock.Now().UTC(), sess.LastActivity)
	assert.Equal(t, 0, m.store.InFlight(id))

	// Events without a session or for ended sessions are ignored.
	assert.NoError(t, handler.HandleEvent(context.Background(), &events.TaskEvent{TaskID: "t2"}))
	require.True(t, m.End(id))
	assert.NoError(t, handler.HandleEvent(context.Background(), &events.TaskEvent{TaskID: "t3", SessionID: id}))
}

func TestStore_InFlightNeverNegative(t *testing.T) {
	t.Parallel()
	s := NewStore()
	s.Put(Session{ID: "s1", UserID: "u1", IsActive: true})

	assert.True(t, s.AdjustInFlight("s1", -1))
	assert.Equal(t, 0, s.InFlight("s1"))
	assert.False(t, s.AdjustInFlight("missing", 1))
}
