package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/focus-api/internal/events"
	"github.com/phrazzld/focus-api/internal/redact"
	"github.com/phrazzld/focus-api/internal/resource"
)

// Config holds scheduling configuration for a Manager.
type Config struct {
	// QueueSize bounds the number of queued tasks. Zero means unbounded.
	QueueSize int

	// DefaultTimeout applies to tasks submitted without a timeout.
	DefaultTimeout time.Duration

	// GracePeriod is how long a cancelled unit of work may keep its
	// resources before they are released anyway.
	GracePeriod time.Duration

	// HistorySize and HistoryTTL bound the terminal task records kept for Lookup.
	HistorySize int
	HistoryTTL  time.Duration
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		QueueSize:      1000,
		DefaultTimeout: 300 * time.Second,
		GracePeriod:    5 * time.Second,
		HistorySize:    1000,
		HistoryTTL:     time.Hour,
	}
}

// TaskCounts summarises tasks by status. Total counts every admitted or
// rejected submission since the manager was created.
type TaskCounts struct {
	Total     int `json:"total"`
	Queued    int `json:"queued"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Rejected  int `json:"rejected"`
	TimedOut  int `json:"timed_out"`
}

// Stats is a consistent snapshot of pool usage and task counts.
type Stats struct {
	Resources map[resource.Kind]resource.Usage `json:"resources"`
	Tasks     TaskCounts                       `json:"tasks"`
}

// completion is what an execution reports back to the scheduling loop.
type completion struct {
	task   *Task
	status Status
	result json.RawMessage
	err    error
}

// Manager admits tasks, schedules them against a resource pool and tracks
// them until they reach a terminal state.
type Manager struct {
	pool    *resource.Pool
	config  Config
	logger  *slog.Logger
	emitter events.EventEmitter
	history *history

	mu      sync.Mutex
	queue   *priorityQueue
	running map[string]*Task
	counts  TaskCounts
	started bool
	stopped bool

	wake chan struct{}
	done chan completion
	quit chan struct{}

	loopDone chan struct{}
	drained  chan struct{}

	runCtx    context.Context
	cancelRun context.CancelFunc
	wg        sync.WaitGroup
	emitWG    sync.WaitGroup

	errHandler func(info TaskInfo, err error)
}

// NewManager creates a Manager over pool. emitter may be nil.
func NewManager(pool *resource.Pool, config Config, logger *slog.Logger, emitter events.EventEmitter) *Manager {
	defaults := DefaultConfig()
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = defaults.DefaultTimeout
	}
	if config.GracePeriod <= 0 {
		config.GracePeriod = defaults.GracePeriod
	}
	if config.HistorySize <= 0 {
		config.HistorySize = defaults.HistorySize
	}
	if config.HistoryTTL <= 0 {
		config.HistoryTTL = defaults.HistoryTTL
	}
	if config.QueueSize < 0 {
		config.QueueSize = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	logger = logger.With("component", "task_manager")

	return &Manager{
		pool:      pool,
		config:    config,
		logger:    logger,
		emitter:   emitter,
		history:   newHistory(config.HistorySize, config.HistoryTTL),
		queue:     newPriorityQueue(),
		running:   make(map[string]*Task),
		wake:      make(chan struct{}, 1),
		done:      make(chan completion),
		quit:      make(chan struct{}),
		loopDone:  make(chan struct{}),
		drained:   make(chan struct{}),
		runCtx:    ctx,
		cancelRun: cancel,
		errHandler: func(info TaskInfo, err error) {
			logger.Error("task execution failed",
				"task_id", info.ID,
				"task_type", info.Type,
				"status", info.Status,
				"error", err)
		},
	}
}

// SetErrorHandler replaces the handler invoked for failed and timed out tasks.
// It must be called before Start.
func (m *Manager) SetErrorHandler(handler func(info TaskInfo, err error)) {
	m.errHandler = handler
}

// Start launches the scheduling loop.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || m.stopped {
		return
	}
	m.started = true

	m.logger.Info("starting task manager",
		"queue_size", m.config.QueueSize,
		"default_timeout", m.config.DefaultTimeout,
		"grace_period", m.config.GracePeriod,
		"pool", m.pool.String())

	go m.loop()
	m.notify()
}

// Submit admits t. A requirement above any per-task ceiling is rejected
// without being queued; otherwise the task is queued and the scheduling loop
// is woken. Submit never waits for the task to run.
func (m *Manager) Submit(t *Task) (Status, error) {
	log := m.taskLogger(t)

	m.mu.Lock()
	if m.stopped {
		status := t.status
		m.mu.Unlock()
		return status, ErrManagerStopped
	}
	if t.status != StatusPending {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrAlreadySubmitted, t.id)
	}

	if m.pool.ExceedsCeiling(t.requirement) {
		t.status = StatusRejected
		t.finishedAt = time.Now().UTC()
		t.errDetail = ErrAdmissionRejected.Error()
		m.counts.Total++
		m.counts.Rejected++
		m.history.add(t.info())
		m.mu.Unlock()

		log.Warn("task rejected at admission", "requirement", t.requirement.String())
		return StatusRejected, fmt.Errorf("%w: %s", ErrAdmissionRejected, t.requirement)
	}

	if m.config.QueueSize > 0 && m.queue.Len() >= m.config.QueueSize {
		m.mu.Unlock()
		log.Warn("task queue full", "queue_size", m.config.QueueSize)
		return StatusPending, fmt.Errorf("%w: capacity %d reached", ErrQueueFull, m.config.QueueSize)
	}

	if t.timeout <= 0 {
		t.timeout = m.config.DefaultTimeout
	}
	t.status = StatusQueued
	m.queue.push(t)
	m.counts.Total++
	depth := m.queue.Len()
	m.mu.Unlock()

	log.Debug("task queued", "queue_len", depth, "requirement", t.requirement.String())
	m.notify()
	return StatusQueued, nil
}

// Lookup returns the current view of a live task or the retained record of a
// terminal one.
func (m *Manager) Lookup(id string) (TaskInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.running[id]; ok {
		return t.info(), nil
	}
	for _, band := range m.queue.bands {
		for _, t := range band {
			if t.id == id {
				return t.info(), nil
			}
		}
	}
	if info, ok := m.history.get(id); ok {
		return info, nil
	}
	return TaskInfo{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
}

// Stats returns pool usage and task counts taken under a single lock, so
// allocations always match the set of running tasks.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := m.counts
	counts.Queued = m.queue.Len()
	counts.Running = len(m.running)

	return Stats{
		Resources: m.pool.Snapshot(),
		Tasks:     counts,
	}
}

// Stop refuses further submissions, fails every queued task, cancels running
// work and waits for it to report back or for ctx to expire.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return m.waitDrained(ctx)
	}
	m.stopped = true
	started := m.started

	now := time.Now().UTC()
	dropped := m.queue.drain()
	infos := make([]TaskInfo, 0, len(dropped))
	for _, t := range dropped {
		t.status = StatusFailed
		t.finishedAt = now
		t.errDetail = ErrManagerStopped.Error()
		m.counts.Failed++
		info := t.info()
		m.history.add(info)
		infos = append(infos, info)
	}
	running := len(m.running)
	m.mu.Unlock()

	m.logger.Info("stopping task manager",
		"dropped_queued", len(dropped),
		"running", running)

	for _, info := range infos {
		m.publish(info)
	}

	m.cancelRun()

	go func() {
		m.wg.Wait()
		close(m.quit)
		if started {
			<-m.loopDone
		}
		m.emitWG.Wait()
		close(m.drained)
	}()

	return m.waitDrained(ctx)
}

func (m *Manager) waitDrained(ctx context.Context) error {
	select {
	case <-m.drained:
		m.logger.Info("task manager stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running tasks: %w", ctx.Err())
	}
}

// notify wakes the scheduling loop without blocking.
func (m *Manager) notify() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// loop is the only goroutine that moves tasks out of queued or running.
func (m *Manager) loop() {
	defer close(m.loopDone)

	for {
		select {
		case <-m.wake:
			m.schedule()
		case c := <-m.done:
			m.finish(c)
			m.schedule()
		case <-m.quit:
			return
		}
	}
}

// schedule starts queued tasks in priority order, FIFO within a priority,
// until the head of the queue does not fit. Later or lower-priority tasks
// never start ahead of a waiting head.
func (m *Manager) schedule() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}

	startable := m.queue.takeReady(func(t *Task) bool {
		return m.pool.TryReserve(t.requirement)
	})

	now := time.Now().UTC()
	for _, t := range startable {
		t.status = StatusRunning
		t.startedAt = now
		m.running[t.id] = t
		m.wg.Add(1)
	}
	m.mu.Unlock()

	for _, t := range startable {
		m.taskLogger(t).Debug("task started", "timeout", t.timeout)
		go m.execute(t)
	}
}

// execute runs the unit of work under its deadline and reports the outcome to
// the loop. Work that ignores cancellation is abandoned after the grace period.
func (m *Manager) execute(t *Task) {
	defer m.wg.Done()

	ctx, cancel := context.WithTimeout(m.runCtx, t.timeout)
	defer cancel()

	type outcome struct {
		result json.RawMessage
		err    error
	}
	out := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				out <- outcome{err: fmt.Errorf("%w: %v", ErrWorkPanicked, r)}
			}
		}()
		result, err := t.work.Run(ctx)
		out <- outcome{result: result, err: err}
	}()

	var c completion
	select {
	case o := <-out:
		c = m.classify(ctx, t, o.result, o.err)
	case <-ctx.Done():
		grace := time.NewTimer(m.config.GracePeriod)
		select {
		case o := <-out:
			grace.Stop()
			c = m.classify(ctx, t, o.result, o.err)
		case <-grace.C:
			m.taskLogger(t).Warn("unit of work ignored cancellation, releasing resources",
				"grace_period", m.config.GracePeriod)
			c = m.classify(ctx, t, nil, ctx.Err())
		}
	}

	m.done <- c
}

func (m *Manager) classify(ctx context.Context, t *Task, result json.RawMessage, err error) completion {
	switch {
	case err == nil && ctx.Err() == nil:
		return completion{task: t, status: StatusCompleted, result: result}
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return completion{task: t, status: StatusTimedOut, err: fmt.Errorf("%w after %s", ErrTimeout, t.timeout)}
	case m.runCtx.Err() != nil:
		return completion{task: t, status: StatusFailed, err: ErrManagerStopped}
	case err == nil:
		return completion{task: t, status: StatusCompleted, result: result}
	default:
		return completion{task: t, status: StatusFailed, err: err}
	}
}

// finish records a terminal transition and releases the task's resources.
func (m *Manager) finish(c completion) {
	t := c.task

	m.mu.Lock()
	if t.status != StatusRunning {
		m.mu.Unlock()
		return
	}
	t.status = c.status
	t.finishedAt = time.Now().UTC()
	t.result = c.result
	if c.err != nil {
		t.errDetail = redact.Error(c.err)
	}
	delete(m.running, t.id)
	m.pool.Release(t.requirement)

	switch c.status {
	case StatusCompleted:
		m.counts.Completed++
	case StatusTimedOut:
		m.counts.TimedOut++
	default:
		m.counts.Failed++
	}
	info := t.info()
	m.history.add(info)
	m.mu.Unlock()

	log := m.taskLogger(t)
	duration := info.FinishedAt.Sub(t.startedAt)
	if c.err != nil {
		log.Warn("task finished", "status", c.status, "duration", duration, "error", info.Error)
		m.errHandler(info, c.err)
	} else {
		log.Info("task finished", "status", c.status, "duration", duration)
	}

	m.publish(info)
}

// publish hands a terminal record to the emitter off the loop goroutine so
// slow handlers never delay scheduling.
func (m *Manager) publish(info TaskInfo) {
	if m.emitter == nil {
		return
	}

	event := &events.TaskEvent{
		TaskID:    info.ID,
		UserID:    info.UserID,
		SessionID: info.SessionID,
		Type:      info.Type,
		Status:    string(info.Status),
		Priority:  info.Priority,
		Error:     info.Error,
		Result:    info.Result,
		CreatedAt: info.CreatedAt,
	}
	if info.StartedAt != nil {
		event.StartedAt = *info.StartedAt
	}
	if info.FinishedAt != nil {
		event.FinishedAt = *info.FinishedAt
	}

	m.emitWG.Add(1)
	go func() {
		defer m.emitWG.Done()
		if err := m.emitter.EmitEvent(context.Background(), event); err != nil {
			m.logger.Error("failed to emit task event", "task_id", event.TaskID, "error", err)
		}
	}()
}

func (m *Manager) taskLogger(t *Task) *slog.Logger {
	return m.logger.With(
		"task_id", t.id,
		"task_type", t.opType,
		"user_id", t.userID,
		"session_id", t.sessionID,
		"priority", t.priority.String(),
	)
}
