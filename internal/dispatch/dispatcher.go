package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/phrazzld/focus-api/internal/cache"
	"github.com/phrazzld/focus-api/internal/session"
	"github.com/phrazzld/focus-api/internal/task"
)

// Response statuses.
const (
	StatusQueued = "queued"
	StatusError  = "error"
)

// Request is one unit of work asked for by a user.
type Request struct {
	Type     string          `json:"type"`
	Priority string          `json:"priority,omitempty"`
	Content  json.RawMessage `json:"content"`
	// Timeout in seconds; zero means the default
	Timeout float64 `json:"timeout,omitempty"`
}

// Response reports what happened to a Request at admission time.
type Response struct {
	Status    string `json:"status"`
	TaskID    string `json:"task_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Scheduler admits tasks. *task.Manager implements it.
type Scheduler interface {
	Submit(t *task.Task) (task.Status, error)
}

// Sessions resolves and tracks sessions. *session.Manager implements it.
type Sessions interface {
	GetOrCreate(userID string) (session.Session, bool, error)
	RecordActivity(id string) bool
	TrackTask(id string) bool
	UntrackTask(id string) bool
}

// RequestObserver is told the outcome of every request.
type RequestObserver interface {
	ObserveRequest(opType, status string)
}

// Config holds dispatch timeouts.
type Config struct {
	DefaultTimeout time.Duration
	MaxTimeout     time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithCache serves repeated identical requests from results.
func WithCache(results *cache.Results) Option {
	return func(d *Dispatcher) { d.cache = results }
}

// WithObserver reports request outcomes to o.
func WithObserver(o RequestObserver) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// Dispatcher validates requests and submits them as tasks.
type Dispatcher struct {
	table     Table
	scheduler Scheduler
	sessions  Sessions
	config    Config
	logger    *slog.Logger
	cache     *cache.Results
	observer  RequestObserver
}

// New creates a Dispatcher.
func New(table Table, scheduler Scheduler, sessions Sessions, cfg Config, logger *slog.Logger, opts ...Option) *Dispatcher {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = task.DefaultConfig().DefaultTimeout
	}
	if cfg.MaxTimeout < cfg.DefaultTimeout {
		cfg.MaxTimeout = cfg.DefaultTimeout
	}

	d := &Dispatcher{
		table:     table,
		scheduler: scheduler,
		sessions:  sessions,
		config:    cfg,
		logger:    logger.With("component", "dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandleRequest validates req, attaches it to the user's session and submits
// it. The returned Response is always populated; the error carries the
// failure class for callers that map it further. HandleRequest never waits
// for the work to run.
func (d *Dispatcher) HandleRequest(ctx context.Context, userID string, req Request) (Response, error) {
	resp, err := d.handle(ctx, userID, req)
	if err != nil {
		resp.Status = StatusError
		resp.Error = err.Error()
	}
	if d.observer != nil {
		d.observer.ObserveRequest(observedType(d.table, req.Type), resp.Status)
	}
	return resp, err
}

func (d *Dispatcher) handle(ctx context.Context, userID string, req Request) (Response, error) {
	op, ok := d.table.Lookup(req.Type)
	if !ok {
		return Response{}, fmt.Errorf("%w: %w: %q", ErrValidation, ErrUnknownOperation, req.Type)
	}

	timeout, err := d.resolveTimeout(req.Timeout)
	if err != nil {
		return Response{}, err
	}

	work, err := op.Handler.Build(req.Content)
	if err != nil {
		if !errors.Is(err, ErrValidation) {
			err = fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return Response{}, err
	}

	sess, created, err := d.sessions.GetOrCreate(userID)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	d.sessions.RecordActivity(sess.ID)

	if d.cache != nil {
		work = d.cached(req.Type, req.Content, work)
	}

	priority := task.ParsePriority(req.Priority)
	t, err := task.New(task.Spec{
		UserID:      userID,
		SessionID:   sess.ID,
		Type:        op.Type,
		Priority:    priority,
		Requirement: op.Requirement,
		Timeout:     timeout,
		Work:        work,
	})
	if err != nil {
		return Response{SessionID: sess.ID}, err
	}

	log := d.logger.With(
		"task_id", t.ID(),
		"task_type", op.Type,
		"user_id", userID,
		"session_id", sess.ID,
		"priority", priority.String(),
	)

	d.sessions.TrackTask(sess.ID)
	if _, err := d.scheduler.Submit(t); err != nil {
		d.sessions.UntrackTask(sess.ID)
		log.Warn("request refused", "error", err)
		return Response{TaskID: t.ID(), SessionID: sess.ID}, err
	}

	log.InfoContext(ctx, "request queued", "new_session", created, "timeout", timeout)
	return Response{Status: StatusQueued, TaskID: t.ID(), SessionID: sess.ID}, nil
}

func (d *Dispatcher) resolveTimeout(seconds float64) (time.Duration, error) {
	if math.IsNaN(seconds) || seconds < 0 {
		return 0, fmt.Errorf("%w: timeout must be a non-negative number of seconds", ErrValidation)
	}
	if seconds == 0 {
		return d.config.DefaultTimeout, nil
	}
	if seconds >= d.config.MaxTimeout.Seconds() {
		return d.config.MaxTimeout, nil
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// cached wraps work so a stored result for identical content short-circuits
// the call, and a fresh success is stored.
func (d *Dispatcher) cached(opType string, content json.RawMessage, work task.UnitOfWork) task.UnitOfWork {
	key, err := cache.Key(opType, content)
	if err != nil {
		return work
	}
	results := d.cache
	return task.WorkFunc(func(ctx context.Context) (json.RawMessage, error) {
		if v, ok := results.Get(key); ok {
			return v, nil
		}
		v, err := work.Run(ctx)
		if err == nil {
			results.Add(key, v)
		}
		return v, err
	})
}

// observedType keeps metric label cardinality bounded.
func observedType(table Table, opType string) string {
	if _, ok := table.Lookup(opType); ok {
		return opType
	}
	if strings.TrimSpace(opType) == "" {
		return "missing"
	}
	return "unknown"
}
