package task

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/focus-api/internal/resource"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRejected  Status = "rejected"
	StatusTimedOut  Status = "timed_out"
)

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusRejected, StatusTimedOut:
		return true
	}
	return false
}

// Priority orders queued tasks. Higher values are scheduled first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

// schedulingOrder lists the bands from most to least urgent.
var schedulingOrder = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityLow:
		return "low"
	default:
		return "medium"
	}
}

// ParsePriority maps "high" and "low" (case-insensitive) to their bands.
// Anything else, including the empty string, is medium.
func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return PriorityHigh
	case "low":
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// UnitOfWork is the opaque work a task runs. Implementations must return
// promptly once ctx is cancelled.
type UnitOfWork interface {
	Run(ctx context.Context) (json.RawMessage, error)
}

// WorkFunc adapts a function to UnitOfWork.
type WorkFunc func(ctx context.Context) (json.RawMessage, error)

// Run calls f(ctx).
func (f WorkFunc) Run(ctx context.Context) (json.RawMessage, error) {
	return f(ctx)
}

// Spec describes a task to be created.
type Spec struct {
	// ID is generated when empty
	ID        string
	UserID    string
	SessionID string
	// Type is the operation name, used for logging and reporting
	Type        string
	Priority    Priority
	Requirement resource.Requirement
	// Timeout of zero means the manager's default
	Timeout time.Duration
	Work    UnitOfWork
}

// Task is a unit of work together with its scheduling metadata.
// After submission, only the Manager changes its state.
type Task struct {
	id          string
	userID      string
	sessionID   string
	opType      string
	priority    Priority
	requirement resource.Requirement
	timeout     time.Duration
	work        UnitOfWork
	createdAt   time.Time

	// guarded by Manager.mu
	status     Status
	startedAt  time.Time
	finishedAt time.Time
	result     json.RawMessage
	errDetail  string
}

// New validates spec and returns a pending task.
func New(spec Spec) (*Task, error) {
	if spec.Work == nil {
		return nil, fmt.Errorf("%w: unit of work is required", ErrInvalidTask)
	}
	if spec.Timeout < 0 {
		return nil, fmt.Errorf("%w: negative timeout %s", ErrInvalidTask, spec.Timeout)
	}
	if spec.Priority < PriorityLow || spec.Priority > PriorityHigh {
		return nil, fmt.Errorf("%w: unknown priority %d", ErrInvalidTask, spec.Priority)
	}
	if err := spec.Requirement.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTask, err)
	}

	id := spec.ID
	if id == "" {
		id = uuid.NewString()
	}

	return &Task{
		id:          id,
		userID:      spec.UserID,
		sessionID:   spec.SessionID,
		opType:      spec.Type,
		priority:    spec.Priority,
		requirement: spec.Requirement.Clone(),
		timeout:     spec.Timeout,
		work:        spec.Work,
		createdAt:   time.Now().UTC(),
		status:      StatusPending,
	}, nil
}

func (t *Task) ID() string        { return t.id }
func (t *Task) UserID() string    { return t.userID }
func (t *Task) SessionID() string { return t.sessionID }
func (t *Task) Type() string      { return t.opType }
func (t *Task) Priority() Priority {
	return t.priority
}

// Timeout returns the task's deadline budget. Zero until submitted means the
// manager default applies.
func (t *Task) Timeout() time.Duration { return t.timeout }

// Requirement returns a copy of the task's resource requirement.
func (t *Task) Requirement() resource.Requirement {
	return t.requirement.Clone()
}

// TaskInfo is a point-in-time view of a task, safe to hand to callers.
type TaskInfo struct {
	ID          string               `json:"task_id"`
	UserID      string               `json:"user_id"`
	SessionID   string               `json:"session_id"`
	Type        string               `json:"type"`
	Priority    string               `json:"priority"`
	Status      Status               `json:"status"`
	Requirement resource.Requirement `json:"requirement"`
	CreatedAt   time.Time            `json:"created_at"`
	StartedAt   *time.Time           `json:"started_at,omitempty"`
	FinishedAt  *time.Time           `json:"finished_at,omitempty"`
	Result      json.RawMessage      `json:"result,omitempty"`
	Error       string               `json:"error,omitempty"`
}

// info must be called with Manager.mu held once the task is submitted.
func (t *Task) info() TaskInfo {
	ti := TaskInfo{
		ID:          t.id,
		UserID:      t.userID,
		SessionID:   t.sessionID,
		Type:        t.opType,
		Priority:    t.priority.String(),
		Status:      t.status,
		Requirement: t.requirement.Clone(),
		CreatedAt:   t.createdAt,
		Result:      t.result,
		Error:       t.errDetail,
	}
	if !t.startedAt.IsZero() {
		started := t.startedAt
		ti.StartedAt = &started
	}
	if !t.finishedAt.IsZero() {
		finished := t.finishedAt
		ti.FinishedAt = &finished
	}
	return ti
}
