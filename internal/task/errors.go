package task

import "errors"

// Admission and lookup errors returned by the Manager.
var (
	// ErrAdmissionRejected is returned when a requirement exceeds a per-task ceiling.
	ErrAdmissionRejected = errors.New("resource requirement exceeds per-task ceiling")

	// ErrQueueFull is returned when the queue depth bound has been reached.
	ErrQueueFull = errors.New("task queue is full")

	// ErrManagerStopped is returned for submissions after Stop, and recorded as
	// the failure of tasks still queued when the manager stopped.
	ErrManagerStopped = errors.New("scheduler stopped")

	// ErrAlreadySubmitted is returned when a task is submitted twice.
	ErrAlreadySubmitted = errors.New("task already submitted")

	// ErrTaskNotFound is returned by Lookup for unknown or expired task ids.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidTask is returned by New for malformed task specs.
	ErrInvalidTask = errors.New("invalid task")
)

// Execution errors recorded on terminal tasks.
var (
	// ErrTimeout is recorded when a running task outlives its deadline.
	ErrTimeout = errors.New("task timed out")

	// ErrWorkPanicked is recorded when a unit of work panics.
	ErrWorkPanicked = errors.New("unit of work panicked")
)
