// Package task admits, queues, schedules and executes units of work against a
// shared resource pool.
//
// A Manager owns every submitted Task. Admission rejects requirements that no
// task may ever hold, queues everything else by priority (FIFO within a
// band), and a single scheduling loop starts queued tasks whenever the pool
// can reserve their requirement. Running tasks are bounded by a deadline;
// when it passes the work is cancelled and, after a grace period, its
// resources are released whether or not the work has returned.
//
// Terminal transitions are published as events.TaskEvent, and terminal task
// records stay available for polling through Lookup for a bounded time.
package task
