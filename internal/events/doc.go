// Package events carries task lifecycle notifications from the scheduler to
// the components that react to them.
//
// The scheduler emits a TaskEvent whenever a task reaches a terminal state.
// Handlers (session activity tracking, task history persistence) register
// with an EventEmitter and never see the scheduler directly, which keeps the
// task package free of dependencies on sessions or storage.
package events
