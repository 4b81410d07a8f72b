// Package dispatch turns incoming requests into scheduled tasks.
//
// The Dispatcher validates a request against the operation table, resolves
// its priority and resource requirement, attaches it to the user's session
// and submits it to the scheduler. It returns as soon as the task is queued
// or refused; results are observed later through status polling.
package dispatch
