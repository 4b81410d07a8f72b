// Package api exposes the scheduler over HTTP: request submission, task
// status polling, session management and aggregate statistics.
//
// Handlers are thin. They decode and validate the request body, call into
// the dispatcher or managers, and map sentinel errors to status codes with
// MapErrorToStatusCode so internal messages never reach clients.
package api
