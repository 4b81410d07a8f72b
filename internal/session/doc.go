// Package session tracks per-user working sessions.
//
// A session groups the bursts of requests one user makes. The Store holds
// session state behind a single mutex; the Manager layers policy on top:
// reuse of the newest active session, activity tracking, and reaping of
// sessions that have been idle past a threshold and no longer back any
// running task.
package session
