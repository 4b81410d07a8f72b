// Package resource models the finite compute budgets (CPU, memory, GPU) that
// background work runs under.
//
// A Pool tracks how much of each kind is currently reserved. Reservations are
// all-or-nothing: TryReserve either commits every requested kind or none of
// them. Pool is pure accounting and starts no goroutines of its own; the task
// manager owns the only instance and is the only caller that reserves or
// releases.
package resource
