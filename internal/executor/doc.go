// Package executor applies organization plans to the filesystem. Moves are
// committed to the store one item at a time, each paired with a rollback
// entry, so an interrupted run leaves every completed move individually
// reversible.
package executor
