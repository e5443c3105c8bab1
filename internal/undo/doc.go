// Package undo reverts executed plans by replaying their rollback groups in
// reverse, guarding every step against files that moved or vanished since
// execution.
package undo
