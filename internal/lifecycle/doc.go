// Package lifecycle models the fixed progression a tracked file moves
// through: unclassified -> active -> filed -> locked, with archived as a
// parallel terminal state reachable from active or filed. Filed and locked
// files are immutable for automated moves; enforcement of that rule lives in
// the plan builder so routing stays pure.
package lifecycle
