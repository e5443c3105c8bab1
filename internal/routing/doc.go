// Package routing maps extracted document metadata to a destination folder
// and target lifecycle state, recording an audit trail of every rule that
// shaped the decision. The engine is deterministic and side-effect free:
// rules are totally ordered by specificity with declaration order breaking
// ties, and low-confidence or ambiguous results are held for confirmation in
// a staging folder instead of being routed automatically.
package routing
