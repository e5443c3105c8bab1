// Package plan defines the plan data model and the builder that assembles
// classification results into a persisted batch of proposed moves. Plans are
// immutable once built: one item per file, each tagged allowed or blocked
// with a reason and an audit trail.
package plan
