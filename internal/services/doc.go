// Package services defines shared utilities consumed by the plan pipeline
// components and external adapters.
//
// Key responsibilities:
//   - Context helpers that stamp file, plan, and backup identifiers for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification consistent across components.
//   - RetryPolicy, the bounded retry used by the extractor adapter.
package services
