// Package classify runs metadata extraction over batches of files with a
// bounded worker pool and hands the per-file outcomes to the plan builder.
package classify
