package classify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"docket/internal/config"
	"docket/internal/extract"
	"docket/internal/logging"
	"docket/internal/plan"
	"docket/internal/services"
	"docket/internal/store"
)

// Orchestrator fans a batch of files out to a fixed worker pool for
// extraction. Workers are pure: they read files and produce outcomes over a
// channel to a single aggregator, never touching the store, so the result
// set is identical for any worker count. All store writes happen serially in
// the orchestrating goroutine.
type Orchestrator struct {
	store     *store.Store
	extractor extract.Extractor
	workers   int
	logger    *slog.Logger

	processed atomic.Int64
	total     atomic.Int64
}

// New builds an orchestrator whose extractor is wrapped with the configured
// per-file timeout and retry policy.
func New(st *store.Store, extractor extract.Extractor, cfg *config.Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	wrapped := extract.WithRetry(extractor, services.RetryPolicy{
		MaxAttempts: cfg.Workflow.ExtractMaxAttempts,
		Backoff:     time.Duration(cfg.Workflow.ExtractRetryBackoffMS) * time.Millisecond,
	})
	wrapped = extract.WithTimeout(wrapped, time.Duration(cfg.Workflow.ExtractTimeoutSeconds)*time.Second)

	return &Orchestrator{
		store:     st,
		extractor: wrapped,
		workers:   cfg.Workflow.WorkerCount,
		logger:    logging.NewComponentLogger(logger, "classify"),
	}
}

// Progress reports how many files of the current batch have finished. The
// counter is advisory; the authoritative outcome is the returned slice.
func (o *Orchestrator) Progress() (done, total int64) {
	return o.processed.Load(), o.total.Load()
}

type job struct {
	fileID string
	path   string
}

// ClassifyBatch registers every path with the store, extracts metadata
// concurrently, then records the successful classifications. A file whose
// extraction fails stays in the batch as a failed classification; only
// discovery errors (unreadable files, store faults) abort the whole batch.
func (o *Orchestrator) ClassifyBatch(ctx context.Context, paths []string) ([]plan.Classification, error) {
	jobs := make([]job, 0, len(paths))
	for _, path := range paths {
		tracked, err := o.store.EnsureTracked(ctx, path)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job{fileID: tracked.FileID, path: path})
	}

	o.processed.Store(0)
	o.total.Store(int64(len(jobs)))

	log := logging.WithContext(ctx, o.logger)
	log.Info("classifying batch", logging.Int("files", len(jobs)), logging.Int("workers", o.workers))

	jobCh := make(chan job)
	resultCh := make(chan plan.Classification)

	var wg sync.WaitGroup
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				resultCh <- o.classifyOne(ctx, j)
				o.processed.Add(1)
			}
		}()
	}

	go func() {
		defer close(jobCh)
		for _, j := range jobs {
			select {
			case jobCh <- j:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]plan.Classification, 0, len(jobs))
	for c := range resultCh {
		results = append(results, c)
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	failed := 0
	for i, c := range results {
		if c.Failed() {
			failed++
			continue
		}
		if err := o.store.UpdateClassification(ctx, c.FileID, c.Result.GroupingKey, c.Result.Confidence); err != nil {
			results[i] = plan.ClassificationFailed(c.FileID, c.Path, err)
			failed++
		}
	}
	log.Info("batch classified", logging.Int("files", len(results)), logging.Int("failed", failed))
	return results, nil
}

func (o *Orchestrator) classifyOne(ctx context.Context, j job) plan.Classification {
	result, err := o.extractor.Extract(ctx, j.path)
	if err != nil {
		return plan.ClassificationFailed(j.fileID, j.path, err)
	}
	return plan.Classified(j.fileID, j.path, result)
}
