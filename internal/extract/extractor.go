package extract

import (
	"context"
	"time"

	"docket/internal/services"
)

// Result carries the metadata an extractor produced for one file.
type Result struct {
	DocType     string            `json:"doc_type"`
	GroupingKey string            `json:"grouping_key,omitempty"`
	Confidence  float64           `json:"confidence"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// Extractor produces metadata for a document. Implementations may perform
// I/O (file reads, LLM calls) and must honor the context.
type Extractor interface {
	Extract(ctx context.Context, path string) (Result, error)
}

// Func adapts a plain function to the Extractor interface.
type Func func(ctx context.Context, path string) (Result, error)

func (f Func) Extract(ctx context.Context, path string) (Result, error) {
	return f(ctx, path)
}

// WithTimeout bounds every Extract call so a single slow file cannot starve
// a classification worker. Timeouts surface as services.ErrTimeout.
func WithTimeout(inner Extractor, timeout time.Duration) Extractor {
	if timeout <= 0 {
		return inner
	}
	return Func(func(ctx context.Context, path string) (Result, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		result, err := inner.Extract(ctx, path)
		if err != nil && ctx.Err() == context.DeadlineExceeded {
			return Result{}, services.Wrap(services.ErrTimeout, "extract", "extract metadata", "Extractor exceeded per-file budget", err)
		}
		return result, err
	})
}

// WithRetry retries transient extractor failures under the given policy.
func WithRetry(inner Extractor, policy services.RetryPolicy) Extractor {
	return Func(func(ctx context.Context, path string) (Result, error) {
		var result Result
		err := services.Retry(ctx, policy, func() error {
			var callErr error
			result, callErr = inner.Extract(ctx, path)
			return callErr
		})
		if err != nil {
			return Result{}, err
		}
		return result, nil
	})
}
