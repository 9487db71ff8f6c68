package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// StepFunc processes one batch. It may return per-item results to tally
// item-level success and failure; a nil slice counts every item as
// succeeded. Returning an error marks the attempt failed and triggers a
// retry, up to the configured bound.
type StepFunc[T any] func(ctx context.Context, b Batch[T]) ([]ItemResult, error)

// BatchFailureError is the terminal failure of one batch after all retry
// attempts were exhausted.
type BatchFailureError struct {
	BatchIndex  int
	GlobalIndex int
	Attempts    int
	Err         error
}

func (e *BatchFailureError) Error() string {
	return fmt.Sprintf("batch %d (items from %d) failed after %d attempts: %v",
		e.BatchIndex, e.GlobalIndex, e.Attempts, e.Err)
}

func (e *BatchFailureError) Unwrap() error {
	return e.Err
}

// retryExecutor runs one batch through the step function with bounded
// retries and linear, attempt-scaled backoff.
type retryExecutor[T any] struct {
	maxRetries int
	delay      time.Duration
	log        zerolog.Logger
}

// execute attempts step up to maxRetries+1 times. The wait before retry k
// is delay*k; the goroutine sleeps on a timer so sibling batches keep
// running. It returns the step results and the number of retries consumed,
// or a *BatchFailureError carrying the last step error.
func (r *retryExecutor[T]) execute(ctx context.Context, b Batch[T], step StepFunc[T]) ([]ItemResult, int, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxRetries+1; attempt++ {
		results, err := step(ctx, b)
		if err == nil {
			return results, attempt - 1, nil
		}
		lastErr = err

		if attempt <= r.maxRetries {
			wait := r.delay * time.Duration(attempt)
			r.log.Warn().
				Int("batch", b.Index).
				Int("attempt", attempt).
				Dur("backoff", wait).
				Err(err).
				Msg("batch attempt failed, retrying")
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, attempt - 1, ctx.Err()
			}
		}
	}

	return nil, r.maxRetries, &BatchFailureError{
		BatchIndex:  b.Index,
		GlobalIndex: b.GlobalIndex,
		Attempts:    r.maxRetries + 1,
		Err:         lastErr,
	}
}
