package batch

import (
	"sync"
	"time"
)

// memorySampleCap bounds the ring buffer of heap samples kept in Stats.
const memorySampleCap = 100

// ItemResult is an optional per-item outcome a step function may return to
// tally per-item success and failure. A nil outcome slice counts the whole
// batch as succeeded.
type ItemResult struct {
	Success bool
}

// BatchError records one terminal batch failure.
type BatchError struct {
	BatchIndex  int
	GlobalIndex int
	Message     string
	Timestamp   time.Time
}

// Stats aggregates the outcome of one run. A Stats value is returned to the
// caller when the run finishes; the engine does not persist it.
type Stats struct {
	ItemsSubmitted int
	ItemsProcessed int
	ItemsSucceeded int
	ItemsFailed    int

	BatchesProcessed int
	BatchesFailed    int
	Retries          int

	// AvgBatchDuration is the α=0.1 exponential moving average of batch
	// durations, seeded with the first sample.
	AvgBatchDuration time.Duration

	// MemorySamples holds the newest heap samples, oldest first, capped
	// at 100 entries.
	MemorySamples []uint64

	Errors  []BatchError
	Elapsed time.Duration
}

// statsAccumulator is the mutable, mutex-guarded form of Stats shared by
// concurrent batch executions.
type statsAccumulator struct {
	mu        sync.Mutex
	stats     Stats
	emaSeeded bool
}

func newStatsAccumulator(itemsSubmitted int) *statsAccumulator {
	return &statsAccumulator{stats: Stats{ItemsSubmitted: itemsSubmitted}}
}

// recordBatchSuccess tallies one completed batch. results may be nil, in
// which case every item counts as succeeded.
func (a *statsAccumulator) recordBatchSuccess(size, retries int, d time.Duration, results []ItemResult) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.BatchesProcessed++
	a.stats.ItemsProcessed += size
	a.stats.Retries += retries
	a.observeDuration(d)

	if results == nil {
		a.stats.ItemsSucceeded += size
		return
	}
	for _, r := range results {
		if r.Success {
			a.stats.ItemsSucceeded++
		} else {
			a.stats.ItemsFailed++
		}
	}
}

// recordBatchFailure tallies one terminal batch failure.
func (a *statsAccumulator) recordBatchFailure(batchIndex, globalIndex, size, retries int, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.BatchesFailed++
	a.stats.ItemsFailed += size
	a.stats.Retries += retries
	a.stats.Errors = append(a.stats.Errors, BatchError{
		BatchIndex:  batchIndex,
		GlobalIndex: globalIndex,
		Message:     err.Error(),
		Timestamp:   time.Now(),
	})
}

// observeDuration folds one batch duration into the EMA. Callers hold mu.
func (a *statsAccumulator) observeDuration(d time.Duration) {
	if !a.emaSeeded {
		a.stats.AvgBatchDuration = d
		a.emaSeeded = true
		return
	}
	const alpha = 0.1
	a.stats.AvgBatchDuration = time.Duration(
		alpha*float64(d) + (1-alpha)*float64(a.stats.AvgBatchDuration))
}

// recordMemorySample appends a heap sample, evicting the oldest once the
// ring is full.
func (a *statsAccumulator) recordMemorySample(sample uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.MemorySamples = append(a.stats.MemorySamples, sample)
	if len(a.stats.MemorySamples) > memorySampleCap {
		a.stats.MemorySamples = a.stats.MemorySamples[1:]
	}
}

// snapshot copies the accumulated stats with the final elapsed time.
func (a *statsAccumulator) snapshot(elapsed time.Duration) *Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := a.stats
	out.Elapsed = elapsed
	out.MemorySamples = append([]uint64(nil), a.stats.MemorySamples...)
	out.Errors = append([]BatchError(nil), a.stats.Errors...)
	return &out
}
