// Package batch implements a resilient batch-processing engine: it splits
// an ordered dataset into fixed-size batches, drives a caller-supplied step
// function over them sequentially or under bounded concurrency, retries
// failures with linear backoff, persists resumable checkpoints, and reports
// throughput and memory pressure.
//
// The engine never inspects item contents; callers plug in domain logic as
// a StepFunc and consume the returned Stats.
package batch

import (
	"time"

	"github.com/pkg/errors"
)

// Defaults applied by DefaultConfig.
const (
	DefaultBatchSize          = 100
	DefaultMaxRetries         = 3
	DefaultRetryDelay         = time.Second
	DefaultParallelBatches    = 1
	DefaultMemoryThreshold    = 500 * 1024 * 1024
	DefaultCheckpointInterval = 10
	DefaultCheckpointPath     = "./batch-checkpoint.json"
)

// Config controls a Runner. Zero values are invalid; start from
// DefaultConfig and override fields as needed.
type Config struct {
	// BatchSize is the number of items per batch. Must be positive.
	BatchSize int

	// MaxRetries is the number of retries after the first attempt of a
	// batch, so each batch is attempted at most MaxRetries+1 times.
	MaxRetries int

	// RetryDelay is the base backoff between attempts; the wait before
	// retry k is RetryDelay * k.
	RetryDelay time.Duration

	// ParallelBatches is the number of batches allowed in flight at once.
	// 1 selects the strictly ordered sequential mode.
	ParallelBatches int

	// MemoryThreshold is the heap size in bytes above which the monitor
	// emits pressure warnings.
	MemoryThreshold uint64

	// CheckpointInterval is how many completed batches elapse between
	// checkpoint writes.
	CheckpointInterval int

	// CheckpointPath is the checkpoint file location used when no custom
	// store is injected.
	CheckpointPath string

	// Verbose enables per-batch debug logging.
	Verbose bool

	// ForceGC, when set, is invoked after a memory-pressure warning.
	// Nil means no manual collection is attempted.
	ForceGC func()
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:          DefaultBatchSize,
		MaxRetries:         DefaultMaxRetries,
		RetryDelay:         DefaultRetryDelay,
		ParallelBatches:    DefaultParallelBatches,
		MemoryThreshold:    DefaultMemoryThreshold,
		CheckpointInterval: DefaultCheckpointInterval,
		CheckpointPath:     DefaultCheckpointPath,
	}
}

// Validate rejects invalid configuration eagerly instead of coercing it.
func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return errors.Errorf("batch: BatchSize must be positive, got %d", c.BatchSize)
	}
	if c.MaxRetries < 0 {
		return errors.Errorf("batch: MaxRetries must not be negative, got %d", c.MaxRetries)
	}
	if c.RetryDelay < 0 {
		return errors.Errorf("batch: RetryDelay must not be negative, got %s", c.RetryDelay)
	}
	if c.ParallelBatches < 1 {
		return errors.Errorf("batch: ParallelBatches must be at least 1, got %d", c.ParallelBatches)
	}
	if c.CheckpointInterval < 1 {
		return errors.Errorf("batch: CheckpointInterval must be at least 1, got %d", c.CheckpointInterval)
	}
	if c.CheckpointPath == "" {
		return errors.New("batch: CheckpointPath must not be empty")
	}
	return nil
}
