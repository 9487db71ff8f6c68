package batch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore records every checkpoint save, for asserting on checkpoint
// advancement order.
type memStore struct {
	mu    sync.Mutex
	cp    *Checkpoint
	saves []Checkpoint
}

func (s *memStore) Load() Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cp == nil {
		return emptyCheckpoint()
	}
	return *s.cp
}

func (s *memStore) Save(cp Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := cp
	s.cp = &c
	s.saves = append(s.saves, cp)
	return nil
}

func (s *memStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cp = nil
	return nil
}

// failingStore refuses every write, standing in for a full or read-only disk.
type failingStore struct {
	saves   int32
	cleared int32
}

func (s *failingStore) Load() Checkpoint { return emptyCheckpoint() }

func (s *failingStore) Save(Checkpoint) error {
	atomic.AddInt32(&s.saves, 1)
	return errors.New("disk full")
}

func (s *failingStore) Clear() error {
	atomic.AddInt32(&s.cleared, 1)
	return nil
}

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	cfg.CheckpointPath = filepath.Join(t.TempDir(), "checkpoint.json")
	return cfg
}

func intItems(n int) []int {
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	return items
}

func TestRunSequentialSuccess(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxRetries = 2

	runner, err := NewRunner[int](cfg, WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	var mu sync.Mutex
	var seen []Batch[int]
	step := func(ctx context.Context, b Batch[int]) ([]ItemResult, error) {
		mu.Lock()
		seen = append(seen, b)
		mu.Unlock()
		return nil, nil
	}

	stats, err := runner.Run(context.Background(), intItems(250), step)
	require.NoError(t, err)

	// 3 batches of sizes 100, 100, 50, strictly in order.
	require.Len(t, seen, 3)
	assert.Equal(t, []int{100, 100, 50}, []int{len(seen[0].Items), len(seen[1].Items), len(seen[2].Items)})
	assert.Equal(t, []int{0, 100, 200}, []int{seen[0].GlobalIndex, seen[1].GlobalIndex, seen[2].GlobalIndex})

	assert.Equal(t, 250, stats.ItemsSubmitted)
	assert.Equal(t, 250, stats.ItemsProcessed)
	assert.Equal(t, 250, stats.ItemsSucceeded)
	assert.Equal(t, 0, stats.ItemsFailed)
	assert.Equal(t, 3, stats.BatchesProcessed)
	assert.Equal(t, 0, stats.BatchesFailed)
	assert.Empty(t, stats.Errors)
	assert.Len(t, stats.MemorySamples, 3)

	// Checkpoint file must be gone after a successful run.
	_, statErr := os.Stat(cfg.CheckpointPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunTerminalFailureStopsTheLine(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 10

	runner, err := NewRunner[int](cfg, WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	invocations := make(map[int]int)
	var mu sync.Mutex
	step := func(ctx context.Context, b Batch[int]) ([]ItemResult, error) {
		mu.Lock()
		invocations[b.Index]++
		mu.Unlock()
		if b.Index == 3 {
			return nil, errors.New("poison batch")
		}
		return nil, nil
	}

	stats, err := runner.Run(context.Background(), intItems(100), step)
	require.Error(t, err)

	var terminal *BatchFailureError
	require.ErrorAs(t, err, &terminal)
	assert.Equal(t, 3, terminal.BatchIndex)

	// Default MaxRetries=3: the poison batch is attempted exactly 4 times,
	// and nothing after it starts.
	assert.Equal(t, 4, invocations[3])
	assert.Zero(t, invocations[4])

	assert.Equal(t, 30, stats.ItemsProcessed)
	assert.Equal(t, 10, stats.ItemsFailed)
	assert.Equal(t, 1, stats.BatchesFailed)
	require.Len(t, stats.Errors, 1)
	assert.Equal(t, 3, stats.Errors[0].BatchIndex)
	assert.Equal(t, 30, stats.Errors[0].GlobalIndex)

	// The persisted checkpoint reflects the last strictly completed batch.
	cp := NewFileCheckpointStore(cfg.CheckpointPath).Load()
	assert.Equal(t, 29, cp.LastProcessedIndex)
	assert.Equal(t, 3, cp.ProcessedBatches)
	require.NotNil(t, cp.Timestamp)
}

func TestRunResumesAfterCheckpoint(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 10

	store := NewFileCheckpointStore(cfg.CheckpointPath)
	ts := time.Now().UTC()
	require.NoError(t, store.Save(Checkpoint{LastProcessedIndex: 49, ProcessedBatches: 5, Timestamp: &ts}))

	runner, err := NewRunner[int](cfg, WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	var mu sync.Mutex
	var processed []int
	step := func(ctx context.Context, b Batch[int]) ([]ItemResult, error) {
		mu.Lock()
		processed = append(processed, b.Items...)
		mu.Unlock()
		return nil, nil
	}

	stats, err := runner.Run(context.Background(), intItems(100), step)
	require.NoError(t, err)

	// Items 0-49 are never reprocessed; the first new batch starts at 50.
	require.Len(t, processed, 50)
	assert.Equal(t, 50, processed[0])
	assert.Equal(t, 99, processed[49])
	assert.Equal(t, 50, stats.ItemsSubmitted)
	assert.Equal(t, 50, stats.ItemsProcessed)
}

func TestRunParallelBoundsConcurrency(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 5
	cfg.ParallelBatches = 3

	runner, err := NewRunner[int](cfg, WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	var inFlight, maxSeen int64
	step := func(ctx context.Context, b Batch[int]) ([]ItemResult, error) {
		cur := atomic.AddInt64(&inFlight, 1)
		defer atomic.AddInt64(&inFlight, -1)
		for {
			prev := atomic.LoadInt64(&maxSeen)
			if cur <= prev || atomic.CompareAndSwapInt64(&maxSeen, prev, cur) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		return nil, nil
	}

	stats, err := runner.Run(context.Background(), intItems(100), step)
	require.NoError(t, err)

	assert.LessOrEqual(t, atomic.LoadInt64(&maxSeen), int64(3))
	assert.Equal(t, 100, stats.ItemsProcessed)
	assert.Equal(t, 20, stats.BatchesProcessed)

	_, statErr := os.Stat(cfg.CheckpointPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunParallelCheckpointsOnlyContiguousPrefix(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 10
	cfg.ParallelBatches = 2
	cfg.CheckpointInterval = 1

	store := &memStore{}
	runner, err := NewRunner[int](cfg, WithCheckpointStore(store), WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	// Batch 0 finishes long after its siblings.
	step := func(ctx context.Context, b Batch[int]) ([]ItemResult, error) {
		if b.Index == 0 {
			time.Sleep(30 * time.Millisecond)
		}
		return nil, nil
	}

	_, err = runner.Run(context.Background(), intItems(60), step)
	require.NoError(t, err)

	require.NotEmpty(t, store.saves)
	prev := -1
	for _, cp := range store.saves {
		// Every persisted index must be the end of a batch and strictly
		// advance: a low-water mark, never an out-of-order completion.
		assert.Equal(t, 9, cp.LastProcessedIndex%10)
		assert.Greater(t, cp.LastProcessedIndex, prev)
		prev = cp.LastProcessedIndex
	}
	assert.Equal(t, 59, prev)
}

func TestRunParallelTerminalFailureKeepsPriorCheckpoint(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 10
	cfg.ParallelBatches = 2
	cfg.MaxRetries = 0

	store := &memStore{}
	runner, err := NewRunner[int](cfg, WithCheckpointStore(store), WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	step := func(ctx context.Context, b Batch[int]) ([]ItemResult, error) {
		if b.Index == 2 {
			return nil, errors.New("poison batch")
		}
		return nil, nil
	}

	stats, err := runner.Run(context.Background(), intItems(100), step)
	require.Error(t, err)

	require.Len(t, stats.Errors, 1)
	assert.Equal(t, 2, stats.Errors[0].BatchIndex)

	// The checkpoint never claims completion at or past the failed batch.
	cp := store.Load()
	assert.Less(t, cp.LastProcessedIndex, 20)
}

func TestRunContinuesWhenCheckpointWriteFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 10
	cfg.CheckpointInterval = 1

	store := &failingStore{}
	runner, err := NewRunner[int](cfg, WithCheckpointStore(store), WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	step := func(ctx context.Context, b Batch[int]) ([]ItemResult, error) {
		return nil, nil
	}

	// A store that cannot persist costs resumability, nothing else: the run
	// still completes and reports full stats.
	stats, err := runner.Run(context.Background(), intItems(50), step)
	require.NoError(t, err)

	assert.Equal(t, 50, stats.ItemsProcessed)
	assert.Equal(t, 5, stats.BatchesProcessed)
	assert.Positive(t, atomic.LoadInt32(&store.saves))
	assert.Equal(t, int32(1), atomic.LoadInt32(&store.cleared))
}

func TestRunPerItemResultsTallied(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 4

	runner, err := NewRunner[int](cfg, WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	step := func(ctx context.Context, b Batch[int]) ([]ItemResult, error) {
		results := make([]ItemResult, len(b.Items))
		for i := range results {
			results[i].Success = i%2 == 0
		}
		return results, nil
	}

	stats, err := runner.Run(context.Background(), intItems(8), step)
	require.NoError(t, err)

	assert.Equal(t, 8, stats.ItemsProcessed)
	assert.Equal(t, 4, stats.ItemsSucceeded)
	assert.Equal(t, 4, stats.ItemsFailed)
	assert.Equal(t, 0, stats.BatchesFailed)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 0
	_, err := NewRunner[int](cfg)
	assert.Error(t, err)
}

func TestRunEmptyDataset(t *testing.T) {
	cfg := testConfig(t)
	runner, err := NewRunner[int](cfg, WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	stats, err := runner.Run(context.Background(), nil, func(ctx context.Context, b Batch[int]) ([]ItemResult, error) {
		t.Fatal("step must not be called for an empty dataset")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Zero(t, stats.ItemsProcessed)
	assert.Zero(t, stats.BatchesProcessed)
}
