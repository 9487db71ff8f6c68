package batch

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/dkoehler14/traindata/pkg/logger"
)

// Runner composes the splitter, limiter, retry executor, checkpoint store,
// progress tracker, and memory monitor into a run loop. It is the public
// engine: callers hand it an ordered dataset and a StepFunc and get Stats
// back.
type Runner[T any] struct {
	cfg   Config
	store CheckpointStore
	log   zerolog.Logger
}

// Option customizes a Runner beyond its Config.
type Option func(*runnerSettings)

type runnerSettings struct {
	store CheckpointStore
	log   *zerolog.Logger
}

// WithCheckpointStore replaces the default file-backed checkpoint store.
func WithCheckpointStore(store CheckpointStore) Option {
	return func(s *runnerSettings) { s.store = store }
}

// WithLogger replaces the shared application logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *runnerSettings) { s.log = &log }
}

// NewRunner validates cfg and builds a runner. By default checkpoints live
// in the JSON file at cfg.CheckpointPath and logging goes to the shared
// application logger.
func NewRunner[T any](cfg Config, opts ...Option) (*Runner[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var s runnerSettings
	for _, opt := range opts {
		opt(&s)
	}
	if s.store == nil {
		s.store = NewFileCheckpointStore(cfg.CheckpointPath)
	}
	log := logger.Log
	if s.log != nil {
		log = *s.log
	}

	return &Runner[T]{cfg: cfg, store: s.store, log: log}, nil
}

// Run processes items through step. It resumes after a persisted
// checkpoint, skipping every item at or below LastProcessedIndex. On
// success the checkpoint is cleared and the aggregated Stats returned; on
// a terminal batch failure the checkpoint reflecting all strictly
// completed prior work is persisted, no further batches start, and the
// failure is returned alongside the Stats gathered so far.
func (r *Runner[T]) Run(ctx context.Context, items []T, step StepFunc[T]) (*Stats, error) {
	cp := r.store.Load()
	resumeAt := cp.LastProcessedIndex + 1
	if resumeAt < 0 {
		resumeAt = 0
	}
	if resumeAt > len(items) {
		resumeAt = len(items)
	}
	remaining := items[resumeAt:]

	batches, err := Split(remaining, r.cfg.BatchSize, resumeAt)
	if err != nil {
		return nil, err
	}

	r.log.Info().
		Int("items", len(remaining)).
		Int("batches", len(batches)).
		Int("resumeAt", resumeAt).
		Int("parallel", r.cfg.ParallelBatches).
		Msg("starting batch run")

	run := &runState[T]{
		cfg:      r.cfg,
		store:    r.store,
		log:      r.log,
		step:     step,
		exec:     &retryExecutor[T]{maxRetries: r.cfg.MaxRetries, delay: r.cfg.RetryDelay, log: r.log},
		acc:      newStatsAccumulator(len(remaining)),
		progress: NewProgress(len(batches)),
		monitor:  NewMemoryMonitor(r.cfg.MemoryThreshold, r.cfg.ForceGC, r.log),
		cp:       cp,
	}

	if r.cfg.ParallelBatches > 1 {
		err = run.runParallel(ctx, batches)
	} else {
		err = run.runSequential(ctx, batches)
	}

	stats := run.acc.snapshot(run.progress.Elapsed())
	if err != nil {
		run.saveCheckpoint()
		return stats, err
	}

	if clearErr := r.store.Clear(); clearErr != nil {
		r.log.Warn().Err(clearErr).Msg("failed to clear checkpoint after successful run")
	}
	r.log.Info().
		Int("itemsProcessed", stats.ItemsProcessed).
		Int("batchesProcessed", stats.BatchesProcessed).
		Dur("elapsed", stats.Elapsed).
		Msg("batch run complete")
	return stats, nil
}

// runState carries the per-run collaborators shared by both modes.
type runState[T any] struct {
	cfg      Config
	store    CheckpointStore
	log      zerolog.Logger
	step     StepFunc[T]
	exec     *retryExecutor[T]
	acc      *statsAccumulator
	progress *Progress
	monitor  *MemoryMonitor

	cp            Checkpoint
	sinceLastSave int
}

// runSequential executes batches strictly in order. The checkpoint always
// reflects the last completed batch, and is flushed every
// CheckpointInterval batches.
func (s *runState[T]) runSequential(ctx context.Context, batches []Batch[T]) error {
	for _, b := range batches {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		results, retries, err := s.exec.execute(ctx, b, s.step)
		elapsed := time.Since(start)

		if err != nil {
			s.recordFailure(b, retries, err)
			return err
		}

		s.acc.recordBatchSuccess(len(b.Items), retries, elapsed, results)
		s.progress.Observe(elapsed)
		s.afterBatch(b)

		s.cp.LastProcessedIndex = b.End()
		s.cp.ProcessedBatches++
		s.sinceLastSave++
		if s.sinceLastSave >= s.cfg.CheckpointInterval {
			s.saveCheckpoint()
			s.sinceLastSave = 0
		}
	}
	return nil
}

// batchResult is the outcome of one asynchronous batch execution.
type batchResult[T any] struct {
	batch   Batch[T]
	results []ItemResult
	retries int
	dur     time.Duration
	err     error
}

// runParallel executes batches with at most ParallelBatches in flight and
// at most 2*ParallelBatches admitted, waiting on the oldest ParallelBatches
// results before admitting more. The checkpoint only ever advances to the
// low-water mark: the end of the longest contiguous prefix of completed
// batches, so an out-of-order completion can never persist an index for
// work that is still in flight.
func (s *runState[T]) runParallel(ctx context.Context, batches []Batch[T]) error {
	limiter, err := NewLimiter(s.cfg.ParallelBatches)
	if err != nil {
		return err
	}

	window := 2 * s.cfg.ParallelBatches
	completedEnds := make(map[int]int) // batch index -> last item index
	nextContiguous := 0

	var pending []chan batchResult[T]
	var firstErr error
	next := 0

	launch := func(b Batch[T]) chan batchResult[T] {
		ch := make(chan batchResult[T], 1)
		go func() {
			if err := limiter.Acquire(ctx); err != nil {
				ch <- batchResult[T]{batch: b, err: err}
				return
			}
			defer limiter.Release()

			start := time.Now()
			results, retries, err := s.exec.execute(ctx, b, s.step)
			ch <- batchResult[T]{
				batch:   b,
				results: results,
				retries: retries,
				dur:     time.Since(start),
				err:     err,
			}
		}()
		return ch
	}

	for (firstErr == nil && next < len(batches)) || len(pending) > 0 {
		for firstErr == nil && next < len(batches) && len(pending) < window {
			pending = append(pending, launch(batches[next]))
			next++
		}

		// Wait on the oldest ParallelBatches results; once the input is
		// exhausted or the line is stopped, drain everything in flight.
		waitN := s.cfg.ParallelBatches
		if firstErr != nil || next >= len(batches) {
			waitN = len(pending)
		}
		if waitN > len(pending) {
			waitN = len(pending)
		}

		for i := 0; i < waitN; i++ {
			res := <-pending[i]
			if res.err != nil {
				if firstErr == nil {
					firstErr = res.err
				}
				var terminal *BatchFailureError
				if errors.As(res.err, &terminal) {
					s.recordFailure(res.batch, res.retries, res.err)
				}
				continue
			}

			s.acc.recordBatchSuccess(len(res.batch.Items), res.retries, res.dur, res.results)
			s.progress.Observe(res.dur)
			s.afterBatch(res.batch)

			completedEnds[res.batch.Index] = res.batch.End()
			for end, ok := completedEnds[nextContiguous]; ok; end, ok = completedEnds[nextContiguous] {
				delete(completedEnds, nextContiguous)
				nextContiguous++
				s.cp.LastProcessedIndex = end
				s.cp.ProcessedBatches++
				s.sinceLastSave++
			}
			if s.sinceLastSave >= s.cfg.CheckpointInterval {
				s.saveCheckpoint()
				s.sinceLastSave = 0
			}
		}
		pending = pending[waitN:]
	}

	return firstErr
}

// recordFailure tallies a terminal batch failure. Cancellation errors are
// propagated without being counted against the batch.
func (s *runState[T]) recordFailure(b Batch[T], retries int, err error) {
	var terminal *BatchFailureError
	if !errors.As(err, &terminal) {
		return
	}
	s.acc.recordBatchFailure(b.Index, b.GlobalIndex, len(b.Items), retries, terminal.Err)
	s.log.Error().
		Int("batch", b.Index).
		Int("globalIndex", b.GlobalIndex).
		Int("attempts", terminal.Attempts).
		Err(terminal.Err).
		Msg("batch failed terminally, stopping run")
}

// afterBatch samples memory and reports progress for one completed batch.
func (s *runState[T]) afterBatch(b Batch[T]) {
	s.acc.recordMemorySample(s.monitor.Sample())

	evt := s.log.Debug()
	if s.cfg.Verbose {
		evt = s.log.Info()
	}
	evt.Int("batch", b.Index).
		Float64("percent", s.progress.Percent()).
		Dur("eta", s.progress.ETA()).
		Msg("batch complete")
}

// saveCheckpoint flushes the in-memory checkpoint. A write failure only
// degrades resumability, so it is logged as a warning and the run goes on.
func (s *runState[T]) saveCheckpoint() {
	if s.cp.LastProcessedIndex < 0 {
		return
	}
	now := time.Now().UTC()
	s.cp.Timestamp = &now
	if err := s.store.Save(s.cp); err != nil {
		s.log.Warn().Err(err).Msg("checkpoint write failed, continuing without resumability")
	}
}
