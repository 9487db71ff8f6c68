package batch

import (
	"sync"
	"time"
)

// emaAlpha is the smoothing factor for the per-batch duration average.
const emaAlpha = 0.1

// Progress tracks completion, a smoothed per-batch duration, and a
// rate-based wall-clock ETA for one run. Safe for concurrent use.
type Progress struct {
	mu        sync.Mutex
	total     int
	completed int
	started   time.Time
	avg       time.Duration
	seeded    bool
}

// NewProgress starts tracking a run of total batches from now.
func NewProgress(total int) *Progress {
	return &Progress{total: total, started: time.Now()}
}

// Observe records one completed batch and its duration. The very first
// sample seeds the average directly; later samples fold in with α=0.1.
func (p *Progress) Observe(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.completed++
	if !p.seeded {
		p.avg = d
		p.seeded = true
		return
	}
	p.avg = time.Duration(emaAlpha*float64(d) + (1-emaAlpha)*float64(p.avg))
}

// Average returns the smoothed per-batch duration, zero before any sample.
func (p *Progress) Average() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.avg
}

// Percent returns completion in [0,100]. A run with zero batches is 100%.
func (p *Progress) Percent() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.total == 0 {
		return 100
	}
	return float64(p.completed) / float64(p.total) * 100
}

// Elapsed returns the wall-clock time since tracking started.
func (p *Progress) Elapsed() time.Duration {
	return time.Since(p.started)
}

// ETA estimates the remaining wall-clock time from the observed rate:
// (elapsed / completed) * remaining. Zero until the first batch completes.
func (p *Progress) ETA() time.Duration {
	p.mu.Lock()
	completed := p.completed
	remaining := p.total - p.completed
	p.mu.Unlock()

	if completed == 0 || remaining <= 0 {
		return 0
	}
	perBatch := float64(time.Since(p.started)) / float64(completed)
	return time.Duration(perBatch * float64(remaining))
}

// Completed returns the number of batches observed so far.
func (p *Progress) Completed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed
}
