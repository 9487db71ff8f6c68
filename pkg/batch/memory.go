package batch

import (
	"runtime"

	"github.com/rs/zerolog"
)

// MemoryMonitor samples the live heap at batch boundaries and warns when a
// sample crosses the configured threshold. Pressure is advisory only; the
// monitor never interrupts a run.
type MemoryMonitor struct {
	threshold uint64
	forceGC   func()
	log       zerolog.Logger
}

// NewMemoryMonitor creates a monitor warning above threshold bytes.
// forceGC may be nil, in which case no manual collection is attempted.
func NewMemoryMonitor(threshold uint64, forceGC func(), log zerolog.Logger) *MemoryMonitor {
	return &MemoryMonitor{threshold: threshold, forceGC: forceGC, log: log}
}

// Sample reads the current heap size, logs a warning when it exceeds the
// threshold, and returns the sample so the caller can record it.
func (m *MemoryMonitor) Sample() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	used := ms.Alloc

	if used > m.threshold {
		m.log.Warn().
			Uint64("heapBytes", used).
			Uint64("thresholdBytes", m.threshold).
			Msg("memory pressure above threshold")
		if m.forceGC != nil {
			m.forceGC()
		}
	}
	return used
}
