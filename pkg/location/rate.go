package location

import "sync"

const (
	DefaultRateWindowMs int64 = 1000
)

// RateMeter estimates the fix rate (Hz) over a sliding window. safe for concurrent use.
type RateMeter struct {
	mu         sync.Mutex
	windowMs   int64
	timestamps []int64
}

func NewRateMeter(windowMs int64) *RateMeter {
	if windowMs <= 0 {
		windowMs = DefaultRateWindowMs
	}
	return &RateMeter{windowMs: windowMs}
}

// Observe records a fix received at now (unix ms) and returns the current rate. fewer than two fixes in the
// window report 0.
func (m *RateMeter) Observe(now int64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.timestamps = append(m.timestamps, now)
	cutoff := now - m.windowMs
	i := 0
	for i < len(m.timestamps) && m.timestamps[i] < cutoff {
		i++
	}
	m.timestamps = m.timestamps[i:]

	if len(m.timestamps) <= 1 {
		return 0
	}
	return float64(len(m.timestamps)) * (1000.0 / float64(m.windowMs))
}

func (m *RateMeter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timestamps = m.timestamps[:0]
}
