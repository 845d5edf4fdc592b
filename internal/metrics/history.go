package metrics

import (
	"sync"
	"time"
)

// MaxDataPoints bounds each series: ten minutes at one sample per
// second.
const MaxDataPoints = 600

// Point is one sample in a series.
type Point struct {
	Timestamp time.Time
	Value     float64
}

// History is a bounded time series. Safe for concurrent use.
type History struct {
	Name string
	Unit string

	mu     sync.RWMutex
	points []Point
}

// NewHistory creates an empty series.
func NewHistory(name, unit string) *History {
	return &History{Name: name, Unit: unit}
}

// Add appends a sample, evicting the oldest beyond MaxDataPoints.
func (h *History) Add(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.points = append(h.points, Point{Timestamp: time.Now(), Value: value})
	if len(h.points) > MaxDataPoints {
		h.points = h.points[len(h.points)-MaxDataPoints:]
	}
}

// Latest returns the newest sample value.
func (h *History) Latest() (float64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.points) == 0 {
		return 0, false
	}
	return h.points[len(h.points)-1].Value, true
}

// MinMax returns the series bounds, or (0, 1) when empty so chart axes
// stay sane.
func (h *History) MinMax() (float64, float64) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.points) == 0 {
		return 0, 1
	}

	min, max := h.points[0].Value, h.points[0].Value
	for _, p := range h.points[1:] {
		if p.Value < min {
			min = p.Value
		}
		if p.Value > max {
			max = p.Value
		}
	}
	return min, max
}

// Points returns a copy of the series.
func (h *History) Points() []Point {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Point, len(h.points))
	copy(out, h.points)
	return out
}

// Len returns the number of stored samples.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.points)
}
