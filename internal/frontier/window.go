package frontier

import "sync"

// DefaultScoreWindow is the number of recent link scores averaged for health logging.
const DefaultScoreWindow = 1000

// ScoreWindow is a fixed-size ring of recent scores. Every time the number of
// recorded scores reaches a multiple of the window size, Record reports the
// window mean.
type ScoreWindow struct {
	mu     sync.Mutex
	values []float64
	next   int
	filled bool
	sum    float64
	total  uint64
}

// NewScoreWindow returns a window of the given size.
func NewScoreWindow(size int) *ScoreWindow {
	if size <= 0 {
		size = DefaultScoreWindow
	}
	return &ScoreWindow{values: make([]float64, size)}
}

// Record adds a score. ok is true when a reporting boundary was crossed.
func (w *ScoreWindow) Record(v float64) (mean float64, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.sum -= w.values[w.next]
	w.values[w.next] = v
	w.sum += v
	w.next++
	if w.next == len(w.values) {
		w.next = 0
		w.filled = true
	}
	w.total++
	if w.total%uint64(len(w.values)) != 0 {
		return 0, false
	}
	return w.meanLocked(), true
}

// Mean returns the mean of the scores currently held.
func (w *ScoreWindow) Mean() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.meanLocked()
}

func (w *ScoreWindow) meanLocked() float64 {
	n := w.next
	if w.filled {
		n = len(w.values)
	}
	if n == 0 {
		return 0
	}
	if w.filled {
		// Recompute to shed floating-point drift from the running sum.
		w.sum = 0
		for _, v := range w.values {
			w.sum += v
		}
	}
	return w.sum / float64(n)
}

// Size returns the window length.
func (w *ScoreWindow) Size() int {
	return len(w.values)
}
