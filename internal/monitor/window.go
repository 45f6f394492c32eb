package monitor

// window is a fixed-size ring of the most recent readings.
type window struct {
	values []float64
	size   int
	next   int
	count  int
}

func newWindow(size int) *window {
	return &window{values: make([]float64, size), size: size}
}

func (w *window) push(v float64) {
	w.values[w.next] = v
	w.next = (w.next + 1) % w.size
	if w.count < w.size {
		w.count++
	}
}

func (w *window) full() bool {
	return w.count == w.size
}

// spread is max minus min over the held readings.
func (w *window) spread() float64 {
	if w.count == 0 {
		return 0
	}
	lo, hi := w.values[0], w.values[0]
	for _, v := range w.values[1:w.count] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return hi - lo
}
