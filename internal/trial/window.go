package trial

import "github.com/san-kum/containment/internal/geom"

// Window is a fixed-capacity ring of samples. Pushing into a full window
// evicts the oldest sample first, so Len never exceeds Cap.
type Window struct {
	buf  []geom.Vec3
	head int
	n    int
}

func NewWindow(capacity int) *Window {
	w := &Window{}
	w.Reset(capacity)
	return w
}

// Reset empties the window and resizes it to capacity.
func (w *Window) Reset(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	if cap(w.buf) >= capacity {
		w.buf = w.buf[:capacity]
	} else {
		w.buf = make([]geom.Vec3, capacity)
	}
	w.head, w.n = 0, 0
}

func (w *Window) Cap() int   { return len(w.buf) }
func (w *Window) Len() int   { return w.n }
func (w *Window) Full() bool { return w.n == len(w.buf) }

func (w *Window) Push(v geom.Vec3) {
	if w.Full() {
		w.EvictOldest()
	}
	w.buf[(w.head+w.n)%len(w.buf)] = v
	w.n++
}

// EvictOldest drops the oldest sample. It is a no-op on an empty window.
func (w *Window) EvictOldest() {
	if w.n == 0 {
		return
	}
	w.head = (w.head + 1) % len(w.buf)
	w.n--
}

// Values returns the samples oldest first.
func (w *Window) Values() []geom.Vec3 {
	out := make([]geom.Vec3, w.n)
	for i := range out {
		out[i] = w.buf[(w.head+i)%len(w.buf)]
	}
	return out
}

func (w *Window) StdDev() geom.Vec3 { return geom.StdDev(w.Values()) }

// Still reports whether every axis deviates less than threshold.
func (w *Window) Still(threshold float64) bool {
	return w.StdDev().LessThan(geom.V(threshold, threshold, threshold))
}
