package server

import "sync"

// logRing is the operator log: a bounded sequence of lines addressed by
// absolute index. Index i stays valid until the line is evicted.
type logRing struct {
	mu    sync.Mutex
	buf   []string
	total uint64
}

func newLogRing(capacity int) *logRing {
	return &logRing{buf: make([]string, 0, capacity)}
}

func (r *logRing) append(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.buf) < cap(r.buf) {
		r.buf = append(r.buf, line)
	} else {
		r.buf[r.total%uint64(cap(r.buf))] = line
	}
	r.total++
}

// bounds returns the absolute index of the oldest retained line and one past
// the newest.
func (r *logRing) bounds() (first, end uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total - uint64(len(r.buf)), r.total
}

// each calls f for the retained lines in [from, to).
func (r *logRing) each(from, to uint64, f func(line string)) {
	r.mu.Lock()
	first := r.total - uint64(len(r.buf))
	if from < first {
		from = first
	}
	if to > r.total {
		to = r.total
	}
	lines := make([]string, 0, to-min(from, to))
	for i := from; i < to; i++ {
		lines = append(lines, r.buf[i%uint64(cap(r.buf))])
	}
	r.mu.Unlock()

	for _, l := range lines {
		f(l)
	}
}
