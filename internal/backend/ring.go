package backend

import "sync/atomic"

// ring is a single-producer single-consumer sample queue between the
// rendering side and the output device. Indices are absolute and only
// ever advanced by their owning side, so no lock is needed on either
// path.
type ring struct {
	buf   []float32
	read  atomic.Int64 // advanced by the consumer only
	write atomic.Int64 // advanced by the producer only
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]float32, capacity)}
}

func (r *ring) writable() int {
	return len(r.buf) - int(r.write.Load()-r.read.Load())
}

func (r *ring) readable() int {
	return int(r.write.Load() - r.read.Load())
}

// push copies as much of src as fits and reports how many samples were
// taken. Producer side only.
func (r *ring) push(src []float32) int {
	n := r.writable()
	if n > len(src) {
		n = len(src)
	}
	w := r.write.Load()
	for i := 0; i < n; i++ {
		r.buf[int(w+int64(i))%len(r.buf)] = src[i]
	}
	r.write.Store(w + int64(n))
	return n
}

// pop copies up to len(dst) samples out and reports how many were
// available. Consumer side only.
func (r *ring) pop(dst []float32) int {
	n := r.readable()
	if n > len(dst) {
		n = len(dst)
	}
	rd := r.read.Load()
	for i := 0; i < n; i++ {
		dst[i] = r.buf[int(rd+int64(i))%len(r.buf)]
	}
	r.read.Store(rd + int64(n))
	return n
}
