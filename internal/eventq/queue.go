// Package eventq provides the bounded queue used for every hand-off between
// interrupt context and the cooperative world.
//
// Queue is a fixed-capacity multi-producer/multi-consumer ring in the style of
// Dmitry Vyukov's bounded queue: every slot carries a sequence number and
// producers and consumers claim positions with a single CAS. Push and Pop never
// block, never allocate, and never take a lock, so an interrupt handler can push
// while the code it interrupted is in the middle of a Pop.
package eventq

import "sync/atomic"

type slot[T any] struct {
	seq atomic.Uint64
	val T
}

// Queue is a bounded lock-free FIFO.
type Queue[T any] struct {
	head  atomic.Uint64 // next position to pop
	_     [56]byte
	tail  atomic.Uint64 // next position to push
	_     [56]byte
	cap   uint64
	slots []slot[T]
}

// New returns an empty queue holding at most capacity values. It panics if
// capacity is not positive.
func New[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		panic("eventq: capacity must be positive")
	}
	q := &Queue[T]{
		cap:   uint64(capacity),
		slots: make([]slot[T], capacity),
	}
	for i := range q.slots {
		q.slots[i].seq.Store(uint64(i))
	}
	return q
}

// Push appends v. It returns false, leaving the queue unchanged, when the queue
// is full: the newest value is the one that is dropped.
func (q *Queue[T]) Push(v T) bool {
	pos := q.tail.Load()
	for {
		s := &q.slots[pos%q.cap]
		seq := s.seq.Load()
		switch diff := int64(seq) - int64(pos); {
		case diff == 0:
			if q.tail.CompareAndSwap(pos, pos+1) {
				s.val = v
				s.seq.Store(pos + 1)
				return true
			}
		case diff < 0:
			return false
		}
		pos = q.tail.Load()
	}
}

// Pop removes the oldest value. ok is false when the queue is empty.
func (q *Queue[T]) Pop() (v T, ok bool) {
	pos := q.head.Load()
	for {
		s := &q.slots[pos%q.cap]
		seq := s.seq.Load()
		switch diff := int64(seq) - int64(pos+1); {
		case diff == 0:
			if q.head.CompareAndSwap(pos, pos+1) {
				v = s.val
				var zero T
				s.val = zero
				s.seq.Store(pos + q.cap)
				return v, true
			}
		case diff < 0:
			return v, false
		}
		pos = q.head.Load()
	}
}

// Len returns the number of queued values. Under concurrent use it is a
// snapshot that may already be stale.
func (q *Queue[T]) Len() int {
	head := q.head.Load()
	tail := q.tail.Load()
	n := tail - head
	if n > q.cap {
		n = q.cap
	}
	return int(n)
}

// IsEmpty reports whether Len is zero.
func (q *Queue[T]) IsEmpty() bool {
	return q.Len() == 0
}

// Cap returns the fixed capacity.
func (q *Queue[T]) Cap() int {
	return int(q.cap)
}
