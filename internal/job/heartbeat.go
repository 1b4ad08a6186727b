package job

import (
	"sync/atomic"
	"time"

	"fortio.org/safecast"

	"tickos/internal/task"
)

// Heartbeat is a long-lived task that wakes every few ticks and records the
// kernel uptime.
type Heartbeat struct {
	ticks    *Ticks
	every    uint64
	interval time.Duration

	next  uint64
	armed bool

	beats  atomic.Uint64
	uptime atomic.Int64
}

// NewHeartbeat beats every `every` ticks of length interval.
func NewHeartbeat(ticks *Ticks, every uint64, interval time.Duration) *Heartbeat {
	if every == 0 {
		every = 1
	}
	return &Heartbeat{ticks: ticks, every: every, interval: interval}
}

// Poll never completes.
func (h *Heartbeat) Poll(cx *task.Context) task.Poll {
	if !h.armed {
		h.next = h.ticks.Now() + h.every
		h.armed = true
	}
	h.catchUp()
	h.ticks.register(cx.Waker())
	// a tick that landed before the registration already woke us; the waker
	// stays queued for the next one, so it must not be registered twice
	h.catchUp()
	return task.Pending
}

func (h *Heartbeat) catchUp() {
	for now := h.ticks.Now(); now >= h.next; h.next += h.every {
		h.beat(now)
	}
}

func (h *Heartbeat) beat(now uint64) {
	beats := h.beats.Add(1)
	n, err := safecast.Conv[int64](now)
	if err != nil {
		log.Warnf("tick count %d overflows uptime", now)
		return
	}
	up := time.Duration(n) * h.interval
	h.uptime.Store(int64(up))
	log.Debugf("heartbeat %d, uptime %s", beats, up)
}

// Beats returns how many heartbeats fired.
func (h *Heartbeat) Beats() uint64 {
	return h.beats.Load()
}

// Uptime returns the uptime recorded by the last heartbeat.
func (h *Heartbeat) Uptime() time.Duration {
	return time.Duration(h.uptime.Load())
}
