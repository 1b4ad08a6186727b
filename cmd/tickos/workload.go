package main

import (
	"context"
	"fmt"
	"time"

	"tickos/internal/sched"
)

// workload drives a scheduler with synthetic processes. Each process needs
// burst ticks of CPU time and then exits; every ioEvery ticks the running
// process blocks on I/O for ioTicks.
type workload struct {
	procs    int
	burst    uint64
	ticks    uint64
	ioEvery  uint64
	ioTicks  uint64
	interval time.Duration
}

// run spawns the processes and plays up to w.ticks timer ticks. It stops early
// when every process has exited.
func (w workload) run(ctx context.Context, s *sched.Scheduler) error {
	for i := 1; i <= w.procs; i++ {
		s.Spawn(fmt.Sprintf("proc-%d", i), 0)
	}
	s.Schedule()

	var tick <-chan time.Time
	if w.interval > 0 {
		t := time.NewTicker(w.interval)
		defer t.Stop()
		tick = t.C
	}

	wakeAt := make(map[sched.PID]uint64)
	for n := uint64(1); n <= w.ticks; n++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		ran, running := s.Current()
		s.TimerTick()

		for pid, at := range wakeAt {
			if n >= at {
				delete(wakeAt, pid)
				if err := s.Unblock(pid); err != nil {
					return err
				}
			}
		}

		// The slice may already have rotated ran out; it still owns this tick.
		if p, ok := s.Get(ran); running && ok {
			switch {
			case w.burst > 0 && p.RanTicks >= w.burst:
				if err := s.Terminate(ran); err != nil {
					return err
				}
			case w.ioEvery > 0 && n%w.ioEvery == 0:
				if err := s.Block(ran); err != nil {
					return err
				}
				wakeAt[ran] = n + w.ioTicks
			}
		}

		if s.Len() == 0 {
			return nil
		}
		if _, ok := s.Current(); !ok && len(wakeAt) == 0 {
			return nil
		}
	}
	return nil
}
