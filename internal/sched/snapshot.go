// internal/sched/snapshot.go

package sched

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"tickos/internal/cpu"
)

// ProcessInfo is the serialized form of a process control block.
type ProcessInfo struct {
	PID       PID           `msgpack:"pid"`
	Parent    PID           `msgpack:"parent"`
	Name      string        `msgpack:"name"`
	State     string        `msgpack:"state"`
	Priority  uint8         `msgpack:"priority"`
	RanTicks  uint64        `msgpack:"ran_ticks"`
	Registers cpu.Registers `msgpack:"registers"`
}

// Snapshot is a point-in-time dump of the scheduler.
type Snapshot struct {
	Tick       uint64        `msgpack:"tick"`
	SliceTicks uint64        `msgpack:"slice_ticks"`
	Remaining  uint64        `msgpack:"remaining"`
	Current    PID           `msgpack:"current"`
	Ready      []PID         `msgpack:"ready"`
	Processes  []ProcessInfo `msgpack:"processes"`
}

// Snapshot captures the process table and ready queue.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Tick:       s.ticks,
		SliceTicks: s.sliceTicks,
		Remaining:  s.remaining,
		Current:    s.current,
		Ready:      make([]PID, 0, s.ready.Size()),
		Processes:  make([]ProcessInfo, 0, s.procs.Size()),
	}
	for _, v := range s.ready.Values() {
		snap.Ready = append(snap.Ready, v.(PID))
	}
	for _, v := range s.procs.Values() {
		p := v.(*Process)
		snap.Processes = append(snap.Processes, ProcessInfo{
			PID:       p.PID,
			Parent:    p.Parent,
			Name:      p.Name,
			State:     p.State.String(),
			Priority:  p.Priority,
			RanTicks:  p.RanTicks,
			Registers: p.Registers,
		})
	}
	return snap
}

// WriteSnapshot encodes snap as msgpack.
func WriteSnapshot(w io.Writer, snap Snapshot) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(&snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot decodes a snapshot written by WriteSnapshot.
func ReadSnapshot(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	dec := msgpack.NewDecoder(r)
	if err := dec.Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}
