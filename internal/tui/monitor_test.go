package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"tickos/internal/sched"
)

type fixedSnapshot struct{ snap sched.Snapshot }

func (f *fixedSnapshot) Snapshot() sched.Snapshot { return f.snap }

func newTestMonitor() (*monitorModel, *fixedSnapshot, chan sched.Event) {
	src := &fixedSnapshot{snap: sched.Snapshot{
		Tick:       10,
		SliceTicks: 5,
		Remaining:  2,
		Current:    1,
		Ready:      []sched.PID{2},
		Processes: []sched.ProcessInfo{
			{PID: 1, Name: "init", State: "Running", RanTicks: 7},
			{PID: 2, Name: "an-extremely-long-worker-name", State: "Ready", RanTicks: 3},
		},
	}}
	events := make(chan sched.Event, 16)
	m := NewMonitor("scheduler", src, events, 0).(*monitorModel)
	return m, src, events
}

func TestMonitorView(t *testing.T) {
	m, _, _ := newTestMonitor()
	view := m.View()

	for _, want := range []string{"scheduler", "tick 10", "running pid 1", "slice 2/5", "init", "an-extremel...", "press q to quit"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected %q in view:\n%s", want, view)
		}
	}
}

func TestMonitorKeepsEventTail(t *testing.T) {
	m, _, _ := newTestMonitor()
	for i := 0; i < logLines+3; i++ {
		m.Update(eventMsg(sched.Event{Tick: uint64(i), Kind: sched.EventDispatch, PID: 1, Name: "init"}))
	}
	if len(m.log) != logLines {
		t.Fatalf("expected %d log lines; got %d", logLines, len(m.log))
	}
	if !strings.HasPrefix(m.log[0], "0000003 Dispatch") {
		t.Fatalf("expected the oldest lines to be dropped; got %q", m.log[0])
	}
}

func TestMonitorRefreshAndDone(t *testing.T) {
	m, src, _ := newTestMonitor()

	src.snap.Tick = 20
	m.Update(refreshMsg{})
	if m.snap.Tick != 20 {
		t.Fatalf("expected a refreshed snapshot; got tick %d", m.snap.Tick)
	}

	src.snap.Tick = 30
	_, cmd := m.Update(doneMsg{})
	if !m.done || m.snap.Tick != 30 {
		t.Fatal("expected the final snapshot on done")
	}
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.Quit")
	}
	if strings.Contains(m.View(), "press q") || !strings.Contains(m.View(), "done: scheduler") {
		t.Fatalf("unexpected final view:\n%s", m.View())
	}
}

func TestMonitorListensUntilClosed(t *testing.T) {
	m, _, events := newTestMonitor()
	events <- sched.Event{Kind: sched.EventIdle}
	close(events)

	listen := m.listenForEvent()
	if _, ok := listen().(eventMsg); !ok {
		t.Fatal("expected the queued event first")
	}
	if _, ok := listen().(doneMsg); !ok {
		t.Fatal("expected done after close")
	}
}

func TestMonitorQuitKey(t *testing.T) {
	m, _, _ := newTestMonitor()
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected q to quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.Quit")
	}
}
