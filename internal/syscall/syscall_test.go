package syscall

import (
	"bytes"
	"errors"
	"testing"

	"tickos/internal/klog"
	"tickos/internal/sched"
)

func init() {
	klog.Default.SetLevel(klog.LevelOff)
}

var testUts = Utsname{
	Sysname:  "tickos",
	Nodename: "box",
	Release:  "0.1.0",
	Version:  "#1",
	Machine:  "x86_64",
}

func newHandler() (*Handler, *sched.Scheduler, *bytes.Buffer) {
	s := sched.New(sched.Options{})
	var console bytes.Buffer
	return NewHandler(s, &console, testUts), s, &console
}

func TestDispatch(t *testing.T) {
	h, _, console := newHandler()
	msg := []byte("Hello from syscall!\n")

	specs := []struct {
		name string
		num  Number
		args Args
		exp  uint64
		err  error
	}{
		{"read stdin", Read, Args{}, 0, nil},
		{"read bad fd", Read, Args{A: [6]uint64{5}}, 0, EBADF},
		{"write stdout", Write, Args{A: [6]uint64{1, 0, uint64(len(msg))}, Buf: msg}, uint64(len(msg)), nil},
		{"write bad fd", Write, Args{A: [6]uint64{0, 0, 1}, Buf: msg}, 0, EBADF},
		{"write past buffer", Write, Args{A: [6]uint64{2, 0, 99}, Buf: msg}, 0, EFAULT},
		{"write invalid utf8", Write, Args{A: [6]uint64{1, 0, 1}, Buf: []byte{0xff}}, 0, EINVAL},
		{"open", Open, Args{}, 0, ENOENT},
		{"close user fd", Close, Args{A: [6]uint64{3}}, 0, nil},
		{"close stdio", Close, Args{A: [6]uint64{1}}, 0, EBADF},
		{"uname short buffer", Uname, Args{Buf: make([]byte, 10)}, 0, EFAULT},
		{"unknown", Number(999), Args{}, 0, EINVAL},
	}

	for _, spec := range specs {
		t.Run(spec.name, func(t *testing.T) {
			got, err := h.Dispatch(spec.num, spec.args)
			if !errors.Is(err, spec.err) || (spec.err == nil && err != nil) {
				t.Fatalf("expected error %v; got %v", spec.err, err)
			}
			if got != spec.exp {
				t.Fatalf("expected %d; got %d", spec.exp, got)
			}
		})
	}

	if console.String() != string(msg) {
		t.Fatalf("expected one console write; got %q", console.String())
	}
}

func TestProcessCalls(t *testing.T) {
	h, s, _ := newHandler()
	a := s.Spawn("init", 0)
	b := s.Spawn("sh", a)
	s.Schedule()

	if pid, err := h.Dispatch(GetPID, Args{}); err != nil || sched.PID(pid) != a {
		t.Fatalf("expected getpid %d; got %d (%v)", a, pid, err)
	}

	if _, err := h.Dispatch(SchedYield, Args{}); err != nil {
		t.Fatal(err)
	}
	if cur, _ := s.Current(); cur != b {
		t.Fatalf("expected yield to switch to %d; got %d", b, cur)
	}

	if _, err := h.Dispatch(Exit, Args{A: [6]uint64{0}}); err != nil {
		t.Fatal(err)
	}
	if cur, _ := s.Current(); cur != a {
		t.Fatalf("expected exit to hand the CPU back to %d; got %d", a, cur)
	}

	if _, err := h.Dispatch(Kill, Args{A: [6]uint64{uint64(b)}}); !errors.Is(err, ESRCH) {
		t.Fatalf("expected ESRCH for an exited process; got %v", err)
	}
	if _, err := h.Dispatch(Kill, Args{A: [6]uint64{uint64(a)}}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Dispatch(Exit, Args{}); !errors.Is(err, ESRCH) {
		t.Fatalf("expected ESRCH with nothing running; got %v", err)
	}
	if pid, _ := h.Dispatch(GetPID, Args{}); pid != 0 {
		t.Fatalf("expected getpid 0 when idle; got %d", pid)
	}
}

func TestUname(t *testing.T) {
	h, _, _ := newHandler()
	buf := bytes.Repeat([]byte{'x'}, UtsnameSize)

	if _, err := h.Dispatch(Uname, Args{Buf: buf}); err != nil {
		t.Fatal(err)
	}
	if got := ParseUtsname(buf); got != testUts {
		t.Fatalf("expected %+v; got %+v", testUts, got)
	}
}

func TestReturnEncoding(t *testing.T) {
	specs := []struct {
		v   uint64
		err error
		exp int64
	}{
		{20, nil, 20},
		{0, ENOENT, -2},
		{0, errors.New("other"), -22},
		{1 << 63, nil, -22},
	}
	for _, spec := range specs {
		if got := Return(spec.v, spec.err); got != spec.exp {
			t.Errorf("Return(%d, %v): expected %d; got %d", spec.v, spec.err, spec.exp, got)
		}
	}
}

func TestNames(t *testing.T) {
	if Uname.String() != "uname" || Number(7).String() != "syscall 7" {
		t.Fatal("unexpected syscall names")
	}
	if EBADF.Error() != "bad file descriptor" || Errno(99).Error() != "errno 99" {
		t.Fatal("unexpected errno text")
	}
}
