package shell

import (
	"errors"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"tickos/internal/sched"
	"tickos/internal/syscall"
	"tickos/internal/version"
)

type command struct {
	usage string
	help  string
	run   func(s *Shell, args []string)
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"help":    {"help", "Show this help message", (*Shell).cmdHelp},
		"clear":   {"clear", "Clear the screen", (*Shell).cmdClear},
		"echo":    {"echo [text]", "Echo arguments to the screen", (*Shell).cmdEcho},
		"uname":   {"uname", "Show system information", (*Shell).cmdUname},
		"whoami":  {"whoami", "Show current user", (*Shell).cmdWhoami},
		"uptime":  {"uptime", "Show system uptime", (*Shell).cmdUptime},
		"memory":  {"memory", "Show heap statistics", (*Shell).cmdMemory},
		"version": {"version", "Show the kernel version", (*Shell).cmdVersion},
		"history": {"history", "Show command history", (*Shell).cmdHistory},
		"ps":      {"ps", "List processes", (*Shell).cmdPs},
		"spawn":   {"spawn <name>", "Start a process", (*Shell).cmdSpawn},
		"kill":    {"kill <pid>", "Terminate a process", (*Shell).cmdKill},
		"block":   {"block <pid>", "Block a process", (*Shell).cmdBlock},
		"unblock": {"unblock <pid>", "Make a blocked process ready", (*Shell).cmdUnblock},
		"nice":    {"nice <pid> <prio>", "Set a process priority (0-255)", (*Shell).cmdNice},
		"tasks":   {"tasks", "Show async executor statistics", (*Shell).cmdTasks},
		"syscall": {"syscall <test>", "Test system calls (getpid, write, uname, yield)", (*Shell).cmdSyscall},
		"exit":    {"exit", "Shut the kernel down", (*Shell).cmdExit},
		"reboot":  {"reboot", "Reboot the kernel", (*Shell).cmdReboot},
	}
}

func (s *Shell) cmdHelp([]string) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	s.println("Available commands:")
	for _, name := range names {
		c := commands[name]
		s.printf("  %s - %s\n", runewidth.FillRight(c.usage, 18), c.help)
	}
}

func (s *Shell) cmdClear([]string) {
	s.printf("\x1b[2J\x1b[H")
	s.printf("tickos %s - shell cleared\n", version.Version)
}

func (s *Shell) cmdEcho(args []string) {
	s.println(strings.Join(args, " "))
}

func (s *Shell) cmdUname([]string) {
	if s.opts.Syscalls == nil {
		s.println("tickos x86_64")
		return
	}
	buf := make([]byte, syscall.UtsnameSize)
	if _, err := s.opts.Syscalls.Dispatch(syscall.Uname, syscall.Args{Buf: buf}); err != nil {
		s.printf("uname: %v\n", err)
		return
	}
	u := syscall.ParseUtsname(buf)
	s.printf("%s %s %s %s %s\n", u.Sysname, u.Nodename, u.Release, u.Version, u.Machine)
}

func (s *Shell) cmdWhoami([]string) {
	s.println("root")
}

func (s *Shell) cmdUptime([]string) {
	if s.opts.Uptime == nil {
		s.println("uptime: timer not available")
		return
	}
	s.printf("System uptime: %s\n", s.opts.Uptime())
}

func (s *Shell) cmdMemory([]string) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	s.printf("Heap: %d KiB in use, %d KiB reserved, %d objects\n",
		m.HeapInuse/1024, m.HeapSys/1024, m.HeapObjects)
	s.printf("GC cycles: %d\n", m.NumGC)
}

func (s *Shell) cmdVersion([]string) {
	s.printf("tickos %s - a host-simulated interrupt-driven kernel\n", version.Colored())
	s.printf("Target: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func (s *Shell) cmdHistory([]string) {
	s.println("Command history:")
	for i, line := range s.history {
		s.printf("  %d: %s\n", i+1, line)
	}
}

const nameWidth = 16

func (s *Shell) cmdPs([]string) {
	if !s.requireProcs() {
		return
	}
	cur, _ := s.opts.Procs.Current()
	s.printf("%5s %5s %-10s %4s %7s  %s\n", "PID", "PPID", "STATE", "PRIO", "TICKS", "NAME")
	for _, p := range s.opts.Procs.List() {
		mark := " "
		if p.PID == cur {
			mark = "*"
		}
		s.printf("%5d %5d %-10s %4d %7d %s%s\n",
			p.PID, p.Parent, p.State, p.Priority, p.RanTicks, mark, fitName(p.Name))
	}
}

func fitName(name string) string {
	if runewidth.StringWidth(name) <= nameWidth {
		return name
	}
	return runewidth.Truncate(name, nameWidth, "...")
}

func (s *Shell) cmdSpawn(args []string) {
	if !s.requireProcs() {
		return
	}
	if len(args) != 1 {
		s.println("Usage: spawn <name>")
		return
	}
	parent, _ := s.opts.Procs.Current()
	pid := s.opts.Procs.Spawn(args[0], parent)
	s.printf("Spawned %s with PID %d\n", args[0], pid)
}

func (s *Shell) cmdKill(args []string) {
	s.withPID("kill", args, s.opts.procsOp(Processes.Terminate), "Terminated")
}

func (s *Shell) cmdBlock(args []string) {
	s.withPID("block", args, s.opts.procsOp(Processes.Block), "Blocked")
}

func (s *Shell) cmdUnblock(args []string) {
	s.withPID("unblock", args, s.opts.procsOp(Processes.Unblock), "Unblocked")
}

func (s *Shell) cmdNice(args []string) {
	if !s.requireProcs() {
		return
	}
	if len(args) != 2 {
		s.println("Usage: nice <pid> <prio>")
		return
	}
	pid, ok := s.parsePID(args[0])
	if !ok {
		return
	}
	prio, err := strconv.ParseUint(args[1], 10, 8)
	if err != nil {
		s.printf("nice: invalid priority %q\n", args[1])
		return
	}
	if err := s.opts.Procs.SetPriority(pid, uint8(prio)); err != nil {
		s.printf("nice: %v\n", err)
		return
	}
	s.printf("PID %d priority set to %d\n", pid, prio)
}

func (s *Shell) cmdTasks([]string) {
	if s.opts.Tasks == nil {
		s.println("tasks: executor not available")
		return
	}
	st := s.opts.Tasks.Stats()
	s.printf("Live tasks: %d\n", s.opts.Tasks.Len())
	s.printf("Spawned: %d  Completed: %d  Polls: %d  Stale wakeups: %d  Halts: %d\n",
		st.Spawned, st.Completed, st.Polls, st.StaleWakeups, st.Halts)
}

func (s *Shell) cmdSyscall(args []string) {
	if len(args) == 0 {
		s.println("Usage: syscall <test_name>")
		s.println("Available tests: getpid, write, uname, yield")
		return
	}
	if s.opts.Syscalls == nil {
		s.println("syscall: not available")
		return
	}
	switch args[0] {
	case "getpid":
		pid, err := s.opts.Syscalls.Dispatch(syscall.GetPID, syscall.Args{})
		s.report(err, "Process ID: %d", pid)
	case "write":
		msg := []byte("Hello from syscall!\n")
		n, err := s.opts.Syscalls.Dispatch(syscall.Write, syscall.Args{
			A:   [6]uint64{1, 0, uint64(len(msg))},
			Buf: msg,
		})
		s.report(err, "Wrote %d bytes", n)
	case "uname":
		s.cmdUname(nil)
	case "yield":
		_, err := s.opts.Syscalls.Dispatch(syscall.SchedYield, syscall.Args{})
		cur := sched.PID(0)
		if s.opts.Procs != nil {
			cur, _ = s.opts.Procs.Current()
		}
		s.report(err, "Yielded; now running PID %d", cur)
	default:
		s.printf("Unknown syscall test: %s\n", args[0])
	}
}

func (s *Shell) cmdExit([]string) {
	s.println("Shutting down tickos...")
	if s.opts.Shutdown != nil {
		s.opts.Shutdown(false)
	}
}

func (s *Shell) cmdReboot([]string) {
	s.println("Rebooting tickos...")
	if s.opts.Shutdown != nil {
		s.opts.Shutdown(true)
	}
}

func (s *Shell) report(err error, format string, args ...any) {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		s.printf("Error: %v (errno %d)\n", errno, int(errno))
		return
	}
	if err != nil {
		s.printf("Error: %v\n", err)
		return
	}
	s.printf(format+"\n", args...)
}

func (s *Shell) requireProcs() bool {
	if s.opts.Procs == nil {
		s.println("processes: scheduler not available")
		return false
	}
	return true
}

func (s *Shell) parsePID(arg string) (sched.PID, bool) {
	n, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || n == 0 {
		s.printf("invalid pid %q\n", arg)
		return 0, false
	}
	return sched.PID(n), true
}

// procsOp binds a Processes method expression to the configured scheduler.
func (o Options) procsOp(op func(Processes, sched.PID) error) func(sched.PID) error {
	if o.Procs == nil {
		return nil
	}
	return func(pid sched.PID) error { return op(o.Procs, pid) }
}

func (s *Shell) withPID(name string, args []string, op func(sched.PID) error, done string) {
	if op == nil {
		s.requireProcs()
		return
	}
	if len(args) != 1 {
		s.printf("Usage: %s <pid>\n", name)
		return
	}
	pid, ok := s.parsePID(args[0])
	if !ok {
		return
	}
	if err := op(pid); err != nil {
		s.printf("%s: %v\n", name, err)
		return
	}
	s.printf("%s PID %d\n", done, pid)
}
