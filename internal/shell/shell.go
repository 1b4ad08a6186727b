// Package shell is the interactive command line fed one character at a time
// by the keyboard task.
package shell

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"tickos/internal/sched"
	"tickos/internal/syscall"
	"tickos/internal/task"
)

// Processes is the scheduler surface used by the process commands.
type Processes interface {
	List() []sched.Process
	Spawn(name string, parent sched.PID) sched.PID
	Terminate(pid sched.PID) error
	Block(pid sched.PID) error
	Unblock(pid sched.PID) error
	SetPriority(pid sched.PID, prio uint8) error
	Current() (sched.PID, bool)
}

// Syscalls executes system calls on behalf of the shell.
type Syscalls interface {
	Dispatch(num syscall.Number, args syscall.Args) (uint64, error)
}

// Tasks reports executor activity.
type Tasks interface {
	Len() int
	Stats() task.Stats
}

// Options wires the shell to the rest of the kernel. Out is required; the
// other collaborators are optional and their commands report themselves
// unavailable when missing.
type Options struct {
	Out      io.Writer
	Hostname string
	Procs    Processes
	Syscalls Syscalls
	Tasks    Tasks
	Uptime   func() time.Duration
	// Shutdown is called by exit (reboot=false) and reboot (reboot=true).
	Shutdown func(reboot bool)
}

// Shell holds the line being edited and the command history.
type Shell struct {
	opts    Options
	line    []rune
	history []string
	prompt  *color.Color
}

// New creates a shell. Call Start to print the banner and first prompt.
func New(opts Options) *Shell {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Hostname == "" {
		opts.Hostname = "tickos"
	}
	return &Shell{
		opts:   opts,
		prompt: color.New(color.FgGreen, color.Bold),
	}
}

// Start prints the welcome banner and the prompt.
func (s *Shell) Start() {
	s.printf("\nWelcome to the tickos shell\n")
	s.printf("Type 'help' for available commands\n")
	s.showPrompt()
}

// ProcessChar handles one decoded character.
func (s *Shell) ProcessChar(r rune) {
	switch {
	case r == '\n' || r == '\r':
		s.printf("\n")
		if len(s.line) > 0 {
			line := string(s.line)
			s.line = s.line[:0]
			s.execute(line)
			s.history = append(s.history, line)
		}
		s.showPrompt()
	case r == '\b' || r == 0x7f:
		if len(s.line) > 0 {
			s.line = s.line[:len(s.line)-1]
			s.printf("\b \b")
		}
	case r >= 0x20 && r < 0x7f:
		s.line = append(s.line, r)
		s.printf("%c", r)
	default:
		// function keys, escape and non-ASCII input
	}
}

// Line returns the partially typed command.
func (s *Shell) Line() string { return string(s.line) }

// History returns the executed command lines, oldest first.
func (s *Shell) History() []string {
	return append([]string(nil), s.history...)
}

func (s *Shell) showPrompt() {
	s.printf("%s:~$ ", s.prompt.Sprint(s.opts.Hostname))
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.opts.Out, format, args...)
}

func (s *Shell) println(args ...any) {
	fmt.Fprintln(s.opts.Out, args...)
}

func (s *Shell) execute(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	name, args := fields[0], fields[1:]
	cmd, ok := commands[name]
	if !ok {
		s.printf("Command '%s' not found. Type 'help' for available commands.\n", name)
		return
	}
	cmd.run(s, args)
}
