// Package kmain assembles the kernel: CPU, interrupt controller, devices,
// scheduler, executor and shell, and boots it on the host.
package kmain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"tickos/internal/config"
	"tickos/internal/cpu"
	"tickos/internal/hw"
	"tickos/internal/irq"
	"tickos/internal/job"
	"tickos/internal/kerr"
	"tickos/internal/keyboard"
	"tickos/internal/klog"
	"tickos/internal/sched"
	"tickos/internal/shell"
	"tickos/internal/syscall"
	"tickos/internal/task"
	"tickos/internal/version"
)

var log = klog.For("kmain")

// ErrReboot is returned by Boot when the shell asked for a reboot.
var ErrReboot = errors.New("reboot requested")

var errShutdown = errors.New("shutdown requested")

// ErrHalted is returned by Boot after a kernel panic when Options.Halt
// returned instead of exiting.
var ErrHalted = errors.New("kernel halted")

// Options carries the host side of the kernel.
type Options struct {
	// Console receives shell output. Defaults to os.Stdout.
	Console io.Writer
	// Input is typed on the PS/2 keyboard. Nil leaves the keyboard idle.
	Input io.Reader
	// KeyDelay paces typed input so a pasted script cannot outrun the
	// scancode queue. Defaults to one millisecond.
	KeyDelay time.Duration
	// Panic receives the kernel panic banner. Defaults to os.Stderr.
	Panic io.Writer
	// Keyboard is the scancode source. Defaults to keyboard.Default(), which
	// supports a single boot per process.
	Keyboard *keyboard.Source
	// Sink receives scheduler events in addition to the configured CSV log.
	Sink sched.EventSink
	// Halt replaces the host exit after a kernel panic.
	Halt func()
}

// Kernel is one booted instance.
type Kernel struct {
	cfg  config.Config
	opts Options

	cpu   *cpu.CPU
	irqs  *irq.Controller
	idt   *irq.Table
	pit   *hw.PIT
	ps2   *hw.PS2
	kbd   *keyboard.Source
	sched *sched.Scheduler
	procs *guardedScheduler
	exec  *task.Executor
	ticks *job.Ticks
	beat  *job.Heartbeat
	sys   *syscall.Handler
	shell *shell.Shell
	csv   *sched.CSVSink

	cancel context.CancelCauseFunc
}

// New wires a kernel from cfg. It creates the init process and schedules it,
// but starts no device; see Boot.
func New(cfg config.Config, opts Options) (*Kernel, error) {
	if opts.Console == nil {
		opts.Console = os.Stdout
	}
	if opts.Panic == nil {
		opts.Panic = os.Stderr
	}
	if opts.KeyDelay == 0 {
		opts.KeyDelay = time.Millisecond
	}
	if opts.Keyboard == nil {
		opts.Keyboard = keyboard.Default()
	}

	k := &Kernel{cfg: cfg, opts: opts, kbd: opts.Keyboard}

	var sinks sched.MultiSink
	if cfg.EventLog != "" {
		csv, err := sched.CreateCSV(cfg.EventLog)
		if err != nil {
			return nil, err
		}
		k.csv = csv
		sinks = append(sinks, csv)
	}
	if opts.Sink != nil {
		sinks = append(sinks, opts.Sink)
	}

	k.cpu = cpu.New()
	k.sched = sched.New(sched.Options{SliceTicks: cfg.Slice(), Sink: sinks})
	k.procs = &guardedScheduler{cpu: k.cpu, s: k.sched}
	k.exec = task.NewExecutor(task.Config{QueueCapacity: cfg.ReadyQueueCap, CPU: k.cpu})
	k.ticks = job.NewTicks(job.DefaultSleepers)
	k.beat = job.NewHeartbeat(k.ticks, cfg.Heartbeat(), cfg.TickInterval())

	pic := &irq.PIC{}
	table := &irq.Table{}
	k.idt = table
	k.irqs = irq.NewController(k.cpu, pic, table)
	k.pit = hw.NewPIT(cfg.TickInterval(), k.irqs.Line(irq.Timer))
	k.ps2 = hw.NewPS2(k.irqs.Line(irq.Keyboard))
	table.Set(irq.Timer, irq.TimerHandler(pic, k.sched, k.ticks))
	table.Set(irq.Keyboard, irq.KeyboardHandler(pic, k.ps2, k.kbd.AddScancode))

	k.sys = syscall.NewHandler(k.procs, opts.Console, syscall.Utsname{
		Sysname:  "tickos",
		Nodename: cfg.Hostname,
		Release:  version.Version,
		Version:  "#1 SMP PREEMPT_RR",
		Machine:  "x86_64",
	})
	k.shell = shell.New(shell.Options{
		Out:      opts.Console,
		Hostname: cfg.Hostname,
		Procs:    k.procs,
		Syscalls: k.sys,
		Tasks:    k.exec,
		Uptime:   k.Uptime,
		Shutdown: k.requestShutdown,
	})

	initPID := k.sched.Spawn("init", 0)
	if _, ok := k.sched.Schedule(); !ok {
		return nil, fmt.Errorf("init process %d did not start", initPID)
	}
	return k, nil
}

// Boot starts the devices and runs the executor until ctx is done or the shell
// shuts the kernel down. A fatal kernel error prints the panic banner and
// halts the host process.
func (k *Kernel) Boot(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	k.cancel = cancel
	defer cancel(nil)

	log.Infof("booting tickos %s (tick %s, slice %d ticks)", version.Version, k.cfg.TickInterval(), k.cfg.Slice())

	err := k.guard(func() error {
		stream := k.kbd.NewStream(k.cfg.ScancodeQueueCap)
		k.shell.Start()
		k.exec.Spawn(task.New(keyboard.NewKeypressTask(stream, k.shell)))
		k.exec.Spawn(task.New(k.beat))
		return nil
	})
	if err != nil {
		_ = k.closeEventLog()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return k.guard(func() error { return k.exec.Run(gctx) })
	})
	g.Go(func() error {
		return k.guard(func() error { return k.pit.Run(gctx) })
	})
	if k.opts.Input != nil {
		g.Go(func() error {
			return k.feed(gctx)
		})
	}

	err = g.Wait()
	if cerr := k.closeEventLog(); cerr != nil {
		log.Errorf("event log: %v", cerr)
	}

	cause := context.Cause(ctx)
	switch {
	case errors.Is(cause, ErrReboot):
		log.Infof("rebooting")
		return ErrReboot
	case errors.Is(cause, errShutdown), errors.Is(err, hw.ErrHostInterrupt):
		log.Infof("system halted")
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil
	}
	return err
}

// feed types the host input on the PS/2 keyboard. Reads from a terminal cannot
// be interrupted, so the reader runs detached and Boot does not wait for it.
func (k *Kernel) feed(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		errc <- k.guard(func() error {
			return k.ps2.Feed(ctx, &pacedReader{ctx: ctx, r: k.opts.Input, delay: k.opts.KeyDelay})
		})
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return nil
	}
}

// guard runs fn under the kernel panic handler. Interrupt handlers run on the
// goroutine of the device that raised them, so every device goroutine needs it.
func (k *Kernel) guard(fn func() error) error {
	var err error
	if kerr.GuardHalt(k.opts.Panic, k.opts.Halt, func() { err = fn() }) {
		return ErrHalted
	}
	return err
}

func (k *Kernel) requestShutdown(reboot bool) {
	if k.cancel == nil {
		return
	}
	if reboot {
		k.cancel(ErrReboot)
		return
	}
	k.cancel(errShutdown)
}

func (k *Kernel) closeEventLog() error {
	if k.csv == nil {
		return nil
	}
	err := k.csv.Close()
	k.csv = nil
	return err
}

// Uptime is the number of timer ticks times the tick period.
func (k *Kernel) Uptime() time.Duration {
	return time.Duration(k.ticks.Now()) * k.cfg.TickInterval()
}

// Scheduler returns the process scheduler. Callers outside interrupt context
// should prefer Processes.
func (k *Kernel) Scheduler() *sched.Scheduler { return k.sched }

// Processes returns the scheduler view that masks the timer interrupt around
// every call.
func (k *Kernel) Processes() shell.Processes { return k.procs }

// Shell returns the kernel shell.
func (k *Kernel) Shell() *shell.Shell { return k.shell }

// Keyboard returns the PS/2 controller the host types on.
func (k *Kernel) Keyboard() *hw.PS2 { return k.ps2 }

// Timer returns the PIT.
func (k *Kernel) Timer() *hw.PIT { return k.pit }

// CPU returns the simulated processor.
func (k *Kernel) CPU() *cpu.CPU { return k.cpu }
