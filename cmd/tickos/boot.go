package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tickos/internal/keyboard"
	"tickos/internal/klog"
	"tickos/internal/kmain"
	"tickos/internal/version"
)

var (
	bootScript   string
	bootKeyDelay time.Duration
)

func init() {
	bootCmd.Flags().StringVar(&bootScript, "script", "", "type the lines of this file into the shell, then exit")
	bootCmd.Flags().DurationVar(&bootKeyDelay, "key-delay", time.Millisecond, "delay between typed keys")
}

var bootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Boot the kernel and attach the terminal to its keyboard",
	Args:  cobra.NoArgs,
	RunE:  runBoot,
}

func runBoot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		input   io.Reader = os.Stdin
		console io.Writer = os.Stdout
		panicW  io.Writer = os.Stderr
	)
	switch {
	case bootScript != "":
		data, err := os.ReadFile(bootScript)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		input = strings.NewReader(string(data) + "\nexit\n")
	case isTerminal(os.Stdin):
		fd := int(os.Stdin.Fd())
		state, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("raw terminal: %w", err)
		}
		restore := func() { _ = term.Restore(fd, state) }
		defer restore()

		console = crlfWriter{w: os.Stdout}
		klog.Default.SetOutput(crlfWriter{w: os.Stderr})
		defer klog.Default.SetOutput(os.Stderr)
		panicW = &restoreOnWrite{w: os.Stderr, restore: restore}
	}

	fmt.Fprintf(console, "%s %s\n", color.New(color.Bold).Sprint("tickos"), version.Colored())

	host := newHostInput(input)
	src := keyboard.Default()
	for {
		sess := host.session()
		k, err := kmain.New(cfg, kmain.Options{
			Console:  console,
			Input:    sess,
			KeyDelay: bootKeyDelay,
			Panic:    panicW,
			Keyboard: src,
		})
		if err != nil {
			sess.Close()
			return err
		}
		err = k.Boot(ctx)
		sess.Close()
		if !errors.Is(err, kmain.ErrReboot) {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprintln(console, "rebooting...")
		// The scancode source serves one stream per boot.
		src = &keyboard.Source{}
	}
}

// restoreOnWrite leaves raw mode before the first write so the panic banner
// reaches a sane terminal.
type restoreOnWrite struct {
	w       io.Writer
	restore func()
	done    bool
}

func (r *restoreOnWrite) Write(p []byte) (int, error) {
	if !r.done {
		r.done = true
		r.restore()
	}
	return r.w.Write(p)
}
