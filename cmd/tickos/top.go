package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"tickos/internal/sched"
	"tickos/internal/tui"
)

var (
	topProcs   int
	topTicks   uint64
	topBurst   uint64
	topIOEvery uint64
)

func init() {
	topCmd.Flags().IntVar(&topProcs, "procs", 5, "number of processes to spawn")
	topCmd.Flags().Uint64Var(&topTicks, "ticks", 1000, "maximum number of timer ticks to play")
	topCmd.Flags().Uint64Var(&topBurst, "burst", 150, "ticks of CPU time each process needs before it exits")
	topCmd.Flags().Uint64Var(&topIOEvery, "io-every", 17, "block the running process every N ticks")
}

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Watch the scheduler run a synthetic workload",
	Args:  cobra.NoArgs,
	RunE:  runTop,
}

func runTop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	events := sched.NewChannelSink(256)
	s := sched.New(sched.Options{SliceTicks: cfg.Slice(), Sink: events})
	w := workload{
		procs:    topProcs,
		burst:    topBurst,
		ticks:    topTicks,
		ioEvery:  topIOEvery,
		ioTicks:  5,
		interval: cfg.TickInterval(),
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	outcome := make(chan error, 1)
	go func() {
		err := w.run(ctx, s)
		events.Close()
		outcome <- err
	}()

	title := fmt.Sprintf("round robin, %d processes, slice %d ticks", topProcs, cfg.Slice())
	program := tea.NewProgram(tui.NewMonitor(title, s, events.C(), 0), tea.WithOutput(cmd.OutOrStdout()))
	_, uiErr := program.Run()
	cancel()
	runErr := <-outcome
	if uiErr != nil {
		return uiErr
	}
	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	if n := events.Dropped(); n > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d events did not fit in the view buffer\n", n)
	}
	return nil
}
