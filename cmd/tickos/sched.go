package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tickos/internal/sched"
)

var (
	schedProcs    int
	schedTicks    uint64
	schedSlice    uint64
	schedBurst    uint64
	schedIOEvery  uint64
	schedIOTicks  uint64
	schedRealtime bool
	schedCSV      string
	schedDump     string
)

func init() {
	schedCmd.Flags().IntVar(&schedProcs, "procs", 3, "number of processes to spawn")
	schedCmd.Flags().Uint64Var(&schedTicks, "ticks", 100, "maximum number of timer ticks to play")
	schedCmd.Flags().Uint64Var(&schedSlice, "slice", 0, "time slice in ticks (defaults to the configured slice)")
	schedCmd.Flags().Uint64Var(&schedBurst, "burst", 0, "ticks of CPU time each process needs before it exits (0 runs forever)")
	schedCmd.Flags().Uint64Var(&schedIOEvery, "io-every", 0, "block the running process every N ticks (0 disables I/O)")
	schedCmd.Flags().Uint64Var(&schedIOTicks, "io-ticks", 3, "ticks a blocked process waits for its I/O")
	schedCmd.Flags().BoolVar(&schedRealtime, "realtime", false, "pace ticks with the configured tick period")
	schedCmd.Flags().StringVar(&schedCSV, "csv", "", "also write the event trace to this CSV file")
	schedCmd.Flags().StringVar(&schedDump, "dump", "", "write a msgpack snapshot of the final state to this file")
}

var schedCmd = &cobra.Command{
	Use:   "sched",
	Short: "Run the round-robin scheduler on a synthetic workload and print its trace",
	Args:  cobra.NoArgs,
	RunE:  runSched,
}

func runSched(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	slice := schedSlice
	if slice == 0 {
		slice = cfg.Slice()
	}

	out := cmd.OutOrStdout()
	sinks := sched.MultiSink{printSink{w: out}}
	if schedCSV != "" {
		csv, err := sched.CreateCSV(schedCSV)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := csv.Close(); cerr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "event log: %v\n", cerr)
			}
		}()
		sinks = append(sinks, csv)
	}

	s := sched.New(sched.Options{SliceTicks: slice, Sink: sinks})
	w := workload{
		procs:   schedProcs,
		burst:   schedBurst,
		ticks:   schedTicks,
		ioEvery: schedIOEvery,
		ioTicks: schedIOTicks,
	}
	if schedRealtime {
		w.interval = cfg.TickInterval()
	}

	start := time.Now()
	if err := w.run(cmd.Context(), s); err != nil {
		return err
	}
	fmt.Fprintf(out, "played %d ticks in %s, %d processes left\n", s.Ticks(), time.Since(start).Round(time.Microsecond), s.Len())

	if schedDump != "" {
		return dumpSnapshot(schedDump, s.Snapshot())
	}
	return nil
}

func dumpSnapshot(path string, snap sched.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := sched.WriteSnapshot(f, snap); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// printSink writes the trace line of every event.
type printSink struct {
	w io.Writer
}

func (p printSink) Emit(ev sched.Event) {
	fmt.Fprintln(p.w, ev.String())
}
