//go:build linux

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ja7ad/cachepirate/internal/bootstrap"
	"github.com/ja7ad/cachepirate/internal/hwevent"
	"github.com/ja7ad/cachepirate/internal/sink"
	"github.com/ja7ad/cachepirate/internal/topology"
	"github.com/ja7ad/cachepirate/pkg/types"
)

type opts struct {
	targetCPU     int
	controllerCPU int
	pirateCPUs    []int
	pirateSize    string
	targetEvents  []string
	pirateEvents  []string
	heatMicros    uint64
	period        uint64
	freq          bool
	noReference   bool
	output        string
}

// unsetCPU is the --controller-cpu default sentinel: "pick one for me".
const unsetCPU = -1

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "cachepirate [flags] -- target-command [target-args...]",
		Short: "Cache-pirating measurement tool",
		Long: `cachepirate co-runs a target process with one or more pirate threads that
occupy a controlled portion of the shared last-level cache, sweeping the
pirate working-set size and sampling the target's hardware performance
counters at every step, to produce a curve of target behavior versus
cache pressure.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(o, args)
		},
		SilenceUsage: true,
	}

	root.Flags().IntVar(&o.targetCPU, "target-cpu", 0, "CPU the target process is pinned to")
	root.Flags().IntVar(&o.controllerCPU, "controller-cpu", unsetCPU, "CPU the controller goroutine is pinned to (default: lowest CPU not claimed by the target or a pirate)")
	root.Flags().IntSliceVar(&o.pirateCPUs, "pirate-cpu", nil, "CPU(s) to pin pirate workers to (default: one pirate on target-cpu-1, or 1)")
	root.Flags().StringVar(&o.pirateSize, "pirate-size", "", "fixed pirate working-set size (e.g. 512K); disables the sweep")
	root.Flags().StringSliceVar(&o.targetEvents, "target-event", []string{"cycles"}, "hardware event(s) attached to the target, leader first")
	root.Flags().StringSliceVar(&o.pirateEvents, "pirate-event", nil, "additional hardware event(s) attached to every pirate group")
	root.Flags().Uint64Var(&o.heatMicros, "heat-time", 10000, "target heat-time in microseconds after a sweep wrap")
	root.Flags().Uint64Var(&o.period, "period", 1_000_000, "sample period (events) or frequency (Hz, with --freq) of the target leader event")
	root.Flags().BoolVar(&o.freq, "freq", false, "interpret --period as a frequency in Hz instead of an event count")
	root.Flags().BoolVar(&o.noReference, "no-reference", false, "skip the one-time pirate reference measurement")
	root.Flags().StringVarP(&o.output, "output", "o", "run.cpr", "output file path for the binary sample stream")

	root.AddCommand(eventsCommand())

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(bootstrap.FailureExitCode)
	}
}

func eventsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "List known symbolic hardware event names",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range hwevent.Names() {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func run(o opts, args []string) error {
	command, err := targetCommand(args)
	if err != nil {
		return err
	}

	pirateCPUs := o.pirateCPUs
	if len(pirateCPUs) == 0 {
		pirateCPUs = []int{defaultPirateCPU(o.targetCPU)}
	}

	controllerCPU := o.controllerCPU
	if controllerCPU == unsetCPU {
		controllerCPU = defaultControllerCPU(o.targetCPU, pirateCPUs)
	}

	var fixedSize uint64
	if o.pirateSize != "" {
		b, err := parseSize(o.pirateSize)
		if err != nil {
			return fmt.Errorf("cachepirate: --pirate-size: %w", err)
		}
		fixedSize = b
	}

	opts := bootstrap.Options{
		TargetCPU:        o.targetCPU,
		ControllerCPU:    controllerCPU,
		PirateCPUs:       pirateCPUs,
		FixedPirateSize:  fixedSize,
		TargetEvents:     o.targetEvents,
		PirateEvents:     o.pirateEvents,
		TargetHeatMicros: o.heatMicros,
		SamplePeriod:     o.period,
		Freq:             o.freq,
		NoReference:      o.noReference,
		Output:           o.output,
		Command:          command,
	}

	sk, err := sink.NewFileSink(o.output)
	if err != nil {
		return fmt.Errorf("cachepirate: open output: %w", err)
	}
	combined := sink.NewMultiSink(sk, sink.NewStdoutSummary(os.Stdout))

	code, err := bootstrap.Run(opts, topology.NewSysfsOracle(), combined)
	if err != nil {
		slog.Error("run failed", "err", err)
	}
	if code != 0 {
		os.Exit(code)
	}
	return nil
}

// targetCommand extracts the target argv from the arguments following a
// "--" separator. cobra already strips the "--" itself into ArgsLenAtDash
// semantics, but since this command takes no positional args of its own,
// every remaining arg belongs to the target.
func targetCommand(args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("cachepirate: no target command given, use -- target-command [args...]")
	}
	return args, nil
}

// defaultPirateCPU implements the spec.md §6 default: one pirate on
// target_cpu-1, or CPU 1 if that would be negative.
func defaultPirateCPU(targetCPU int) int {
	if targetCPU-1 >= 0 {
		return targetCPU - 1
	}
	return 1
}

// defaultControllerCPU picks the lowest CPU index not already claimed by
// the target or a pirate, so the controller goroutine gets its own CPU
// without requiring the caller to reason about the rest of the pin
// layout (spec.md §5: every thread/process pinned to a distinct CPU).
func defaultControllerCPU(targetCPU int, pirateCPUs []int) int {
	claimed := map[int]bool{targetCPU: true}
	for _, cpu := range pirateCPUs {
		claimed[cpu] = true
	}
	for cpu := 0; ; cpu++ {
		if !claimed[cpu] {
			return cpu
		}
	}
}

func parseSize(s string) (uint64, error) {
	b, err := types.ParseSize(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return uint64(b), nil
}
