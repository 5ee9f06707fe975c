package bootstrap

import (
	"fmt"
	"sort"
)

// FailureExitCode is returned by Run whenever the target did not
// exit normally (killed by signal, or the run aborted before the target
// could exit at all).
const FailureExitCode = 1

// Options is the fully parsed, validated configuration for one run,
// populated by cmd/cachepirate from CLI flags.
type Options struct {
	// TargetCPU is the CPU the target process is pinned to.
	TargetCPU int
	// ControllerCPU is the CPU the controller goroutine driving the
	// coordination engine is pinned to.
	ControllerCPU int
	// PirateCPUs is one CPU per pirate worker; len(PirateCPUs) is the
	// pirate count.
	PirateCPUs []int
	// FixedPirateSize, if non-zero, disables the sweep and holds the
	// pirate working-set size fixed at this value for the whole run.
	FixedPirateSize uint64
	// TargetEvents are the hardware event names attached to the target's
	// counter group, leader first.
	TargetEvents []string
	// PirateEvents are additional event names attached to every pirate
	// group, on top of the mandatory instructions+cycles pair.
	PirateEvents []string
	// TargetHeatMicros is the duration the target's counters stay
	// disabled after a sweep wrap, letting it re-establish its own
	// working set before the next sweep begins.
	TargetHeatMicros uint64
	// SamplePeriod is the target leader's overflow period (events, or Hz
	// if Freq is set).
	SamplePeriod uint64
	// Freq interprets SamplePeriod as a frequency instead of a raw
	// event count.
	Freq bool
	// NoReference skips the one-time pirate reference measurement.
	NoReference bool
	// Output is the sink's output file path.
	Output string
	// Command is the target's argv, command[0] the executable.
	Command []string
}

// ValidateCPUPins checks that targetCPU, controllerCPU, and every entry of
// pirateCPUs are pairwise distinct, reporting every offending CPU in one
// combined error rather than failing on the first duplicate found —
// matching the original tool's up-front validation before any process is
// forked.
func ValidateCPUPins(targetCPU, controllerCPU int, pirateCPUs []int) error {
	if len(pirateCPUs) == 0 {
		return ErrNoPirateCPUs
	}

	counts := make(map[int]int, len(pirateCPUs)+2)
	counts[targetCPU]++
	counts[controllerCPU]++
	for _, cpu := range pirateCPUs {
		counts[cpu]++
	}

	var conflicts []int
	for cpu, n := range counts {
		if n > 1 {
			conflicts = append(conflicts, cpu)
		}
	}
	if len(conflicts) == 0 {
		return nil
	}
	sort.Ints(conflicts)
	return fmt.Errorf("%w: %v", ErrCPUConflict, conflicts)
}
