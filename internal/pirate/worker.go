//go:build linux

package pirate

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/ja7ad/cachepirate/internal/hugemem"
	"github.com/ja7ad/cachepirate/internal/perf"
)

// TargetHeating reports whether the target is currently in its heating
// interval. Pirate workers spin on this before starting a measured pass.
// Defined here, not in the coordinator, so this package has no dependency
// on the coordinator's state machine.
type TargetHeating interface {
	IsHeating() bool
}

// CounterGroup is the subset of perf.AttachedGroup a pirate worker and
// the coordination engine need: reset and grouped read. Declared here
// (accept interfaces) so tests can substitute a fake without opening a
// real perf_event_open fd.
type CounterGroup interface {
	Reset() error
	Read() (perf.GroupRead, error)
}

// Worker is one cache-pirate thread: a CPU-pinned goroutine that scans a
// portion of the shared buffer while attached to its own counter group.
type Worker struct {
	Index  int
	CPU    int
	Config *Config
	View   *hugemem.View
	Group  CounterGroup
	State  *Cell
}

// Pin locks the calling goroutine to its OS thread and pins that thread to
// Worker.CPU. Must be called from the goroutine that will run Run.
func (w *Worker) Pin() error {
	runtime.LockOSThread()
	var mask unix.CPUSet
	mask.Zero()
	mask.Set(w.CPU)
	if err := unix.SchedSetaffinity(0, &mask); err != nil {
		return fmt.Errorf("pirate: worker %d pin to cpu %d: %w", w.Index, w.CPU, err)
	}
	return nil
}

// FaultIn reads one byte at each huge-page stride of the whole buffer,
// forcing the backing pages resident before measurement begins.
func (w *Worker) FaultIn() error {
	for off := 0; off < w.View.Len(); off += hugemem.PageSize {
		if _, err := w.View.TouchAt(off); err != nil {
			return fmt.Errorf("pirate: worker %d fault-in at %d: %w", w.Index, off, err)
		}
	}
	return nil
}

// scanOnce performs a single full pass over the worker's assigned ranges
// at the given working-set size, reading every line at LineStride.
func (w *Worker) scanOnce(size uint64) error {
	ranges := AssignedRanges(w.Config.LoopVariant, w.Index, w.Config.NPirates, w.Config.WaySize, size)
	stride := w.Config.LineStride
	if stride == 0 {
		stride = 1
	}
	for _, r := range ranges {
		for off := r.Start; off < r.Start+r.Len; off += stride {
			if _, err := w.View.TouchAt(int(off)); err != nil {
				return fmt.Errorf("pirate: worker %d scan at %d: %w", w.Index, off, err)
			}
		}
	}
	return nil
}

// Run executes the worker's main loop: warm-up pass, publish RUNNING,
// spin until the target is not heating, run the measured pass until the
// coordinator requests NEXT_SIZE, repeat. It returns when State observes
// StateFinished.
func (w *Worker) Run(heating TargetHeating) error {
	for {
		prev := w.State.Load()
		size := w.Config.CurrentSize()
		if err := w.scanOnce(size); err != nil {
			return err
		}

		// Publish RUNNING with a compare-and-swap, so that a FINISHED, or a
		// NEXT_SIZE requested while the warm-up pass ran, is not overwritten.
		cur := w.State.Load()
		if cur == StateFinished {
			return nil
		}
		if cur == StateNextSize && prev != StateNextSize {
			continue
		}
		if !w.State.v.CompareAndSwap(int32(cur), int32(StateRunning)) {
			continue
		}
		for heating.IsHeating() {
			runtime.Gosched()
		}

		for w.State.Load() == StateRunning {
			if err := w.scanOnce(size); err != nil {
				return err
			}
		}

		if w.State.Load() == StateFinished {
			return nil
		}
		// StateNextSize: the coordinator has already published a new
		// current_size; loop back and warm up at it.
	}
}

// RunReference performs the one-time reference measurement (worker #0
// only, before the sweep begins): two warm-up passes at total_size/2,
// a counter reset, one measured pass, then a grouped read.
func (w *Worker) RunReference() (perf.GroupRead, error) {
	size := w.Config.TotalSize / 2
	if err := w.scanOnce(size); err != nil {
		return perf.GroupRead{}, err
	}
	if err := w.scanOnce(size); err != nil {
		return perf.GroupRead{}, err
	}
	if err := w.Group.Reset(); err != nil {
		return perf.GroupRead{}, fmt.Errorf("pirate: reference reset: %w", err)
	}
	if err := w.scanOnce(size); err != nil {
		return perf.GroupRead{}, err
	}
	read, err := w.Group.Read()
	if err != nil {
		return perf.GroupRead{}, fmt.Errorf("pirate: reference read: %w", err)
	}
	return read, nil
}
