//go:build linux

package coordinator

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ja7ad/cachepirate/internal/perf"
	"github.com/ja7ad/cachepirate/internal/pirate"
	"github.com/ja7ad/cachepirate/internal/sink"
)

// TargetController is the subset of target.Controller the engine needs:
// resuming the stopped target, with or without re-delivering a signal.
// Declared here so tests can drive the state table without a real
// ptrace'd child.
type TargetController interface {
	Continue(sig int) error
}

// TargetGroup is the subset of perf.AttachedGroup the engine needs for
// the target's counters: reset/enable/disable/read.
type TargetGroup interface {
	Reset() error
	Enable() error
	Disable() error
	Read() (perf.GroupRead, error)
}

// Engine is the coordination engine: the state machine described in
// spec.md §4.4. It owns target_state and reacts to every ptrace stop the
// target controller reports.
type Engine struct {
	Controller   TargetController
	TargetGroup  TargetGroup
	Pirates      []*pirate.Worker
	Config       *pirate.Config
	Sink         sink.Sink
	HeatInterval time.Duration
	NoSweep      bool

	state      *TargetCell
	finishOnce sync.Once
}

// NewEngine constructs an Engine in WAIT_EXEC. The engine's TargetCell
// (see State) is also what every pirate worker should be given as its
// pirate.TargetHeating collaborator.
func NewEngine(c TargetController, targetGroup TargetGroup, pirates []*pirate.Worker, cfg *pirate.Config, sk sink.Sink, heatInterval time.Duration, noSweep bool) *Engine {
	return &Engine{
		Controller:   c,
		TargetGroup:  targetGroup,
		Pirates:      pirates,
		Config:       cfg,
		Sink:         sk,
		HeatInterval: heatInterval,
		NoSweep:      noSweep,
		state:        NewTargetCell(StateWaitExec),
	}
}

// State returns the engine's target state cell.
func (e *Engine) State() *TargetCell { return e.state }

func (e *Engine) resetAllGroups() error {
	if err := e.TargetGroup.Reset(); err != nil {
		return fmt.Errorf("coordinator: reset target group: %w", err)
	}
	for _, w := range e.Pirates {
		if err := w.Group.Reset(); err != nil {
			return fmt.Errorf("coordinator: reset pirate %d group: %w", w.Index, err)
		}
	}
	return nil
}

// publishNextSizeAndWait implements the "synchronization to pirates"
// handshake: the controller writes NEXT_SIZE to every pirate not already
// in NEXT_SIZE and busy-waits until every pirate has left NEXT_SIZE
// (observed RUNNING at the new size). Callers publish the new
// current_size before calling it.
func (e *Engine) publishNextSizeAndWait() {
	for _, w := range e.Pirates {
		if w.State.Load() != pirate.StateNextSize {
			w.State.Store(pirate.StateNextSize)
		}
	}
	for _, w := range e.Pirates {
		for w.State.Load() == pirate.StateNextSize {
			runtime.Gosched()
		}
	}
}

func (e *Engine) atLastStep() bool {
	return e.Config.CurrentSize() >= e.Config.TotalSize-e.Config.WaySize
}

// emit builds and writes one Sample from the current sizes and a fresh
// read of every counter group.
func (e *Engine) emit() error {
	targetRead, err := e.TargetGroup.Read()
	if err != nil {
		return fmt.Errorf("coordinator: read target group: %w", err)
	}

	pirateValues := make([][]uint64, len(e.Pirates))
	for i, w := range e.Pirates {
		r, err := w.Group.Read()
		if err != nil {
			return fmt.Errorf("coordinator: read pirate %d group: %w", i, err)
		}
		pirateValues[i] = r.Values
	}

	pirateSize := e.Config.CurrentSize()
	sample := sink.Sample{
		TargetSize:   e.Config.TotalSize - pirateSize,
		PirateSize:   pirateSize,
		TargetValues: targetRead.Values,
		PirateValues: pirateValues,
	}
	if err := e.Sink.WriteSample(sample); err != nil {
		return fmt.Errorf("coordinator: write sample: %w", err)
	}
	return nil
}

// HandleStop processes one ptrace-stop delivered with signal sig,
// following the state table in spec.md §4.4. It returns an error only
// for fatal conditions (syscall failure); unexpected-but-survivable
// signals are logged and passed through.
func (e *Engine) HandleStop(sig unix.Signal) error {
	switch e.state.Load() {
	case StateWaitExec:
		return e.handleWaitExec(sig)
	case StateRunning:
		return e.handleRunning(sig)
	case StateHeating:
		if sig == unix.SIGIO {
			slog.Warn("SIGIO delivered while heating, anomaly", "signal", sig)
		}
		return e.Controller.Continue(int(sig))
	default:
		return e.Controller.Continue(int(sig))
	}
}

func (e *Engine) handleWaitExec(sig unix.Signal) error {
	if sig != unix.SIGTRAP {
		return e.Controller.Continue(int(sig))
	}
	if err := e.resetAllGroups(); err != nil {
		return err
	}
	e.state.Store(StateRunning)
	return e.Controller.Continue(0)
}

func (e *Engine) handleRunning(sig unix.Signal) error {
	switch {
	case sig == unix.SIGIO && e.NoSweep:
		return e.handleNoSweepSample()
	case sig == unix.SIGIO && !e.NoSweep && !e.atLastStep():
		return e.handleSweepStep()
	case sig == unix.SIGIO && !e.NoSweep && e.atLastStep():
		return e.handleWrapStep()
	case sig == unix.SIGTRAP:
		slog.Warn(ErrUnexpectedStop.Error(), "state", e.state.Load())
		return e.Controller.Continue(int(sig))
	default:
		return e.Controller.Continue(int(sig))
	}
}

func (e *Engine) handleNoSweepSample() error {
	if err := e.emit(); err != nil {
		return err
	}
	if err := e.resetAllGroups(); err != nil {
		return err
	}
	return e.Controller.Continue(0)
}

func (e *Engine) handleSweepStep() error {
	if err := e.emit(); err != nil {
		return err
	}
	e.Config.Advance()
	e.publishNextSizeAndWait()
	if err := e.resetAllGroups(); err != nil {
		return err
	}
	return e.Controller.Continue(0)
}

func (e *Engine) handleWrapStep() error {
	if err := e.emit(); err != nil {
		return err
	}
	if err := e.TargetGroup.Disable(); err != nil {
		return fmt.Errorf("coordinator: disable target group: %w", err)
	}
	e.Config.SetCurrentSize(0)
	e.publishNextSizeAndWait()
	if err := e.Controller.Continue(0); err != nil {
		return err
	}

	e.state.Store(StateHeating)
	time.Sleep(e.HeatInterval)
	e.state.Store(StateRunning)

	if err := e.TargetGroup.Enable(); err != nil {
		return fmt.Errorf("coordinator: re-enable target group: %w", err)
	}
	return e.resetAllGroups()
}

// Finish emits one final best-effort sample (used on target exit and on
// SIGINT) and closes the sink. Read errors are logged, not propagated,
// matching "the core aborts after attempting to emit any already-
// collected sample" for the runtime-error path and "emit a final sample"
// for the exit/SIGINT paths. Idempotent: a SIGINT handler may call this
// ahead of killing the target, and the normal exit path calls it again
// unconditionally once the target has actually died — only the first
// call does anything.
func (e *Engine) Finish() {
	e.finishOnce.Do(func() {
		if err := e.emit(); err != nil {
			slog.Warn("final sample emission failed", "err", err)
		}
		if err := e.Sink.Close(); err != nil {
			slog.Warn("closing sink failed", "err", err)
		}
	})
}
