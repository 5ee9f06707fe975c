//go:build linux

package bootstrap

import (
	"fmt"
	"log/slog"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/ja7ad/cachepirate/internal/coordinator"
	"github.com/ja7ad/cachepirate/internal/hugemem"
	"github.com/ja7ad/cachepirate/internal/perf"
	"github.com/ja7ad/cachepirate/internal/pirate"
	"github.com/ja7ad/cachepirate/internal/sink"
	"github.com/ja7ad/cachepirate/internal/target"
	"github.com/ja7ad/cachepirate/internal/topology"
)

type pirateReady struct {
	index int
	err   error
	ref   *perf.GroupRead
}

// killer is the subset of target.Controller the SIGINT handler needs.
type killer interface {
	Kill() error
}

// pinSelf locks the calling goroutine to its OS thread and pins that
// thread to cpu, mirroring pirate.Worker.Pin for the controller goroutine.
func pinSelf(cpu int) error {
	runtime.LockOSThread()
	var mask unix.CPUSet
	mask.Zero()
	mask.Set(cpu)
	if err := unix.SchedSetaffinity(0, &mask); err != nil {
		return fmt.Errorf("bootstrap: pin controller to cpu %d: %w", cpu, err)
	}
	return nil
}

// handleSigint implements the documented SIGINT contract (spec.md §4.3,
// §4.4 Cancellation): emit a final sample from whatever the counters
// currently read, then kill the target. engine.Finish is idempotent, so
// the normal exit path's own unconditional Finish call after the target
// actually dies is a no-op here.
func handleSigint(engine *coordinator.Engine, c killer, sig syscall.Signal) {
	slog.Warn("caught signal, stopping target", "signal", sig)
	engine.Finish()
	_ = c.Kill()
}

// Run discovers the target CPU's LLC geometry, allocates the pirate
// buffer, spawns and attaches the target, attaches one counter group per
// pirate, performs the optional reference measurement, writes the sink
// header, and then drives the coordination engine until the target
// exits. It returns the exit code cmd/cachepirate should use: the
// target's own exit code on a normal exit, FailureExitCode otherwise.
func Run(opts Options, oracle topology.Oracle, sk sink.Sink) (int, error) {
	if err := ValidateCPUPins(opts.TargetCPU, opts.ControllerCPU, opts.PirateCPUs); err != nil {
		return FailureExitCode, err
	}
	if len(opts.Command) == 0 {
		return FailureExitCode, target.ErrNoCommand
	}

	targetDescs, err := resolveDescriptors(opts.TargetEvents)
	if err != nil {
		return FailureExitCode, err
	}
	if len(targetDescs) == 0 {
		return FailureExitCode, ErrNoTargetEvents
	}
	pDescs, err := pirateDescriptors(opts.PirateEvents)
	if err != nil {
		return FailureExitCode, err
	}

	cache, err := oracle.LLC(opts.TargetCPU)
	if err != nil {
		return FailureExitCode, fmt.Errorf("bootstrap: discover llc: %w", err)
	}

	totalSize := uint64(cache.Size)
	cfg, err := pirate.NewConfig(cache.Ways, totalSize, cache.LineSize, hugemem.RoundUp(totalSize), len(opts.PirateCPUs))
	if err != nil {
		return FailureExitCode, fmt.Errorf("bootstrap: pirate config: %w", err)
	}
	noSweep := opts.FixedPirateSize > 0
	if noSweep {
		cfg.SetCurrentSize(opts.FixedPirateSize)
	}

	buf, err := hugemem.Allocate(cfg.AllocSize)
	if err != nil {
		return FailureExitCode, fmt.Errorf("bootstrap: allocate huge pages: %w", err)
	}
	defer func() { _ = buf.Close() }()

	controller, err := target.Spawn(opts.Command, opts.TargetCPU)
	if err != nil {
		return FailureExitCode, fmt.Errorf("bootstrap: spawn target: %w", err)
	}
	defer func() { _ = controller.Kill() }()

	targetGroup, err := buildGroup(targetDescs, controller.Pid(), -1, perf.AttachOptions{
		SamplePeriod: opts.SamplePeriod,
		Freq:         opts.Freq,
		WakeupEvents: 1,
	})
	if err != nil {
		return FailureExitCode, fmt.Errorf("bootstrap: attach target group: %w", err)
	}
	defer func() { _ = targetGroup.Close() }()
	if err := targetGroup.SetAsyncOwner(controller.Pid()); err != nil {
		return FailureExitCode, fmt.Errorf("bootstrap: set async owner: %w", err)
	}

	router, err := target.NewSignalRouter(unix.SIGINT, unix.SIGTERM)
	if err != nil {
		return FailureExitCode, fmt.Errorf("bootstrap: open signal router: %w", err)
	}
	defer func() { _ = router.Close() }()

	workers := make([]*pirate.Worker, len(opts.PirateCPUs))
	for i, cpu := range opts.PirateCPUs {
		workers[i] = &pirate.Worker{
			Index: i, CPU: cpu, Config: cfg, View: buf.View(),
			State: pirate.NewCell(pirate.StateRunning),
		}
	}

	engine := coordinator.NewEngine(controller, targetGroup, workers, cfg, sk,
		time.Duration(opts.TargetHeatMicros)*time.Microsecond, noSweep)

	// Each pirate's counter group can only be opened from the pinned OS
	// thread that will run its whole measured lifetime (perf_event_open
	// with pid 0 targets the calling thread), so attach happens inside
	// the worker's own long-lived goroutine, gated by startCh until
	// every pirate (and the optional reference measurement) is ready.
	readyCh := make(chan pirateReady, len(workers))
	startCh := make(chan struct{})
	abortCh := make(chan struct{})
	attachedGroups := make([]*perf.AttachedGroup, len(workers))
	var g errgroup.Group

	for i, w := range workers {
		i, w := i, w
		g.Go(func() error {
			if err := w.Pin(); err != nil {
				readyCh <- pirateReady{index: i, err: err}
				return fmt.Errorf("bootstrap: pin pirate %d: %w", i, err)
			}

			attached, err := buildGroup(pDescs, 0, w.CPU, perf.AttachOptions{})
			if err != nil {
				readyCh <- pirateReady{index: i, err: err}
				return fmt.Errorf("bootstrap: attach pirate %d group: %w", i, err)
			}
			// Closed centrally after the coordination loop and the
			// final Finish() emission, not here: this goroutine returns
			// as soon as the worker observes StateFinished, which races
			// with Finish()'s own final read of every pirate group.
			attachedGroups[i] = attached
			w.Group = attached

			if err := w.FaultIn(); err != nil {
				readyCh <- pirateReady{index: i, err: err}
				return err
			}

			var ref *perf.GroupRead
			if i == 0 && !opts.NoReference {
				r, err := w.RunReference()
				if err != nil {
					readyCh <- pirateReady{index: i, err: err}
					return fmt.Errorf("bootstrap: reference measurement: %w", err)
				}
				ref = &r
			}

			readyCh <- pirateReady{index: i, ref: ref}
			select {
			case <-startCh:
			case <-abortCh:
				return fmt.Errorf("bootstrap: pirate %d: setup aborted", i)
			}
			return w.Run(engine.State())
		})
	}

	var refRead *perf.GroupRead
	var setupErr error
	for range workers {
		msg := <-readyCh
		if msg.err != nil && setupErr == nil {
			setupErr = msg.err
		}
		if msg.ref != nil {
			refRead = msg.ref
		}
	}
	if setupErr != nil {
		close(abortCh)
		_ = g.Wait()
		for _, ag := range attachedGroups {
			if ag != nil {
				_ = ag.Close()
			}
		}
		return FailureExitCode, setupErr
	}

	header := sink.Header{
		Pirate: sink.PirateConfig{
			Ways: cfg.Ways, TotalSize: cfg.TotalSize, LineStride: cfg.LineStride, WaySize: cfg.WaySize,
			NoSweep: noSweep, NPirates: len(workers), PirateCPUs: opts.PirateCPUs, Descriptors: pDescs,
		},
		Target: sink.TargetConfig{
			CPU: opts.TargetCPU, SamplePeriod: opts.SamplePeriod, Descriptors: targetDescs, Command: opts.Command,
		},
	}
	if refRead != nil {
		header.Reference = &sink.Reference{
			Values: refRead.Values, TimeEnabled: refRead.TimeEnabled, TimeRunning: refRead.TimeRunning,
		}
	}
	if err := sk.WriteHeader(header); err != nil {
		close(abortCh)
		_ = g.Wait()
		for _, ag := range attachedGroups {
			if ag != nil {
				_ = ag.Close()
			}
		}
		return FailureExitCode, fmt.Errorf("bootstrap: write header: %w", err)
	}

	close(startCh)

	go func() {
		sig, err := router.Wait()
		if err != nil {
			return
		}
		handleSigint(engine, controller, sig)
	}()

	var exitStatus unix.WaitStatus
	g.Go(func() error {
		// The controller goroutine owns target_state and the ptrace wait
		// loop for the rest of the run; pin it to its own CPU before it
		// starts driving the engine, same as every pirate pins itself
		// before running its touch loop.
		if err := pinSelf(opts.ControllerCPU); err != nil {
			return err
		}
		// The exec-stop target.Spawn already consumed to apply the CPU
		// pin is exactly the SIGTRAP the WAIT_EXEC state table entry
		// expects; replay it into the engine now that every counter
		// group is attached, instead of waiting for a second one that
		// will never arrive.
		if err := engine.HandleStop(unix.SIGTRAP); err != nil {
			return fmt.Errorf("bootstrap: initial exec-stop handling: %w", err)
		}
		for {
			status, err := controller.Wait()
			if err != nil {
				return fmt.Errorf("bootstrap: wait target: %w", err)
			}
			if status.Exited() || status.Signaled() {
				exitStatus = status
				for _, w := range workers {
					w.State.Store(pirate.StateFinished)
				}
				return nil
			}
			if !status.Stopped() {
				continue
			}
			if err := engine.HandleStop(status.StopSignal()); err != nil {
				return fmt.Errorf("bootstrap: handle stop: %w", err)
			}
		}
	})

	runErr := g.Wait()
	engine.Finish()
	for _, ag := range attachedGroups {
		if ag != nil {
			_ = ag.Close()
		}
	}

	if runErr != nil {
		return FailureExitCode, runErr
	}
	if code, ok := target.ExitCode(exitStatus); ok {
		return code, nil
	}
	return FailureExitCode, nil
}
