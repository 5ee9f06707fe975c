//go:build linux

package target

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// Controller owns the target process: its ptrace relationship, CPU pin,
// and the mechanics of resuming it with or without signal pass-through.
type Controller struct {
	cmd *exec.Cmd
	pid int
}

// Spawn starts argv[0] with argv[1:] as arguments, under PTRACE_TRACEME,
// and pins it to cpu at the first available stop point (the kernel's
// post-execve SIGTRAP), before any instruction of the new image has
// retired. This is the idiomatic Go substitute for a pre-exec
// CPU-affinity callback: os/exec has no such hook, but a ptrace exec-stop
// always arrives before the target runs anything.
func Spawn(argv []string, cpu int) (*Controller, error) {
	if len(argv) == 0 {
		return nil, ErrNoCommand
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Ptrace: true}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("target: start %q: %w", argv[0], err)
	}
	pid := cmd.Process.Pid

	var status unix.WaitStatus
	if _, err := unix.Wait4(pid, &status, 0, nil); err != nil {
		return nil, fmt.Errorf("target: wait for exec-stop: %w", err)
	}
	if !status.Stopped() || status.StopSignal() != unix.SIGTRAP {
		return nil, fmt.Errorf("%w: status=%v", ErrUnexpectedStop, status)
	}

	var mask unix.CPUSet
	mask.Zero()
	mask.Set(cpu)
	if err := unix.SchedSetaffinity(pid, &mask); err != nil {
		return nil, fmt.Errorf("target: pin pid %d to cpu %d: %w", pid, cpu, err)
	}

	return &Controller{cmd: cmd, pid: pid}, nil
}

// Pid returns the target's process ID.
func (c *Controller) Pid() int { return c.pid }

// Continue resumes the target, optionally re-delivering sig (0 means no
// signal), via PTRACE_CONT.
func (c *Controller) Continue(sig int) error {
	if err := unix.PtraceCont(c.pid, sig); err != nil {
		return fmt.Errorf("target: ptrace cont pid %d: %w", c.pid, err)
	}
	return nil
}

// Wait blocks for the target's next state change (stop, exit, or
// signal-terminated) and returns its wait status.
func (c *Controller) Wait() (unix.WaitStatus, error) {
	var status unix.WaitStatus
	_, err := unix.Wait4(c.pid, &status, 0, nil)
	if err != nil {
		return 0, fmt.Errorf("target: wait4 pid %d: %w", c.pid, err)
	}
	return status, nil
}

// Kill sends SIGKILL to the target, for use on coordinator shutdown
// (e.g. SIGINT mid-sweep).
func (c *Controller) Kill() error {
	return c.cmd.Process.Kill()
}

// ExitCode reports the target's own exit status when it has exited
// normally, and ok=false otherwise (killed by signal, still running).
func ExitCode(status unix.WaitStatus) (code int, ok bool) {
	if status.Exited() {
		return status.ExitStatus(), true
	}
	return 0, false
}
