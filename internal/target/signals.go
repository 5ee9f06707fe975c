//go:build linux

package target

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

const sigInfoSize = int(unsafe.Sizeof(unix.SignalfdSiginfo{}))

// SignalRouter delivers a fixed set of signals to the caller through a
// signalfd, multiplexed with unix.Poll, instead of Go's channel-based
// signal.Notify. Bootstrap uses it for SIGINT/SIGTERM only; the perf
// overflow SIGIO goes to the target and is observed as a ptrace stop
// through Controller.Wait.
type SignalRouter struct {
	fd     int
	pollFd []unix.PollFd
}

func sigsetAdd(set *unix.Sigset_t, sig syscall.Signal) {
	word := (sig - 1) / 64
	bit := uint((sig - 1) % 64)
	set.Val[word] |= 1 << bit
}

// NewSignalRouter blocks delivery of sigs on the calling thread's signal
// mask and opens a signalfd that accumulates them instead.
func NewSignalRouter(sigs ...syscall.Signal) (*SignalRouter, error) {
	var mask unix.Sigset_t
	for _, s := range sigs {
		sigsetAdd(&mask, s)
	}
	if err := unix.PthreadSigmask(unix.SIG_BLOCK, &mask, nil); err != nil {
		return nil, fmt.Errorf("target: block signals: %w", err)
	}

	fd, err := unix.Signalfd(-1, &mask, unix.SFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("target: signalfd: %w", err)
	}

	return &SignalRouter{
		fd:     fd,
		pollFd: []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}},
	}, nil
}

// Wait blocks until one of the registered signals arrives and returns it.
func (r *SignalRouter) Wait() (syscall.Signal, error) {
	for {
		n, err := unix.Poll(r.pollFd, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("target: poll signalfd: %w", err)
		}
		if n == 0 || r.pollFd[0].Revents&unix.POLLIN == 0 {
			continue
		}

		buf := make([]byte, sigInfoSize)
		n2, err := unix.Read(r.fd, buf)
		if err == unix.EAGAIN {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("target: read signalfd: %w", err)
		}
		if n2 < sigInfoSize {
			return 0, fmt.Errorf("target: short signalfd read: %d bytes", n2)
		}
		info := (*unix.SignalfdSiginfo)(unsafe.Pointer(&buf[0]))
		return syscall.Signal(info.Signo), nil
	}
}

// Close closes the underlying signalfd.
func (r *SignalRouter) Close() error {
	return unix.Close(r.fd)
}
